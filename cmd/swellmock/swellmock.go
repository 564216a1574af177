package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"

	"github.com/swellcast/swellcast/mockserver"
)

func main() {
	parser := argparse.NewParser("swellmock", "Mock swellcast backend for local development")
	port := parser.String("p", "port", &argparse.Options{Help: "Port to listen on", Default: ":8080"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	srv := mockserver.NewServer(logger)
	daemon.SdNotify(false, daemon.SdNotifyReady)
	if err := srv.ListenAndServe(*port); err != nil {
		logger.Errorf("ListenAndServe returned: %v", err)
		os.Exit(1)
	}
}
