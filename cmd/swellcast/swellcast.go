package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"

	"github.com/swellcast/swellcast/client"
	"github.com/swellcast/swellcast/client/config"
	"github.com/swellcast/swellcast/client/model"
)

func main() {
	nominalDefaultConfig := "$HOME/.config/swellcast/config.json"

	parser := argparse.NewParser("swellcast", "Surf conditions client")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: nominalDefaultConfig})
	doLogin := parser.Flag("", "login", &argparse.Options{Help: "Sign in with Google", Default: false})
	devEmail := parser.String("", "dev-email", &argparse.Options{Help: "Create a dev-mode session for this email (dev backend only)", Default: ""})
	doValidate := parser.Flag("", "validate", &argparse.Options{Help: "Validate the stored session", Default: false})
	doLogout := parser.Flag("", "logout", &argparse.Options{Help: "Sign out and clear all local data", Default: false})
	region := parser.String("", "region", &argparse.Options{Help: "List surf spots in a region", Default: ""})
	spot := parser.String("", "spot", &argparse.Options{Help: "Show conditions and forecast for a spot", Default: ""})
	days := parser.Int("", "days", &argparse.Options{Help: "Extended forecast range in days (with --spot)", Default: 0})
	doSync := parser.Flag("", "sync", &argparse.Options{Help: "Run as a daemon, keeping caches warm via the live feed", Default: false})
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

	var cfg *config.Config
	if *configFile == nominalDefaultConfig {
		// No config file is fine for the default path; dev tooling relies on
		// env vars alone.
		cfg, err = config.Load("")
		if errors.Is(err, os.ErrNotExist) {
			cfg, err = config.Default()
		}
	} else {
		cfg, err = config.Load(*configFile)
	}
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	c, err := client.NewClient(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx := context.Background()

	switch {
	case *doLogin:
		if err := c.Login(ctx); err != nil {
			logger.Errorf("Login failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Signed in as %v\n", c.Session.User().Email)
	case *devEmail != "":
		user, err := c.Session.DevSession(ctx, *devEmail)
		if err != nil {
			logger.Errorf("Dev session failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Dev session created for %v\n", user.Email)
	case *doValidate:
		user, err := c.Session.ValidateSession(ctx)
		if err != nil {
			logger.Errorf("Session validation failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Session valid for %v\n", user.Email)
	case *doLogout:
		c.Session.Logout(ctx)
		fmt.Printf("Signed out\n")
	case *region != "":
		spots, err := c.Spots.ByRegion(ctx, *region)
		if err != nil {
			logger.Errorf("Failed to list spots: %v", err)
			os.Exit(1)
		}
		for _, s := range spots {
			fmt.Printf("%-16v %v (%.4f, %.4f)\n", s.ID, s.Name, s.Latitude, s.Longitude)
		}
	case *spot != "":
		showSpot(ctx, c, *spot, *days)
	case *doSync:
		runSync(c)
	default:
		fmt.Print(parser.Usage(nil))
	}
}

func showSpot(ctx context.Context, c *client.Client, spotID string, days int) {
	cond, err := c.Conditions.Get(ctx, spotID)
	if err != nil {
		c.Log.Errorf("Failed to fetch conditions: %v", err)
		os.Exit(1)
	}
	fmt.Printf("%v: %.1f ft @ %.0f s from %.0f deg, wind %.0f mph, water %.0f F\n",
		cond.SpotID, cond.WaveHeightFt, cond.PeriodSec, cond.DirectionDeg, cond.WindSpeedMph, cond.WaterTempF)

	var forecast *model.Forecast
	if days > 0 {
		done := make(chan bool)
		c.Forecast.SelectExtendedRange(ctx, spotID, days, func(f *model.Forecast, err2 error) {
			forecast, err = f, err2
			close(done)
		})
		<-done
	} else {
		forecast, err = c.Forecast.Get(ctx, spotID)
	}
	if err != nil {
		c.Log.Errorf("Failed to fetch forecast: %v", err)
		os.Exit(1)
	}
	for _, day := range forecast.Days {
		fmt.Printf("%v  %4.1f-%4.1f ft  face %4.1f ft  energy %6.0f  wind %2.0f mph  %v/5\n",
			day.Date, day.MinHeightFt, day.MaxHeightFt, day.BreakingHeightFt, day.SwellEnergy, day.WindSpeedMph, day.Rating)
	}
	for _, ai := range forecast.AIDays {
		fmt.Printf("%v  ~%.1f ft (%.0f%% confidence)  %v\n", ai.Date, ai.HeightFt, ai.Confidence*100, ai.Summary)
	}
}

// runSync keeps the client alive as a daemon: sweepers running, live feed
// connected, until SIGINT/SIGTERM.
func runSync(c *client.Client) {
	c.Start()
	daemon.SdNotify(false, daemon.SdNotifyReady)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	c.Log.Infof("Received %v, shutting down", s)
	daemon.SdNotify(false, daemon.SdNotifyStopping)
}
