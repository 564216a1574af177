package identity

// Package identity obtains the Google identity token that the session
// manager posts to the backend login endpoint. The backend only ever sees
// the id_token; OAuth refresh tokens stay on this side.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/cyclopcam/logs"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type GoogleProvider struct {
	log      logs.Log
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewGoogleProvider(ctx context.Context, log logs.Log, clientID, clientSecret string) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return &GoogleProvider{
		log: log,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// AcquireIDToken runs the OAuth2 loopback flow: listen on an ephemeral
// localhost port, direct the user's browser at the consent URL, and trade
// the returned code for a verified ID token.
func (p *GoogleProvider) AcquireIDToken(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer listener.Close()

	cfg := *p.oauth
	cfg.RedirectURL = fmt.Sprintf("http://%v/callback", listener.Addr())

	state, err := randomString(32)
	if err != nil {
		return "", err
	}
	nonce, err := randomString(32)
	if err != nil {
		return "", err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errCh <- fmt.Errorf("state mismatch in OAuth callback")
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		codeCh <- r.URL.Query().Get("code")
		fmt.Fprintf(w, "Signed in. You can close this tab and return to swellcast.")
	})
	srv := &http.Server{Handler: mux}
	go srv.Serve(listener)
	defer srv.Close()

	authURL := cfg.AuthCodeURL(state, oidc.Nonce(nonce))
	p.log.Infof("Open this URL in your browser to sign in:\n%v", authURL)

	var code string
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errCh:
		return "", err
	case code = <-codeCh:
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	rawID, ok := token.Extra("id_token").(string)
	if !ok {
		return "", fmt.Errorf("token response carried no id_token")
	}
	idToken, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return "", fmt.Errorf("id_token verification: %w", err)
	}
	if idToken.Nonce != nonce {
		return "", fmt.Errorf("id_token nonce mismatch")
	}
	return rawID, nil
}

// SignOut discards provider-side state. Google has no client-initiated
// remote signout; forgetting our tokens is all there is to do.
func (p *GoogleProvider) SignOut() {
	p.log.Infof("Signed out of Google identity provider")
}

func randomString(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
