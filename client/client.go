package client

// Package client assembles the full swellcast client core: credential store,
// API transport, session manager, local state DB, image cache and the
// per-domain stores. A frontend (CLI, app shell) creates one Client and
// talks to its members.

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/config"
	"github.com/swellcast/swellcast/client/identity"
	"github.com/swellcast/swellcast/client/imagecache"
	"github.com/swellcast/swellcast/client/session"
	"github.com/swellcast/swellcast/client/statedb"
	"github.com/swellcast/swellcast/client/stores"
	"github.com/swellcast/swellcast/pkg/creds"
)

// Interval at which expired cache entries are reaped. Reads already check
// TTLs themselves, so this only bounds memory held by dead entries.
const sweepInterval = 5 * time.Minute

type Client struct {
	Log        logs.Log
	Config     *config.Config
	API        *api.Client
	Session    *session.Manager
	StateDB    *statedb.StateDB
	Images     *imagecache.ImageCache
	Conditions *stores.ConditionsStore
	Forecast   *stores.ForecastStore
	Spots      *stores.SpotsStore
	Reports    *stores.ReportsStore
	Live       *stores.LiveUpdater

	google *identity.GoogleProvider
}

func NewClient(logger logs.Log, cfg *config.Config) (*Client, error) {
	c := &Client{
		Log:    logger,
		Config: cfg,
	}

	credStore, err := creds.NewFileStore(filepath.Join(cfg.DataDir, "credentials"), cfg.CredentialSecret)
	if err != nil {
		return nil, fmt.Errorf("Failed to open credential store: %w", err)
	}

	c.StateDB, err = statedb.NewStateDB(logger, filepath.Join(cfg.DataDir, "state.sqlite"))
	if err != nil {
		return nil, err
	}

	c.Images, err = imagecache.NewImageCache(logger, filepath.Join(cfg.DataDir, "images"), cfg.ImageCacheMemoryBytes())
	if err != nil {
		return nil, fmt.Errorf("Failed to open image cache: %w", err)
	}

	c.API = api.NewClient(logger, cfg.BaseURL())
	c.Session = session.NewManager(logger, c.API, credStore, c.StateDB, cfg.Mode)

	c.Conditions = stores.NewConditionsStore(logger, c.API, cfg.ConditionsTTLDuration())
	c.Forecast = stores.NewForecastStore(logger, c.API, cfg.ForecastTTLDuration())
	c.Spots = stores.NewSpotsStore(logger, c.API, c.Images, c.StateDB, cfg.SpotsTTLDuration())
	c.Reports = stores.NewReportsStore(logger, c.API, cfg.ConditionsTTLDuration())
	c.Live = stores.NewLiveUpdater(logger, c.API, c.Conditions)

	// Signout must leave nothing behind that a different account could see.
	c.Session.RegisterClearHook(func() {
		c.Conditions.InvalidateAll()
		c.Forecast.InvalidateAll()
		c.Spots.InvalidateAll()
		c.Reports.InvalidateAll()
		c.Images.Clear()
		if err := c.StateDB.ResetDerived(); err != nil {
			logger.Errorf("Failed to reset state DB on signout: %v", err)
		}
	})

	return c, nil
}

// Login runs the interactive Google sign-in flow and establishes a backend
// session. The OAuth provider is created lazily so that headless operations
// (validate, cached reads) never touch the Google endpoints.
func (c *Client) Login(ctx context.Context) (err error) {
	if c.google == nil {
		c.google, err = identity.NewGoogleProvider(ctx, c.Log, c.Config.Google.ClientID, c.Config.Google.ClientSecret)
		if err != nil {
			return err
		}
		c.Session.SetProviderSignOut(c.google.SignOut)
	}
	idToken, err := c.google.AcquireIDToken(ctx)
	if err != nil {
		return err
	}
	_, err = c.Session.Authenticate(ctx, idToken)
	return err
}

// Start begins the background machinery: cache sweepers and the live
// conditions feed. Safe to call once, after NewClient.
func (c *Client) Start() {
	c.Conditions.StartSweeper(sweepInterval)
	c.Forecast.StartSweeper(sweepInterval)
	c.Spots.StartSweeper(sweepInterval)
	c.Live.Start()
}

func (c *Client) Close() {
	c.Live.Stop()
	c.Conditions.StopSweeper()
	c.Forecast.StopSweeper()
	c.Spots.StopSweeper()
	if err := c.StateDB.Close(); err != nil {
		c.Log.Warnf("Error closing state DB: %v", err)
	}
}
