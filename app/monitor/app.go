// Package monitor wires the auramon binary: configuration, identity
// resolution against the node keystore, the RPC connection, the store, and
// ownership of the watch loop.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/substrate-tools/auramon/pkg/db"
	"github.com/substrate-tools/auramon/pkg/keystore"
	"github.com/substrate-tools/auramon/pkg/logging"
	"github.com/substrate-tools/auramon/pkg/monitor"
	"github.com/substrate-tools/auramon/pkg/render"
	"github.com/substrate-tools/auramon/pkg/rpc"
	"go.uber.org/zap"
)

// App is the assembled monitor process.
type App struct {
	Logger  *zap.Logger
	Monitor *monitor.Monitor
	Client  *rpc.Client
	Watch   bool
}

// Initialize resolves the identity, connects to the node, confirms the node
// actually holds the detected key, and opens the store. Every failure here
// is fatal by design: the monitor never runs with an unconfirmed identity
// or without its durable record.
func Initialize(ctx context.Context, cfg *Config) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	printer, err := render.New(cfg.ColorMode, cfg.TZ)
	if err != nil {
		return nil, err
	}

	identity, err := keystore.Detect(cfg.KeystorePath)
	if err != nil {
		return nil, err
	}

	var store db.Store = db.Nop{}
	if !cfg.NoStore {
		sqlite, sErr := db.OpenSQLite(cfg.DBPath, logger)
		if sErr != nil {
			return nil, sErr
		}
		store = sqlite
	}

	client, err := rpc.Dial(ctx, cfg.WS, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	has, err := client.HasKey(ctx, identity.Hex, "aura")
	if err != nil {
		_ = client.Close()
		_ = store.Close()
		return nil, err
	}
	if !has {
		_ = client.Close()
		_ = store.Close()
		return nil, fmt.Errorf("refusing to run: detected aura key %s is not present in this node's keystore (author_hasKey=false)", identity.Hex)
	}

	mCfg := monitor.Config{
		EpochSize:     cfg.EpochSize,
		EpochOverride: cfg.EpochOverride,
		SlotsOverride: cfg.SlotsOverride,
		PollInterval:  cfg.PollInterval,
	}
	if err := mCfg.Validate(); err != nil {
		_ = client.Close()
		_ = store.Close()
		return nil, err
	}

	return &App{
		Logger: logger,
		Client: client,
		Watch:  cfg.Watch,
		Monitor: &monitor.Monitor{
			Chain:       client,
			Store:       store,
			Logger:      logger,
			Printer:     printer,
			Config:      mCfg,
			Identity:    identity.Key,
			IdentityHex: identity.Hex,
		},
	}, nil
}

// Run executes one pass, or keeps polling in watch mode until the context
// is cancelled. A failed tick ends the run; only the initial dial retries.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	st := monitor.PollState{}
	for {
		var err error
		st, err = a.Monitor.Tick(ctx, st)
		if err != nil {
			return err
		}
		if !a.Watch {
			return nil
		}

		sleep := a.Monitor.SleepFor(st)
		a.Logger.Debug("sleeping until next poll", zap.Duration("sleep", sleep))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// Close releases the RPC connection and the store.
func (a *App) Close() {
	_ = a.Client.Close()
	_ = a.Monitor.Store.Close()
	_ = a.Logger.Sync()
}
