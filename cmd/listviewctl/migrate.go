package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-listview/pkg/storage"
)

type migrateCmd struct {
	Down   bool   `help:"Revert every migration instead of applying them."`
	Driver string `help:"Database driver (overrides store.driver)."`
	DSN    string `name:"dsn" help:"Data source name (overrides store.dsn)."`

	out io.Writer
}

func (cmd *migrateCmd) Run(_ context.Context, g *Globals) error {
	cfg, logger, closeLog, err := g.load()
	if err != nil {
		return err
	}
	defer closeLog()
	driver, dsn := cfg.Store.Driver, cfg.Store.DSN
	if cmd.Driver != "" {
		driver = cmd.Driver
	}
	if cmd.DSN != "" {
		dsn = cmd.DSN
	}
	if driver == "" || dsn == "" {
		return errors.New("listviewctl: migrate needs store.driver and store.dsn")
	}

	store, err := storage.OpenSQL(driver, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.out
	if out == nil {
		out = os.Stdout
	}
	if cmd.Down {
		if err := store.Rollback(); err != nil {
			return err
		}
		logger.Info().Str("driver", driver).Msg("listview: schema reverted")
		fmt.Fprintln(out, "✓ Reverted settings schema")
		return nil
	}
	version, err := store.Migrate()
	if err != nil {
		return err
	}
	logger.Info().Str("driver", driver).Uint("version", version).Msg("listview: schema migrated")
	fmt.Fprintf(out, "✓ Settings schema at version %d\n", version)
	return nil
}
