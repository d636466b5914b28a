package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-listview/pkg/config"
	"github.com/goliatone/go-listview/pkg/logging"
)

type Globals struct {
	Config  string `short:"c" type:"path" help:"YAML configuration file."`
	EnvFile string `name:"env-file" default:".env" help:"Dotenv file loaded before LISTVIEW_* variables."`
}

type cli struct {
	Globals

	Serve   serveCmd   `cmd:"" help:"Serve list views over REST, WebSocket and SSE."`
	Export  exportCmd  `cmd:"" help:"Export a table to an xlsx workbook."`
	Columns columnsCmd `cmd:"" help:"Inspect or scaffold table columns."`
	Migrate migrateCmd `cmd:"" help:"Apply or revert the settings schema."`
}

func main() {
	var root cli
	ctx := kong.Parse(&root,
		kong.Description("Operator list views: paging, filters, column settings and exports."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background(), &root.Globals)
	ctx.FatalIfErrorf(err)
}

// load reads the configuration and builds the process logger.
func (g *Globals) load() (config.Config, zerolog.Logger, func(), error) {
	cfg, err := config.Load(config.Options{File: g.Config, EnvFile: g.EnvFile})
	if err != nil {
		return config.Config{}, zerolog.Nop(), func() {}, err
	}
	logger, closer := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: cfg.Log.Console,
	})
	return cfg, logger, func() { _ = closer.Close() }, nil
}
