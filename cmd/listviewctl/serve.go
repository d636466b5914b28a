package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-listview/components/listview"
	"github.com/goliatone/go-listview/components/listview/gorouter"
	"github.com/goliatone/go-listview/components/listview/httpapi"
)

type serveCmd struct {
	Addr      string   `help:"Listen address (overrides server.addr)."`
	Transport string   `help:"HTTP stack: mux (gorilla) or fiber (go-router)."`
	Watch     []string `help:"Tables polled server side; changes are pushed to WebSocket/SSE subscribers."`
	WatchUser string   `name:"watch-user" default:"system" help:"Viewer used for server side polling."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, closeLog, err := g.load()
	if err != nil {
		return err
	}
	defer closeLog()
	if cmd.Addr != "" {
		cfg.Server.Addr = cmd.Addr
	}
	if cmd.Transport != "" {
		cfg.Server.Transport = cmd.Transport
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollers, err := a.startPollers(ctx, cmd.Watch, cmd.WatchUser)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range pollers {
			p.Stop()
		}
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Str("transport", cfg.Server.Transport).Msg("listview: serving")
	if cfg.Server.Transport == "fiber" {
		return a.serveFiber(ctx)
	}
	return a.serveMux(ctx)
}

func (a *app) startPollers(ctx context.Context, tables []string, user string) ([]*listview.Poller, error) {
	viewer := listview.ViewerContext{UserID: user, Capabilities: []string{"*"}}
	pollers := make([]*listview.Poller, 0, len(tables))
	for _, table := range tables {
		p, err := a.service.Watch(ctx, viewer, listview.ListRequest{Table: table})
		if err != nil {
			return pollers, fmt.Errorf("listviewctl: watch %s: %w", table, err)
		}
		if err := p.Start(ctx); err != nil {
			a.logger.Warn().Err(err).Str("table", table).Msg("listview: initial poll failed")
		}
		pollers = append(pollers, p)
	}
	return pollers, nil
}

func (a *app) serveMux(ctx context.Context) error {
	server := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: httpapi.NewRouter(a.handlers(), httpapi.RouterOptions{
			Prefix:         "/api",
			AllowedOrigins: a.cfg.Server.Origins,
			Events:         a.hook,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdown)
	}
}

func (a *app) serveFiber(ctx context.Context) error {
	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: listview.NewController(a.service),
		API:        a.handlers(),
		Broadcast:  a.hook,
		BasePath:   "/api",
	}); err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(a.cfg.Server.Addr)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdown)
	}
}
