package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-listview/components/listview"
	"github.com/goliatone/go-listview/components/listview/commands"
	"github.com/goliatone/go-listview/components/listview/httpapi"
	"github.com/goliatone/go-listview/components/listview/queries"
	"github.com/goliatone/go-listview/pkg/backend"
	"github.com/goliatone/go-listview/pkg/config"
	"github.com/goliatone/go-listview/pkg/storage"
)

// app holds the wired list view stack for one CLI invocation.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	client   backend.Client
	registry *listview.Registry
	hook     *listview.BroadcastHook
	service  *listview.Service
	sql      *storage.SQLStore
	closers  []io.Closer
}

func buildApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, hook: listview.NewBroadcastHook()}

	client, err := newBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	a.client = client

	a.registry = listview.NewRegistry()
	if cfg.Manifest.Path != "" {
		if _, err := a.registry.LoadManifestFile(cfg.Manifest.Path); err != nil {
			return nil, err
		}
	}

	var local listview.SettingsStore
	if cfg.Store.Cache != "" {
		cache, err := storage.OpenPudge(cfg.Store.Cache)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cache)
		local = cache
	}

	var remote listview.SettingsStore
	recorders := exportRecorders{client}
	switch {
	case cfg.Store.Driver != "":
		store, err := storage.OpenSQL(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store)
		if _, err := store.Migrate(); err != nil {
			a.Close()
			return nil, err
		}
		a.sql = store
		remote = store
		recorders = append(recorders, store)
	case cfg.Company.ID != "":
		remote = backend.NewCompanySettingsStore(client, cfg.Company.ID)
	}

	a.service = listview.NewService(listview.Options{
		Source:         client,
		Tables:         a.registry,
		LocalSettings:  local,
		RemoteSettings: remote,
		Recorder:       recorders,
		Notifier:       a.hook,
		RefreshHook:    a.hook,
		Telemetry:      logTelemetry{logger: logger},
		Logger:         &a.logger,
		PollInterval:   cfg.Poll.Interval,
		ExportPageSize: cfg.Export.PageSize,
	})
	return a, nil
}

func newBackend(cfg config.BackendConfig) (backend.Client, error) {
	if cfg.Mock {
		return backend.NewMockClient(demoData()), nil
	}
	return backend.NewHTTPClient(backend.HTTPConfig{
		BaseURL:           cfg.URL,
		Token:             cfg.Token,
		RequestsPerSecond: cfg.Rate,
		Burst:             cfg.Burst,
	})
}

// handlers wires the shared commands and queries used by both transports.
func (a *app) handlers() *httpapi.Handlers {
	telemetry := logTelemetry{logger: a.logger}
	return &httpapi.Handlers{
		Tables:      queries.NewTablesQuery(a.service),
		List:        queries.NewListQuery(a.service),
		Settings:    queries.NewSettingsQuery(a.service),
		Selection:   queries.NewSelectionQuery(a.service),
		Export:      queries.NewExportQuery(a.service),
		SaveColumns: commands.NewSaveColumnsCommand(a.service, telemetry),
		SaveSorting: commands.NewSaveSortingCommand(a.service, telemetry),
		SavePinned:  commands.NewSavePinnedFieldsCommand(a.service, telemetry),
		SavePerPage: commands.NewSavePerPageCommand(a.service, telemetry),
		Select:      commands.NewSelectRowsCommand(a.service, telemetry),
		Refresh:     commands.NewRefreshListCommand(a.service, telemetry),
	}
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// exportRecorders fans an export event out to every recorder.
type exportRecorders []listview.ExportRecorder

func (r exportRecorders) RecordExport(ctx context.Context, event listview.ExportEvent) error {
	var errs []error
	for _, rec := range r {
		if err := rec.RecordExport(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// logTelemetry writes telemetry events as debug log lines.
type logTelemetry struct {
	logger zerolog.Logger
}

func (t logTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.logger.Debug().Str("event", event).Fields(payload).Msg("telemetry")
}

func viewerFor(user, company string, capabilities []string) (listview.ViewerContext, error) {
	viewer := listview.ViewerContext{UserID: user, CompanyID: company, Capabilities: capabilities}
	if viewer.SettingsOwner() == "" {
		return viewer, fmt.Errorf("listviewctl: --user or --company is required")
	}
	return viewer, nil
}
