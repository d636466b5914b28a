package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-listview/components/listview"
)

type exportCmd struct {
	Table      string   `required:"" help:"Table name (bets, members, ...)."`
	User       string   `help:"Viewer user id; selects the saved column settings."`
	Company    string   `help:"Viewer company id."`
	Capability []string `default:"*" help:"Viewer capabilities."`
	Locale     string   `help:"Locale used for column headers."`
	TimeZone   string   `name:"tz" help:"IANA time zone used to render dates."`
	Q          string   `name:"q" help:"Free text search."`
	Filter     []string `help:"Filter query parameter as key=value (status[]=1, created_at_from=2026-01-01)."`
	Sort       string   `help:"Sort as field or -field."`
	Out        string   `type:"path" help:"Output file (defaults to the generated file name)."`
}

func (cmd *exportCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, closeLog, err := g.load()
	if err != nil {
		return err
	}
	defer closeLog()
	if err := cfg.Validate(); err != nil {
		return err
	}
	viewer, err := viewerFor(cmd.User, cmd.Company, cmd.Capability)
	if err != nil {
		return err
	}
	viewer.Locale = cmd.Locale
	viewer.TimeZone = cmd.TimeZone

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	def, ok := a.registry.Table(cmd.Table)
	if !ok {
		return fmt.Errorf("listviewctl: unknown table %s", cmd.Table)
	}
	filters, err := parseFilterFlags(cmd.Filter)
	if err != nil {
		return err
	}
	opts := listview.ExportRequestOptions{
		Table:   def.Name,
		Query:   cmd.Q,
		Filters: listview.ParseFilterState(filters, def.Filters),
	}
	if cmd.Sort != "" {
		sort := listview.ParseSort(cmd.Sort)
		opts.Sort = &sort
	}

	result, err := a.service.Export(ctx, viewer, opts)
	if err != nil {
		return err
	}
	out := cmd.Out
	if out == "" {
		out = result.FileName
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("listviewctl: create output dir: %w", err)
	}
	if err := os.WriteFile(out, result.Data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("listviewctl: write %s: %w", out, err)
	}
	fmt.Fprintf(os.Stdout, "✓ Exported %d rows of %s to %s\n", len(result.Records), def.Name, out)
	return nil
}

func parseFilterFlags(raw []string) (url.Values, error) {
	values := url.Values{}
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("listviewctl: filter %q must be key=value", item)
		}
		values.Add(key, value)
	}
	return values, nil
}
