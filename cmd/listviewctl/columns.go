package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-listview/components/listview"
)

type columnsCmd struct {
	Add  columnsAddCmd  `cmd:"" help:"Add a table definition to a manifest."`
	Show columnsShowCmd `cmd:"" help:"Print the columns a viewer sees for a table."`
}

type columnsAddCmd struct {
	ManifestPath string   `name:"manifest" required:"" type:"path" help:"Path to the table manifest YAML file to update."`
	Table        string   `required:"" help:"Table name."`
	Resource     string   `required:"" help:"Backend collection path (e.g. /company/members)."`
	ItemsKey     string   `name:"items-key" help:"JSON key holding the rows (defaults to the last resource segment)."`
	Capability   string   `help:"Capability required to open the table."`
	Column       []string `required:"" help:"Column as field[:kind], in display order (use multiple --column flags)."`
	Filter       []string `help:"Filter as key[:kind] (text, list, range, date, enum)."`
	DefaultSort  string   `name:"default-sort" help:"Default sort as field or -field."`
	PerPage      int      `name:"per-page" help:"Default page size."`
	Overwrite    bool     `help:"Replace an existing table with the same name."`

	out io.Writer
}

func (cmd *columnsAddCmd) Run(_ context.Context) error {
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("listviewctl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	def, err := cmd.definition()
	if err != nil {
		return err
	}

	replaced := false
	for idx := range doc.Tables {
		if doc.Tables[idx].Name != def.Name {
			continue
		}
		if !cmd.Overwrite {
			return fmt.Errorf("listviewctl: manifest already defines table %s (use --overwrite to replace)", def.Name)
		}
		doc.Tables[idx] = def
		replaced = true
	}
	if !replaced {
		doc.Tables = append(doc.Tables, def)
	}
	sort.Slice(doc.Tables, func(i, j int) bool {
		return doc.Tables[i].Name < doc.Tables[j].Name
	})
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(cmd.writer(), "✓ Added %s (%d columns) to %s\n", def.Name, len(def.Columns), manifestPath)
	return nil
}

func (cmd *columnsAddCmd) definition() (listview.TableDefinition, error) {
	def := listview.TableDefinition{
		Name:           strings.TrimSpace(cmd.Table),
		Resource:       cmd.Resource,
		ItemsKey:       cmd.ItemsKey,
		Capability:     cmd.Capability,
		DefaultPerPage: cmd.PerPage,
	}
	if cmd.DefaultSort != "" {
		def.DefaultSort = listview.ParseSort(cmd.DefaultSort)
	}
	for idx, raw := range cmd.Column {
		field, kind := splitKind(raw)
		if field == "" {
			return def, fmt.Errorf("listviewctl: column %q is missing a field", raw)
		}
		id := strcase.ToSnake(field)
		def.Columns = append(def.Columns, listview.Column{
			ID:      id,
			Label:   listview.DefaultLabel(id),
			Field:   field,
			Kind:    listview.ColumnKind(kind),
			Enabled: true,
			Order:   idx,
		})
	}
	for _, raw := range cmd.Filter {
		key, kind := splitKind(raw)
		if key == "" {
			return def, fmt.Errorf("listviewctl: filter %q is missing a key", raw)
		}
		key = listview.NormalizeFilterKey(key)
		def.Filters = append(def.Filters, listview.FilterSpec{
			Key:   key,
			Label: listview.DefaultLabel(key),
			Kind:  listview.FilterKind(kind),
		})
	}
	return def, def.Validate()
}

func (cmd *columnsAddCmd) writer() io.Writer {
	if cmd.out != nil {
		return cmd.out
	}
	return os.Stdout
}

func splitKind(raw string) (string, string) {
	name, kind, _ := strings.Cut(strings.TrimSpace(raw), ":")
	return strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(kind))
}

func loadOrInitManifest(path string) (*listview.TableManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &listview.TableManifestDocument{
				Version: listview.ManifestVersion,
				Tables:  []listview.TableDefinition{},
				Source:  path,
			}, nil
		}
		return nil, fmt.Errorf("listviewctl: stat manifest: %w", err)
	}
	return listview.ReadManifest(path)
}

func writeManifest(path string, doc *listview.TableManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("listviewctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("listviewctl: create manifest %s: %w", path, err)
	}
	defer file.Close()
	return listview.EncodeManifest(file, doc)
}

type columnsShowCmd struct {
	Table      string   `required:"" help:"Table name."`
	User       string   `help:"Viewer user id."`
	Company    string   `help:"Viewer company id."`
	Capability []string `default:"*" help:"Viewer capabilities."`
	Locale     string   `help:"Locale used for labels."`
	Export     bool     `help:"Show the export column rule instead of the list columns."`

	out io.Writer
}

func (cmd *columnsShowCmd) Run(ctx context.Context, g *Globals) error {
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

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.showColumns(ctx, cmd.writer(), viewer, cmd.Table, cmd.Export)
}

func (cmd *columnsShowCmd) writer() io.Writer {
	if cmd.out != nil {
		return cmd.out
	}
	return os.Stdout
}

func (a *app) showColumns(ctx context.Context, w io.Writer, viewer listview.ViewerContext, table string, export bool) error {
	def, ok := a.registry.Table(table)
	if !ok || !viewer.Can(def.Capability) {
		return fmt.Errorf("listviewctl: unknown table %s", table)
	}
	setting, err := a.service.Settings(ctx, viewer, def.Name)
	if err != nil {
		return err
	}
	rule := setting.Columns
	if export && len(setting.ExportColumns) > 0 {
		rule = setting.ExportColumns
	}
	columns := listview.Reconcile(listview.VisibleColumns(def.Columns, viewer), rule)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tID\tLABEL\tKIND\tENABLED")
	for _, col := range columns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", col.Order, col.ID, col.LabelFor(viewer.Locale), col.Kind, col.Enabled)
	}
	return tw.Flush()
}
