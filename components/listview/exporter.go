package listview

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExportRequest describes one export run.
type ExportRequest struct {
	Table   TableDefinition
	Columns []Column
	Viewer  ViewerContext
	Query   string
	Filters FilterState
	Sort    Sort
	// SelectAll exports every matching row; otherwise IDs, when present,
	// restrict the export to the selected rows.
	SelectAll bool
	IDs       []string
}

// ExportResult is the generated workbook plus the records it holds.
type ExportResult struct {
	ID          string     `json:"id"`
	Table       string     `json:"table"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	Headers     []string   `json:"headers"`
	Records     [][]string `json:"records"`
	Requests    int        `json:"requests"`
	Data        []byte     `json:"-"`
}

// Maps returns the records keyed by column header.
func (r ExportResult) Maps() []map[string]string {
	out := make([]map[string]string, len(r.Records))
	for i, record := range r.Records {
		m := make(map[string]string, len(r.Headers))
		for col, header := range r.Headers {
			if col < len(record) {
				m[header] = record[col]
			}
		}
		out[i] = m
	}
	return out
}

// ExporterOptions configures an Exporter.
type ExporterOptions struct {
	Source    Source
	Writer    SpreadsheetWriter
	Recorder  ExportRecorder
	Notifier  Notifier
	Telemetry Telemetry
	Logger    *zerolog.Logger
	PageSize  int
	Now       func() time.Time
}

// Exporter walks every matching page of a source and writes the rows to a
// spreadsheet.
type Exporter struct {
	opts   ExporterOptions
	logger zerolog.Logger
}

// NewExporter builds an exporter with safe defaults.
func NewExporter(opts ExporterOptions) *Exporter {
	if opts.Writer == nil {
		opts.Writer = ExcelWriter{}
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultExportPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	e := &Exporter{opts: opts, logger: zerolog.Nop()}
	if opts.Logger != nil {
		e.logger = *opts.Logger
	}
	return e
}

// Export collects the rows, projects them through the enabled columns and
// renders the workbook. Any fetch error aborts the export; nothing already
// fetched is returned.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	if e.opts.Source == nil {
		return ExportResult{}, errMissingSource
	}
	rows, requests, err := e.collect(ctx, req)
	if err != nil {
		e.logger.Error().Err(err).Str("table", req.Table.Name).Msg("listview: export aborted")
		e.opts.Notifier.Notify(ctx, Notification{Level: LevelError, Table: req.Table.Name, Message: UserMessage(err)})
		return ExportResult{}, fmt.Errorf("listview: export %s: %w", req.Table.Name, err)
	}

	loc := req.Viewer.Location()
	columns := EnabledColumns(req.Columns)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.LabelFor(req.Viewer.Locale)
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		record := make([]string, len(columns))
		for c, col := range columns {
			record[c] = col.RenderCell(row, loc).Display
		}
		records[i] = record
	}

	var buf bytes.Buffer
	if err := e.opts.Writer.WriteSpreadsheet(&buf, headers, records); err != nil {
		e.opts.Notifier.Notify(ctx, Notification{Level: LevelError, Table: req.Table.Name, Message: UserMessage(err)})
		return ExportResult{}, err
	}

	now := e.opts.Now()
	result := ExportResult{
		ID:          uuid.NewString(),
		Table:       req.Table.Name,
		FileName:    ExportFileName(req.Table.Name, now.In(loc)),
		ContentType: XLSXContentType,
		Headers:     headers,
		Records:     records,
		Requests:    requests,
		Data:        buf.Bytes(),
	}
	e.record(ctx, req, result, now)
	e.opts.Telemetry.Record(ctx, "listview.export", map[string]any{
		"table":    req.Table.Name,
		"rows":     len(records),
		"requests": requests,
	})
	return result, nil
}

func (e *Exporter) collect(ctx context.Context, req ExportRequest) ([]Row, int, error) {
	var ids []string
	if !req.SelectAll && len(req.IDs) > 0 {
		ids = append(ids, req.IDs...)
	}
	var (
		rows     []Row
		seen     = map[string]struct{}{}
		fetched  int
		requests int
	)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, requests, err
		}
		result, err := e.opts.Source.FetchPage(ctx, PageRequest{
			Resource: req.Table.Resource,
			ItemsKey: req.Table.ItemsKey,
			Page:     page,
			PerPage:  e.opts.PageSize,
			Query:    req.Query,
			Filters:  req.Filters.Active(),
			Sort:     req.Sort,
			IDs:      ids,
		})
		requests++
		if err != nil {
			return nil, requests, err
		}
		for _, row := range result.Rows {
			if id := row.ID(); id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			rows = append(rows, row)
		}
		fetched += len(result.Rows)
		// A zero total means the backend did not report one.
		if len(result.Rows) < e.opts.PageSize || (result.TotalCount > 0 && fetched >= result.TotalCount) {
			return rows, requests, nil
		}
	}
}

func (e *Exporter) record(ctx context.Context, req ExportRequest, result ExportResult, at time.Time) {
	if e.opts.Recorder == nil {
		return
	}
	err := e.opts.Recorder.RecordExport(ctx, ExportEvent{
		ExportID: result.ID,
		Table:    result.Table,
		UserID:   req.Viewer.UserID,
		Rows:     len(result.Records),
		FileName: result.FileName,
		At:       at.UTC(),
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("export_id", result.ID).Msg("listview: export event not recorded")
	}
}

// ExportFileName names an export `<table>_<YYYY-MM-DD>.xlsx`.
func ExportFileName(table string, at time.Time) string {
	return table + "_" + at.Format(time.DateOnly) + ".xlsx"
}
