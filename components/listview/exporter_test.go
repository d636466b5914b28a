package listview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type countingWriter struct {
	calls   int
	headers []string
	records [][]string
}

func (w *countingWriter) WriteSpreadsheet(out io.Writer, headers []string, records [][]string) error {
	w.calls++
	w.headers = headers
	w.records = records
	_, err := out.Write([]byte("xlsx"))
	return err
}

type recordingRecorder struct {
	events []ExportEvent
	err    error
}

func (r *recordingRecorder) RecordExport(_ context.Context, event ExportEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func exportColumns() []Column {
	return []Column{
		{ID: "id", Label: "Bet ID", Enabled: true},
		{ID: "bet_type", Label: "Bet Type", Kind: KindEnum, Options: BetTypes, Enabled: true},
		{ID: "stake", Label: "Stake", Kind: KindMoney, Enabled: false},
	}
}

// pagedBets serves total rows of the given bet type, perPage at a time.
func pagedBets(total int) func(int, PageRequest) (PageResult, error) {
	return func(_ int, req PageRequest) (PageResult, error) {
		start := (req.Page - 1) * req.PerPage
		var rows []Row
		for i := start; i < total && i < start+req.PerPage; i++ {
			rows = append(rows, Row{"id": fmt.Sprintf("bet-%02d", i+1), "bet_type": req.Filters["bet_type"].Text, "stake": 10})
		}
		return PageResult{Rows: rows, TotalCount: total}, nil
	}
}

func TestExporterPaginatesEveryMatchingPage(t *testing.T) {
	source := &scriptedSource{fn: pagedBets(11)}
	writer := &countingWriter{}
	recorder := &recordingRecorder{}
	now := time.Date(2024, 7, 9, 23, 30, 0, 0, time.UTC)
	exporter := NewExporter(ExporterOptions{
		Source:   source,
		Writer:   writer,
		Recorder: recorder,
		PageSize: 10,
		Now:      func() time.Time { return now },
	})

	result, err := exporter.Export(context.Background(), ExportRequest{
		Table:     betsTable(t),
		Columns:   exportColumns(),
		Viewer:    ViewerContext{UserID: "u1"},
		Filters:   FilterState{"bet_type": {Text: "sports"}},
		SelectAll: true,
	})
	require.NoError(t, err)

	calls := source.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 1, calls[0].Page)
	assert.Equal(t, 2, calls[1].Page)
	assert.Equal(t, 10, calls[0].PerPage)
	assert.Equal(t, "sports", calls[1].Filters["bet_type"].Text)
	assert.Nil(t, calls[0].IDs)

	assert.Equal(t, 1, writer.calls)
	assert.Len(t, result.Records, 11)
	assert.Equal(t, 2, result.Requests)
	assert.Equal(t, []string{"Bet ID", "Bet Type"}, result.Headers)
	assert.Equal(t, []string{"bet-01", "Sports"}, result.Records[0])
	assert.Equal(t, "bets_2024-07-09.xlsx", result.FileName)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, []byte("xlsx"), result.Data)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, result.ID, recorder.events[0].ExportID)
	assert.Equal(t, 11, recorder.events[0].Rows)
	assert.Equal(t, "u1", recorder.events[0].UserID)
}

func TestExporterKeepsPagingWithoutTotal(t *testing.T) {
	source := &scriptedSource{fn: func(call int, req PageRequest) (PageResult, error) {
		result, err := pagedBets(23)(call, req)
		result.TotalCount = 0
		return result, err
	}}
	exporter := NewExporter(ExporterOptions{Source: source, Writer: &countingWriter{}, PageSize: 10})
	result, err := exporter.Export(context.Background(), ExportRequest{Table: betsTable(t), Columns: exportColumns(), SelectAll: true})
	require.NoError(t, err)
	assert.Len(t, result.Records, 23)
	assert.Equal(t, 3, result.Requests)
	assert.Len(t, source.calls(), 3)
}

func TestExporterDeduplicatesRowsAcrossPages(t *testing.T) {
	source := &scriptedSource{fn: func(call int, req PageRequest) (PageResult, error) {
		switch call {
		case 1:
			return PageResult{Rows: []Row{{"id": "a"}, {"id": "b"}}, TotalCount: 4}, nil
		case 2:
			return PageResult{Rows: []Row{{"id": "b"}, {"id": "c"}}, TotalCount: 4}, nil
		}
		return PageResult{TotalCount: 4}, nil
	}}
	exporter := NewExporter(ExporterOptions{Source: source, Writer: &countingWriter{}, PageSize: 2})
	result, err := exporter.Export(context.Background(), ExportRequest{Table: betsTable(t), Columns: exportColumns(), SelectAll: true})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		ids = append(ids, record[0])
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Len(t, source.calls(), 2)
}

func TestExporterRequestsSelectedIDs(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) {
		return PageResult{Rows: []Row{{"id": "x"}, {"id": "y"}}, TotalCount: 2}, nil
	}}
	exporter := NewExporter(ExporterOptions{Source: source, Writer: &countingWriter{}})
	_, err := exporter.Export(context.Background(), ExportRequest{
		Table:   betsTable(t),
		Columns: exportColumns(),
		IDs:     []string{"x", "y"},
	})
	require.NoError(t, err)
	calls := source.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"x", "y"}, calls[0].IDs)
	assert.Equal(t, defaultExportPageSize, calls[0].PerPage)
}

func TestExporterAbortsOnPaginationError(t *testing.T) {
	source := &scriptedSource{fn: func(call int, req PageRequest) (PageResult, error) {
		if call == 2 {
			return PageResult{}, statusErr{status: 502, msg: "upstream unavailable"}
		}
		return pagedBets(30)(call, req)
	}}
	writer := &countingWriter{}
	notifier := &recordingNotifier{}
	recorder := &recordingRecorder{}
	exporter := NewExporter(ExporterOptions{Source: source, Writer: writer, Notifier: notifier, Recorder: recorder, PageSize: 10})

	result, err := exporter.Export(context.Background(), ExportRequest{Table: betsTable(t), Columns: exportColumns(), SelectAll: true})
	require.Error(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Data)
	assert.Equal(t, 0, writer.calls)
	assert.Empty(t, recorder.events)
	require.Len(t, notifier.all(), 1)
	assert.Equal(t, "upstream unavailable", notifier.all()[0].Message)
}

func TestExporterIgnoresRecorderFailure(t *testing.T) {
	source := &scriptedSource{fn: pagedBets(3)}
	recorder := &recordingRecorder{err: errors.New("audit endpoint down")}
	exporter := NewExporter(ExporterOptions{Source: source, Writer: &countingWriter{}, Recorder: recorder})
	result, err := exporter.Export(context.Background(), ExportRequest{Table: betsTable(t), Columns: exportColumns(), SelectAll: true})
	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
	assert.Len(t, recorder.events, 1)
}

func TestExportResultMaps(t *testing.T) {
	result := ExportResult{Headers: []string{"Bet ID", "Status"}, Records: [][]string{{"1", "Open"}}}
	assert.Equal(t, []map[string]string{{"Bet ID": "1", "Status": "Open"}}, result.Maps())
}

func TestExcelWriterProducesStyledWorkbook(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"Bet ID", "Event"}
	records := [][]string{
		{"1", "Final\nExtra time and penalties"},
		{"2", "Semi"},
	}
	require.NoError(t, ExcelWriter{}.WriteSpreadsheet(&buf, headers, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(excelSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "Semi", rows[2][1])

	width, err := f.GetColWidth(excelSheet, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Extra time and penalties")+2), width)
	width, err = f.GetColWidth(excelSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(8), width)

	evenStyle, err := f.GetCellStyle(excelSheet, "A2")
	require.NoError(t, err)
	oddStyle, err := f.GetCellStyle(excelSheet, "A3")
	require.NoError(t, err)
	headerStyle, err := f.GetCellStyle(excelSheet, "A1")
	require.NoError(t, err)
	assert.NotEqual(t, evenStyle, oddStyle)
	assert.NotEqual(t, headerStyle, evenStyle)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "members_2025-01-31.xlsx", ExportFileName("members", time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC)))
}
