package backend

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-listview/components/listview"
)

// MockData seeds deterministic backend responses for tests or local demos.
// Rows are keyed by resource path.
type MockData struct {
	Rows      map[string][]listview.Row
	Companies map[string]Company
}

// MockClient implements Client using in-memory fixtures.
type MockClient struct {
	mu        sync.RWMutex
	data      MockData
	exports   []listview.ExportEvent
	failNext  error
	fetchRuns int
}

// NewMockClient builds a mock backend from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	if data.Rows == nil {
		data.Rows = map[string][]listview.Row{}
	}
	if data.Companies == nil {
		data.Companies = map[string]Company{}
	}
	return &MockClient{data: data}
}

// FailNext makes the next FetchPage return err.
func (c *MockClient) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

// FetchPage filters by ids and free text, sorts by the requested field and
// slices the requested page.
func (c *MockClient) FetchPage(_ context.Context, req listview.PageRequest) (listview.PageResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchRuns++
	if err := c.failNext; err != nil {
		c.failNext = nil
		return listview.PageResult{}, err
	}
	rows, ok := c.data.Rows[req.Resource]
	if !ok {
		return listview.PageResult{}, &StatusError{Status: http.StatusNotFound, Message: "resource not found"}
	}
	matched := filterRows(rows, req)
	if !req.Sort.IsZero() {
		field, desc := req.Sort.Field, req.Sort.Normalize().Direction == listview.SortDesc
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := fmt.Sprint(matched[i][field]), fmt.Sprint(matched[j][field])
			if desc {
				return a > b
			}
			return a < b
		})
	}
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = len(matched)
	}
	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]listview.Row, 0, end-start)
	for _, row := range matched[start:end] {
		out = append(out, cloneRow(row))
	}
	return listview.PageResult{Rows: out, TotalCount: len(matched)}, nil
}

// RecordExport stores the event.
func (c *MockClient) RecordExport(_ context.Context, event listview.ExportEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exports = append(c.exports, event)
	return nil
}

// Exports returns the recorded export events.
func (c *MockClient) Exports() []listview.ExportEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]listview.ExportEvent(nil), c.exports...)
}

// FetchCount reports how many FetchPage calls were served.
func (c *MockClient) FetchCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchRuns
}

// Company returns the seeded company.
func (c *MockClient) Company(_ context.Context, id string) (Company, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	company, ok := c.data.Companies[id]
	if !ok {
		return Company{}, &StatusError{Status: http.StatusNotFound, Message: "company not found"}
	}
	return cloneCompany(company), nil
}

// PatchCompany merges the patch into the seeded company, creating it when
// absent.
func (c *MockClient) PatchCompany(_ context.Context, id string, patch CompanyPatch) (Company, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	company := c.data.Companies[id]
	company.ID = id
	if company.ColumnSetting == nil {
		company.ColumnSetting = ColumnSettings{}
	}
	company.ColumnSetting.Merge(patch.ColumnSetting)
	if patch.Features != nil {
		if company.Features == nil {
			company.Features = map[string]bool{}
		}
		for k, v := range patch.Features {
			company.Features[k] = v
		}
	}
	if patch.TrxSettings != nil {
		company.TrxSettings = patch.TrxSettings
	}
	c.data.Companies[id] = company
	return cloneCompany(company), nil
}

func filterRows(rows []listview.Row, req listview.PageRequest) []listview.Row {
	ids := map[string]bool{}
	for _, id := range req.IDs {
		ids[id] = true
	}
	q := strings.ToLower(strings.TrimSpace(req.Query))
	out := make([]listview.Row, 0, len(rows))
	for _, row := range rows {
		if len(ids) > 0 && !ids[row.ID()] {
			continue
		}
		if q != "" && !rowContains(row, q) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func rowContains(row listview.Row, q string) bool {
	for _, v := range row {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), q) {
			return true
		}
	}
	return false
}

func cloneRow(row listview.Row) listview.Row {
	out := make(listview.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func cloneCompany(company Company) Company {
	out := company
	out.ColumnSetting = company.ColumnSetting.clone()
	if company.Features != nil {
		out.Features = make(map[string]bool, len(company.Features))
		for k, v := range company.Features {
			out.Features[k] = v
		}
	}
	return out
}
