package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goliatone/go-listview/components/listview"
)

// FetchPage implements listview.Source against `GET {resource}`. The response
// carries the rows under the table's items key next to `total_count`.
func (c *HTTPClient) FetchPage(ctx context.Context, req listview.PageRequest) (listview.PageResult, error) {
	if req.Resource == "" {
		return listview.PageResult{}, fmt.Errorf("backend: resource is required")
	}
	var resp map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, req.Resource, pageQuery(req), nil, &resp); err != nil {
		return listview.PageResult{}, err
	}
	return decodePage(resp, req.ItemsKey)
}

// RecordExport implements listview.ExportRecorder via `POST /exports/events`.
func (c *HTTPClient) RecordExport(ctx context.Context, event listview.ExportEvent) error {
	return c.do(ctx, http.MethodPost, "/exports/events", nil, event, nil)
}

func pageQuery(req listview.PageRequest) url.Values {
	values := url.Values{}
	if req.Page > 0 {
		values.Set("page", strconv.Itoa(req.Page))
	}
	if req.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(req.PerPage))
	}
	if req.Query != "" {
		values.Set("q", req.Query)
	}
	if !req.Sort.IsZero() {
		values.Set("sorting", req.Sort.Param())
	}
	for _, id := range req.IDs {
		values.Add("ids[]", id)
	}
	req.Filters.Encode(values)
	return values
}

func decodePage(resp map[string]json.RawMessage, itemsKey string) (listview.PageResult, error) {
	var out listview.PageResult
	if raw, ok := resp["total_count"]; ok {
		if err := json.Unmarshal(raw, &out.TotalCount); err != nil {
			return listview.PageResult{}, fmt.Errorf("backend: decode total_count: %w", err)
		}
	}
	raw, ok := resp[itemsKey]
	if !ok {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out.Rows); err != nil {
		return listview.PageResult{}, fmt.Errorf("backend: decode %s: %w", itemsKey, err)
	}
	return out, nil
}
