package listview

import (
	"net/url"
	"strconv"
	"strings"
)

// ParseListRequest reads `page`, `per_page`, `q`, `sorting` and the table's
// filters from query parameters. A missing `sorting` leaves Sort nil so the
// persisted sort applies; an empty one clears it.
func ParseListRequest(def TableDefinition, values url.Values) ListRequest {
	req := ListRequest{
		Table:   def.Name,
		Page:    atoiDefault(values.Get("page")),
		PerPage: atoiDefault(values.Get("per_page")),
		Query:   strings.TrimSpace(values.Get("q")),
		Filters: ParseFilterState(values, def.Filters),
	}
	if raw, ok := values["sorting"]; ok {
		sort := Sort{}
		if len(raw) > 0 {
			sort = ParseSort(raw[0])
		}
		req.Sort = &sort
	}
	return req
}

// EncodeListRequest is the inverse of ParseListRequest.
func EncodeListRequest(req ListRequest) url.Values {
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
	if req.Sort != nil {
		values.Set("sorting", req.Sort.Param())
	}
	req.Filters.Encode(values)
	return values
}

func atoiDefault(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
