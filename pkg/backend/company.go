package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-listview/components/listview"
)

// ColumnSettings holds persisted table settings keyed by owner, then table.
type ColumnSettings map[string]map[string]listview.TableSetting

// Get returns the owner's setting for a table.
func (c ColumnSettings) Get(owner, table string) (listview.TableSetting, bool) {
	setting, ok := c[owner][table]
	return setting, ok
}

// Merge writes every owner/table entry of other into c.
func (c ColumnSettings) Merge(other ColumnSettings) {
	for owner, tables := range other {
		if c[owner] == nil {
			c[owner] = map[string]listview.TableSetting{}
		}
		for table, setting := range tables {
			c[owner][table] = setting
		}
	}
}

func (c ColumnSettings) clone() ColumnSettings {
	if c == nil {
		return nil
	}
	out := make(ColumnSettings, len(c))
	out.Merge(c)
	return out
}

// Company is the subset of the company record the list views touch.
type Company struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	ColumnSetting ColumnSettings  `json:"column_setting,omitempty"`
	Features      map[string]bool `json:"features,omitempty"`
	TrxSettings   map[string]any  `json:"trx_settings,omitempty"`
}

// CompanyPatch is a partial company update; nil fields are omitted. The
// backend merges column_setting per owner and table.
type CompanyPatch struct {
	ColumnSetting ColumnSettings  `json:"column_setting,omitempty"`
	Features      map[string]bool `json:"features,omitempty"`
	TrxSettings   map[string]any  `json:"trx_settings,omitempty"`
}

// Company loads `GET /company/{id}`.
func (c *HTTPClient) Company(ctx context.Context, id string) (Company, error) {
	var out Company
	if err := c.do(ctx, http.MethodGet, "/company/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return Company{}, err
	}
	return out, nil
}

// PatchCompany sends `PATCH /company/{id}` with a partial body.
func (c *HTTPClient) PatchCompany(ctx context.Context, id string, patch CompanyPatch) (Company, error) {
	var out Company
	if err := c.do(ctx, http.MethodPatch, "/company/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return Company{}, err
	}
	return out, nil
}

// CompanyAPI is the slice of the client the company settings store needs.
type CompanyAPI interface {
	Company(ctx context.Context, id string) (Company, error)
	PatchCompany(ctx context.Context, id string, patch CompanyPatch) (Company, error)
}

// CompanySettingsStore implements listview.SettingsStore on the company
// record's column_setting, keyed by owner and table. Owners of the form
// "company:<id>" address that company; any other owner is stored on the
// CompanyID record.
type CompanySettingsStore struct {
	API       CompanyAPI
	CompanyID string
}

// NewCompanySettingsStore builds a store for the company API.
func NewCompanySettingsStore(api CompanyAPI, companyID string) *CompanySettingsStore {
	return &CompanySettingsStore{API: api, CompanyID: companyID}
}

// LoadSetting reads the owner's table entry of column_setting.
func (s *CompanySettingsStore) LoadSetting(ctx context.Context, owner, table string) (listview.TableSetting, bool, error) {
	id, err := s.companyID(owner)
	if err != nil {
		return listview.TableSetting{}, false, err
	}
	company, err := s.API.Company(ctx, id)
	if err != nil {
		return listview.TableSetting{}, false, err
	}
	setting, ok := company.ColumnSetting.Get(owner, table)
	if !ok {
		return listview.TableSetting{}, false, nil
	}
	setting.Table = table
	return setting, true, nil
}

// SaveSetting patches the owner's table entry of column_setting.
func (s *CompanySettingsStore) SaveSetting(ctx context.Context, owner string, setting listview.TableSetting) error {
	id, err := s.companyID(owner)
	if err != nil {
		return err
	}
	_, err = s.API.PatchCompany(ctx, id, CompanyPatch{
		ColumnSetting: ColumnSettings{owner: {setting.Table: setting}},
	})
	return err
}

func (s *CompanySettingsStore) companyID(owner string) (string, error) {
	if id, ok := strings.CutPrefix(owner, "company:"); ok && id != "" {
		return id, nil
	}
	if s.CompanyID == "" {
		return "", fmt.Errorf("backend: no company for settings owner %q", owner)
	}
	return s.CompanyID, nil
}
