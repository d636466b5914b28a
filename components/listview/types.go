package listview

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Source is the remote data source behind a list view. Implementations page
// through a REST collection and report the server-side total.
type Source interface {
	FetchPage(ctx context.Context, req PageRequest) (PageResult, error)
}

// SettingsStore persists table settings for an owner (user or company).
// Implementations ensure thread safety; a missing entry reports ok=false.
type SettingsStore interface {
	LoadSetting(ctx context.Context, owner, table string) (TableSetting, bool, error)
	SaveSetting(ctx context.Context, owner string, setting TableSetting) error
}

// TableRegistry stores the table definitions list views are built from.
type TableRegistry interface {
	RegisterTable(def TableDefinition) error
	Table(name string) (TableDefinition, bool)
	Tables() []TableDefinition
}

// RefreshHook notifies transports (REST/WebSocket) about list changes.
type RefreshHook interface {
	ListUpdated(ctx context.Context, event ListEvent) error
}

// Notifier surfaces user-visible messages, the server-side analog of a toast.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// ExportRecorder receives export audit events.
type ExportRecorder interface {
	RecordExport(ctx context.Context, event ExportEvent) error
}

// Row is a single record returned by a Source.
type Row map[string]any

// ID returns the row identifier as a string.
func (r Row) ID() string {
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == float64(int64(id)) {
			return fmt.Sprintf("%d", int64(id))
		}
	}
	return fmt.Sprint(v)
}

// SortDirection is either ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is the single active sort column. The zero value means unsorted.
type Sort struct {
	Field     string        `json:"field,omitempty" yaml:"field,omitempty"`
	Direction SortDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// IsZero reports whether no sort is active.
func (s Sort) IsZero() bool {
	return s.Field == ""
}

// Normalize lower-cases the direction and defaults it to ascending.
func (s Sort) Normalize() Sort {
	if s.Field == "" {
		return Sort{}
	}
	switch SortDirection(strings.ToLower(string(s.Direction))) {
	case SortDesc:
		s.Direction = SortDesc
	default:
		s.Direction = SortAsc
	}
	return s
}

// Param encodes the sort as the backend `sorting` query value.
func (s Sort) Param() string {
	if s.IsZero() {
		return ""
	}
	s = s.Normalize()
	return s.Field + ":" + string(s.Direction)
}

// ParseSort decodes a `field:direction` value.
func ParseSort(raw string) Sort {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{}
	}
	field, dir, _ := strings.Cut(raw, ":")
	return Sort{Field: strings.TrimSpace(field), Direction: SortDirection(dir)}.Normalize()
}

// PageRequest is issued against a Source. Page is 1-based.
type PageRequest struct {
	Resource string
	ItemsKey string
	Page     int
	PerPage  int
	Query    string
	Filters  FilterState
	Sort     Sort
	IDs      []string
}

// PageResult carries one page of rows plus the server-side total.
type PageResult struct {
	Rows       []Row `json:"rows"`
	TotalCount int   `json:"total_count"`
}

// ViewerContext captures the active user, permissions and locale.
type ViewerContext struct {
	UserID       string   `json:"user_id"`
	CompanyID    string   `json:"company_id,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Locale       string   `json:"locale,omitempty"`
	TimeZone     string   `json:"time_zone,omitempty"`
}

// Can reports whether the viewer holds a capability. Empty capabilities are
// always granted.
func (v ViewerContext) Can(capability string) bool {
	if capability == "" {
		return true
	}
	for _, c := range v.Capabilities {
		if c == capability || c == "*" {
			return true
		}
	}
	return false
}

// SettingsOwner returns the key settings are stored under. Authenticated users
// own their settings; anonymous viewers fall back to the company record.
func (v ViewerContext) SettingsOwner() string {
	if v.UserID != "" {
		return "user:" + v.UserID
	}
	if v.CompanyID != "" {
		return "company:" + v.CompanyID
	}
	return ""
}

// Location resolves the viewer time zone, defaulting to UTC.
func (v ViewerContext) Location() *time.Location {
	if v.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotificationLevel classifies notifications.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a user-visible message.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Table   string            `json:"table,omitempty"`
	Message string            `json:"message"`
}

// ListEvent describes changes transports might care about.
type ListEvent struct {
	Table        string        `json:"table"`
	Reason       string        `json:"reason"`
	Sequence     uint64        `json:"sequence,omitempty"`
	TotalCount   int           `json:"total_count,omitempty"`
	Rows         []Row         `json:"rows,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

// ExportEvent is sent to the backend once an export file was produced.
type ExportEvent struct {
	ExportID string    `json:"export_id"`
	Table    string    `json:"table"`
	UserID   string    `json:"user_id,omitempty"`
	Rows     int       `json:"rows"`
	FileName string    `json:"file_name"`
	At       time.Time `json:"at"`
}
