package listview

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ettle/strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ColumnKind selects the default cell renderer.
type ColumnKind string

const (
	KindText   ColumnKind = "text"
	KindNumber ColumnKind = "number"
	KindMoney  ColumnKind = "money"
	KindDate   ColumnKind = "date"
	KindEnum   ColumnKind = "enum"
	KindBool   ColumnKind = "bool"
)

// Column describes a table column. Only ID/Enabled/Order are persisted, see
// ColumnRule.
type Column struct {
	ID             string            `json:"id" yaml:"id"`
	Label          string            `json:"label,omitempty" yaml:"label,omitempty"`
	LabelLocalized map[string]string `json:"label_localized,omitempty" yaml:"label_localized,omitempty"`
	Field          string            `json:"field,omitempty" yaml:"field,omitempty"`
	Kind           ColumnKind        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Capability     string            `json:"capability,omitempty" yaml:"capability,omitempty"`
	Enabled        bool              `json:"enabled" yaml:"enabled"`
	Order          int               `json:"order" yaml:"order,omitempty"`
	Options        map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	Filter         string            `json:"filter,omitempty" yaml:"filter,omitempty"`
	Render         func(Row) Cell    `json:"-" yaml:"-"`
}

// ColumnRule is the persisted subset of a Column.
type ColumnRule struct {
	ID      string `json:"id" yaml:"id"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Order   int    `json:"order" yaml:"order"`
}

// Cell is a rendered table cell.
type Cell struct {
	Value   any    `json:"value"`
	Display string `json:"display"`
}

// VisibleColumns keeps the columns the viewer is allowed to see, preserving
// declaration order.
func VisibleColumns(columns []Column, viewer ViewerContext) []Column {
	out := make([]Column, 0, len(columns))
	for _, col := range columns {
		if viewer.Can(col.Capability) {
			out = append(out, col)
		}
	}
	return out
}

// Reconcile merges the persisted rule into the default columns. The result has
// exactly one entry per default column and is sorted ascending by Order. Rule
// entries that reference unknown columns are ignored.
func Reconcile(defaults []Column, rule []ColumnRule) []Column {
	out := make([]Column, len(defaults))
	copy(out, defaults)
	if len(rule) == 0 {
		for i := range out {
			out[i].Order = i
		}
		return out
	}

	index := make(map[string]ColumnRule, len(rule))
	maxOrder := -1
	for _, r := range rule {
		index[r.ID] = r
	}
	for _, col := range out {
		if r, ok := index[col.ID]; ok && r.Order > maxOrder {
			maxOrder = r.Order
		}
	}
	next := maxOrder + 1
	for i := range out {
		r, ok := index[out[i].ID]
		if !ok {
			out[i].Order = next
			next++
			continue
		}
		out[i].Enabled = r.Enabled
		out[i].Order = r.Order
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// RuleFromColumns extracts the persisted subset of reconciled columns.
func RuleFromColumns(columns []Column) []ColumnRule {
	rule := make([]ColumnRule, len(columns))
	for i, col := range columns {
		rule[i] = ColumnRule{ID: col.ID, Enabled: col.Enabled, Order: col.Order}
	}
	return rule
}

// EnabledColumns returns the enabled columns in order.
func EnabledColumns(columns []Column) []Column {
	out := make([]Column, 0, len(columns))
	for _, col := range columns {
		if col.Enabled {
			out = append(out, col)
		}
	}
	return out
}

// rulesEqual compares two rules as sets keyed by column id.
func rulesEqual(a, b []ColumnRule) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]ColumnRule, len(a))
	for _, r := range a {
		index[r.ID] = r
	}
	for _, r := range b {
		if got, ok := index[r.ID]; !ok || got != r {
			return false
		}
	}
	return true
}

// keepHiddenRules appends the stored entries for declared columns the viewer
// cannot see, so saving a viewer's rule never drops another viewer's columns.
func keepHiddenRules(rule, stored []ColumnRule, declared []Column, viewer ViewerContext) []ColumnRule {
	hidden := map[string]bool{}
	for _, col := range declared {
		if !viewer.Can(col.Capability) {
			hidden[col.ID] = true
		}
	}
	if len(hidden) == 0 {
		return rule
	}
	out := append([]ColumnRule(nil), rule...)
	for _, r := range stored {
		if hidden[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// LabelFor resolves the column header for a locale, falling back to a
// title-cased column id.
func (c Column) LabelFor(locale string) string {
	fallback := c.Label
	if fallback == "" {
		fallback = DefaultLabel(c.ID)
	}
	return ResolveLocalizedValue(c.LabelLocalized, locale, fallback)
}

// DefaultLabel derives a human readable header from a column id
// ("clientId" and "client_id" both become "Client ID").
func DefaultLabel(id string) string {
	words := strings.Split(strcase.ToSnake(id), "_")
	caser := cases.Title(language.English)
	for i, w := range words {
		if w == "id" || w == "ip" || w == "ftd" {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// RenderCell produces the cell for a row using the column renderer, or the
// default renderer for the column kind.
func (c Column) RenderCell(row Row, loc *time.Location) Cell {
	if c.Render != nil {
		return c.Render(row)
	}
	field := c.Field
	if field == "" {
		field = c.ID
	}
	value, ok := row[field]
	if !ok || value == nil {
		return Cell{Value: nil, Display: ""}
	}
	switch c.Kind {
	case KindDate:
		return Cell{Value: value, Display: displayTime(value, loc)}
	case KindEnum:
		key := formatScalar(value)
		if label, ok := c.Options[key]; ok {
			return Cell{Value: value, Display: label}
		}
		return Cell{Value: value, Display: key}
	case KindMoney:
		if f, ok := toFloat(value); ok {
			return Cell{Value: value, Display: strconv.FormatFloat(f, 'f', 2, 64)}
		}
	case KindBool:
		if b, ok := value.(bool); ok {
			if b {
				return Cell{Value: value, Display: "Yes"}
			}
			return Cell{Value: value, Display: "No"}
		}
	}
	return Cell{Value: value, Display: formatScalar(value)}
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatScalar(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}
