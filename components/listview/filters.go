package listview

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ettle/strcase"
)

// FilterKind selects how a filter value is encoded and displayed.
type FilterKind string

const (
	FilterText  FilterKind = "text"
	FilterList  FilterKind = "list"
	FilterRange FilterKind = "range"
	FilterDate  FilterKind = "date"
	FilterEnum  FilterKind = "enum"
)

// DisplayTimeLayout is used for every date rendered for a viewer.
const DisplayTimeLayout = "2006-01-02 15:04"

// FilterSpec declares a recognized filter key.
type FilterSpec struct {
	Key     string            `json:"key" yaml:"key"`
	Label   string            `json:"label,omitempty" yaml:"label,omitempty"`
	Kind    FilterKind        `json:"kind" yaml:"kind"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// FilterValue holds a single filter entry. Text and enum filters use Text,
// list filters use List, range and date filters use From/To.
type FilterValue struct {
	Text string   `json:"text,omitempty"`
	List []string `json:"list,omitempty"`
	From string   `json:"from,omitempty"`
	To   string   `json:"to,omitempty"`
}

// IsEmpty reports whether the value carries nothing to filter on.
func (v FilterValue) IsEmpty() bool {
	if strings.TrimSpace(v.Text) != "" || v.From != "" || v.To != "" {
		return false
	}
	for _, item := range v.List {
		if item != "" {
			return false
		}
	}
	return true
}

// FilterState maps filter keys to their values.
type FilterState map[string]FilterValue

// Clone copies the state, including list values.
func (s FilterState) Clone() FilterState {
	out := make(FilterState, len(s))
	for k, v := range s {
		if v.List != nil {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}
	return out
}

// Active returns the non-empty entries.
func (s FilterState) Active() FilterState {
	out := FilterState{}
	for k, v := range s {
		if !v.IsEmpty() {
			out[k] = v
		}
	}
	return out
}

// Equal compares the active entries of two states.
func (s FilterState) Equal(other FilterState) bool {
	a, b := s.Active(), other.Active()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || v.Text != w.Text || v.From != w.From || v.To != w.To || len(v.List) != len(w.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != w.List[i] {
				return false
			}
		}
	}
	return true
}

// Encode writes the active filters into query parameters: `key`, `key[]`,
// `key_from` and `key_to`.
func (s FilterState) Encode(values url.Values) {
	for _, key := range s.sortedKeys() {
		v := s[key]
		if v.IsEmpty() {
			continue
		}
		switch {
		case len(v.List) > 0:
			for _, item := range v.List {
				if item != "" {
					values.Add(key+"[]", item)
				}
			}
		case v.From != "" || v.To != "":
			if v.From != "" {
				values.Set(key+"_from", v.From)
			}
			if v.To != "" {
				values.Set(key+"_to", v.To)
			}
		default:
			values.Set(key, strings.TrimSpace(v.Text))
		}
	}
}

func (s FilterState) sortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseFilterState reads recognized filters from query parameters. Keys are
// normalized to snake_case so `betType` and `bet_type` are equivalent.
func ParseFilterState(values url.Values, specs []FilterSpec) FilterState {
	normalized := url.Values{}
	for k, v := range values {
		suffix := ""
		base := k
		if strings.HasSuffix(base, "[]") {
			suffix, base = "[]", strings.TrimSuffix(base, "[]")
		}
		normalized[NormalizeFilterKey(base)+suffix] = v
	}
	state := FilterState{}
	for _, spec := range specs {
		key := spec.Key
		var value FilterValue
		switch spec.Kind {
		case FilterList:
			value.List = append(value.List, normalized[key+"[]"]...)
			if raw := normalized.Get(key); raw != "" {
				value.List = append(value.List, strings.Split(raw, ",")...)
			}
		case FilterRange, FilterDate:
			value.From = normalized.Get(key + "_from")
			value.To = normalized.Get(key + "_to")
		default:
			value.Text = normalized.Get(key)
		}
		if !value.IsEmpty() {
			state[key] = value
		}
	}
	return state
}

// NormalizeFilterKey converts a filter key to snake_case.
func NormalizeFilterKey(key string) string {
	return strcase.ToSnake(strings.TrimSpace(key))
}

// Chip is a removable token representing one active filter value.
type Chip struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	Value        string `json:"value"`
	DisplayValue string `json:"display_value"`
	Index        int    `json:"index"`
}

// DeriveChips builds one chip per active recognized filter, and one per
// element of list filters. Chips follow the filter declaration order.
func DeriveChips(specs []FilterSpec, state FilterState, loc *time.Location) []Chip {
	var chips []Chip
	for _, spec := range specs {
		value, ok := state[spec.Key]
		if !ok || value.IsEmpty() {
			continue
		}
		label := spec.Label
		if label == "" {
			label = DefaultLabel(spec.Key)
		}
		switch spec.Kind {
		case FilterList:
			for idx, item := range value.List {
				if item == "" {
					continue
				}
				display := item
				if mapped, ok := spec.Options[item]; ok {
					display = mapped
				}
				chips = append(chips, Chip{Key: spec.Key, Label: label, Value: item, DisplayValue: display, Index: idx})
			}
		case FilterDate:
			chips = append(chips, Chip{
				Key:          spec.Key,
				Label:        label,
				Value:        rangeValue(value),
				DisplayValue: rangeDisplay(ToLocalTime(value.From, loc), ToLocalTime(value.To, loc)),
				Index:        -1,
			})
		case FilterRange:
			chips = append(chips, Chip{
				Key:          spec.Key,
				Label:        label,
				Value:        rangeValue(value),
				DisplayValue: rangeDisplay(value.From, value.To),
				Index:        -1,
			})
		case FilterEnum:
			raw := strings.TrimSpace(value.Text)
			display, ok := spec.Options[raw]
			if !ok {
				display = raw
			}
			chips = append(chips, Chip{Key: spec.Key, Label: label, Value: raw, DisplayValue: display, Index: -1})
		default:
			raw := strings.TrimSpace(value.Text)
			chips = append(chips, Chip{Key: spec.Key, Label: label, Value: raw, DisplayValue: raw, Index: -1})
		}
	}
	return chips
}

func rangeValue(v FilterValue) string {
	return v.From + ".." + v.To
}

func rangeDisplay(from, to string) string {
	switch {
	case from != "" && to != "":
		return from + " - " + to
	case from != "":
		return ">= " + from
	default:
		return "<= " + to
	}
}

// RemoveChip clears the filter behind a chip. List chips remove only their
// element; scalar chips clear the whole key and request a page reset.
func RemoveChip(state FilterState, chip Chip) (FilterState, bool) {
	next := state.Clone()
	value, ok := next[chip.Key]
	if !ok {
		return next, false
	}
	if len(value.List) > 0 && chip.Index >= 0 {
		if chip.Index >= len(value.List) || value.List[chip.Index] != chip.Value {
			return next, false
		}
		value.List = append(value.List[:chip.Index], value.List[chip.Index+1:]...)
		if len(value.List) == 0 {
			delete(next, chip.Key)
		} else {
			next[chip.Key] = value
		}
		return next, false
	}
	delete(next, chip.Key)
	return next, true
}

var inputTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ToLocalTime converts a UTC timestamp into the viewer time zone. Values that
// cannot be parsed are returned unchanged.
func ToLocalTime(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range inputTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.In(loc).Format(DisplayTimeLayout)
		}
	}
	return raw
}

func displayTime(v any, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case time.Time:
		return t.In(loc).Format(DisplayTimeLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.In(loc).Format(DisplayTimeLayout)
	case float64:
		return time.Unix(int64(t), 0).In(loc).Format(DisplayTimeLayout)
	default:
		return ToLocalTime(fmt.Sprint(v), loc)
	}
}
