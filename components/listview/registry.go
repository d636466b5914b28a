package listview

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TableDefinition describes a list view: the backend collection it reads,
// its capability-gated columns and recognized filters.
type TableDefinition struct {
	Name           string       `json:"name" yaml:"name"`
	Resource       string       `json:"resource" yaml:"resource"`
	ItemsKey       string       `json:"items_key,omitempty" yaml:"items_key,omitempty"`
	Capability     string       `json:"capability,omitempty" yaml:"capability,omitempty"`
	Columns        []Column     `json:"columns" yaml:"columns"`
	Filters        []FilterSpec `json:"filters,omitempty" yaml:"filters,omitempty"`
	DefaultSort    Sort         `json:"default_sort,omitempty" yaml:"default_sort,omitempty"`
	DefaultPerPage int          `json:"default_per_page,omitempty" yaml:"default_per_page,omitempty"`
}

// Filter looks up a filter spec by key.
func (d TableDefinition) Filter(key string) (FilterSpec, bool) {
	for _, spec := range d.Filters {
		if spec.Key == key {
			return spec, true
		}
	}
	return FilterSpec{}, false
}

// Validate checks required fields and column id uniqueness.
func (d TableDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("listview: table name is required")
	}
	if d.Resource == "" {
		return fmt.Errorf("listview: table %s requires a resource", d.Name)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("listview: table %s declares no columns", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Columns))
	for idx, col := range d.Columns {
		if col.ID == "" {
			return fmt.Errorf("listview: table %s column at index %d is missing id", d.Name, idx)
		}
		if _, ok := seen[col.ID]; ok {
			return fmt.Errorf("listview: table %s duplicates column id %s", d.Name, col.ID)
		}
		seen[col.ID] = struct{}{}
	}
	for _, spec := range d.Filters {
		if spec.Key == "" {
			return fmt.Errorf("listview: table %s declares a filter without key", d.Name)
		}
	}
	return nil
}

func (d TableDefinition) normalized() TableDefinition {
	d.Resource = "/" + strings.TrimPrefix(d.Resource, "/")
	if d.ItemsKey == "" {
		d.ItemsKey = strings.TrimPrefix(d.Resource[strings.LastIndex(d.Resource, "/"):], "/")
	}
	if d.DefaultPerPage <= 0 {
		d.DefaultPerPage = defaultPerPage
	}
	d.DefaultSort = d.DefaultSort.Normalize()
	d.Filters = append([]FilterSpec(nil), d.Filters...)
	d.Columns = append([]Column(nil), d.Columns...)
	for i := range d.Filters {
		d.Filters[i].Key = NormalizeFilterKey(d.Filters[i].Key)
		if d.Filters[i].Kind == "" {
			d.Filters[i].Kind = FilterText
		}
	}
	for i := range d.Columns {
		if d.Columns[i].Kind == "" {
			d.Columns[i].Kind = KindText
		}
		d.Columns[i].LabelLocalized = normalizeLocaleMap(d.Columns[i].LabelLocalized)
	}
	return d
}

// TableHook lets packages register tables during init().
type TableHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []TableHook
)

// RegisterTableHook registers a hook executed against new registries.
func RegisterTableHook(h TableHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry implements TableRegistry with hook + manifest support.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]TableDefinition
}

// NewRegistry builds a registry holding the default tables and applies global
// hooks.
func NewRegistry() *Registry {
	reg := NewEmptyRegistry()
	for _, def := range DefaultTableDefinitions() {
		_ = reg.RegisterTable(def)
	}
	_ = reg.ApplyHooks()
	return reg
}

// NewEmptyRegistry builds a registry without default tables.
func NewEmptyRegistry() *Registry {
	return &Registry{tables: map[string]TableDefinition{}}
}

// ApplyHooks executes registered table hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterTable stores a table definition, replacing any previous one with
// the same name.
func (r *Registry) RegisterTable(def TableDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	def = def.normalized()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[def.Name] = def
	return nil
}

// Table fetches a table definition by name.
func (r *Registry) Table(name string) (TableDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tables[name]
	return def, ok
}

// Tables returns all registered tables sorted by name.
func (r *Registry) Tables() []TableDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]TableDefinition, 0, len(r.tables))
	for _, def := range r.tables {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func normalizeLocaleMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	normalized := make(map[string]string, len(values))
	for key, value := range values {
		key = normalizeLocale(key)
		if key == "" || value == "" {
			continue
		}
		normalized[key] = value
	}
	return normalized
}
