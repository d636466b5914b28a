package listview

import "sync"

// SelectionAction names a selection mutation.
type SelectionAction string

const (
	ActionSelectPage   SelectionAction = "select_page"
	ActionDeselectPage SelectionAction = "deselect_page"
	ActionSelectAll    SelectionAction = "select_all"
	ActionDeselectAll  SelectionAction = "deselect_all"
)

// Selection is a point-in-time copy of a SelectionSet.
type Selection struct {
	Selected  []string `json:"selected"`
	SelectAll bool     `json:"select_all"`
}

// SelectionSet tracks selected row ids across pages. SelectAll means every
// row matching the current filters server-side; when it is set consumers must
// ignore Selected.
type SelectionSet struct {
	mu        sync.RWMutex
	order     []string
	members   map[string]struct{}
	selectAll bool
}

// NewSelectionSet builds an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{members: map[string]struct{}{}}
}

// SelectPage adds ids to the selection. Repeated ids are ignored.
func (s *SelectionSet) SelectPage(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.members[id]; ok {
			continue
		}
		s.members[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

// DeselectPage removes ids and clears SelectAll. Ids that were never selected
// are ignored.
func (s *SelectionSet) DeselectPage(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectAll = false
	if len(ids) == 0 || len(s.members) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.members[id]; ok {
			drop[id] = struct{}{}
			delete(s.members, id)
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

// SelectAll flags every matching row without enumerating ids.
func (s *SelectionSet) SelectAll() {
	s.mu.Lock()
	s.selectAll = true
	s.mu.Unlock()
}

// DeselectAll clears ids and the SelectAll flag.
func (s *SelectionSet) DeselectAll() {
	s.mu.Lock()
	s.selectAll = false
	s.order = nil
	s.members = map[string]struct{}{}
	s.mu.Unlock()
}

// Apply runs a named action.
func (s *SelectionSet) Apply(action SelectionAction, ids []string) error {
	switch action {
	case ActionSelectPage:
		s.SelectPage(ids)
	case ActionDeselectPage:
		s.DeselectPage(ids)
	case ActionSelectAll:
		s.SelectAll()
	case ActionDeselectAll:
		s.DeselectAll()
	default:
		return errUnknownSelectionAction
	}
	return nil
}

// Targets tells consumers what to operate on: every matching row when all is
// true, otherwise the enumerated ids.
func (s *SelectionSet) Targets() (all bool, ids []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectAll {
		return true, nil
	}
	return false, append([]string(nil), s.order...)
}

// Has reports whether an id is selected, either explicitly or through
// SelectAll.
func (s *SelectionSet) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectAll {
		return true
	}
	_, ok := s.members[id]
	return ok
}

// Snapshot copies the current state.
func (s *SelectionSet) Snapshot() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Selection{
		Selected:  append([]string{}, s.order...),
		SelectAll: s.selectAll,
	}
}
