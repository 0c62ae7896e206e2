package dashboard

import (
	"sort"

	"github.com/wolfman30/office-portal/internal/records"
)

// Selection tracks confirmation ids picked for deletion. It only ever holds
// ids of records it has seen in the view or the cache, so a delete can never
// target a booking that disappeared in between. Not safe for concurrent use;
// Dashboard serializes access.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle flips id. The id must belong to a record in visible.
func (s *Selection) Toggle(id string, visible []records.Booking) (bool, error) {
	if id == "" {
		return false, ErrNotSelectable
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false, nil
	}
	for _, b := range visible {
		if b.HasIdentity() && b.ConfirmationID == id {
			s.ids[id] = struct{}{}
			return true, nil
		}
	}
	return false, ErrNotSelectable
}

// Reconcile drops ids that are no longer in cache and reports how many went.
func (s *Selection) Reconcile(cache []records.Booking) int {
	if len(s.ids) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(cache))
	for _, b := range cache {
		if b.HasIdentity() {
			present[b.ConfirmationID] = struct{}{}
		}
	}
	removed := 0
	for id := range s.ids {
		if _, ok := present[id]; !ok {
			delete(s.ids, id)
			removed++
		}
	}
	return removed
}

func (s *Selection) Clear() {
	clear(s.ids)
}

func (s *Selection) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
