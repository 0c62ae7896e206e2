package dashboard

import (
	"sort"
	"strings"

	"github.com/wolfman30/office-portal/internal/records"
)

// SortMode selects the table ordering.
type SortMode string

const (
	// SortCacheOrder keeps the order the API returned.
	SortCacheOrder SortMode = "cache"
	// SortNewestBooked orders by creation timestamp, newest first; ties keep
	// cache order.
	SortNewestBooked SortMode = "newest"
)

// ParseSortMode maps user input to a SortMode, defaulting to cache order.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(SortNewestBooked), "newest_booked", "newest-booked":
		return SortNewestBooked
	default:
		return SortCacheOrder
	}
}

// NormalizeQuery trims and lower-cases a search query.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Filter returns the bookings whose search text contains query. It is a
// single substring predicate with no operators. The input is never
// modified, and the output order depends only on the input and mode.
func Filter(bookings []records.Booking, query string, mode SortMode) []records.Booking {
	q := NormalizeQuery(query)
	out := make([]records.Booking, 0, len(bookings))
	for _, b := range bookings {
		if q == "" || strings.Contains(b.SearchText(), q) {
			out = append(out, b)
		}
	}
	if mode == SortNewestBooked {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt > out[j].CreatedAt
		})
	}
	return out
}
