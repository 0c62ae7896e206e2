// Package dashboard owns the booking cache for the selected date range and
// derives every view from it: the filtered table, the daily series, the
// status breakdown, the delete selection and the recipient picker.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/observability/metrics"
	"github.com/wolfman30/office-portal/internal/officeapi"
	"github.com/wolfman30/office-portal/internal/phone"
	"github.com/wolfman30/office-portal/internal/records"
	"github.com/wolfman30/office-portal/pkg/logging"
)

var dashboardTracer = otel.Tracer("office.internal.dashboard")

const defaultPageSize = 250

// BookingAPI is the slice of the office API the dashboard needs.
type BookingAPI interface {
	ListBookings(ctx context.Context, start, end time.Time, limit int) ([]records.Booking, error)
	Analytics(ctx context.Context, start, end time.Time) (officeapi.StatusSummary, error)
	DeleteBookings(ctx context.Context, confirmationIDs []string) error
}

// Options tunes a Dashboard. Zero values fall back to sensible defaults.
type Options struct {
	PageSize         int
	DefaultRangeDays int
	Location         *time.Location
	Clock            func() time.Time
	Logger           *logging.Logger
	Metrics          *metrics.PortalMetrics
}

// Snapshot is the last successful fetch.
type Snapshot struct {
	Range     DateRange               `json:"range"`
	Bookings  []records.Booking       `json:"-"`
	Summary   officeapi.StatusSummary `json:"summary"`
	FetchedAt time.Time               `json:"fetched_at"`
	Loaded    bool                    `json:"loaded"`
}

// EventKind names a dashboard change pushed to listeners.
type EventKind string

const (
	EventCache       EventKind = "cache"
	EventFetchFailed EventKind = "fetch_failed"
	EventView        EventKind = "view"
	EventSelection   EventKind = "selection"
	EventReset       EventKind = "reset"
)

// Event describes one change. Records and Selected are counts after the change.
type Event struct {
	Kind     EventKind  `json:"kind"`
	Range    *DateRange `json:"range,omitempty"`
	Records  int        `json:"records"`
	Selected int        `json:"selected"`
	Error    string     `json:"error,omitempty"`
}

// Recipient is one entry of the messaging picker. Phone is canonical, or
// empty when the booking's number could not be normalized.
type Recipient struct {
	ConfirmationID string `json:"confirmation_id"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	RawPhone       string `json:"raw_phone,omitempty"`
}

// Dashboard is the single owner of cache and view state. All methods are
// safe for concurrent use; network calls never run under the lock.
type Dashboard struct {
	api      BookingAPI
	pageSize int
	days     int
	loc      *time.Location
	clock    func() time.Time
	logger   *logging.Logger
	metrics  *metrics.PortalMetrics

	mu        sync.Mutex
	snapshot  Snapshot
	query     string
	sort      SortMode
	selection *Selection
	seq       uint64
	cancel    context.CancelFunc
	listeners []func(Event)
}

// New constructs an empty dashboard.
func New(api BookingAPI, opts Options) *Dashboard {
	if api == nil {
		panic("dashboard: booking api required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.DefaultRangeDays <= 0 {
		opts.DefaultRangeDays = DefaultSeriesDays
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Dashboard{
		api:       api,
		pageSize:  opts.PageSize,
		days:      opts.DefaultRangeDays,
		loc:       opts.Location,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		sort:      SortCacheOrder,
		selection: NewSelection(),
	}
}

// OnChange registers fn for every Event. fn runs outside the lock.
func (d *Dashboard) OnChange(fn func(Event)) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

// Today is the current time in the office timezone.
func (d *Dashboard) Today() time.Time {
	return d.clock().In(d.loc)
}

// DefaultRange is the trailing window used before anything is loaded.
func (d *Dashboard) DefaultRange() DateRange {
	return TrailingDays(d.Today(), d.days)
}

// Range is the range of the cached data, or DefaultRange before the first
// successful fetch.
func (d *Dashboard) Range() DateRange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rangeLocked()
}

func (d *Dashboard) rangeLocked() DateRange {
	if d.snapshot.Loaded {
		return d.snapshot.Range
	}
	return TrailingDays(d.Today(), d.days)
}

// Snapshot returns a copy of the cached data.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.snapshot
	snap.Bookings = append([]records.Booking(nil), d.snapshot.Bookings...)
	return snap
}

// Fetch loads bookings and analytics for rng in parallel and replaces the
// cache only when both succeed. Issuing a fetch cancels the one in flight;
// an older fetch that completes anyway changes nothing and returns
// ErrSuperseded, or its own error if it failed for another reason. On
// failure the previous cache, range and selection remain.
func (d *Dashboard) Fetch(ctx context.Context, rng DateRange) error {
	if !rng.Valid() {
		return ErrInvalidRange
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.seq++
	seq := d.seq
	d.cancel = cancel
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		if d.seq == seq {
			d.cancel = nil
		}
		d.mu.Unlock()
		cancel()
	}()

	fetchCtx, span := dashboardTracer.Start(fetchCtx, "dashboard.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("office.range.start", rng.StartString()),
		attribute.String("office.range.end", rng.EndString()),
	)

	var (
		bookings []records.Booking
		summary  officeapi.StatusSummary
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		var err error
		bookings, err = d.api.ListBookings(gctx, rng.Start, rng.End, d.pageSize)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = d.api.Analytics(gctx, rng.Start, rng.End)
		return err
	})
	err := g.Wait()

	d.mu.Lock()
	if d.seq != seq {
		d.mu.Unlock()
		d.metrics.ObserveFetch("superseded", 0)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("dashboard: fetch %s: %w", rng, err)
		}
		return ErrSuperseded
	}
	if err != nil {
		event := d.eventLocked(EventFetchFailed)
		event.Error = err.Error()
		listeners := d.listenersLocked()
		d.mu.Unlock()

		span.RecordError(err)
		d.metrics.ObserveFetch("error", 0)
		d.logger.Warn("booking fetch failed, keeping previous data", "range", rng.String(), "error", err)
		notify(listeners, event)
		return fmt.Errorf("dashboard: fetch %s: %w", rng, err)
	}

	if bookings == nil {
		bookings = []records.Booking{}
	}
	d.snapshot = Snapshot{
		Range:     rng,
		Bookings:  bookings,
		Summary:   summary,
		FetchedAt: d.clock(),
		Loaded:    true,
	}
	dropped := d.selection.Reconcile(bookings)
	event := d.eventLocked(EventCache)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	span.SetAttributes(attribute.Int("office.bookings.count", len(bookings)))
	d.metrics.ObserveFetch("ok", len(bookings))
	d.logger.Info("bookings fetched", "range", rng.String(), "records", len(bookings), "selection_dropped", dropped)
	notify(listeners, event)
	return nil
}

// Refresh refetches the current range.
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.Fetch(ctx, d.Range())
}

// Reset drops the cache and selection. A fetch in flight still reports
// its own outcome but its result is discarded. Used when the session ends.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	d.seq++
	d.snapshot = Snapshot{}
	d.selection.Clear()
	event := d.eventLocked(EventReset)
	listeners := d.listenersLocked()
	d.mu.Unlock()
	notify(listeners, event)
}

// SetView updates the search query and sort mode.
func (d *Dashboard) SetView(query string, mode SortMode) {
	d.mu.Lock()
	d.query = NormalizeQuery(query)
	d.sort = mode
	event := d.eventLocked(EventView)
	listeners := d.listenersLocked()
	d.mu.Unlock()
	notify(listeners, event)
}

// View returns the current query and sort mode.
func (d *Dashboard) View() (string, SortMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query, d.sort
}

// Visible is the filtered, sorted table.
func (d *Dashboard) Visible() []records.Booking {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visibleLocked()
}

func (d *Dashboard) visibleLocked() []records.Booking {
	return Filter(d.snapshot.Bookings, d.query, d.sort)
}

// TableRow is one visible booking and whether it is selected.
type TableRow struct {
	Booking  records.Booking
	Selected bool
}

// Table is the rendered table state, taken from a single cache generation.
type Table struct {
	Range     DateRange
	Query     string
	Sort      SortMode
	Loaded    bool
	FetchedAt time.Time
	Cached    int
	Rows      []TableRow
}

// Table returns the visible rows together with the range, view and
// selection they belong to, read under one lock.
func (d *Dashboard) Table() Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	visible := d.visibleLocked()
	table := Table{
		Range:     d.rangeLocked(),
		Query:     d.query,
		Sort:      d.sort,
		Loaded:    d.snapshot.Loaded,
		FetchedAt: d.snapshot.FetchedAt,
		Cached:    len(d.snapshot.Bookings),
		Rows:      make([]TableRow, 0, len(visible)),
	}
	for _, b := range visible {
		table.Rows = append(table.Rows, TableRow{Booking: b, Selected: d.selection.Contains(b.ConfirmationID)})
	}
	return table
}

// Series buckets the cache per day booked over the cached range, or over
// the trailing default window when nothing is loaded.
func (d *Dashboard) Series() Series {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.snapshot.Loaded {
		return Aggregate(nil, nil, d.Today())
	}
	rng := d.snapshot.Range
	return Aggregate(d.snapshot.Bookings, &rng, d.Today())
}

// Breakdown returns the analytics new/existing counts.
func (d *Dashboard) Breakdown() officeapi.StatusSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.Summary
}

// Toggle flips the selection of id, which must be in the visible table.
func (d *Dashboard) Toggle(id string) (bool, error) {
	d.mu.Lock()
	selected, err := d.selection.Toggle(id, d.visibleLocked())
	if err != nil {
		d.mu.Unlock()
		return false, err
	}
	event := d.eventLocked(EventSelection)
	listeners := d.listenersLocked()
	d.mu.Unlock()
	notify(listeners, event)
	return selected, nil
}

func (d *Dashboard) ClearSelection() {
	d.mu.Lock()
	d.selection.Clear()
	event := d.eventLocked(EventSelection)
	listeners := d.listenersLocked()
	d.mu.Unlock()
	notify(listeners, event)
}

func (d *Dashboard) SelectedIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection.IDs()
}

func (d *Dashboard) IsSelected(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection.Contains(id)
}

// DeleteSelected deletes every selected booking in one call. A failed call
// leaves selection and cache untouched. After a successful call the
// selection is cleared and the current range refetched; the returned count
// is the number of ids sent, and a non-nil error then comes from the refetch.
func (d *Dashboard) DeleteSelected(ctx context.Context) (int, error) {
	ids := d.SelectedIDs()
	if len(ids) == 0 {
		return 0, ErrNothingSelected
	}

	ctx, span := dashboardTracer.Start(ctx, "dashboard.delete_selected")
	defer span.End()
	span.SetAttributes(attribute.Int("office.bookings.selected", len(ids)))

	if err := d.api.DeleteBookings(ctx, ids); err != nil {
		span.RecordError(err)
		d.metrics.ObserveDelete("error")
		d.logger.Warn("booking delete failed", "count", len(ids), "error", err)
		return 0, fmt.Errorf("dashboard: delete bookings: %w", err)
	}
	d.metrics.ObserveDelete("ok")
	d.logger.Info("bookings deleted", "count", len(ids))

	d.ClearSelection()
	if err := d.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return len(ids), fmt.Errorf("dashboard: refresh after delete: %w", err)
	}
	return len(ids), nil
}

// ExportCSV renders the visible table and returns the download file name.
func (d *Dashboard) ExportCSV() (string, []byte) {
	visible := d.Visible()
	return csvexport.FileName(d.Today()), csvexport.Serialize(visible)
}

// Recipients lists the visible bookings for the messaging picker.
func (d *Dashboard) Recipients() []Recipient {
	visible := d.Visible()
	out := make([]Recipient, 0, len(visible))
	for _, b := range visible {
		if !b.HasIdentity() {
			continue
		}
		r := Recipient{ConfirmationID: b.ConfirmationID, Name: b.Name(), RawPhone: b.Phone}
		if canonical, ok := phone.Normalize(b.Phone); ok {
			r.Phone = canonical
		}
		out = append(out, r)
	}
	return out
}

// RecipientFor returns the canonical phone of the cached booking id. ok is
// false when the booking is unknown or its phone does not normalize, in
// which case the number has to be typed by hand.
func (d *Dashboard) RecipientFor(id string) (string, bool) {
	b, ok := d.lookup(id)
	if !ok {
		return "", false
	}
	return phone.Normalize(b.Phone)
}

// HasBooking reports whether id is in the cache.
func (d *Dashboard) HasBooking(id string) bool {
	_, ok := d.lookup(id)
	return ok
}

func (d *Dashboard) lookup(id string) (records.Booking, bool) {
	if id == "" {
		return records.Booking{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.snapshot.Bookings {
		if b.ConfirmationID == id {
			return b, true
		}
	}
	return records.Booking{}, false
}

func (d *Dashboard) eventLocked(kind EventKind) Event {
	event := Event{
		Kind:     kind,
		Records:  len(d.snapshot.Bookings),
		Selected: d.selection.Len(),
	}
	if d.snapshot.Loaded {
		rng := d.snapshot.Range
		event.Range = &rng
	}
	return event
}

func (d *Dashboard) listenersLocked() []func(Event) {
	return append(([]func(Event))(nil), d.listeners...)
}

func notify(listeners []func(Event), event Event) {
	for _, fn := range listeners {
		fn(event)
	}
}
