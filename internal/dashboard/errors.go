package dashboard

import "errors"

var (
	// ErrSuperseded is returned by a fetch whose response arrived after a
	// newer fetch was issued; its result is discarded.
	ErrSuperseded = errors.New("dashboard: fetch superseded by a newer request")

	// ErrNotSelectable is returned when toggling an id that is not in the
	// current view, or a record without a confirmation id.
	ErrNotSelectable = errors.New("dashboard: booking is not in the current view")

	// ErrNothingSelected is returned by DeleteSelected with an empty selection.
	ErrNothingSelected = errors.New("dashboard: no bookings selected")

	// ErrInvalidRange is returned for ranges whose start is after their end.
	ErrInvalidRange = errors.New("dashboard: start date must not be after end date")
)
