package dashboard

import (
	"time"

	"github.com/wolfman30/office-portal/internal/records"
)

// DefaultSeriesDays is the window used when no range is given.
const DefaultSeriesDays = 30

// DailyBucket counts bookings made on one calendar day.
type DailyBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Series is a gap-free, ascending run of daily buckets.
type Series struct {
	Range   DateRange     `json:"range"`
	Buckets []DailyBucket `json:"buckets"`
	Total   int           `json:"total"`
}

// Aggregate buckets bookings by date booked. Every day of rng gets a bucket,
// zero when nothing was booked; bookings outside the range or with an
// unparsable creation date are dropped. A nil rng means the trailing
// DefaultSeriesDays ending on now's date. An inverted range yields no buckets.
func Aggregate(bookings []records.Booking, rng *DateRange, now time.Time) Series {
	window := TrailingDays(now, DefaultSeriesDays)
	if rng != nil {
		window = *rng
	}
	series := Series{Range: window, Buckets: []DailyBucket{}}
	days := window.Days()
	if days == 0 {
		return series
	}

	series.Buckets = make([]DailyBucket, days)
	for i := range series.Buckets {
		series.Buckets[i] = DailyBucket{Date: window.Start.AddDate(0, 0, i).Format(DateLayout)}
	}

	for _, b := range bookings {
		booked, err := time.Parse(DateLayout, b.DateBooked())
		if err != nil || !window.Contains(booked) {
			continue
		}
		idx := int(booked.Sub(window.Start).Hours() / 24)
		series.Buckets[idx].Count++
		series.Total++
	}
	return series
}
