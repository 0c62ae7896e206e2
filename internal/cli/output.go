package cli

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wolfman30/office-portal/internal/dashboard"
	"github.com/wolfman30/office-portal/internal/messaging"
	"github.com/wolfman30/office-portal/internal/officeapi"
	"github.com/wolfman30/office-portal/internal/records"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderBookings(w io.Writer, view dashboard.Table) {
	t := newTable(w)
	t.SetTitle("Online bookings " + view.Range.String())
	t.AppendHeader(table.Row{"Date Booked", "Patient", "DOB", "Status", "Appt Date", "Appt Time", "Type", "Insurance", "Confirmation"})
	for _, r := range view.Rows {
		row := r.Booking.Row()
		t.AppendRow(table.Row{
			records.Placeholder(row.DateBooked),
			records.Placeholder(row.PatientName),
			records.Placeholder(row.DOB),
			row.StatusBadge,
			records.Placeholder(row.AppointmentDate),
			records.Placeholder(row.AppointmentTime),
			records.Placeholder(row.AppointmentType),
			records.Placeholder(row.Insurance),
			records.Placeholder(row.ConfirmationID),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "Total", len(view.Rows)})
	t.Render()
}

func renderSeries(w io.Writer, series dashboard.Series) {
	t := newTable(w)
	t.SetTitle("Bookings per day " + series.Range.String())
	t.AppendHeader(table.Row{"Date", "Bookings"})
	for _, bucket := range series.Buckets {
		t.AppendRow(table.Row{bucket.Date, bucket.Count})
	}
	t.AppendFooter(table.Row{"Total", series.Total})
	t.Render()
}

func renderBreakdown(w io.Writer, rng dashboard.DateRange, summary officeapi.StatusSummary) {
	t := newTable(w)
	t.SetTitle("Patient status " + rng.String())
	t.AppendHeader(table.Row{"Status", "Bookings"})
	t.AppendRow(table.Row{"New", strconv.Itoa(summary.New)})
	t.AppendRow(table.Row{"Existing", strconv.Itoa(summary.Existing)})
	t.AppendFooter(table.Row{"Total", strconv.Itoa(summary.Total())})
	t.Render()
}

func renderThread(w io.Writer, thread messaging.Thread) {
	t := newTable(w)
	t.SetTitle("Messages " + thread.To)
	t.AppendHeader(table.Row{"Sent", "Status", "Body"})
	for _, m := range thread.Messages {
		t.AppendRow(table.Row{records.Placeholder(m.SentAt), records.Placeholder(m.Status), m.Body})
	}
	t.Render()
}
