// Package csvexport serializes the visible bookings into the office CSV
// export and hands the document to a sink.
package csvexport

import (
	"strings"
	"time"

	"github.com/wolfman30/office-portal/internal/records"
)

// ContentType is served with CSV downloads.
const ContentType = "text/csv; charset=utf-8"

// Header is the fixed column order.
var Header = []string{
	"Date Booked",
	"Patient Name",
	"Patient DOB",
	"Patient Status",
	"Appt Date",
	"Appt Time",
	"Appointment Type",
	"Insurance",
}

// crlf folds CRLF line breaks inside a value to "\n", which is what a CSV
// reader hands back for a quoted CRLF.
var crlf = strings.NewReplacer("\r\n", "\n")

// Cells returns the export cells for one booking, in Header order.
func Cells(b records.Booking) []string {
	row := b.Row()
	cells := []string{
		row.DateBooked,
		row.PatientName,
		row.DOB,
		row.Status,
		row.AppointmentDate,
		row.AppointmentTime,
		row.AppointmentType,
		row.Insurance,
	}
	for i, cell := range cells {
		cells[i] = crlf.Replace(cell)
	}
	return cells
}

// Serialize renders the header plus one line per booking, joined with "\n".
func Serialize(bookings []records.Booking) []byte {
	var b strings.Builder
	writeLine(&b, Header)
	for _, booking := range bookings {
		b.WriteByte('\n')
		writeLine(&b, Cells(booking))
	}
	return []byte(b.String())
}

// FileName is the download name for an export produced on day.
func FileName(day time.Time) string {
	return "online_bookings_" + day.Format("2006-01-02") + ".csv"
}

func writeLine(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Escape(cell))
	}
}

// Escape quotes a cell containing a comma, double quote or line break and
// doubles its inner quotes. Other cells are written as-is.
func Escape(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n\r") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
