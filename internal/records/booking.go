package records

import "strings"

const (
	// Unknown is displayed when a field has no value.
	Unknown = "—"
	// SelfPay labels patients who declared no insurance.
	SelfPay = "Self-Pay"
)

// StatusClass is the coarse patient classification shown as a badge.
type StatusClass string

const (
	StatusNew      StatusClass = "new"
	StatusExisting StatusClass = "existing"
)

var appointmentTypeLabels = map[string]string{
	"adult_cleaning": "Adult Cleaning",
	"child_cleaning": "Child Cleaning",
	"emergency":      "Emergency",
	"consult":        "Consult",
}

// Booking is a resolved booking record. Only ConfirmationID identifies a
// booking; records without one are display-only.
type Booking struct {
	ConfirmationID   string   `json:"confirmation_id,omitempty"`
	CreatedAt        string   `json:"created_at"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	DOB              string   `json:"dob"`
	Status           string   `json:"status"`
	AppointmentDate  string   `json:"appointment_date"`
	AppointmentTime  string   `json:"appointment_time"`
	AppointmentType  string   `json:"appointment_type"`
	InsuranceAliases []string `json:"-"`
	NoInsurance      bool     `json:"no_insurance"`
	Phone            string   `json:"phone,omitempty"`
	Raw              Fields   `json:"-"`
}

// Resolve maps a raw API object onto a Booking. It never fails.
func Resolve(raw Fields) Booking {
	b := Booking{
		ConfirmationID:  raw.First(confirmationIDKeys...),
		CreatedAt:       raw.First(createdAtKeys...),
		FirstName:       raw.First(firstNameKeys...),
		LastName:        raw.First(lastNameKeys...),
		DOB:             prefix(raw.First(dobKeys...), 10),
		Status:          raw.First(statusKeys...),
		AppointmentDate: raw.First(apptDateKeys...),
		AppointmentTime: raw.First(apptTimeKeys...),
		AppointmentType: raw.First(apptTypeKeys...),
		Phone:           raw.First(phoneKeys...),
		Raw:             raw,
	}
	b.InsuranceAliases = make([]string, 0, len(insuranceKeys))
	for _, key := range insuranceKeys {
		b.InsuranceAliases = append(b.InsuranceAliases, strings.TrimSpace(raw.String(key)))
	}
	if v, ok := raw.FirstPresent(noInsuranceKeys...); ok {
		flag, isBool := v.(bool)
		b.NoInsurance = isBool && flag
	}
	return b
}

// ResolveAll resolves a slice of raw objects, preserving order.
func ResolveAll(raws []Fields) []Booking {
	out := make([]Booking, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Resolve(raw))
	}
	return out
}

// HasIdentity reports whether the booking can be selected, deleted or
// referenced from a message.
func (b Booking) HasIdentity() bool {
	return b.ConfirmationID != ""
}

// Name joins first and last name.
func (b Booking) Name() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// DateBooked is the calendar-date part of the creation timestamp.
func (b Booking) DateBooked() string {
	return prefix(b.CreatedAt, 10)
}

// InsuranceLabel is the first non-empty insurance alias, Self-Pay when the
// patient declared no insurance, or Unknown.
func (b Booking) InsuranceLabel() string {
	for _, v := range b.InsuranceAliases {
		if v != "" {
			return v
		}
	}
	if b.NoInsurance {
		return SelfPay
	}
	return Unknown
}

// StatusClass classifies any status containing "new" as a new patient. The
// match is a loose substring on purpose; callers rely on it as-is.
func (b Booking) StatusClass() StatusClass {
	if strings.Contains(strings.ToLower(b.Status), "new") {
		return StatusNew
	}
	return StatusExisting
}

// StatusBadge is the human label for StatusClass.
func (b Booking) StatusBadge() string {
	if b.StatusClass() == StatusNew {
		return "New Patient"
	}
	return "Existing"
}

// AppointmentTypeLabel maps known type codes to labels and passes others through.
func (b Booking) AppointmentTypeLabel() string {
	if label, ok := appointmentTypeLabels[strings.ToLower(b.AppointmentType)]; ok {
		return label
	}
	return b.AppointmentType
}

// SearchText is the lower-cased text the filter engine matches against.
func (b Booking) SearchText() string {
	parts := []string{
		b.FirstName, b.LastName, b.Status,
		b.AppointmentDate, b.AppointmentTime, b.AppointmentType,
	}
	parts = append(parts, b.InsuranceAliases...)
	parts = append(parts, b.CreatedAt, b.ConfirmationID)
	return strings.ToLower(strings.Join(parts, " "))
}

// Row is the display projection shared by the table and the CSV export.
type Row struct {
	ConfirmationID  string      `json:"confirmation_id,omitempty"`
	DateBooked      string      `json:"date_booked"`
	PatientName     string      `json:"patient_name"`
	DOB             string      `json:"dob"`
	Status          string      `json:"status"`
	StatusClass     StatusClass `json:"status_class"`
	StatusBadge     string      `json:"status_badge"`
	AppointmentDate string      `json:"appointment_date"`
	AppointmentTime string      `json:"appointment_time"`
	AppointmentType string      `json:"appointment_type"`
	Insurance       string      `json:"insurance"`
	Phone           string      `json:"phone,omitempty"`
	Selectable      bool        `json:"selectable"`
}

// Row projects the booking. Empty values stay empty; Placeholder fills
// them for on-screen tables.
func (b Booking) Row() Row {
	return Row{
		ConfirmationID:  b.ConfirmationID,
		DateBooked:      b.DateBooked(),
		PatientName:     b.Name(),
		DOB:             b.DOB,
		Status:          b.Status,
		StatusClass:     b.StatusClass(),
		StatusBadge:     b.StatusBadge(),
		AppointmentDate: b.AppointmentDate,
		AppointmentTime: b.AppointmentTime,
		AppointmentType: b.AppointmentTypeLabel(),
		Insurance:       b.InsuranceLabel(),
		Phone:           b.Phone,
		Selectable:      b.HasIdentity(),
	}
}

// Placeholder returns value, or Unknown when it is empty.
func Placeholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return Unknown
	}
	return value
}
