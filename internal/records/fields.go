// Package records resolves the loosely-typed objects returned by the office
// API into typed bookings and messages. Every logical field is looked up
// through an ordered alias list exactly once, at the decoding boundary.
package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Fields is one raw JSON object as returned by the API.
type Fields map[string]any

// Alias lists, in lookup order. Older API revisions used the later names.
var (
	firstNameKeys      = []string{"patient_first", "first_name", "firstName"}
	lastNameKeys       = []string{"patient_last", "last_name", "lastName"}
	dobKeys            = []string{"patient_dob", "dob", "date_of_birth"}
	statusKeys         = []string{"patient_status", "status"}
	insuranceKeys      = []string{"insurance", "insurance_carrier", "insCarrier", "carrier"}
	noInsuranceKeys    = []string{"no_insurance", "noInsurance"}
	phoneKeys          = []string{"patient_phone", "phone", "phone_number", "phoneNumber", "mobile"}
	confirmationIDKeys = []string{"confirmation_id", "confirmationId"}
	createdAtKeys      = []string{"created_at", "createdAt"}
	apptDateKeys       = []string{"appointment_date", "appointmentDate"}
	apptTimeKeys       = []string{"appointment_time", "appointmentTime"}
	apptTypeKeys       = []string{"appointment_type", "appointmentType"}

	messageTimeKeys   = []string{"sent_at", "created_at", "createdAt", "timestamp"}
	messageToKeys     = []string{"to", "to_number", "toNumber", "recipient", "phone"}
	messageBodyKeys   = []string{"body", "text", "message"}
	messageStatusKeys = []string{"status", "delivery_status", "state"}
)

// String returns the stringified value under key, or "" when absent or null.
func (f Fields) String(key string) string {
	if f == nil {
		return ""
	}
	return stringify(f[key])
}

// First returns the first alias whose trimmed value is non-empty.
func (f Fields) First(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(f.String(key)); v != "" {
			return v
		}
	}
	return ""
}

// FirstPresent returns the first alias that exists with a non-null value.
func (f Fields) FirstPresent(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := f[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func prefix(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return value[:n]
}
