package scheduling

import "strings"

// statusLabels maps OpenEMR single-character appointment status codes to
// human-readable labels.
var statusLabels = map[string]string{
	"-": "Open",
	"@": "Arrived",
	"~": "Arrived late",
	"!": "Left w/o being seen",
	"#": "Ins/fin issue",
	"<": "In exam room",
	">": "Checked out",
	"$": "Coding done",
	"%": "Cancelled",
	"x": "No show",
	"^": "Pending",
}

// Appointment is the stable output shape of one appointment.
type Appointment struct {
	AppointmentID int    `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	PatientID     int    `json:"patient_id"`
	ProviderName  string `json:"provider_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	StatusLabel   string `json:"status_label"`
	Category      string `json:"category"`
	Facility      string `json:"facility"`
	Reason        string `json:"reason"`
}

// FormatAppointment normalizes one parsed record. Total: a record missing
// every field still formats, with empty strings and zero ids.
func FormatAppointment(r Record) Appointment {
	return Appointment{
		AppointmentID: r.AppointmentID,
		PatientName:   strings.TrimSpace(r.PatientFirstName + " " + r.PatientLastName),
		PatientID:     r.PatientID,
		ProviderName:  joinNonBlank(r.ProviderFirstName, r.ProviderLastName),
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        r.Status,
		StatusLabel:   StatusLabel(r.Status),
		Category:      r.Category,
		Facility:      r.Facility,
		Reason:        r.Reason,
	}
}

// StatusLabel returns the human label for a status code; unknown codes pass
// through verbatim as their own label.
func StatusLabel(code string) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return code
}

func joinNonBlank(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
