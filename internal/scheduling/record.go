// Package scheduling turns flexible, partially-specified search criteria
// into a deterministic appointment result set backed by the OpenEMR API.
package scheduling

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is the parsed form of one raw OpenEMR appointment payload. The API
// does not guarantee that any field is populated, so parsing defaults every
// missing field to its zero value and consumers never probe raw JSON.
type Record struct {
	AppointmentID     int
	PatientFirstName  string
	PatientLastName   string
	PatientID         int
	ProviderFirstName string
	ProviderLastName  string
	Date              string
	StartTime         string
	EndTime           string
	Status            string
	Category          string
	Facility          string
	Reason            string
}

// PatientCandidate is one patient produced by a name search. Ephemeral:
// candidates exist only to resolve or disambiguate a query.
type PatientCandidate struct {
	ID          int
	Name        string
	DateOfBirth string
}

// ParseRecords converts raw appointment payloads into Records, one per
// payload. Unparseable payloads become zero Records rather than failures.
func ParseRecords(items []json.RawMessage) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, parseRecord(item))
	}
	return records
}

func parseRecord(raw json.RawMessage) Record {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Record{}
	}

	patientID := intField(fields, "pc_pid")
	if patientID == 0 {
		patientID = intField(fields, "pid")
	}

	return Record{
		AppointmentID:     intField(fields, "pc_eid"),
		PatientFirstName:  stringField(fields, "fname"),
		PatientLastName:   stringField(fields, "lname"),
		PatientID:         patientID,
		ProviderFirstName: stringField(fields, "pce_aid_fname"),
		ProviderLastName:  stringField(fields, "pce_aid_lname"),
		Date:              stringField(fields, "pc_eventDate"),
		StartTime:         stringField(fields, "pc_startTime"),
		EndTime:           stringField(fields, "pc_endTime"),
		Status:            stringField(fields, "pc_apptstatus"),
		Category:          stringField(fields, "pc_title"),
		Facility:          stringField(fields, "facility_name"),
		Reason:            stringField(fields, "pc_hometext"),
	}
}

func parseCandidate(raw json.RawMessage) PatientCandidate {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return PatientCandidate{}
	}
	name := strings.TrimSpace(stringField(fields, "fname") + " " + stringField(fields, "lname"))
	return PatientCandidate{
		ID:          intField(fields, "pid"),
		Name:        name,
		DateOfBirth: stringField(fields, "DOB"),
	}
}

// stringField reads an optional string field; numeric values stringify so a
// server that emits numbers where strings are expected still parses.
func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	default:
		return ""
	}
}

// intField reads an optional integer field; OpenEMR serializes ids both as
// JSON numbers and as numeric strings depending on the endpoint.
func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		return 0
	default:
		return 0
	}
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
