package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk-ai/clinicdesk/internal/audit"
	"github.com/clinicdesk-ai/clinicdesk/internal/observability/metrics"
	"github.com/clinicdesk-ai/clinicdesk/internal/requestid"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

// Criteria is the flexible search input for FindAppointments. Any subset of
// fields may be set; zero values mean "not supplied".
type Criteria struct {
	PatientName  string `json:"patient_name,omitempty"`
	Date         string `json:"date,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	Status       string `json:"status,omitempty"`
	PatientID    int    `json:"patient_id,omitempty"`
}

// CandidateSummary is the disambiguation view of one matching patient.
type CandidateSummary struct {
	PatientID   int    `json:"patient_id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
}

// Result is the outward contract of the find_appointments operation.
// Message and MatchingPatients are present only for no-match, ambiguous, or
// empty-after-filtering outcomes.
type Result struct {
	Appointments     []Appointment      `json:"appointments"`
	TotalCount       int                `json:"total_count"`
	Message          string             `json:"message,omitempty"`
	MatchingPatients []CandidateSummary `json:"matching_patients,omitempty"`
}

// Service is the query-resolution engine: resolve, fetch, filter, format.
type Service struct {
	resolver   *PatientResolver
	aggregator *AppointmentAggregator
	logger     *logging.Logger
	metrics    *metrics.EngineMetrics
	auditor    *audit.Recorder
}

// ServiceConfig wires the engine's collaborators.
type ServiceConfig struct {
	API     Transport
	Logger  *logging.Logger
	Metrics *metrics.EngineMetrics
	Auditor *audit.Recorder
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		resolver:   NewPatientResolver(cfg.API, logger),
		aggregator: NewAppointmentAggregator(cfg.API, logger),
		logger:     logger,
		metrics:    cfg.Metrics,
		auditor:    cfg.Auditor,
	}
}

// FindAppointments runs the full pipeline for one search. Transport
// failures propagate as errors; resolution outcomes and empty result sets
// come back as data so the caller can relay them to a user.
func (s *Service) FindAppointments(ctx context.Context, criteria Criteria) (*Result, error) {
	start := time.Now()

	result, outcome, err := s.find(ctx, criteria)
	elapsed := time.Since(start)
	s.metrics.ObserveSearch(outcome, elapsed.Seconds())

	eventType := audit.EventAppointmentSearch
	if outcome == "ambiguous" {
		eventType = audit.EventPatientDisambiguation
	}
	resultCount := 0
	if result != nil {
		resultCount = result.TotalCount
	}
	reqID, _ := requestid.FromContext(ctx)
	s.auditor.Record(ctx, audit.Event{
		EventType:   eventType,
		RequestID:   reqID,
		Criteria:    criteriaSummary(criteria),
		Outcome:     outcome,
		ResultCount: resultCount,
		DurationMS:  elapsed.Milliseconds(),
	})

	if err != nil {
		s.logger.Error("find_appointments failed",
			"criteria", criteriaSummary(criteria),
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

func (s *Service) find(ctx context.Context, criteria Criteria) (*Result, string, error) {
	var patientIDs []int

	if criteria.PatientID > 0 || criteria.PatientName != "" {
		resolution, err := s.resolver.Resolve(ctx, criteria.PatientName, criteria.PatientID)
		if err != nil {
			return nil, "error", err
		}

		switch resolution.Kind {
		case ResolutionNoMatch:
			return &Result{
				Appointments: []Appointment{},
				Message:      fmt.Sprintf("No patients found matching '%s'.", criteria.PatientName),
			}, "no_match", nil
		case ResolutionAmbiguous:
			summaries := make([]CandidateSummary, 0, len(resolution.Candidates))
			for _, c := range resolution.Candidates {
				summaries = append(summaries, CandidateSummary{
					PatientID:   c.ID,
					Name:        c.Name,
					DateOfBirth: c.DateOfBirth,
				})
			}
			return &Result{
				Appointments:     []Appointment{},
				Message:          fmt.Sprintf("Multiple patients match '%s'. Please clarify which patient.", criteria.PatientName),
				MatchingPatients: summaries,
			}, "ambiguous", nil
		case ResolutionResolved:
			patientIDs = resolution.PatientIDs
		}
	}

	var records []Record
	var err error
	if len(patientIDs) > 0 {
		records, err = s.aggregator.FetchForPatients(ctx, patientIDs)
	} else {
		records, err = s.aggregator.FetchAll(ctx)
	}
	if err != nil {
		return nil, "error", err
	}

	filtered := ApplyFilters(records, Filters{
		Date:         criteria.Date,
		Status:       criteria.Status,
		ProviderName: criteria.ProviderName,
	})

	appointments := make([]Appointment, 0, len(filtered))
	for _, record := range filtered {
		appointments = append(appointments, FormatAppointment(record))
	}

	result := &Result{
		Appointments: appointments,
		TotalCount:   len(appointments),
	}
	if len(appointments) == 0 {
		result.Message = "No appointments found matching criteria."
		return result, "empty", nil
	}
	return result, "ok", nil
}

// criteriaSummary lists which fields were supplied, without their values, so
// audit records never carry patient-identifying data.
func criteriaSummary(c Criteria) string {
	var fields []string
	if c.PatientName != "" {
		fields = append(fields, "patient_name")
	}
	if c.Date != "" {
		fields = append(fields, "date")
	}
	if c.ProviderName != "" {
		fields = append(fields, "provider_name")
	}
	if c.Status != "" {
		fields = append(fields, "status")
	}
	if c.PatientID > 0 {
		fields = append(fields, "patient_id")
	}
	if len(fields) == 0 {
		return "none"
	}
	return strings.Join(fields, ",")
}
