package scheduling

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/clinicdesk-ai/clinicdesk/internal/openemr"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

const appointmentPath = "/apis/default/api/appointment"

// AppointmentAggregator fetches raw appointment records, scoped to resolved
// patient ids or unscoped.
type AppointmentAggregator struct {
	api    Transport
	logger *logging.Logger
}

func NewAppointmentAggregator(api Transport, logger *logging.Logger) *AppointmentAggregator {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentAggregator{api: api, logger: logger}
}

// FetchForPatients retrieves appointments for every id. Fetches run
// concurrently but results concatenate in identifier order, not completion
// order, so output stays deterministic.
func (a *AppointmentAggregator) FetchForPatients(ctx context.Context, patientIDs []int) ([]Record, error) {
	perPatient := make([][]Record, len(patientIDs))

	g, ctx := errgroup.WithContext(ctx)
	for i, patientID := range patientIDs {
		g.Go(func() error {
			records, err := a.fetchOne(ctx, patientID)
			if err != nil {
				return err
			}
			perPatient[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []Record
	for _, batch := range perPatient {
		records = append(records, batch...)
	}
	return records, nil
}

// FetchAll retrieves every appointment. Used only when the caller supplied
// no patient-identifying criteria at all.
func (a *AppointmentAggregator) FetchAll(ctx context.Context) ([]Record, error) {
	raw, err := a.api.Get(ctx, appointmentPath, nil)
	if err != nil {
		return nil, err
	}
	items, err := openemr.UnwrapList(raw)
	if err != nil {
		return nil, fmt.Errorf("scheduling: parse appointment list: %w", err)
	}
	return ParseRecords(items), nil
}

func (a *AppointmentAggregator) fetchOne(ctx context.Context, patientID int) ([]Record, error) {
	path := fmt.Sprintf("/apis/default/api/patient/%d/appointment", patientID)
	raw, err := a.api.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	items, err := openemr.UnwrapList(raw)
	if err != nil {
		return nil, fmt.Errorf("scheduling: parse appointments for patient %d: %w", patientID, err)
	}
	return ParseRecords(items), nil
}
