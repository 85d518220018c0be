package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchForPatientsPreservesIdentifierOrder(t *testing.T) {
	api := &fakeTransport{handler: func(path string, _ url.Values) (json.RawMessage, error) {
		switch path {
		case "/apis/default/api/patient/7/appointment":
			// Slowest response belongs to the first identifier; order must
			// still follow identifiers, not completion.
			time.Sleep(30 * time.Millisecond)
			return json.RawMessage(`[{"pc_eid":71},{"pc_eid":72}]`), nil
		case "/apis/default/api/patient/3/appointment":
			return json.RawMessage(`{"data":[{"pc_eid":31}]}`), nil
		default:
			return nil, fmt.Errorf("unexpected path %s", path)
		}
	}}
	a := NewAppointmentAggregator(api, nil)

	records, err := a.FetchForPatients(context.Background(), []int{7, 3})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 71, records[0].AppointmentID)
	assert.Equal(t, 72, records[1].AppointmentID)
	assert.Equal(t, 31, records[2].AppointmentID)
}

func TestFetchForPatientsPropagatesError(t *testing.T) {
	api := &fakeTransport{handler: func(path string, _ url.Values) (json.RawMessage, error) {
		if path == "/apis/default/api/patient/2/appointment" {
			return nil, errors.New("boom")
		}
		return json.RawMessage(`[]`), nil
	}}
	a := NewAppointmentAggregator(api, nil)

	_, err := a.FetchForPatients(context.Background(), []int{1, 2})
	require.Error(t, err)
}

func TestFetchAll(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare list", body: `[{"pc_eid":1},{"pc_eid":2}]`, want: 2},
		{name: "enveloped list", body: `{"data":[{"pc_eid":1}]}`, want: 1},
		{name: "empty envelope", body: `{"data":[]}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeTransport{handler: func(path string, _ url.Values) (json.RawMessage, error) {
				assert.Equal(t, "/apis/default/api/appointment", path)
				return json.RawMessage(tt.body), nil
			}}
			a := NewAppointmentAggregator(api, nil)

			records, err := a.FetchAll(context.Background())
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestFetchForPatientsEmptySet(t *testing.T) {
	api := &fakeTransport{handler: func(string, url.Values) (json.RawMessage, error) {
		t.Fatal("no fetch expected for empty id set")
		return nil, nil
	}}
	a := NewAppointmentAggregator(api, nil)

	records, err := a.FetchForPatients(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
