package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/clinicdesk-ai/clinicdesk/internal/openemr"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

const (
	// resolveLimit is the privacy boundary: past this many loosely-matched
	// patients, the caller must disambiguate instead of the engine guessing
	// and exposing unrelated patients' appointments.
	resolveLimit = 5
	// displayLimit caps how many candidates a disambiguation answer carries.
	displayLimit = 10

	patientPath = "/apis/default/api/patient"
)

// Transport is the authenticated API surface the engine needs. Implemented
// by *openemr.Client.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// ResolutionKind tags a Resolution.
type ResolutionKind int

const (
	// ResolutionResolved means the query mapped to concrete patient ids.
	ResolutionResolved ResolutionKind = iota
	// ResolutionNoMatch means no patient matched the supplied name.
	ResolutionNoMatch
	// ResolutionAmbiguous means too many patients matched and the caller
	// must pick one.
	ResolutionAmbiguous
)

// Resolution is the outcome of mapping a human-supplied name or identifier
// to canonical patient ids. Callers switch on Kind; the other fields are
// meaningful only for the kind that carries them.
type Resolution struct {
	Kind         ResolutionKind
	PatientIDs   []int
	Candidates   []PatientCandidate
	TotalMatches int
}

// PatientResolver maps names and identifiers to patient ids.
type PatientResolver struct {
	api    Transport
	logger *logging.Logger
}

func NewPatientResolver(api Transport, logger *logging.Logger) *PatientResolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientResolver{api: api, logger: logger}
}

// Resolve maps a name or id to patient ids. A supplied id short-circuits
// without a remote call; direct identifiers are trusted as-is.
func (r *PatientResolver) Resolve(ctx context.Context, name string, id int) (Resolution, error) {
	if id > 0 {
		return Resolution{Kind: ResolutionResolved, PatientIDs: []int{id}}, nil
	}

	candidates, err := r.search(ctx, name)
	if err != nil {
		return Resolution{}, err
	}

	if len(candidates) > resolveLimit {
		display := candidates
		if len(display) > displayLimit {
			display = display[:displayLimit]
		}
		r.logger.Info("patient search ambiguous",
			"matches", len(candidates),
			"displayed", len(display),
		)
		return Resolution{
			Kind:         ResolutionAmbiguous,
			Candidates:   display,
			TotalMatches: len(candidates),
		}, nil
	}

	ids := make([]int, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID > 0 {
			ids = append(ids, candidate.ID)
		}
	}
	// Candidates without usable ids cannot be searched; falling back to an
	// unscoped fetch here would silently broaden the query.
	if len(ids) == 0 {
		return Resolution{Kind: ResolutionNoMatch}, nil
	}
	return Resolution{Kind: ResolutionResolved, PatientIDs: ids}, nil
}

// search queries by last name and falls back to first name; the API indexes
// the two name fields independently and has no free-text search.
func (r *PatientResolver) search(ctx context.Context, name string) ([]PatientCandidate, error) {
	candidates, err := r.searchField(ctx, "lname", name)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		candidates, err = r.searchField(ctx, "fname", name)
		if err != nil {
			return nil, err
		}
	}
	return candidates, nil
}

func (r *PatientResolver) searchField(ctx context.Context, field, name string) ([]PatientCandidate, error) {
	raw, err := r.api.Get(ctx, patientPath, url.Values{field: {name}})
	if err != nil {
		return nil, err
	}
	items, err := openemr.UnwrapList(raw)
	if err != nil {
		return nil, fmt.Errorf("scheduling: parse patient search: %w", err)
	}
	candidates := make([]PatientCandidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, parseCandidate(item))
	}
	return candidates, nil
}
