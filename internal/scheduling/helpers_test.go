package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
)

// fakeTransport satisfies Transport with canned per-path responses and a
// call log, so pipeline tests never open sockets.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []transportCall
	handler func(path string, query url.Values) (json.RawMessage, error)
}

type transportCall struct {
	path  string
	query url.Values
}

func (f *fakeTransport) Get(_ context.Context, path string, query url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transportCall{path: path, query: query})
	f.mu.Unlock()
	return f.handler(path, query)
}

func (f *fakeTransport) Post(context.Context, string, any) (json.RawMessage, error) {
	return nil, errors.New("unexpected POST")
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) callPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		paths = append(paths, c.path)
	}
	return paths
}

// patientJSON builds the API's patient search payload for n patients with
// sequential ids starting at firstID.
func patientJSON(firstID, n int) json.RawMessage {
	patients := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		patients = append(patients, map[string]any{
			"pid":   firstID + i,
			"fname": "Pat",
			"lname": "Smith",
			"DOB":   "1980-01-01",
		})
	}
	raw, _ := json.Marshal(map[string]any{"data": patients})
	return raw
}
