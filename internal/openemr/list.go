package openemr

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnwrapList extracts the record list from an API response that is shaped
// either as a bare JSON array or as an envelope object carrying the array
// under "data". An envelope without a list yields an empty result.
func UnwrapList(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("openemr: decode response envelope: %w", err)
		}
		trimmed = bytes.TrimSpace(envelope.Data)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil, nil
		}
	}

	if trimmed[0] != '[' {
		// Neither a list nor an enveloped list; treat as no records.
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("openemr: decode record list: %w", err)
	}
	return items, nil
}
