package scheduling

import "strings"

// Filters holds the optional appointment-level predicates. Empty fields
// match everything.
type Filters struct {
	Date         string
	Status       string
	ProviderName string
}

// ApplyFilters narrows records conjunctively: date, then status, then
// provider. The predicates are independent, so the order does not change the
// result set; it is fixed for reproducibility, cheapest checks first.
func ApplyFilters(records []Record, f Filters) []Record {
	filtered := records

	if f.Date != "" {
		filtered = keep(filtered, func(r Record) bool {
			return r.Date == f.Date
		})
	}
	if f.Status != "" {
		filtered = keep(filtered, func(r Record) bool {
			return r.Status == f.Status
		})
	}
	if f.ProviderName != "" {
		needle := strings.ToLower(f.ProviderName)
		filtered = keep(filtered, func(r Record) bool {
			haystack := strings.ToLower(r.ProviderFirstName + " " + r.ProviderLastName)
			return strings.Contains(haystack, needle)
		})
	}

	return filtered
}

func keep(records []Record, predicate func(Record) bool) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if predicate(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
