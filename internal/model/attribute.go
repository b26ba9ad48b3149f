package model

import "time"

// Attribute is one axis of product variation ("Color", "Size") together with
// every value the catalog has ever seen for it. Records live in the shared
// attributes collection, keyed by name, and grow monotonically: values are
// appended in first-appearance order and never removed here.
type Attribute struct {
	Name      string    `json:"name"`
	Values    []string  `json:"values"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MergeValues appends the members of incoming not already present, preserving
// encounter order, and reports how many were added. Duplicates inside incoming
// itself are collapsed too.
func (a *Attribute) MergeValues(incoming []string) int {
	seen := make(map[string]bool, len(a.Values))
	for _, v := range a.Values {
		seen[v] = true
	}
	added := 0
	for _, v := range incoming {
		if seen[v] {
			continue
		}
		seen[v] = true
		a.Values = append(a.Values, v)
		added++
	}
	return added
}

// DedupValues returns values with duplicates removed, first appearance wins.
func DedupValues(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
