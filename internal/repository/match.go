package repository

import (
	"bytes"
	"encoding/json"
)

// Matches reports whether rec satisfies every field/value pair in q. Values
// are compared by their JSON encoding so 5 and 5.0 are equal.
func Matches(rec Record, q Query) bool {
	for field, want := range q {
		got, ok := rec[field]
		if !ok {
			return false
		}
		if !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b interface{}) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// Filter returns the records matching q, preserving order.
func Filter(records []Record, q Query) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if Matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}
