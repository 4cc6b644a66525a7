// Package repository implements the persistence gateway: named collections of
// JSON records backed by SQLite, or by one JSON file per collection when the
// database is unavailable.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Record is a schemaless document. The "id" field is the upsert key.
type Record map[string]interface{}

// Query is a set of field/value pairs matched by equality.
type Query map[string]interface{}

// Mode names the active storage backend.
type Mode string

const (
	ModeDatabase Mode = "database"
	ModeFile     Mode = "file"
)

// IDField is the record field used as the upsert key.
const IDField = "id"

// ErrInvalidCollection is returned for collection names that are not plain identifiers.
var ErrInvalidCollection = errors.New("invalid collection name")

var collectionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store defines the interface for data persistence.
type Store interface {
	// Save upserts rec into collection. When id is empty the record's own
	// "id" field is used, and a new id is generated if that is empty too.
	Save(ctx context.Context, collection string, rec Record, id string) (Record, error)
	// Get returns the records of collection matching every pair in query.
	Get(ctx context.Context, collection string, query Query) ([]Record, error)
	// Mode reports which backend serves the store.
	Mode() Mode
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

func validateCollection(name string) error {
	if !collectionPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// prepare copies rec and resolves its upsert key. An explicit id is stamped
// onto the copy; otherwise the record keeps its own "id" value, whatever its
// type, and only a missing or empty one is replaced by a generated id.
func prepare(rec Record, id string) (Record, string) {
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	if id != "" {
		out[IDField] = id
		return out, id
	}
	if existing, ok := out[IDField]; ok && existing != nil && existing != "" {
		return out, recordKey(existing)
	}
	id = uuid.NewString()
	out[IDField] = id
	return out, id
}

// recordKey renders an id value as the string the backends match on. Strings
// are used as-is; anything else by its JSON encoding, so 7 and 7.0 (the
// shape a number takes after a JSON round trip) share the key "7".
func recordKey(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
