package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite. Each record is kept as a JSON
// document keyed by (collection, id).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn, verifies the connection and runs migrations.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers (SQLite allows one at a time)
	// and keeps in-memory databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			record_id TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (collection, record_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection, seq)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Mode implements Store.
func (s *SQLiteStore) Mode() Mode { return ModeDatabase }

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, collection string, rec Record, id string) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	stored, id := prepare(rec, id)
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (collection, record_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, record_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, collection, id, string(data), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	return decodeRecord(data)
}

// Get implements Store. Scalar query values are pushed down to SQLite with
// json_extract; the result is re-checked in memory so typing matches file mode.
func (s *SQLiteStore) Get(ctx context.Context, collection string, query Query) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT data FROM records WHERE collection = ?`)
	args := []interface{}{collection}

	fields := make([]string, 0, len(query))
	for field := range query {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		value, ok := sqlScalar(query[field])
		if !ok {
			continue
		}
		sb.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, jsonPath(field), value)
	}
	sb.WriteString(` ORDER BY seq ASC`)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return Filter(records, query), nil
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// sqlScalar converts a query value to something json_extract can compare
// against. Objects, arrays and null are filtered in memory only.
func sqlScalar(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case string, bool, int, int64, float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return nil, false
	}
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}
