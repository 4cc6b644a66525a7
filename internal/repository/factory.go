package repository

import (
	"context"
	"log/slog"
	"time"
)

// Options configures Open.
type Options struct {
	DatabaseURL    string
	DataDir        string
	ConnectTimeout time.Duration
}

// Open probes the database once and returns a SQLite store when it is
// reachable. Otherwise it logs the fallback and returns a file store; an
// unreachable database is never fatal.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.DatabaseURL != "" {
		timeout := opts.ConnectTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		db, err := NewSQLiteStore(connectCtx, opts.DatabaseURL)
		cancel()
		if err == nil {
			slog.Info("persistence: using database", "dsn", opts.DatabaseURL)
			return db, nil
		}
		slog.Warn("persistence: database unreachable, falling back to file mode",
			"dsn", opts.DatabaseURL, "dir", opts.DataDir, "err", err)
	} else {
		slog.Info("persistence: no database configured, using file mode", "dir", opts.DataDir)
	}
	return NewFileStore(opts.DataDir)
}
