package helpers

import (
	"context"
	"testing"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/policy"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func NewTestFileStore(t *testing.T) *repository.FileStore {
	t.Helper()

	s, err := repository.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return s
}

func NewTestPolicyEngine(t *testing.T) *policy.Engine {
	t.Helper()

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}
