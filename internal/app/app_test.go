package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.DatabaseURL = "file:" + filepath.Join(cfg.DataDir, "fleet.db")

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return a
}

func TestAppServesAndShutsDownIdempotently(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx, "127.0.0.1:0"))
	assert.Equal(t, repository.ModeDatabase, a.Service().StoreMode())

	resp, err := http.Get(fmt.Sprintf("http://%s/health", a.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "connected", body["database"])

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(shutdownCtx))
	require.NoError(t, a.Shutdown(shutdownCtx))

	_, err = http.Get(fmt.Sprintf("http://%s/health", a.Addr()))
	assert.Error(t, err)
}

func TestAppStartFailsWhenAddressInUse(t *testing.T) {
	first := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, first.Start(ctx, "127.0.0.1:0"))
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	second := newTestApp(t)
	err := second.Start(ctx, first.Addr())
	assert.Error(t, err)
	assert.NoError(t, second.Shutdown(context.Background()))
}

func TestAppFallsBackToFileMode(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.DatabaseURL = "file:" + filepath.Join(cfg.DataDir, "missing", "fleet.db") + "?mode=rw"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	assert.Equal(t, repository.ModeFile, a.Service().StoreMode())
}

func TestAppShutdownWithoutStart(t *testing.T) {
	a := newTestApp(t)
	assert.NoError(t, a.Shutdown(context.Background()))
	assert.NoError(t, a.Shutdown(context.Background()))
}
