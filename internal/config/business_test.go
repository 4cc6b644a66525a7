package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBusiness = `
business:
  name: Fair Cambio
  hours:
    open: "09:00"
    close: "18:00"
messaging:
  token: ${TEST_BOT_TOKEN}
  retries: 3
`

func writeBusiness(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "business.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBusinessExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "secret-token")
	b, err := LoadBusiness(writeBusiness(t, sampleBusiness))
	require.NoError(t, err)

	v, ok := b.Get("messaging.token")
	require.True(t, ok)
	assert.Equal(t, "secret-token", v)

	v, ok = b.Get("messaging.retries")
	require.True(t, ok)
	assert.Equal(t, float64(3), v)

	_, ok = b.Get("business.hours.lunch")
	assert.False(t, ok)
}

func TestLoadBusinessErrors(t *testing.T) {
	_, err := LoadBusiness(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadBusiness(writeBusiness(t, "a: [unclosed"))
	assert.Error(t, err)
}

func TestBusinessSetCreatesIntermediateObjects(t *testing.T) {
	b := NewBusiness(map[string]interface{}{"business": "scalar"})

	require.NoError(t, b.Set("business.hours.open", "08:00"))
	v, ok := b.Get("business.hours.open")
	require.True(t, ok)
	assert.Equal(t, "08:00", v)

	assert.ErrorIs(t, b.Set("", 1), ErrInvalidPath)
	assert.ErrorIs(t, b.Set("a..b", 1), ErrInvalidPath)
}

func TestBusinessSnapshotIsDeepCopy(t *testing.T) {
	b := NewBusiness(map[string]interface{}{
		"branches": []interface{}{map[string]interface{}{"name": "Centro"}},
	})
	snap := b.Snapshot()
	snap["branches"].([]interface{})[0].(map[string]interface{})["name"] = "changed"

	v, _ := b.Get("branches")
	assert.Equal(t, "Centro", v.([]interface{})[0].(map[string]interface{})["name"])
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeBusiness(t, "business:\n  name: Before\n")
	b, err := LoadBusiness(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 4)
	go func() {
		_ = b.Watch(ctx, func() {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("business:\n  name: After\n"), 0o644))

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("expected reload")
	}
	require.Eventually(t, func() bool {
		v, _ := b.Get("business.name")
		return v == "After"
	}, time.Second, 10*time.Millisecond)
}
