package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/internal/ingest"
)

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("no event")
		return ""
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.csv")
	require.NoError(t, os.WriteFile(existing, []byte("ID\n1\n"), 0o644))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	events, _, err := ingest.Watch(ctx, ingest.WatchConfig{Dir: dir, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.Equal(t, existing, next(t, events))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	dropped := filepath.Join(dir, "received.xlsx")
	require.NoError(t, os.WriteFile(dropped, []byte("x"), 0o644))
	assert.Equal(t, dropped, next(t, events))

	cancel()
	for range events {
	}
}

func TestWatch_MissingDir(t *testing.T) {
	_, _, err := ingest.Watch(t.Context(), ingest.WatchConfig{Dir: filepath.Join(t.TempDir(), "nope")}, nil)
	assert.Error(t, err)
}

func TestAllowed(t *testing.T) {
	tests := map[string]bool{
		"/in/a.csv":    true,
		"/in/B.XLSX":   true,
		"/in/a.pdf":    false,
		"/in/~$a.xlsx": false,
		"/in/.a.csv":   false,
		"/in/no-ext":   false,
	}
	for path, want := range tests {
		assert.Equal(t, want, ingest.Allowed(path), path)
	}
}
