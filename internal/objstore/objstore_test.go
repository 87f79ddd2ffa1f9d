package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreGet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gfs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gfs", "f006.grib2"), []byte("GRIB-ish"), 0o644))

	s := FSStore{Root: dir}
	b, err := s.Get(context.Background(), "gfs/f006.grib2")
	require.NoError(t, err)
	assert.Equal(t, []byte("GRIB-ish"), b)
}

func TestFSStoreNotFound(t *testing.T) {
	s := FSStore{Root: t.TempDir()}
	_, err := s.Get(context.Background(), "missing.grib2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStoreEscapesConfined(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.bin"), []byte("x"), 0o644))
	s := FSStore{Root: dir}

	// Path traversal is neutralized by cleaning against the root.
	_, err := s.Get(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 15*time.Second, p.PerAttempt)
	assert.Equal(t, 45*time.Second, p.TotalBudget)
	assert.Greater(t, p.InitialBackoff, time.Duration(0))

	custom := RetryPolicy{Attempts: 5, PerAttempt: time.Second}.withDefaults()
	assert.Equal(t, 5, custom.Attempts)
	assert.Equal(t, time.Second, custom.PerAttempt)
}
