package sqldict

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqldict/codec"
)

// openTest opens a Dict and closes it when the test ends.
func openTest[V any](t *testing.T, cfg Config, c codec.Codec[V]) *Dict[V] {
	t.Helper()
	d, err := Open(cfg, c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// tempPath is a database path that does not exist yet.
func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
