package pathmap

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	root := t.TempDir()

	bslDir := filepath.Join(root, "src")
	plainDir := filepath.Join(root, "docs")
	nested := filepath.Join(bslDir, "CommonModules")

	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.MkdirAll(plainDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bslDir, "Main.BSL"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "Util.os"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(plainDir, "README.md"), nil, 0o600))

	require.Equal(t, TypeBSLDirectory, Detect(bslDir))
	require.Equal(t, TypeDirectory, Detect(plainDir))
	require.Equal(t, TypeBSLFile, Detect(filepath.Join(bslDir, "Main.BSL")))
	require.Equal(t, TypeFile, Detect(filepath.Join(plainDir, "README.md")))
	require.Equal(t, TypeNotFound, Detect(filepath.Join(root, "missing")))

	require.Equal(t, 2, CountBSLFiles(bslDir))
	require.Equal(t, 0, CountBSLFiles(plainDir))
}

func TestMapper_Inspect(t *testing.T) {
	host := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(host, "Module.bsl"), nil, 0o600))

	// Host and container are the same directory, as when running outside a container.
	m := NewMapper(slog.Default(), host, host)

	info, err := m.Inspect(filepath.Join(host, "Module.bsl"))
	require.NoError(t, err)
	require.Equal(t, TypeBSLFile, info.Type)
	require.True(t, info.Exists)
	require.True(t, info.IsBSL)

	info, err = m.Inspect(host)
	require.NoError(t, err)
	require.Equal(t, TypeBSLDirectory, info.Type)
	require.Equal(t, 1, info.BSLFiles)

	info, err = m.Inspect(filepath.Join(host, "gone"))
	require.NoError(t, err)
	require.False(t, info.Exists)
	require.Equal(t, TypeNotFound, info.Type)
}
