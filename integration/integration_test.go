//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	bslmcp "github.com/wagiedev/bsl-mcp-server"
)

const sampleModule = "Процедура Тест()\n  Сообщить(\"Привет\")   ;\nКонецПроцедуры\n"

// skipIfToolchainMissing skips the test when Java or the jar is unavailable.
func skipIfToolchainMissing(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*bslmcp.JavaNotFoundError](err); ok {
		t.Skip("Java runtime not installed")
	}

	if _, ok := errors.AsType[*bslmcp.JarNotFoundError](err); ok {
		t.Skip("BSL Language Server jar not installed")
	}
}

// newServer creates a bridge rooted at an identity mapping over a fresh
// project containing one module.
func newServer(t *testing.T) (*bslmcp.Server, string) {
	t.Helper()

	project := t.TempDir()
	src := filepath.Join(project, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Module.bsl"), []byte(sampleModule), 0o600))

	opts := bslmcp.DefaultOptions()
	opts.HostRoot, opts.ContainerRoot = "/", "/"
	opts.ReportsDir = filepath.Join(t.TempDir(), "reports")
	opts.PoolMaxSize = 2

	if jar := os.Getenv("BSL_JAR_PATH"); jar != "" {
		opts.JarPath = jar
	}

	srv, err := bslmcp.New(context.Background(), bslmcp.WithOptions(opts))
	if err != nil {
		skipIfToolchainMissing(t, err)
		t.Fatalf("New failed: %v", err)
	}

	t.Cleanup(func() { _ = srv.Close() })

	return srv, project
}
