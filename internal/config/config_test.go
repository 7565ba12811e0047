package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	opts := Default()

	require.NoError(t, opts.Validate())
	require.Equal(t, 5, opts.PoolMaxSize)
	require.Equal(t, 60*time.Minute, opts.PoolTTL)
	require.Equal(t, time.Minute, opts.SweepInterval)
	require.Equal(t, 10*time.Second, opts.StopGracePeriod)
	require.Equal(t, TransportStdio, opts.Transport)
	require.Equal(t, "/workspaces", opts.ContainerRoot)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	opts := Default()
	opts.PoolMaxSize = 0
	opts.SweepInterval = 0
	opts.Transport = "carrier-pigeon"

	err := opts.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "pool max size")
	require.Contains(t, err.Error(), "sweep interval")
	require.Contains(t, err.Error(), "carrier-pigeon")
}

func TestParseTransportMode(t *testing.T) {
	tests := []struct {
		in      string
		want    TransportMode
		wantErr bool
	}{
		{in: "stdio", want: TransportStdio},
		{in: " HTTP ", want: TransportHTTP},
		{in: "sse", want: TransportSSE},
		{in: "ndjson", want: TransportNDJSON},
		{in: "websocket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTransportMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	require.True(t, TransportSSE.IsHTTP())
	require.False(t, TransportStdio.IsHTTP())
}

func TestLoad_Defaults(t *testing.T) {
	opts, err := Load(viper.New())
	require.NoError(t, err)
	require.Equal(t, DefaultJarPath, opts.JarPath)
	require.Equal(t, DefaultPoolMaxSize, opts.PoolMaxSize)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bsl-mcp-server.toml")

	content := `
[bsl]
jar_path = "/srv/bsl/ls.jar"
max_heap = "2g"

[pool]
max_size = 3
ttl = "15m"

[server]
transport = "sse"
address = "127.0.0.1:8080"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BSL_MCP_POOL_MAX_SIZE", "2")
	t.Setenv("MOUNT_HOST_ROOT", "/home/dev/projects")

	v := viper.New()
	v.SetConfigFile(path)

	opts, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "/srv/bsl/ls.jar", opts.JarPath)
	require.Equal(t, "2g", opts.MaxHeap)
	require.Equal(t, 2, opts.PoolMaxSize, "env overrides file")
	require.Equal(t, 15*time.Minute, opts.PoolTTL)
	require.Equal(t, TransportSSE, opts.Transport)
	require.Equal(t, "127.0.0.1:8080", opts.Address)
	require.Equal(t, "/home/dev/projects", opts.HostRoot)
}

func TestLoad_RejectsUnknownTransport(t *testing.T) {
	t.Setenv("BSL_MCP_SERVER_TRANSPORT", "grpc")

	_, err := Load(viper.New())
	require.Error(t, err)
	require.Contains(t, err.Error(), "grpc")
}
