package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Configuration keys understood by Load.
const (
	KeyJavaPath          = "bsl.java_path"
	KeyJarPath           = "bsl.jar_path"
	KeyMaxHeap           = "bsl.max_heap"
	KeyReportsDir        = "bsl.reports_dir"
	KeyStopGracePeriod   = "process.stop_grace_period"
	KeyRunTimeout        = "process.run_timeout"
	KeyMaxConcurrentRuns = "process.max_concurrent_runs"
	KeyPoolMaxSize       = "pool.max_size"
	KeyPoolTTL           = "pool.ttl"
	KeySweepInterval     = "pool.sweep_interval"
	KeyTransport         = "server.transport"
	KeyAddress           = "server.address"
	KeyHostRoot          = "path.host_root"
	KeyContainerRoot     = "path.container_root"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
)

const (
	configName = "bsl-mcp-server"
	configType = "toml"
	envPrefix  = "BSL_MCP"
)

// Load reads options from the config file, environment and any flags already
// bound to v. A missing config file is not an error.
func Load(v *viper.Viper) (*Options, error) {
	if v == nil {
		v = viper.New()
	}

	def := Default()

	v.SetDefault(KeyJavaPath, def.JavaPath)
	v.SetDefault(KeyJarPath, def.JarPath)
	v.SetDefault(KeyMaxHeap, def.MaxHeap)
	v.SetDefault(KeyReportsDir, def.ReportsDir)
	v.SetDefault(KeyStopGracePeriod, def.StopGracePeriod)
	v.SetDefault(KeyRunTimeout, def.RunTimeout)
	v.SetDefault(KeyMaxConcurrentRuns, def.MaxConcurrentRuns)
	v.SetDefault(KeyPoolMaxSize, def.PoolMaxSize)
	v.SetDefault(KeyPoolTTL, def.PoolTTL)
	v.SetDefault(KeySweepInterval, def.SweepInterval)
	v.SetDefault(KeyTransport, string(def.Transport))
	v.SetDefault(KeyAddress, def.Address)
	v.SetDefault(KeyHostRoot, "")
	v.SetDefault(KeyContainerRoot, def.ContainerRoot)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFormat, def.LogFormat)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variables the deployment images already export.
	if err := v.BindEnv(KeyHostRoot, envPrefix+"_PATH_HOST_ROOT", "MOUNT_HOST_ROOT"); err != nil {
		return nil, fmt.Errorf("bind env %s: %w", KeyHostRoot, err)
	}

	if err := v.BindEnv(KeyJarPath, envPrefix+"_BSL_JAR_PATH", "BSL_JAR_PATH"); err != nil {
		return nil, fmt.Errorf("bind env %s: %w", KeyJarPath, err)
	}

	if v.ConfigFileUsed() == "" {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}

		v.AddConfigPath(filepath.Join("/etc", configName))
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	transport, err := ParseTransportMode(v.GetString(KeyTransport))
	if err != nil {
		return nil, err
	}

	opts := &Options{
		JavaPath:          v.GetString(KeyJavaPath),
		JarPath:           v.GetString(KeyJarPath),
		MaxHeap:           v.GetString(KeyMaxHeap),
		ReportsDir:        v.GetString(KeyReportsDir),
		StopGracePeriod:   v.GetDuration(KeyStopGracePeriod),
		RunTimeout:        v.GetDuration(KeyRunTimeout),
		MaxConcurrentRuns: v.GetInt(KeyMaxConcurrentRuns),
		PoolMaxSize:       v.GetInt(KeyPoolMaxSize),
		PoolTTL:           v.GetDuration(KeyPoolTTL),
		SweepInterval:     v.GetDuration(KeySweepInterval),
		Transport:         transport,
		Address:           v.GetString(KeyAddress),
		HostRoot:          v.GetString(KeyHostRoot),
		ContainerRoot:     v.GetString(KeyContainerRoot),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return opts, nil
}
