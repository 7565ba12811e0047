// Package config provides configuration types for the BSL bridge.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Default values for Options.
const (
	DefaultJavaPath          = "java"
	DefaultJarPath           = "/opt/bsl/bsl-language-server.jar"
	DefaultMaxHeap           = "4g"
	DefaultStopGracePeriod   = 10 * time.Second
	DefaultRunTimeout        = 5 * time.Minute
	DefaultMaxConcurrentRuns = 4
	DefaultPoolMaxSize       = 5
	DefaultPoolTTL           = 60 * time.Minute
	DefaultSweepInterval     = time.Minute
	DefaultAddress           = ":9090"
	DefaultContainerRoot     = "/workspaces"
	DefaultLanguage          = "ru"
)

// Options configures the bridge.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// JavaPath is the Java runtime used to launch the language server.
	// A bare name is resolved through JAVA_HOME and PATH.
	JavaPath string

	// JarPath is the BSL Language Server jar.
	JarPath string

	// MaxHeap is passed to the JVM as -Xmx.
	MaxHeap string

	// ReportsDir receives report files written by file reporters.
	ReportsDir string

	// StopGracePeriod bounds how long Close waits after SIGTERM before SIGKILL.
	StopGracePeriod time.Duration

	// RunTimeout bounds every one-shot analyze or format run.
	RunTimeout time.Duration

	// MaxConcurrentRuns limits how many one-shot processes run at once.
	MaxConcurrentRuns int

	// PoolMaxSize is the maximum number of live sessions.
	PoolMaxSize int

	// PoolTTL is the idle time after which the sweep removes a session.
	PoolTTL time.Duration

	// SweepInterval is the period of the idle sweep.
	SweepInterval time.Duration

	// Transport selects the inbound wire transport.
	Transport TransportMode

	// Address is the listen address for the HTTP based transports.
	Address string

	// HostRoot is the host directory mounted into the container.
	// Empty disables host-to-container translation.
	HostRoot string

	// ContainerRoot is where HostRoot is mounted inside the container.
	ContainerRoot string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is text or json.
	LogFormat string
}

// Default returns Options populated with the default values.
func Default() *Options {
	return &Options{
		JavaPath:          DefaultJavaPath,
		JarPath:           DefaultJarPath,
		MaxHeap:           DefaultMaxHeap,
		ReportsDir:        filepath.Join(os.TempDir(), "bsl-reports"),
		StopGracePeriod:   DefaultStopGracePeriod,
		RunTimeout:        DefaultRunTimeout,
		MaxConcurrentRuns: DefaultMaxConcurrentRuns,
		PoolMaxSize:       DefaultPoolMaxSize,
		PoolTTL:           DefaultPoolTTL,
		SweepInterval:     DefaultSweepInterval,
		Transport:         TransportStdio,
		Address:           DefaultAddress,
		ContainerRoot:     DefaultContainerRoot,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Validate checks that the options can drive a server.
func (o *Options) Validate() error {
	var errs []error

	if o.JarPath == "" {
		errs = append(errs, errors.New("jar path is empty"))
	}

	if o.PoolMaxSize < 1 {
		errs = append(errs, fmt.Errorf("pool max size must be at least 1, got %d", o.PoolMaxSize))
	}

	if o.PoolTTL <= 0 {
		errs = append(errs, fmt.Errorf("pool ttl must be positive, got %s", o.PoolTTL))
	}

	if o.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep interval must be positive, got %s", o.SweepInterval))
	}

	if o.StopGracePeriod < 0 {
		errs = append(errs, fmt.Errorf("stop grace period must not be negative, got %s", o.StopGracePeriod))
	}

	if o.MaxConcurrentRuns < 1 {
		errs = append(errs, fmt.Errorf("max concurrent runs must be at least 1, got %d", o.MaxConcurrentRuns))
	}

	if _, err := ParseTransportMode(string(o.Transport)); err != nil {
		errs = append(errs, err)
	}

	if o.HostRoot != "" && o.ContainerRoot == "" {
		errs = append(errs, errors.New("container root is empty while host root is set"))
	}

	return errors.Join(errs...)
}
