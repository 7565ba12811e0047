package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

// VersionCheckTimeout is the timeout for the java -version probe.
const VersionCheckTimeout = 5 * time.Second

var javaVersionPattern = regexp.MustCompile(`version "([^"]+)"`)

// Config holds configuration for Java discovery.
type Config struct {
	// JavaPath is an explicit runtime path or command name.
	// A value containing a path separator skips the search.
	JavaPath string

	// JarPath is the language server jar that must exist.
	// Empty skips the jar check.
	JarPath string

	// SkipVersionCheck skips the java -version probe.
	SkipVersionCheck bool

	// Logger is an optional logger for discovery operations.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the Java runtime used to launch the language server.
type Discoverer interface {
	// Discover returns the absolute path to the java binary or an error.
	Discover(ctx context.Context) (string, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new Java discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "java_discovery"),
	}
}

// Discover locates java, checks the jar and logs the runtime version.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	d.log.Debug("Discovering Java runtime")

	javaPath, err := d.findJava()
	if err != nil {
		d.log.Error("Failed to find Java runtime", "error", err)

		return "", err
	}

	if d.cfg.JarPath != "" {
		if _, err := os.Stat(d.cfg.JarPath); err != nil {
			d.log.Error("Language server jar missing", "jar_path", d.cfg.JarPath)

			return "", &errors.JarNotFoundError{Path: d.cfg.JarPath}
		}
	}

	d.log.Debug("Found Java runtime", "java_path", javaPath)

	if !d.cfg.SkipVersionCheck {
		d.checkVersion(ctx, javaPath)
	}

	return javaPath, nil
}

func (d *discoverer) findJava() (string, error) {
	explicit := d.cfg.JavaPath
	if strings.ContainsRune(explicit, filepath.Separator) {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}

		return "", &errors.JavaNotFoundError{SearchedPaths: []string{explicit}}
	}

	name := explicit
	if name == "" {
		name = "java"
	}

	binary := name
	if runtime.GOOS == "windows" && !strings.HasSuffix(binary, ".exe") {
		binary += ".exe"
	}

	searched := make([]string, 0, 5)

	if home := os.Getenv("JAVA_HOME"); home != "" {
		candidate := filepath.Join(home, "bin", binary)
		searched = append(searched, candidate)

		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	searched = append(searched, "$PATH")

	for _, path := range []string{
		"/usr/bin/" + binary,
		"/usr/local/bin/" + binary,
		"/opt/java/openjdk/bin/" + binary,
	} {
		searched = append(searched, path)

		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	d.log.Warn("Java runtime not found in any searched paths", "searched_paths", searched)

	return "", &errors.JavaNotFoundError{SearchedPaths: searched}
}

// checkVersion logs the runtime version. Failures are ignored.
func (d *discoverer) checkVersion(ctx context.Context, javaPath string) {
	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	// java -version prints to stderr.
	//nolint:gosec // G204: the runtime path comes from trusted configuration
	output, err := exec.CommandContext(ctx, javaPath, "-version").CombinedOutput()
	if err != nil {
		d.log.Debug("Java version check failed", "error", err)

		return
	}

	match := javaVersionPattern.FindSubmatch(output)
	if match == nil {
		d.log.Debug("Could not parse Java version", "output", strings.TrimSpace(string(output)))

		return
	}

	d.log.Info("Java runtime detected", "java_path", javaPath, "version", string(match[1]))
}
