package pathmap

import (
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

// Mapper translates between a host root and the container root it is
// mounted at.
type Mapper struct {
	log           *slog.Logger
	hostRoot      string
	containerRoot string
}

// NewMapper creates a Mapper. An empty hostRoot disables translation.
func NewMapper(log *slog.Logger, hostRoot, containerRoot string) *Mapper {
	m := &Mapper{
		log:           log.With("component", "path_mapper"),
		containerRoot: clean(containerRoot),
	}

	if strings.TrimSpace(hostRoot) != "" {
		m.hostRoot = clean(hostRoot)
	}

	return m
}

// Enabled reports whether a host root is configured.
func (m *Mapper) Enabled() bool {
	return m.hostRoot != ""
}

// HostRoot returns the normalized host root.
func (m *Mapper) HostRoot() string { return m.hostRoot }

// ContainerRoot returns the normalized container root.
func (m *Mapper) ContainerRoot() string { return m.containerRoot }

// ToContainer translates a host path into the container.
func (m *Mapper) ToContainer(hostPath string) (string, error) {
	if !m.Enabled() {
		return "", &errors.PathMappingError{Path: hostPath, Err: errors.ErrMappingDisabled}
	}

	rel, ok := relative(m.hostRoot, clean(hostPath))
	if !ok {
		m.log.Warn("Path outside host root", "path", hostPath, "host_root", m.hostRoot)

		return "", &errors.PathMappingError{Path: hostPath, Root: m.hostRoot, Err: errors.ErrOutsideRoot}
	}

	containerPath := path.Join(m.containerRoot, rel)
	m.log.Debug("Path translated", "host_path", hostPath, "container_path", containerPath)

	return containerPath, nil
}

// ToHost translates a container path back to the host.
func (m *Mapper) ToHost(containerPath string) (string, error) {
	if !m.Enabled() {
		return "", &errors.PathMappingError{Path: containerPath, Err: errors.ErrMappingDisabled}
	}

	rel, ok := relative(m.containerRoot, clean(containerPath))
	if !ok {
		return "", &errors.PathMappingError{Path: containerPath, Root: m.containerRoot, Err: errors.ErrOutsideRoot}
	}

	return path.Join(m.hostRoot, rel), nil
}

// Validate reports whether path exists as a regular file or directory.
func (m *Mapper) Validate(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}

	return info.IsDir() || info.Mode().IsRegular()
}

// clean normalizes separators to forward slashes and resolves dot segments.
func clean(p string) string {
	return path.Clean(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"))
}

// relative returns p relative to root when p is root or lies below it,
// comparing whole path components.
func relative(root, p string) (string, bool) {
	if p == root {
		return ".", true
	}

	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	rest, ok := strings.CutPrefix(p, prefix)

	return rest, ok
}
