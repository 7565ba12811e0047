package pathmap

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Type classifies what a path points at.
type Type string

const (
	TypeBSLFile      Type = "bsl_file"
	TypeBSLDirectory Type = "bsl_directory"
	TypeFile         Type = "file"
	TypeDirectory    Type = "directory"
	TypeNotFound     Type = "not_found"
	TypeUnknown      Type = "unknown"
)

// bslExtensions are the source extensions of 1C:Enterprise and OneScript.
var bslExtensions = []string{".bsl", ".os"}

// IsBSLFile reports whether name has a BSL source extension.
func IsBSLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range bslExtensions {
		if ext == e {
			return true
		}
	}

	return false
}

// Detect classifies p. A directory counts as a BSL directory when it directly
// contains at least one BSL source file.
func Detect(p string) Type {
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return TypeNotFound
		}

		return TypeUnknown
	}

	switch {
	case info.Mode().IsRegular():
		if IsBSLFile(p) {
			return TypeBSLFile
		}

		return TypeFile
	case info.IsDir():
		entries, err := os.ReadDir(p)
		if err != nil {
			return TypeUnknown
		}

		for _, e := range entries {
			if e.Type().IsRegular() && IsBSLFile(e.Name()) {
				return TypeBSLDirectory
			}
		}

		return TypeDirectory
	default:
		return TypeUnknown
	}
}

// CountBSLFiles walks dir recursively and counts BSL sources.
// Unreadable subtrees are skipped.
func CountBSLFiles(dir string) int {
	count := 0

	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if d.Type().IsRegular() && IsBSLFile(d.Name()) {
			count++
		}

		return nil
	})

	return count
}

// Info describes a host path and its container counterpart.
type Info struct {
	HostPath      string `json:"hostPath"`
	ContainerPath string `json:"containerPath"`
	Type          Type   `json:"type"`
	Exists        bool   `json:"exists"`
	IsBSL         bool   `json:"isBsl"`
	BSLFiles      int    `json:"bslFiles,omitempty"`
}

// Inspect maps hostPath into the container and classifies the result.
func (m *Mapper) Inspect(hostPath string) (Info, error) {
	containerPath, err := m.ToContainer(hostPath)
	if err != nil {
		return Info{}, err
	}

	t := Detect(containerPath)
	info := Info{
		HostPath:      hostPath,
		ContainerPath: containerPath,
		Type:          t,
		Exists:        t != TypeNotFound && t != TypeUnknown,
		IsBSL:         t == TypeBSLFile || t == TypeBSLDirectory,
	}

	if t == TypeBSLDirectory || t == TypeDirectory {
		info.BSLFiles = CountBSLFiles(containerPath)
	}

	return info, nil
}
