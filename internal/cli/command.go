package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wagiedev/bsl-mcp-server/internal/config"
)

// DefaultReporter is used when an analyze request names no reporter.
const DefaultReporter = "json"

// Command represents a fully resolved process invocation.
type Command struct {
	// Path is the executable.
	Path string

	// Args are the command line arguments, excluding Path.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env are the environment variables. Nil inherits the current environment.
	Env []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// JVMArgs returns the JVM flags that precede the tool arguments.
func JVMArgs(options *config.Options) []string {
	args := make([]string, 0, 3)

	if options.MaxHeap != "" {
		args = append(args, "-Xmx"+options.MaxHeap)
	}

	return append(args, "-jar", options.JarPath)
}

// BuildAnalyzeArgs constructs the language server arguments for an analysis run.
func BuildAnalyzeArgs(srcDir string, reporters []string, language, outputDir string) []string {
	if language == "" {
		language = config.DefaultLanguage
	}

	configuration, _ := json.Marshal(map[string]string{"language": language})

	args := []string{
		"--analyze",
		"--srcDir", srcDir,
		"--configuration", string(configuration),
	}

	if len(reporters) == 0 {
		reporters = []string{DefaultReporter}
	}

	for _, reporter := range reporters {
		args = append(args, "--reporter", reporter)
	}

	if outputDir != "" {
		args = append(args, "--outputDir", outputDir)
	}

	return args
}

// BuildFormatArgs constructs the language server arguments for a format run.
func BuildFormatArgs(src string) []string {
	return []string{"--format", "--src", src}
}

// AnalyzeCommand builds the one-shot analysis command for srcDir.
func AnalyzeCommand(javaPath string, options *config.Options, srcDir string, reporters []string, language string) Command {
	return Command{
		Path: javaPath,
		Args: slices.Concat(JVMArgs(options), BuildAnalyzeArgs(srcDir, reporters, language, options.ReportsDir)),
		Dir:  WorkDir(srcDir),
	}
}

// FormatCommand builds the one-shot format command for src.
func FormatCommand(javaPath string, options *config.Options, src string) Command {
	return Command{
		Path: javaPath,
		Args: slices.Concat(JVMArgs(options), BuildFormatArgs(src)),
		Dir:  filepath.Dir(src),
	}
}

// SessionCommand builds the long-running language server command for a project.
func SessionCommand(javaPath string, options *config.Options, projectPath string) Command {
	return Command{
		Path: javaPath,
		Args: append(JVMArgs(options), "--lsp"),
		Dir:  projectPath,
	}
}

// WorkDir returns path itself for directories and its parent otherwise.
func WorkDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}

	return filepath.Dir(path)
}

// UsesFileReporter reports whether any reporter writes into the output directory.
// The console reporter prints to stdout and leaves the directory untouched.
func UsesFileReporter(reporters []string) bool {
	if len(reporters) == 0 {
		return true
	}

	for _, r := range reporters {
		if r != "console" {
			return true
		}
	}

	return false
}
