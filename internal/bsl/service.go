package bsl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"github.com/wagiedev/bsl-mcp-server/internal/cli"
	"github.com/wagiedev/bsl-mcp-server/internal/config"
	"github.com/wagiedev/bsl-mcp-server/internal/errors"
	"github.com/wagiedev/bsl-mcp-server/internal/report"
	"github.com/wagiedev/bsl-mcp-server/internal/subprocess"
)

const (
	// JSONReportFile is the file the json reporter writes into the output directory.
	JSONReportFile = "bsl-json.json"

	lockFile      = ".lock"
	lockRetry     = 100 * time.Millisecond
	scratchPrefix = "format-"
)

// Runner executes one-shot commands.
type Runner interface {
	Run(ctx context.Context, command cli.Command) (subprocess.RunResult, error)
}

// AnalyzeRequest describes one analysis run.
type AnalyzeRequest struct {
	// SrcDir is the file or directory to analyze, as seen by the tool.
	SrcDir string

	// Reporters select the output reporters. Empty means json.
	Reporters []string

	// Language is the diagnostic message language. Empty means ru.
	Language string
}

// FormatRequest describes one format run.
type FormatRequest struct {
	// Src is the file or directory to format, as seen by the tool.
	Src string

	// InPlace rewrites Src. When false a scratch copy is formatted and
	// Src is left untouched.
	InPlace bool
}

// Formatted is the value of a successful format run.
type Formatted struct {
	report.Format

	InPlace bool `json:"inPlace"`

	// Content holds the formatted text when a single file was formatted
	// out of place.
	Content string `json:"content,omitempty"`
}

// Service runs analysis and formatting.
type Service struct {
	log      *slog.Logger
	options  *config.Options
	javaPath string
	runner   Runner
}

// NewService creates a Service that launches javaPath through runner.
func NewService(log *slog.Logger, options *config.Options, javaPath string, runner Runner) *Service {
	return &Service{
		log:      log.With("component", "bsl_service"),
		options:  options,
		javaPath: javaPath,
		runner:   runner,
	}
}

// Analyze runs the analyzer over req.SrcDir.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Result[report.Analysis], error) {
	if req.SrcDir == "" {
		return Result[report.Analysis]{}, &errors.InvalidParamsError{Param: "sourcePath", Reason: "is required"}
	}

	if len(req.Reporters) == 0 {
		req.Reporters = []string{cli.DefaultReporter}
	}

	s.log.Info("Running analysis", "src_dir", req.SrcDir, "reporters", req.Reporters, "language", req.Language)

	var (
		run    subprocess.RunResult
		parsed report.Analysis
	)

	// File reporters share one output directory, so runs that use them
	// hold the directory lock until their report has been read.
	err := s.withReportsDir(ctx, cli.UsesFileReporter(req.Reporters), func() error {
		command := cli.AnalyzeCommand(s.javaPath, s.options, req.SrcDir, req.Reporters, req.Language)

		var err error

		run, err = s.runner.Run(ctx, command)
		if err != nil {
			return err
		}

		parsed = report.ParseAnalysis(run.Output)

		if parsed.RawOutput != "" && slices.Contains(req.Reporters, cli.DefaultReporter) {
			if fromFile, ok := s.readJSONReport(); ok {
				parsed = fromFile
			}
		}

		return nil
	})
	if err != nil {
		return Result[report.Analysis]{}, err
	}

	if run.ExitCode != 0 {
		s.log.Warn("Analysis failed", "src_dir", req.SrcDir, "exit_code", run.ExitCode)

		return Failed[report.Analysis](strings.TrimSpace(run.Output)).timed(run.ExitCode, run.Duration), nil
	}

	s.log.Info("Analysis completed",
		"src_dir", req.SrcDir,
		"total", parsed.Summary.Total,
		"duration", run.Duration,
	)

	return Succeeded(parsed).timed(run.ExitCode, run.Duration), nil
}

// Format runs the formatter over req.Src.
func (s *Service) Format(ctx context.Context, req FormatRequest) (Result[Formatted], error) {
	if req.Src == "" {
		return Result[Formatted]{}, &errors.InvalidParamsError{Param: "sourcePath", Reason: "is required"}
	}

	info, err := os.Stat(req.Src)
	if err != nil {
		return Result[Formatted]{}, &errors.InvalidParamsError{Param: "sourcePath", Reason: "does not exist or is not accessible"}
	}

	target := req.Src

	if req.InPlace {
		if unix.Access(req.Src, unix.W_OK) != nil {
			return Result[Formatted]{}, &errors.InvalidParamsError{Param: "sourcePath", Reason: "is not writable for in-place formatting"}
		}
	} else {
		scratch, err := s.scratchCopy(req.Src, info)
		if err != nil {
			return Result[Formatted]{}, err
		}
		defer os.RemoveAll(filepath.Dir(scratch))

		target = scratch
	}

	s.log.Info("Running format", "src", req.Src, "in_place", req.InPlace)

	run, err := s.runner.Run(ctx, cli.FormatCommand(s.javaPath, s.options, target))
	if err != nil {
		return Result[Formatted]{}, err
	}

	if run.ExitCode != 0 {
		s.log.Warn("Format failed", "src", req.Src, "exit_code", run.ExitCode)

		return Failed[Formatted](strings.TrimSpace(run.Output)).timed(run.ExitCode, run.Duration), nil
	}

	out := Formatted{
		Format:  report.ParseFormat(run.Output),
		InPlace: req.InPlace,
	}

	if !req.InPlace && !info.IsDir() {
		content, err := os.ReadFile(target)
		if err != nil {
			return Result[Formatted]{}, fmt.Errorf("read formatted copy: %w", err)
		}

		out.Content = string(content)
	}

	s.log.Info("Format completed", "src", req.Src, "files_changed", out.FilesChanged, "duration", run.Duration)

	return Succeeded(out).timed(run.ExitCode, run.Duration), nil
}

// withReportsDir runs fn while holding the reports directory lock when
// exclusive is set. The lock is a file lock, so it also serializes against
// other server processes sharing the directory.
func (s *Service) withReportsDir(ctx context.Context, exclusive bool, fn func() error) error {
	if !exclusive {
		return fn()
	}

	if err := os.MkdirAll(s.options.ReportsDir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	lock := flock.New(filepath.Join(s.options.ReportsDir, lockFile))

	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return &errors.ProcessCommunicationError{Op: "lock reports dir", Err: err}
	}

	if !locked {
		return &errors.ProcessCommunicationError{Op: "lock reports dir", Err: ctx.Err()}
	}

	defer func() {
		if err := lock.Unlock(); err != nil {
			s.log.Warn("Failed to unlock reports dir", "error", err)
		}
	}()

	stale := filepath.Join(s.options.ReportsDir, JSONReportFile)
	if err := os.Remove(stale); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		s.log.Warn("Failed to remove stale report", "path", stale, "error", err)
	}

	return fn()
}

func (s *Service) readJSONReport() (report.Analysis, bool) {
	path := filepath.Join(s.options.ReportsDir, JSONReportFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return report.Analysis{}, false
	}

	parsed, err := report.ParseAnalysisReport(data)
	if err != nil {
		s.log.Warn("Unreadable report file", "path", path, "error", err)

		return report.Analysis{}, false
	}

	s.log.Debug("Read analysis from report file", "path", path)

	return parsed, true
}

// scratchCopy copies src into a fresh directory under the reports dir and
// returns the path of the copy.
func (s *Service) scratchCopy(src string, info fs.FileInfo) (string, error) {
	if err := os.MkdirAll(s.options.ReportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	dir, err := os.MkdirTemp(s.options.ReportsDir, scratchPrefix)
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(src))

	if info.IsDir() {
		err = os.CopyFS(dst, os.DirFS(src))
	} else {
		err = copyFile(src, dst, info.Mode().Perm())
	}

	if err != nil {
		_ = os.RemoveAll(dir)

		return "", fmt.Errorf("copy %s for formatting: %w", src, err)
	}

	return dst, nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, perm|0o200)
}
