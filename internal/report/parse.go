package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	errorCount   = regexp.MustCompile(`(?i)(\d+)\s*error`)
	warningCount = regexp.MustCompile(`(?i)(\d+)\s*warning`)
	infoCount    = regexp.MustCompile(`(?i)(\d+)\s*info`)
	fileCount    = regexp.MustCompile(`(?i)(\d+)\s*file`)
)

// Severity names as printed by the analyzer, lowercased.
const (
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
	SeverityHint        = "hint"
)

// severity accepts both the LSP numeric form and the enum name.
type severity string

func (s *severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*s = severity(name)

		return nil
	}

	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode severity %s: %w", b, err)
	}

	switch n {
	case 1:
		*s = "Error"
	case 2:
		*s = "Warning"
	case 3:
		*s = "Information"
	default:
		*s = "Hint"
	}

	return nil
}

// ParseAnalysis extracts diagnostics and a summary from analyzer output.
func ParseAnalysis(raw string) Analysis {
	var doc analysisDoc
	if decodeEmbedded(raw, &doc) && doc.FileInfos != nil {
		return fromDoc(doc)
	}

	return analysisFromText(raw)
}

// ParseAnalysisReport decodes a JSON report file written by the json reporter.
func ParseAnalysisReport(data []byte) (Analysis, error) {
	var doc analysisDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis report: %w", err)
	}

	return fromDoc(doc), nil
}

func fromDoc(doc analysisDoc) Analysis {
	out := Analysis{
		Diagnostics: make([]Diagnostic, 0),
		Files:       make([]FileReport, 0, len(doc.FileInfos)),
	}

	for _, f := range doc.FileInfos {
		for _, d := range f.Diagnostics {
			diag := Diagnostic{
				File:     f.Path,
				Code:     codeString(d.Code),
				Severity: string(d.Severity),
				Message:  d.Message,
				Range:    d.Range,
			}

			if d.Range != nil {
				diag.Line = d.Range.Start.Line
				diag.Column = d.Range.Start.Character
			}

			out.Summary.count(diag.Severity)
			out.Diagnostics = append(out.Diagnostics, diag)
		}

		out.Files = append(out.Files, FileReport{
			File:        f.Path,
			Diagnostics: len(f.Diagnostics),
			Metrics:     f.Metrics,
		})
	}

	return out
}

func (s *Summary) count(sev string) {
	switch strings.ToLower(sev) {
	case SeverityError:
		s.Errors++
	case SeverityWarning:
		s.Warnings++
	case SeverityInformation, SeverityHint, "info":
		s.Info++
	default:
		return
	}

	s.Total++
}

func codeString(code any) string {
	switch v := code.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		b, _ := json.Marshal(v)

		return string(b)
	}
}

func analysisFromText(raw string) Analysis {
	out := Analysis{
		Diagnostics: make([]Diagnostic, 0),
		RawOutput:   raw,
	}

	for line := range strings.SplitSeq(raw, "\n") {
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "error"):
			out.Summary.Errors = lastMatch(errorCount, line, out.Summary.Errors)
		case strings.Contains(lower, "warning"):
			out.Summary.Warnings = lastMatch(warningCount, line, out.Summary.Warnings)
		case strings.Contains(lower, "info"):
			out.Summary.Info = lastMatch(infoCount, line, out.Summary.Info)
		}
	}

	out.Summary.Total = out.Summary.Errors + out.Summary.Warnings + out.Summary.Info

	return out
}

// ParseFormat extracts the outcome of a format run.
func ParseFormat(raw string) Format {
	var doc formatDoc
	if decodeEmbedded(raw, &doc) && doc.Formatted != nil {
		out := Format{
			Formatted:    *doc.Formatted,
			FilesChanged: doc.FilesChanged,
		}

		for _, f := range doc.Files {
			out.Files = append(out.Files, FormattedFile{File: f.File, Formatted: f.Formatted, HasContent: f.Content != nil})
		}

		return out
	}

	out := Format{RawOutput: raw}

	for line := range strings.SplitSeq(raw, "\n") {
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "formatted"):
			out.Formatted = true
		case strings.Contains(lower, "changed"):
			out.FilesChanged = lastMatch(fileCount, line, out.FilesChanged)
		}
	}

	return out
}

// decodeEmbedded decodes the span from the first '{' to the last '}', which
// tolerates log lines printed around the report.
func decodeEmbedded(raw string, v any) bool {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')

	if start < 0 || end <= start {
		return false
	}

	return json.Unmarshal([]byte(raw[start:end+1]), v) == nil
}

func lastMatch(re *regexp.Regexp, line string, fallback int) int {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return fallback
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return fallback
	}

	return n
}
