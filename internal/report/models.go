package report

// Position is a zero-based line and character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans a diagnostic in its file.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is one finding of the analyzer.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Range    *Range `json:"range,omitempty"`
}

// Summary counts diagnostics by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Metrics are the per-file code metrics the analyzer computes.
type Metrics struct {
	Procedures           int `json:"procedures"`
	Functions            int `json:"functions"`
	Lines                int `json:"lines"`
	Ncloc                int `json:"ncloc"`
	Comments             int `json:"comments"`
	Statements           int `json:"statements"`
	CognitiveComplexity  int `json:"cognitiveComplexity"`
	CyclomaticComplexity int `json:"cyclomaticComplexity"`
}

// FileReport summarizes one analyzed file.
type FileReport struct {
	File        string   `json:"file"`
	Diagnostics int      `json:"diagnostics"`
	Metrics     *Metrics `json:"metrics,omitempty"`
}

// Analysis is the parsed outcome of an analysis run.
type Analysis struct {
	Summary     Summary      `json:"summary"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Files       []FileReport `json:"files,omitempty"`
	RawOutput   string       `json:"rawOutput,omitempty"`
}

// FormattedFile is one entry of a format report.
type FormattedFile struct {
	File       string `json:"file"`
	Formatted  bool   `json:"formatted"`
	HasContent bool   `json:"hasContent"`
}

// Format is the parsed outcome of a format run.
type Format struct {
	Formatted    bool            `json:"formatted"`
	FilesChanged int             `json:"filesChanged"`
	Files        []FormattedFile `json:"files,omitempty"`
	RawOutput    string          `json:"rawOutput,omitempty"`
}

// Wire shapes of the JSON reporter.
type (
	analysisDoc struct {
		Date      string    `json:"date"`
		SourceDir string    `json:"sourceDir"`
		FileInfos []fileDoc `json:"fileinfos"`
	}

	fileDoc struct {
		Path        string          `json:"path"`
		Diagnostics []diagnosticDoc `json:"diagnostics"`
		Metrics     *Metrics        `json:"metrics"`
	}

	diagnosticDoc struct {
		Range    *Range   `json:"range"`
		Severity severity `json:"severity"`
		Code     any      `json:"code"`
		Message  string   `json:"message"`
	}

	formatDoc struct {
		Formatted    *bool `json:"formatted"`
		FilesChanged int   `json:"filesChanged"`
		Files        []struct {
			File      string  `json:"file"`
			Formatted bool    `json:"formatted"`
			Content   *string `json:"content"`
		} `json:"files"`
	}
)
