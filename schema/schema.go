// Package schema has the report model, enums and records shared by all parts of pj.
package schema

import "time"

// SchemaVersion is the on-disk version of ProjectReport. Reports with any other
// version are treated as absent.
const SchemaVersion = 1

// FileMetrics holds the line classification and content digest for a single file.
type FileMetrics struct {
	Path         string `json:"path"`         // Relative, slash-separated path
	TotalLines   int    `json:"totalLines"`   // Number of lines, including a final unterminated line
	CodeLines    int    `json:"codeLines"`    // Lines containing code
	CommentLines int    `json:"commentLines"` // Lines containing only comment text
	BlankLines   int    `json:"blankLines"`   // Whitespace-only lines
	ContentHash  string `json:"contentHash"`  // Hex XXH3-128 of the raw bytes
}

// CoreStruct describes a type found by the annotation service.
type CoreStruct struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FunctionDetail describes a function found by the annotation service.
type FunctionDetail struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
	ReturnType  string   `json:"return_type"`
	Complexity  string   `json:"complexity"`
}

// AIAnalysis is the structured annotation returned by the external service.
// Its content is passed through as-is.
type AIAnalysis struct {
	MainFunctions   []string                  `json:"mainFunctions"`
	CoreStructs     []CoreStruct              `json:"coreStructs"`
	ErrorTypes      []string                  `json:"errorTypes"`
	FunctionDetails map[string]FunctionDetail `json:"functionDetails"`
	Complexity      string                    `json:"complexity"`
}

// FileRecord is the report entry for a single path.
//
// When Analysis is set, LastAnalyzedHash equals Metrics.ContentHash.
type FileRecord struct {
	Path             string         `json:"path"`
	Metrics          FileMetrics    `json:"metrics"`
	Analysis         *AIAnalysis    `json:"analysis,omitempty"`
	LastAnalyzedHash string         `json:"lastAnalyzedHash,omitempty"`
	Status           FileStatus     `json:"status"`
	Failure          *FailureReason `json:"failure,omitempty"`
}

// ProjectInsights are the descriptive summary fields produced by a project-level annotation call.
type ProjectInsights struct {
	MainFeatures            []string `json:"mainFeatures"`
	ArchitectureDescription string   `json:"architectureDescription"`
	KeyComponents           []string `json:"keyComponents"`
	TechStack               []string `json:"techStack"`
	ImprovementSuggestions  []string `json:"improvementSuggestions"`
}

// ProjectSummary aggregates counts over all files plus optional insights.
type ProjectSummary struct {
	TotalFiles        int              `json:"totalFiles"`
	TotalLines        int              `json:"totalLines"`
	TotalCodeLines    int              `json:"totalCodeLines"`
	TotalCommentLines int              `json:"totalCommentLines"`
	TotalBlankLines   int              `json:"totalBlankLines"`
	FailedFiles       int              `json:"failedFiles"`
	Insights          *ProjectInsights `json:"insights,omitempty"`
}

// ProjectReport is the persisted document.
type ProjectReport struct {
	SchemaVersion int                   `json:"schemaVersion"`
	GeneratedAt   time.Time             `json:"generatedAt"`
	Summary       ProjectSummary        `json:"summary"`
	Files         map[string]FileRecord `json:"files"`
}

// NewProjectReport returns an empty report at the current schema version.
func NewProjectReport() *ProjectReport {
	return &ProjectReport{
		SchemaVersion: SchemaVersion,
		Files:         make(map[string]FileRecord),
	}
}

// SourceFile is a scanned file. Err is set when the file could not be read or decoded.
type SourceFile struct {
	Path    string
	Content []byte
	Err     error
}

// FileOutcome is the orchestrator result for one file.
// Exactly one of Analysis, Failure or Skipped is meaningful, unless the run was metrics-only
// in which case all three are empty.
type FileOutcome struct {
	Path     string
	Analysis *AIAnalysis
	Failure  *FailureReason
	Skipped  bool
	Attempts int
}
