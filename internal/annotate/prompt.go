package annotate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/huangsam/pj/schema"
)

const fileSystemPrompt = `You are a senior code reviewer. Analyze the source file you are given and reply with a single JSON object and nothing else.`

const fileInstructions = `Reply with a JSON object of this exact shape:
{
  "mainFunctions": ["name of each important function"],
  "coreStructs": [{"name": "type name", "description": "what it represents"}],
  "errorTypes": ["error types defined or returned"],
  "functionDetails": {
    "function name": {
      "name": "function name",
      "description": "what it does",
      "parameters": ["name: type"],
      "return_type": "return type",
      "complexity": "low | medium | high, with a short reason"
    }
  },
  "complexity": "overall complexity assessment of the file"
}
Use empty arrays or objects when nothing applies.`

const summarySystemPrompt = `You are a software architect. Summarize the project described by the per-file digest you are given and reply with a single JSON object and nothing else.`

const summaryInstructions = `Reply with a JSON object of this exact shape:
{
  "mainFeatures": ["user-facing capability"],
  "architectureDescription": "one or two paragraphs on how the project is organized",
  "keyComponents": ["component: responsibility"],
  "techStack": ["language, framework or library"],
  "improvementSuggestions": ["concrete suggestion"]
}`

// maxSummaryFiles bounds the digest sent for a project summary.
const maxSummaryFiles = 200

func buildFilePrompt(path string, content []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n\n", path)
	b.WriteString("```\n")
	b.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString("```\n\n")
	b.WriteString(fileInstructions)
	return b.String()
}

type fileDigest struct {
	Path          string   `json:"path"`
	CodeLines     int      `json:"codeLines"`
	MainFunctions []string `json:"mainFunctions,omitempty"`
	CoreStructs   []string `json:"coreStructs,omitempty"`
	Complexity    string   `json:"complexity,omitempty"`
}

// buildSummaryPrompt renders a compact, path-sorted digest of the records.
func buildSummaryPrompt(files []schema.FileRecord) (string, error) {
	sorted := make([]schema.FileRecord, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	if len(sorted) > maxSummaryFiles {
		sorted = sorted[:maxSummaryFiles]
	}

	digest := make([]fileDigest, 0, len(sorted))
	for _, rec := range sorted {
		d := fileDigest{Path: rec.Path, CodeLines: rec.Metrics.CodeLines}
		if rec.Analysis != nil {
			d.MainFunctions = rec.Analysis.MainFunctions
			d.Complexity = rec.Analysis.Complexity
			for _, s := range rec.Analysis.CoreStructs {
				d.CoreStructs = append(d.CoreStructs, s.Name)
			}
		}
		digest = append(digest, d)
	}

	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding project digest: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The project has %d analyzed files", len(files))
	if len(files) > len(sorted) {
		fmt.Fprintf(&b, " (the first %d are listed)", len(sorted))
	}
	b.WriteString(".\n\n")
	b.Write(data)
	b.WriteString("\n\n")
	b.WriteString(summaryInstructions)
	return b.String(), nil
}
