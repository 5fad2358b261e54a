package outwriter

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

const rootGroup = "root"

// WriteMarkdownFile renders the report as Markdown into outputFile (stdout when empty).
func WriteMarkdownFile(report *schema.ProjectReport, outputFile string) error {
	return writeWithFile(outputFile, func(w io.Writer) error {
		return WriteMarkdown(w, report)
	}, "Wrote Markdown report")
}

// WriteMarkdown renders the report as Markdown. Directories and files are sorted,
// so the same report always renders the same text.
func WriteMarkdown(w io.Writer, report *schema.ProjectReport) error {
	var b strings.Builder
	groups := groupByDirectory(report.Files)

	b.WriteString("# Project Analysis Report\n\n")
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "_Generated at %s_\n\n", report.GeneratedAt.UTC().Format(contract.DateTimeFormat))
	}
	writeSummarySection(&b, report.Summary)
	writeTableOfContents(&b, groups)
	for _, g := range groups {
		fmt.Fprintf(&b, "## %s\n\n", g.name)
		for _, p := range g.paths {
			writeFileSection(&b, report.Files[p])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type dirGroup struct {
	name  string
	paths []string
}

func groupByDirectory(files map[string]schema.FileRecord) []dirGroup {
	byDir := make(map[string][]string)
	for p := range files {
		dir := path.Dir(p)
		if dir == "." {
			dir = rootGroup
		}
		byDir[dir] = append(byDir[dir], p)
	}

	groups := make([]dirGroup, 0, len(byDir))
	for dir, paths := range byDir {
		sort.Strings(paths)
		groups = append(groups, dirGroup{name: dir, paths: paths})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups
}

func writeSummarySection(b *strings.Builder, s schema.ProjectSummary) {
	b.WriteString("## Project Summary\n\n")
	b.WriteString("### Basic Information\n\n")
	fmt.Fprintf(b, "- Total files: %d\n", s.TotalFiles)
	fmt.Fprintf(b, "- Total lines: %d\n", s.TotalLines)
	fmt.Fprintf(b, "- Code lines: %d\n", s.TotalCodeLines)
	fmt.Fprintf(b, "- Comment lines: %d\n", s.TotalCommentLines)
	fmt.Fprintf(b, "- Blank lines: %d\n", s.TotalBlankLines)
	if s.FailedFiles > 0 {
		fmt.Fprintf(b, "- Failed files: %d\n", s.FailedFiles)
	}
	b.WriteString("\n")

	if in := s.Insights; in != nil {
		writeList(b, "### Main Features", in.MainFeatures)
		if in.ArchitectureDescription != "" {
			fmt.Fprintf(b, "### Architecture\n\n%s\n\n", strings.TrimSpace(in.ArchitectureDescription))
		}
		writeList(b, "### Key Components", in.KeyComponents)
		writeList(b, "### Tech Stack", in.TechStack)
		writeList(b, "### Improvement Suggestions", in.ImprovementSuggestions)
	}
	b.WriteString("---\n\n")
}

func writeTableOfContents(b *strings.Builder, groups []dirGroup) {
	if len(groups) == 0 {
		return
	}
	b.WriteString("## Table of Contents\n\n")
	for _, g := range groups {
		fmt.Fprintf(b, "- [%s](#%s)\n", g.name, anchor(g.name))
		for _, p := range g.paths {
			fmt.Fprintf(b, "  - [%s](#%s)\n", path.Base(p), anchor(p))
		}
	}
	b.WriteString("\n---\n\n")
}

func writeFileSection(b *strings.Builder, rec schema.FileRecord) {
	fmt.Fprintf(b, "### %s\n\n", rec.Path)
	fmt.Fprintf(b, "- **Status**: %s\n", statusLine(rec))
	m := rec.Metrics
	fmt.Fprintf(b, "- **Lines**: %d total, %d code, %d comment, %d blank\n\n",
		m.TotalLines, m.CodeLines, m.CommentLines, m.BlankLines)

	a := rec.Analysis
	if a == nil {
		b.WriteString("---\n\n")
		return
	}

	writeList(b, "#### Main Functions", a.MainFunctions)

	if len(a.CoreStructs) > 0 {
		b.WriteString("#### Core Structs\n\n")
		for _, s := range a.CoreStructs {
			fmt.Fprintf(b, "- **%s**: %s\n", s.Name, s.Description)
		}
		b.WriteString("\n")
	}

	writeList(b, "#### Error Types", a.ErrorTypes)

	if len(a.FunctionDetails) > 0 {
		b.WriteString("#### Function Details\n\n")
		names := make([]string, 0, len(a.FunctionDetails))
		for name := range a.FunctionDetails {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			writeFunctionDetail(b, name, a.FunctionDetails[name])
		}
	}

	if a.Complexity != "" {
		fmt.Fprintf(b, "#### Code Complexity\n\n%s\n\n", strings.TrimSpace(a.Complexity))
	}
	b.WriteString("---\n\n")
}

func writeFunctionDetail(b *strings.Builder, key string, fd schema.FunctionDetail) {
	name := fd.Name
	if name == "" {
		name = key
	}
	fmt.Fprintf(b, "##### %s\n\n", name)
	if fd.Description != "" {
		fmt.Fprintf(b, "- Description: %s\n", fd.Description)
	}
	if len(fd.Parameters) > 0 {
		fmt.Fprintf(b, "- Parameters: %s\n", strings.Join(fd.Parameters, ", "))
	}
	if fd.ReturnType != "" {
		fmt.Fprintf(b, "- Returns: %s\n", fd.ReturnType)
	}
	if fd.Complexity != "" {
		fmt.Fprintf(b, "- Complexity: %s\n", fd.Complexity)
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func statusLine(rec schema.FileRecord) string {
	label := contract.GetPlainStatusLabel(rec.Status)
	if rec.Failure != nil {
		return fmt.Sprintf("%s (%s)", label, rec.Failure.String())
	}
	return label
}

// anchor builds a GitHub-style heading anchor.
func anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}
