package iocache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/huangsam/pj/schema"
)

// Report store errors. Callers treat both as "no previous report".
var (
	ErrReportNotFound     = errors.New("report not found")
	ErrIncompatibleReport = errors.New("incompatible report")
)

// versionProbe reads only the schema version so that incompatible documents
// are rejected before their body is interpreted.
type versionProbe struct {
	SchemaVersion *int `json:"schemaVersion"`
}

// LoadReport reads a report from path. It returns ErrReportNotFound when the file
// does not exist and ErrIncompatibleReport when the version is missing, differs from
// schema.SchemaVersion, or the document cannot be decoded.
func LoadReport(path string) (*schema.ProjectReport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	var probe versionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleReport, err)
	}
	if probe.SchemaVersion == nil {
		return nil, fmt.Errorf("%w: missing schemaVersion", ErrIncompatibleReport)
	}
	if *probe.SchemaVersion != schema.SchemaVersion {
		return nil, fmt.Errorf("%w: schemaVersion %d, expected %d", ErrIncompatibleReport, *probe.SchemaVersion, schema.SchemaVersion)
	}

	report := schema.NewProjectReport()
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleReport, err)
	}
	if report.Files == nil {
		report.Files = make(map[string]schema.FileRecord)
	}
	return report, nil
}

// EncodeReport renders the canonical JSON form of a report: two-space indentation,
// keys of the files object sorted, trailing newline.
func EncodeReport(report *schema.ProjectReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveReport atomically replaces path with the encoded report. The document is
// written to a temporary file in the same directory, synced and renamed. On any
// failure the temporary file is removed and an existing report is left untouched.
func SaveReport(report *schema.ProjectReport, path string) (err error) {
	data, err := EncodeReport(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary report in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace report %s: %w", path, err)
	}
	return nil
}
