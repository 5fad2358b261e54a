package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/huangsam/pj/core/measure"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// ErrInvalidUTF8 marks a source file whose bytes cannot be decoded as text.
var ErrInvalidUTF8 = errors.New("invalid utf-8")

// ScanOptions controls which files a scan yields.
type ScanOptions struct {
	Extensions []string
	Excludes   []string
}

// ListSourceFiles walks root and returns the sorted relative paths of matching files.
// Excluded directories are pruned before descent.
func ListSourceFiles(ctx context.Context, root string, opts ScanOptions) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			// An unreadable directory is pruned, an unreadable file is still reported.
			if d != nil && d.IsDir() && rel != "." {
				contract.LogWarn(fmt.Sprintf("Skipping unreadable directory %s", rel), err)
				return fs.SkipDir
			}
			if rel == "." {
				return err
			}
		}

		if d != nil && d.IsDir() {
			if rel != "." && contract.ShouldIgnore(rel+"/", opts.Excludes) {
				return fs.SkipDir
			}
			return nil
		}
		if contract.ShouldIgnore(rel, opts.Excludes) || !hasExtension(rel, opts.Extensions) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

// ScanSeq lazily reads each matching file in path order. Per-file read and decode
// errors are reported in SourceFile.Err; the error value is only set for walk failures.
// The sequence can be ranged over repeatedly.
func ScanSeq(ctx context.Context, root string, opts ScanOptions) iter.Seq2[schema.SourceFile, error] {
	return func(yield func(schema.SourceFile, error) bool) {
		paths, err := ListSourceFiles(ctx, root, opts)
		if err != nil {
			yield(schema.SourceFile{}, err)
			return
		}
		for _, rel := range paths {
			if err := ctx.Err(); err != nil {
				yield(schema.SourceFile{}, err)
				return
			}
			if !yield(readSourceFile(root, rel), nil) {
				return
			}
		}
	}
}

// Scan collects ScanSeq into a slice.
func Scan(ctx context.Context, root string, opts ScanOptions) ([]schema.SourceFile, error) {
	var files []schema.SourceFile
	for f, err := range ScanSeq(ctx, root, opts) {
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// MeasureFiles computes metrics for every scanned file. Files that could not be
// read still get an entry keyed by path so they can be recorded as failed.
func MeasureFiles(files []schema.SourceFile) map[string]schema.FileMetrics {
	out := make(map[string]schema.FileMetrics, len(files))
	for _, f := range files {
		if f.Content == nil && f.Err != nil {
			out[f.Path] = schema.FileMetrics{Path: f.Path}
			continue
		}
		out[f.Path] = measure.Measure(f.Path, f.Content, measure.ProfileFor(f.Path))
	}
	return out
}

func readSourceFile(root, rel string) schema.SourceFile {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return schema.SourceFile{Path: rel, Err: err}
	}
	if !utf8.Valid(content) {
		return schema.SourceFile{Path: rel, Content: content, Err: ErrInvalidUTF8}
	}
	return schema.SourceFile{Path: rel, Content: content}
}

func hasExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
