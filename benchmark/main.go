// Package main provides a performance benchmarking tool for the pj CLI.
// It measures full analysis and incremental update times across repositories
// of different sizes, running each phase multiple times with the annotation
// service disabled, and writes CSV output for performance analysis.
//
// Prerequisites:
// - pj binary installed and available in PATH
// - Test repositories cloned to the specified base directory
// - Rust repositories: fd, ripgrep, alacritty
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing test repositories
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the averaged timings of one repository.
type BenchmarkResult struct {
	Repository string
	AnalyzeAvg string
	UpdateAvg  string
	TouchAvg   string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase  string
	Timeout   time.Duration
	Workers   int
	Runs      int
	TestRepos []string
	TouchFile map[string]string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoBase:  os.Args[1],
		Timeout:   5 * time.Minute,
		Workers:   14,
		Runs:      3,
		TestRepos: []string{"fd", "ripgrep", "alacritty"},
		TouchFile: map[string]string{
			"fd":        "src/main.rs",
			"ripgrep":   "crates/core/main.rs",
			"alacritty": "alacritty/src/main.rs",
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "pj-benchmark-*")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	results := runBenchmarks(config, workDir)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that pj binary and test repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("pj"); err != nil {
		return fmt.Errorf("pj binary not found in PATH")
	}

	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}

	return nil
}

// runBenchmarks executes all phases across configured repositories
func runBenchmarks(config BenchmarkConfig, workDir string) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d workers, %d runs per phase\n",
		len(config.TestRepos), config.Timeout, config.Workers, config.Runs)

	for _, repo := range config.TestRepos {
		fmt.Printf("Benchmarking %s\n", repo)
		repoPath := filepath.Join(config.RepoBase, repo)
		reportPath := filepath.Join(workDir, repo+".json")

		// Full analysis discards the previous report every time
		analyzeAvg := runPhase(config, "Analyze", func() []string {
			_ = os.Remove(reportPath)
			return runArgs(config, repoPath, workDir, repo, "analyze")
		})

		// No-op update against an unchanged tree
		updateAvg := runPhase(config, "Update", func() []string {
			return runArgs(config, repoPath, workDir, repo, "update")
		})

		// Update after rewriting one file in place
		touchAvg := "N/A"
		if rel, ok := config.TouchFile[repo]; ok {
			touchAvg = runPhase(config, "Touch", func() []string {
				touch(filepath.Join(repoPath, filepath.FromSlash(rel)))
				return runArgs(config, repoPath, workDir, repo, "update")
			})
		}

		fmt.Printf("  Analyze: %s, Update: %s, Touch: %s\n", analyzeAvg, updateAvg, touchAvg)
		results = append(results, BenchmarkResult{
			Repository: repo,
			AnalyzeAvg: analyzeAvg,
			UpdateAvg:  updateAvg,
			TouchAvg:   touchAvg,
		})
	}

	return results
}

func runArgs(config BenchmarkConfig, repoPath, workDir, repo, command string) []string {
	return []string{
		command, repoPath,
		"--skip-ai",
		"--cache-backend", "none",
		"--history-backend", "none",
		"--workers", fmt.Sprint(config.Workers),
		"--output", filepath.Join(workDir, repo+".json"),
		"--markdown-output", filepath.Join(workDir, repo+".md"),
	}
}

// runPhase runs prepared pj invocations and returns the average duration
func runPhase(config BenchmarkConfig, name string, prepare func() []string) string {
	fmt.Printf("  %s phase (%d runs)\n", name, config.Runs)
	var times []float64
	for run := 1; run <= config.Runs; run++ {
		args := prepare()
		start := time.Now()

		cmd := exec.Command("pj", args...)
		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		}
	}

	if len(times) == 0 {
		return "TIMEOUT"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return fmt.Sprintf("%.3fs", sum/float64(len(times)))
}

// touch rewrites a file with one extra trailing newline toggled, so its digest changes
func touch(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Warning: failed to read %s: %v\n", path, err)
		return
	}
	if strings.HasSuffix(string(data), "\n\n") {
		data = data[:len(data)-1]
	} else {
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("Warning: failed to write %s: %v\n", path, err)
	}
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Run completed in") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/pj_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"repo", "analyze_avg", "update_avg", "touch_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Repository, result.AnalyzeAvg, result.UpdateAvg, result.TouchAvg}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-12s: Analyze: %s, Update: %s, Touch: %s\n", result.Repository, result.AnalyzeAvg, result.UpdateAvg, result.TouchAvg)
	}
}
