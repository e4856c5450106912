package harness

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// SuiteResult summarizes a run over several scenario files.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one scenario that could not be loaded, could not run,
// or failed its expectations.
type ScenarioFailure struct {
	Scenario string   `json:"scenario,omitempty"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// FindScenarios returns path itself when it is a file, or every .yaml and
// .yml file below it in lexical order when it is a directory.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var paths []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	return paths, nil
}

// RunSuite loads and runs every scenario file in paths. Load and setup
// failures count as failed scenarios rather than aborting the suite.
func RunSuite(paths []string, logger *slog.Logger) *SuiteResult {
	result := &SuiteResult{}

	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(ScenarioFailure{
				Path:   path,
				Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
			})
			continue
		}

		run, err := RunWithLogger(scenario, logger)
		if err != nil {
			result.fail(ScenarioFailure{
				Scenario: scenario.Name,
				Path:     path,
				Errors:   []string{fmt.Sprintf("scenario execution failed: %v", err)},
			})
			continue
		}

		if !run.Pass {
			result.fail(ScenarioFailure{Scenario: scenario.Name, Path: path, Errors: run.Errors})
			continue
		}

		logger.Info("scenario passed", "scenario", scenario.Name, "events", len(run.Trace))
		result.Passed++
	}
	return result
}

func (r *SuiteResult) fail(f ScenarioFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}
