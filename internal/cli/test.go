package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factstore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob on the file stem)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file|dir>",
		Short: "Run scenario files",
		Long: `Run YAML scenarios against fresh fact stores.

Each scenario names an optional spec, a list of steps, and assertions on
the final facts and the events delivered along the way. Directories are
searched recursively for .yaml and .yml files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad filter)

Examples:
  factstore test ./scenarios
  factstore test ./scenarios --filter "quest*"
  factstore test ./scenarios/unlock.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	paths, err := harness.FindScenarios(path)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
	}

	paths, err = filterScenarios(paths, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs, "invalid filter pattern", err)
	}
	formatter.VerboseLog("Running %d scenario file(s) from %s", len(paths), path)

	if len(paths) == 0 {
		return formatter.Success(&harness.SuiteResult{}, "No scenarios found.")
	}

	result := harness.RunSuite(paths, opts.Logger(cmd.ErrOrStderr()))

	if formatter.JSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// filterScenarios keeps paths whose file stem matches the glob pattern.
func filterScenarios(paths []string, pattern string) ([]string, error) {
	if pattern == "" {
		return paths, nil
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}

	var kept []string
	for _, p := range paths {
		base := filepath.Base(p)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if ok, _ := filepath.Match(pattern, name); ok {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func outputTestJSON(formatter *OutputFormatter, result *harness.SuiteResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := formatter.encode(resp); err != nil {
		return err
	}

	if result.Failed > 0 {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed)))
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result *harness.SuiteResult) error {
	w := formatter.Writer

	for _, f := range result.Failures {
		name := f.Scenario
		if name == "" {
			name = filepath.Base(f.Path)
		}
		fmt.Fprintf(w, "✗ %s (%s)\n", name, f.Path)
		for _, e := range f.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed)))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
