package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/factstore/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Spec     string                     `json:"spec,omitempty"`
	Facts    int                        `json:"facts"`
	Computed int                        `json:"computed"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec>",
		Short: "Validate a fact spec",
		Long: `Compile and validate a CUE or YAML fact spec.

Reports every problem found: invalid fact keys and values, duplicate or
shadowing computed flags, unparseable conditions, and dependency cycles.

Exit codes:
  0 - Spec is valid
  1 - Spec has validation errors
  2 - Spec could not be read or compiled

Examples:
  factstore validate ./specs/quest.cue
  factstore validate ./specs/inventory.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	spec, errs, err := LoadSpec(path)
	if err != nil {
		return failLoad(formatter, err)
	}
	formatter.VerboseLog("Compiled spec %q: %d fact(s), %d computed", spec.Name, len(spec.Facts), len(spec.Computed))

	result := ValidationResult{
		Valid:    len(errs) == 0,
		Spec:     spec.Name,
		Facts:    len(spec.Facts),
		Computed: len(spec.Computed),
		Errors:   errs,
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, result)
	}

	return formatter.Success(result, fmt.Sprintf("✓ Spec %s valid (%d facts, %d computed)", spec.Name, result.Facts, result.Computed))
}

// outputValidationErrors outputs every validation error and returns the
// exit error for a failed validation.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	exitErr := reported(NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs))))

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}
