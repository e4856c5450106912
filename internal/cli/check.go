package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/factstore/internal/engine"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Backend BackendOptions
}

// CheckResult is the payload of a successful check.
type CheckResult struct {
	Condition string `json:"condition"`
	Result    bool   `json:"result"`
	Digest    string `json:"digest"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <spec> <condition>",
		Short: "Evaluate a condition against a spec",
		Long: `Build a fact store from a spec and evaluate a condition against it.

With --db or --badger, facts persisted under --key (or the spec's
persistence key) are loaded over the spec's initial facts first.

Exit codes:
  0 - Condition is true
  1 - Condition is false, or the spec is invalid
  2 - Condition does not parse, or the spec or backend cannot be opened

Examples:
  factstore check ./specs/quest.cue "gold >= 100 AND NOT has_key"
  factstore check ./specs/quest.cue can_enter --db ./save.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], args[1], cmd)
		},
	}

	addBackendFlags(cmd, &opts.Backend)

	return cmd
}

func runCheck(opts *CheckOptions, specPath, cond string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	spec, errs, err := LoadSpec(specPath)
	if err != nil {
		return failLoad(formatter, err)
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{
			Spec:     spec.Name,
			Facts:    len(spec.Facts),
			Computed: len(spec.Computed),
			Errors:   errs,
		})
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Backend.configured() {
		backend, err := opts.Backend.open(logger)
		if err != nil {
			return failLoad(formatter, err)
		}
		defer closeBackend(backend, logger)

		key := opts.Backend.Key
		if spec.Persistence != nil && !cmd.Flags().Changed("key") {
			key = spec.Persistence.Key
		}
		formatter.VerboseLog("Loading persisted facts from key %q", key)
		engineOpts = append(engineOpts, engine.WithPersistence(backend, key, false))
	}

	e, err := engine.FromSpec(spec, nil, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEngine, "failed to build engine", err)
	}

	result, err := e.Check(cond)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidCondition, "invalid condition", err)
	}
	digest, err := e.Digest()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to digest facts", err)
	}
	formatter.VerboseLog("Evaluated %q over %d fact(s), digest %s", cond, len(e.Keys()), digest)

	if err := formatter.Success(CheckResult{Condition: cond, Result: result, Digest: digest}, strconv.FormatBool(result)); err != nil {
		return err
	}
	if !result {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("condition %q is false", cond)))
	}
	return nil
}
