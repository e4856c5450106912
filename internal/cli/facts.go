package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factstore/internal/engine"
	"github.com/roach88/factstore/internal/ir"
)

// FactsOptions holds flags shared by get, set, delete, and list.
type FactsOptions struct {
	*RootOptions
	Backend BackendOptions
	String  bool // set only: store the argument as a string
}

// FactView is the JSON form of one fact.
type FactView struct {
	Key   string   `json:"key"`
	Value ir.Value `json:"value"`
}

// ListResult is the payload of the list command.
type ListResult struct {
	Key    string     `json:"key"`
	Facts  []FactView `json:"facts"`
	Digest string     `json:"digest"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FactsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one persisted fact",
		Long: `Print the value of one persisted fact as a JSON literal.

Exits 1 when the key is absent.

Example:
  factstore get gold --db ./save.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacts(opts, cmd, func(f *OutputFormatter, e *engine.Engine) error {
				v, ok := e.Get(args[0])
				if !ok {
					return f.Fail(ExitFailure, ErrCodeKeyNotFound, fmt.Sprintf("fact %q not found", args[0]), nil)
				}
				return f.Success(FactView{Key: strings.TrimSpace(args[0]), Value: v}, displayValue(v))
			})
		},
	}
	addBackendFlags(cmd, &opts.Backend)
	return cmd
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FactsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store one fact",
		Long: `Store one fact and save the table.

The value is read as a JSON scalar (true, 42, "text"); anything that is
not a JSON scalar is stored as a string. Use --string to store "true" or
"42" as text.

Examples:
  factstore set gold 150 --db ./save.db
  factstore set hero Ann --badger ./save
  factstore set code 007 --string --db ./save.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacts(opts, cmd, func(f *OutputFormatter, e *engine.Engine) error {
				v := parseValue(args[1], opts.String)
				if err := e.Set(args[0], v); err != nil {
					return failMutation(f, err)
				}
				if err := e.Save(cmd.Context()); err != nil {
					return f.Fail(ExitCommandError, ErrCodeBackend, "failed to save facts", err)
				}
				key := strings.TrimSpace(args[0])
				return f.Success(FactView{Key: key, Value: v}, fmt.Sprintf("%s = %s", key, displayValue(v)))
			})
		},
	}
	addBackendFlags(cmd, &opts.Backend)
	cmd.Flags().BoolVarP(&opts.String, "string", "s", false, "store the value as a string")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FactsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove one fact",
		Long: `Remove one fact and save the table. Removing an absent key succeeds.

Example:
  factstore delete has_key --db ./save.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacts(opts, cmd, func(f *OutputFormatter, e *engine.Engine) error {
				if err := e.Delete(args[0]); err != nil {
					return failMutation(f, err)
				}
				if err := e.Save(cmd.Context()); err != nil {
					return f.Fail(ExitCommandError, ErrCodeBackend, "failed to save facts", err)
				}
				key := strings.TrimSpace(args[0])
				return f.Success(map[string]string{"deleted": key}, fmt.Sprintf("deleted %s", key))
			})
		},
	}
	addBackendFlags(cmd, &opts.Backend)
	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FactsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted facts",
		Long: `List every persisted fact in insertion order, followed by the
content digest of the table.

Example:
  factstore list --db ./save.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacts(opts, cmd, func(f *OutputFormatter, e *engine.Engine) error {
				digest, err := e.Digest()
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to digest facts", err)
				}

				result := ListResult{Key: opts.Backend.Key, Facts: []FactView{}, Digest: digest}
				var text strings.Builder
				for _, fact := range e.All() {
					result.Facts = append(result.Facts, FactView{Key: fact.Key, Value: fact.Value})
					fmt.Fprintf(&text, "%s = %s\n", fact.Key, displayValue(fact.Value))
				}
				if len(result.Facts) == 0 {
					text.WriteString("(no facts)\n")
				}
				fmt.Fprintf(&text, "digest %s", digest)
				return f.Success(result, text.String())
			})
		},
	}
	addBackendFlags(cmd, &opts.Backend)
	return cmd
}

// withFacts opens the backend, builds an engine over the persisted facts,
// and runs fn. Saving is explicit so backend errors reach the caller.
func withFacts(opts *FactsOptions, cmd *cobra.Command, fn func(*OutputFormatter, *engine.Engine) error) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	backend, err := opts.Backend.open(logger)
	if err != nil {
		return failLoad(formatter, err)
	}
	defer closeBackend(backend, logger)

	if err := checkReadable(cmd.Context(), backend, opts.Backend.Key, logger); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBackend, "failed to read facts", err)
	}

	e, err := engine.New(
		engine.WithLogger(logger),
		engine.WithPersistence(backend, opts.Backend.Key, false),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEngine, "failed to build engine", err)
	}
	return fn(formatter, e)
}

// checkReadable surfaces backend read errors, which engine construction
// only logs.
func checkReadable(ctx context.Context, backend closingBackend, key string, logger *slog.Logger) error {
	_, found, err := backend.Get(ctx, key)
	if err != nil {
		return err
	}
	logger.Debug("read persisted facts", "key", key, "found", found)
	return nil
}

// failMutation maps engine mutation errors to their ir error codes.
func failMutation(f *OutputFormatter, err error) error {
	var verr *ir.ValidationError
	if errors.As(err, &verr) {
		return f.Fail(ExitFailure, string(verr.Code), verr.Message, nil)
	}
	return f.Fail(ExitFailure, ErrCodeGeneric, "mutation failed", err)
}

// parseValue reads a command-line value as a JSON scalar, falling back to
// a string.
func parseValue(arg string, asString bool) ir.Value {
	if asString {
		return ir.String(arg)
	}
	if !json.Valid([]byte(arg)) {
		return ir.String(arg)
	}
	v, err := ir.UnmarshalValue([]byte(arg))
	if err != nil || v == nil {
		return ir.String(arg)
	}
	return v
}

// displayValue renders a value as a JSON literal.
func displayValue(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return strconv.Quote(string(val))
	case nil:
		return "null"
	default:
		return val.String()
	}
}
