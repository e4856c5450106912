package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/factstore/internal/compiler"
	"github.com/roach88/factstore/internal/ir"
	"github.com/roach88/factstore/internal/store"
)

// CLI error codes (E001-E099). Spec validation codes (E100+) come from
// the compiler package; mutation errors use their ir error codes.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeLoadFailed       = "E004" // Spec could not be read or compiled
	ErrCodeNotFound         = "E005" // Path not found
	ErrCodeBackend          = "E008" // Backend open/read/write failure
	ErrCodeInvalidArgs      = "E009" // Conflicting or missing flags
	ErrCodeEngine           = "E010" // Engine could not be built
	ErrCodeKeyNotFound      = "E011" // Fact key absent
	ErrCodeInvalidCondition = "E012" // Condition failed to parse
	ErrCodeTestFailed       = "E020" // One or more scenarios failed
)

// DefaultBlobKey is the backend key facts are stored under when --key is
// not given.
const DefaultBlobKey = "facts"

// LoadError represents an error that occurred while loading a spec.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadSpec reads, compiles, and validates a spec file.
// A LoadError is returned when the file cannot be read or compiled;
// validation problems are returned separately so callers can report all
// of them.
func LoadSpec(path string) (*ir.FactSpec, []compiler.ValidationError, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec file not found: %s", path)}
	}
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: "error accessing spec file", Err: err}
	}
	if info.IsDir() {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	spec, err := compiler.LoadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeLoadFailed, Message: "failed to compile spec", Err: err}
	}
	return spec, compiler.Validate(spec), nil
}

// BackendOptions selects the persistence backend for a command.
type BackendOptions struct {
	Database  string // SQLite file
	BadgerDir string // Badger directory
	Key       string // blob key
}

// addBackendFlags registers --db, --badger, and --key on cmd.
func addBackendFlags(cmd *cobra.Command, o *BackendOptions) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&o.BadgerDir, "badger", "", "path to Badger directory")
	cmd.Flags().StringVar(&o.Key, "key", DefaultBlobKey, "backend key the facts are stored under")
}

// closingBackend is a Backend that owns resources.
type closingBackend interface {
	store.Backend
	io.Closer
}

// configured reports whether either backend flag was given.
func (o *BackendOptions) configured() bool {
	return o.Database != "" || o.BadgerDir != ""
}

// open opens the selected backend. The caller must Close it.
func (o *BackendOptions) open(logger *slog.Logger) (closingBackend, error) {
	switch {
	case o.Database != "" && o.BadgerDir != "":
		return nil, &LoadError{Code: ErrCodeInvalidArgs, Message: "--db and --badger are mutually exclusive"}
	case o.Database != "":
		logger.Debug("opening sqlite backend", "path", o.Database)
		db, err := store.OpenSQLite(o.Database)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBackend, Message: "failed to open database", Err: err}
		}
		return db, nil
	case o.BadgerDir != "":
		logger.Debug("opening badger backend", "path", o.BadgerDir)
		db, err := store.OpenBadger(store.BadgerConfig{Path: o.BadgerDir, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBackend, Message: "failed to open badger directory", Err: err}
		}
		return db, nil
	default:
		return nil, &LoadError{Code: ErrCodeInvalidArgs, Message: "one of --db or --badger is required"}
	}
}

// closeBackend closes b and logs any failure.
func closeBackend(b io.Closer, logger *slog.Logger) {
	if err := b.Close(); err != nil {
		logger.Error("error closing backend", "error", err)
	}
}

// failLoad reports a LoadError (or any other error) through the formatter.
func failLoad(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, loadErr.Err)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, "command failed", err)
}
