package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// blobPrefix namespaces fact blobs inside a shared Badger instance.
const blobPrefix = "factstore/blob/"

// BadgerConfig holds configuration for a Badger backend.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// Badger is a Backend over an embedded BadgerDB instance.
//
// Thread-safety: Badger is safe for concurrent use.
type Badger struct {
	db *badger.DB
}

var _ Backend = (*Badger)(nil)

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens a Badger backend with the given configuration.
// The directory is created if it does not exist.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

// OpenBadgerInMemory opens an in-memory Badger backend. Data is lost on Close.
func OpenBadgerInMemory() (*Badger, error) {
	return OpenBadger(BadgerConfig{InMemory: true})
}

// Close closes the database. Safe to call more than once.
func (b *Badger) Close() error {
	if b.db == nil || b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

// Get implements Backend.
func (b *Badger) Get(ctx context.Context, key string) (string, bool, error) {
	if err := b.usable(ctx); err != nil {
		return "", false, err
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read blob %q: %w", key, err)
	}
	return string(value), true, nil
}

// Set implements Backend.
func (b *Badger) Set(ctx context.Context, key, value string) error {
	if err := b.usable(ctx); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blobPrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return nil
}

// Remove implements Backend.
func (b *Badger) Remove(ctx context.Context, key string) error {
	if err := b.usable(ctx); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(blobPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("remove blob %q: %w", key, err)
	}
	return nil
}

func (b *Badger) usable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db == nil || b.db.IsClosed() {
		return ErrClosed
	}
	return nil
}
