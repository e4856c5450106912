package engine

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/roach88/factstore/internal/condition"
	"github.com/roach88/factstore/internal/ir"
	"github.com/roach88/factstore/internal/store"
)

// DefaultMaxHistory is the default maximum undo depth.
const DefaultMaxHistory = 100

// AggregateKey is the key passed to global listeners for the single event
// that closes a batch, SetMany, or Clear.
const AggregateKey = "*"

// TxIDGenerator generates unique transaction IDs.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TxIDGenerator interface {
	Generate() string
}

// txState identifies the transaction currently being applied.
type txState struct {
	id  string
	seq int64
	op  string
}

// Engine is an in-memory typed fact store.
//
// Thread-safety: an Engine is NOT safe for concurrent use. All calls,
// including re-entrant calls from listeners and compute functions, must
// happen on one goroutine.
type Engine struct {
	table   *factTable
	graph   *computedGraph
	bus     *bus
	history *History // nil when history is disabled
	batch   batchState
	persist *persistence // nil when persistence is disabled

	clock  *Clock
	txGen  TxIDGenerator
	logger *slog.Logger
	tx     txState

	initial        []ir.Fact
	historyEnabled bool
	maxHistory     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithInitial seeds the table with facts before persisted data is loaded.
// Facts with nil values are skipped.
func WithInitial(facts ...ir.Fact) Option {
	return func(e *Engine) {
		e.initial = append(e.initial, facts...)
	}
}

// WithHistory enables undo/redo with DefaultMaxHistory entries.
func WithHistory() Option {
	return func(e *Engine) {
		e.historyEnabled = true
	}
}

// WithMaxHistory enables undo/redo bounded to max entries.
// Values below 1 fall back to DefaultMaxHistory.
func WithMaxHistory(max int) Option {
	return func(e *Engine) {
		e.historyEnabled = true
		if max > 0 {
			e.maxHistory = max
		}
	}
}

// WithPersistence saves the table to backend under key. With autoSave the
// table is saved after every top-level mutation and once per batch.
// Persisted data is loaded during New.
func WithPersistence(backend store.Backend, key string, autoSave bool) Option {
	return func(e *Engine) {
		e.persist = &persistence{backend: backend, key: key, autoSave: autoSave}
	}
}

// WithLogger sets the logger for swallowed failures and debug tracing.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTxIDGenerator sets the transaction ID generator.
// Default: UUIDv7Generator.
func WithTxIDGenerator(gen TxIDGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.txGen = gen
		}
	}
}

// WithClock sets the logical clock. Used to resume seq numbering.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New creates an Engine.
//
// Initial facts are validated and inserted without notifications or
// history. When persistence is configured, stored facts are then loaded
// over them; load failures are logged, never returned.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		table:      newFactTable(),
		graph:      newComputedGraph(),
		clock:      NewClock(),
		txGen:      UUIDv7Generator{},
		logger:     slog.Default(),
		maxHistory: DefaultMaxHistory,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.bus = newBus(e.listenerPanicked)
	if e.historyEnabled {
		e.history = newHistory(e, e.maxHistory)
	}

	for _, f := range e.initial {
		if f.Value == nil {
			continue
		}
		key, err := ir.NormalizeKey(f.Key)
		if err != nil {
			return nil, fmt.Errorf("initial fact: %w", err)
		}
		if err := ir.ValidateValue(key, f.Value); err != nil {
			return nil, fmt.Errorf("initial fact: %w", err)
		}
		e.table.set(key, f.Value)
	}
	e.initial = nil

	if e.persist != nil {
		if e.persist.key == "" {
			return nil, fmt.Errorf("persistence key cannot be empty")
		}
		if e.persist.backend == nil {
			return nil, fmt.Errorf("persistence backend cannot be nil")
		}
		e.loadInitial()
	}

	return e, nil
}

// Get returns the value stored under key. Invalid keys are reported absent.
func (e *Engine) Get(key string) (ir.Value, bool) {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return nil, false
	}
	return e.table.get(k)
}

// Has reports whether key is present.
func (e *Engine) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// All returns every fact, computed ones included, in insertion order.
func (e *Engine) All() []ir.Fact {
	return e.table.facts()
}

// Keys returns every key in insertion order.
func (e *Engine) Keys() []string {
	return e.table.keyList()
}

// Len returns the number of facts.
func (e *Engine) Len() int {
	return e.table.len()
}

// IsComputed reports whether key is a registered computed fact.
func (e *Engine) IsComputed(key string) bool {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return false
	}
	return e.graph.has(k)
}

// History returns the undo/redo manager, or nil when history is disabled.
func (e *Engine) History() *History {
	return e.history
}

// Seq returns the seq of the most recent transaction.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

// Digest returns the content hash of the current table.
func (e *Engine) Digest() (string, error) {
	return ir.Digest(e.table.facts())
}

// Check evaluates condition against the current table.
//
// Conditions longer than ir.MaxConditionLength characters are rejected
// before parsing. Every call re-tokenizes and re-evaluates; nothing is
// cached.
func (e *Engine) Check(cond string) (bool, error) {
	if err := checkConditionLength(cond); err != nil {
		checksTotal.WithLabelValues("error").Inc()
		return false, err
	}

	result, err := condition.Evaluate(cond, e.table.get)
	if err != nil {
		checksTotal.WithLabelValues("error").Inc()
		return false, err
	}
	checksTotal.WithLabelValues(fmt.Sprint(result)).Inc()
	return result, nil
}

// checkConditionLength counts runes, like token positions do.
func checkConditionLength(cond string) error {
	if utf8.RuneCountInString(cond) > ir.MaxConditionLength {
		return &condition.SyntaxError{
			Code:    condition.ErrCodeTooLong,
			Message: fmt.Sprintf("condition exceeds maximum length of %d characters", ir.MaxConditionLength),
		}
	}
	return nil
}

// Subscribe registers fn for every change. The returned function removes
// the registration; calling it more than once is a no-op.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	return e.bus.subscribe(fn)
}

// SubscribeKey registers fn for changes to key.
func (e *Engine) SubscribeKey(key string, fn KeyListener) (unsubscribe func(), err error) {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	return e.bus.subscribeKey(k, fn), nil
}

// beginTx opens a transaction and returns a func restoring the previous one.
func (e *Engine) beginTx(op string) (end func()) {
	prev := e.tx
	e.tx = txState{id: e.txGen.Generate(), seq: e.clock.Next(), op: op}
	e.logger.Debug("transaction started", "tx", e.tx.id, "seq", e.tx.seq, "op", op)
	return func() { e.tx = prev }
}

// emit delivers a change now, or queues it while a batch is open.
func (e *Engine) emit(key string, newValue, oldValue ir.Value) {
	if e.batch.active() {
		e.batch.enqueue(key, newValue, oldValue)
		return
	}
	e.bus.publish(key, newValue, oldValue)
}

func (e *Engine) listenerPanicked(key string, r any) {
	e.logger.Error("change listener panicked",
		"key", key,
		"tx", e.tx.id,
		"panic", fmt.Sprint(r),
	)
}
