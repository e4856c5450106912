package engine

import (
	"github.com/roach88/factstore/internal/ir"
)

// pendingEvent is the net change of one key within a batch.
type pendingEvent struct {
	oldValue ir.Value // value before the first change
	newValue ir.Value // value after the last change
}

// batchState exists while at least one Batch call is on the stack.
type batchState struct {
	depth    int
	snapshot *factTable  // table at outermost entry, for rollback
	graph    *computedGraph
	mark     historyMark // history at outermost entry, for rollback
	order    []string
	pending  map[string]*pendingEvent
	endTx    func()
}

func (b *batchState) active() bool {
	return b.depth > 0
}

func (b *batchState) enqueue(key string, newValue, oldValue ir.Value) {
	if p, ok := b.pending[key]; ok {
		p.newValue = newValue
		return
	}
	b.pending[key] = &pendingEvent{oldValue: oldValue, newValue: newValue}
	b.order = append(b.order, key)
}

// Batch runs fn with change delivery deferred until the outermost Batch
// returns.
//
// Nested calls flatten into the outermost one. On success each changed key
// is delivered once to its key listeners (first old value, final new
// value; keys with no net change are skipped), then global listeners get
// one AggregateKey event, then the table is auto-saved. The aggregate
// event fires even when no key changed.
//
// If fn returns an error or panics and the failure escapes the outermost
// Batch, the table, computed definitions and history are restored to their
// state at entry, no events fire, and the error is returned unmodified (a
// panic continues with its original value).
//
// One history entry is recorded per outermost batch.
func (e *Engine) Batch(fn func() error) (err error) {
	if !e.batch.active() {
		e.beginBatch()
	}
	e.batch.depth++

	completed := false
	defer func() {
		e.batch.depth--
		if e.batch.active() {
			return
		}
		if !completed || err != nil {
			e.rollbackBatch(err)
			return
		}
		e.commitBatch()
	}()

	err = fn()
	completed = true
	return err
}

func (e *Engine) beginBatch() {
	e.batch.endTx = e.beginTx("batch")
	e.batch.snapshot = e.table.clone()
	e.batch.graph = e.graph.clone()
	e.batch.pending = make(map[string]*pendingEvent)
	e.batch.order = nil
	if e.history != nil {
		e.batch.mark = e.history.mark()
		e.history.record()
	}
}

// rollbackBatch restores the entry snapshot silently.
func (e *Engine) rollbackBatch(cause error) {
	e.table = e.batch.snapshot
	e.graph = e.batch.graph
	if e.history != nil {
		e.history.reset(e.batch.mark)
	}
	batchRollbacksTotal.Inc()
	if cause != nil {
		e.logger.Warn("batch rolled back", "tx", e.tx.id, "error", cause)
	} else {
		e.logger.Warn("batch rolled back after panic", "tx", e.tx.id)
	}
	e.finishBatch()
}

// commitBatch delivers the queued net changes.
func (e *Engine) commitBatch() {
	order, pending := e.batch.order, e.batch.pending
	endTx := e.batch.endTx
	e.batch.snapshot = nil
	e.batch.graph = nil
	e.batch.mark = historyMark{}
	e.batch.order = nil
	e.batch.pending = nil
	e.batch.endTx = nil
	defer endTx()

	changed := 0
	for _, key := range order {
		p := pending[key]
		if ir.Equal(p.oldValue, p.newValue) {
			continue
		}
		changed++
		e.bus.publishKey(key, p.newValue, p.oldValue)
	}
	e.logger.Debug("batch committed", "tx", e.tx.id, "changed", changed)

	e.bus.publishGlobal(AggregateKey, nil, nil)
	e.autoSave()
}

func (e *Engine) finishBatch() {
	endTx := e.batch.endTx
	e.batch = batchState{}
	if endTx != nil {
		endTx()
	}
}
