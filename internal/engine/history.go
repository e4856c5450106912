package engine

import (
	"slices"
)

// historyEntry is a full table snapshot and the transaction that pushed it.
type historyEntry struct {
	tx    string
	seq   int64
	table *factTable
}

// historyMark captures both stacks so a rolled-back batch can undo its push.
type historyMark struct {
	undo []historyEntry
	redo []historyEntry
}

// History is the bounded undo/redo manager of an Engine.
//
// Every top-level mutation and every outermost batch pushes the table as it
// was before the change, and clears the redo stack. When the undo stack
// exceeds its maximum the oldest entry is dropped.
type History struct {
	e    *Engine
	undo []historyEntry
	redo []historyEntry
	max  int
}

func newHistory(e *Engine, max int) *History {
	return &History{e: e, max: max}
}

// record pushes the current table onto the undo stack.
func (h *History) record() {
	h.undo = append(h.undo, historyEntry{
		tx:    h.e.tx.id,
		seq:   h.e.tx.seq,
		table: h.e.table.clone(),
	})
	if over := len(h.undo) - h.max; over > 0 {
		h.undo = slices.Delete(h.undo, 0, over)
	}
	h.redo = nil
}

func (h *History) mark() historyMark {
	return historyMark{undo: slices.Clone(h.undo), redo: slices.Clone(h.redo)}
}

func (h *History) reset(m historyMark) {
	h.undo = m.undo
	h.redo = m.redo
}

// Undo restores the state before the most recent mutation or batch.
// Returns false, changing nothing, when there is nothing to undo or a
// batch is open.
//
// Restoration emits a change event for every key that differs, then
// recomputes all computed facts.
func (h *History) Undo() bool {
	if len(h.undo) == 0 || h.e.batch.active() {
		return false
	}
	end := h.e.beginTx("undo")
	defer end()

	target := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, historyEntry{tx: h.e.tx.id, seq: h.e.tx.seq, table: h.e.table.clone()})

	mutationsTotal.WithLabelValues("undo").Inc()
	h.e.logger.Debug("undo", "tx", h.e.tx.id, "restored_tx", target.tx)
	h.e.restore(target.table)
	h.e.autoSave()
	return true
}

// Redo re-applies the most recently undone state.
// Returns false, changing nothing, when there is nothing to redo or a
// batch is open.
func (h *History) Redo() bool {
	if len(h.redo) == 0 || h.e.batch.active() {
		return false
	}
	end := h.e.beginTx("redo")
	defer end()

	target := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, historyEntry{tx: h.e.tx.id, seq: h.e.tx.seq, table: h.e.table.clone()})

	mutationsTotal.WithLabelValues("redo").Inc()
	h.e.logger.Debug("redo", "tx", h.e.tx.id, "restored_tx", target.tx)
	h.e.restore(target.table)
	h.e.autoSave()
	return true
}

// Clear empties both stacks without touching the table.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// CanUndo reports whether Undo would restore a state.
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether Redo would restore a state.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Len returns the undo and redo stack depths.
func (h *History) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Max returns the maximum undo depth.
func (h *History) Max() int {
	return h.max
}

// restore replaces the table with target, emitting one event per differing
// key, then recomputes every computed fact.
func (e *Engine) restore(target *factTable) {
	before := e.table
	e.table = target.clone()
	for _, c := range diffTables(before, e.table) {
		e.emit(c.key, c.newValue, c.oldValue)
	}
	e.recomputeAll()
}
