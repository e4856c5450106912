package engine

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/roach88/factstore/internal/compiler"
	"github.com/roach88/factstore/internal/condition"
	"github.com/roach88/factstore/internal/ir"
)

// ComputeFunc derives a computed value from its dependency values, given in
// dependency order. Absent dependencies are nil.
//
// A returned error (or a panic) is logged and the computed fact keeps its
// previous value.
type ComputeFunc func(values []ir.Value) (ir.Value, error)

type computedDef struct {
	key  string
	deps []string
	fn   ComputeFunc
}

// computedGraph holds computed definitions and the reverse dependency index.
type computedGraph struct {
	defs       map[string]*computedDef
	order      []string            // registration order
	dependents map[string][]string // dep -> computed keys, registration order
}

func newComputedGraph() *computedGraph {
	return &computedGraph{
		defs:       make(map[string]*computedDef),
		dependents: make(map[string][]string),
	}
}

func (g *computedGraph) has(key string) bool {
	_, ok := g.defs[key]
	return ok
}

func (g *computedGraph) add(def *computedDef) {
	g.defs[def.key] = def
	g.order = append(g.order, def.key)
	for _, d := range def.deps {
		if !slices.Contains(g.dependents[d], def.key) {
			g.dependents[d] = append(g.dependents[d], def.key)
		}
	}
}

// clone copies the graph. Definitions are immutable and shared.
func (g *computedGraph) clone() *computedGraph {
	c := &computedGraph{
		defs:       maps.Clone(g.defs),
		order:      slices.Clone(g.order),
		dependents: make(map[string][]string, len(g.dependents)),
	}
	for dep, keys := range g.dependents {
		c.dependents[dep] = slices.Clone(keys)
	}
	return c
}

// edges returns computed key -> deps for cycle analysis.
func (g *computedGraph) edges() map[string][]string {
	out := make(map[string][]string, len(g.defs))
	for k, def := range g.defs {
		out[k] = slices.Clone(def.deps)
	}
	return out
}

// affected returns every computed key transitively depending on key, in
// an order where dependencies come before dependents.
func (g *computedGraph) affected(key string) []string {
	var post []string
	visited := make(map[string]bool)
	var visit func(string)
	visit = func(k string) {
		for _, d := range g.dependents[k] {
			if visited[d] {
				continue
			}
			visited[d] = true
			visit(d)
			post = append(post, d)
		}
	}
	visit(key)
	slices.Reverse(post)
	return post
}

// topoOrder returns all computed keys, dependencies first.
func (g *computedGraph) topoOrder() []string {
	var order []string
	visited := make(map[string]bool)
	var visit func(string)
	visit = func(k string) {
		if visited[k] {
			return
		}
		visited[k] = true
		for _, d := range g.defs[k].deps {
			if g.has(d) {
				visit(d)
			}
		}
		order = append(order, k)
	}
	for _, k := range g.order {
		visit(k)
	}
	return order
}

// Computed registers key as a read-only fact derived from deps by fn, and
// computes it once immediately.
//
// Registration fails, leaving the graph unchanged, when key is already
// computed, when key appears in deps, or when the new edges would close a
// dependency cycle of any length. A registration made inside a batch that
// rolls back is discarded along with the batch.
func (e *Engine) Computed(key string, deps []string, fn ComputeFunc) error {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return err
	}
	if fn == nil {
		return ir.NewValidationError(ir.ErrCodeInvalidValue, k, "compute function cannot be nil")
	}
	if e.graph.has(k) {
		return ir.NewValidationError(ir.ErrCodeDuplicateComputed, k, "computed flag already registered")
	}

	normalized := make([]string, 0, len(deps))
	for _, d := range deps {
		nd, err := ir.NormalizeKey(d)
		if err != nil {
			return fmt.Errorf("dependency of %q: %w", k, err)
		}
		if nd == k {
			return ir.NewValidationError(ir.ErrCodeCycleDetected, k, "computed flag cannot depend on itself")
		}
		normalized = append(normalized, nd)
	}

	candidate := e.graph.edges()
	candidate[k] = normalized
	if cycles := compiler.DetectCycles(candidate); len(cycles) > 0 {
		return ir.NewValidationError(ir.ErrCodeCycleDetected, k,
			"circular dependency: "+strings.Join(cycles[0], " -> "))
	}

	e.graph.add(&computedDef{key: k, deps: normalized, fn: fn})
	e.logger.Debug("computed flag registered", "key", k, "deps", normalized)

	e.recompute(k)
	e.recomputeDependents(k)
	return nil
}

// ComputedCondition registers key as the boolean result of cond. The
// dependencies are the identifiers cond references.
func (e *Engine) ComputedCondition(key, cond string) error {
	deps, fn, err := ConditionFunc(cond)
	if err != nil {
		return fmt.Errorf("computed %q: %w", key, err)
	}
	return e.Computed(key, deps, fn)
}

// ConditionFunc compiles cond into a dependency list and a ComputeFunc that
// evaluates it over those dependencies.
func ConditionFunc(cond string) ([]string, ComputeFunc, error) {
	if err := checkConditionLength(cond); err != nil {
		return nil, nil, err
	}
	if err := condition.Validate(cond); err != nil {
		return nil, nil, err
	}
	deps, err := condition.Identifiers(cond)
	if err != nil {
		return nil, nil, err
	}

	index := make(map[string]int, len(deps))
	for i, d := range deps {
		index[d] = i
	}
	fn := func(values []ir.Value) (ir.Value, error) {
		lookup := func(key string) (ir.Value, bool) {
			i, ok := index[key]
			if !ok || i >= len(values) || values[i] == nil {
				return nil, false
			}
			return values[i], true
		}
		result, err := condition.Evaluate(cond, lookup)
		if err != nil {
			return nil, err
		}
		return ir.Bool(result), nil
	}
	return deps, fn, nil
}

// recomputeDependents recomputes every computed fact downstream of key.
func (e *Engine) recomputeDependents(key string) {
	for _, k := range e.graph.affected(key) {
		e.recompute(k)
	}
}

// recomputeAll recomputes every computed fact, dependencies first.
func (e *Engine) recomputeAll() {
	for _, k := range e.graph.topoOrder() {
		e.recompute(k)
	}
}

// recompute evaluates one computed fact, storing and emitting the result
// only when it differs from the stored value.
func (e *Engine) recompute(key string) {
	def := e.graph.defs[key]
	values := make([]ir.Value, len(def.deps))
	for i, d := range def.deps {
		values[i], _ = e.table.get(d)
	}

	next, err := callCompute(def.fn, values)
	if err == nil {
		next = clampComputed(next)
		err = ir.ValidateValue(key, next)
	}
	if err != nil {
		computeFailuresTotal.Inc()
		e.logger.Error("computed flag evaluation failed",
			"key", key,
			"tx", e.tx.id,
			"error", err,
		)
		return
	}

	old, ok := e.table.get(key)
	if ok && ir.Equal(old, next) {
		return
	}
	e.table.set(key, next)
	e.logger.Debug("computed flag updated", "key", key, "value", next.String())
	e.emit(key, next, old)
}

func callCompute(fn ComputeFunc, values []ir.Value) (v ir.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("compute function panicked: %v", r)
		}
	}()
	v, err = fn(values)
	if err == nil && v == nil {
		err = errors.New("compute function returned no value")
	}
	return v, err
}

// clampComputed maps NaN to 0 and infinities to the largest finite values.
func clampComputed(v ir.Value) ir.Value {
	n, ok := v.(ir.Number)
	if !ok {
		return v
	}
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return ir.Number(0)
	case math.IsInf(f, 1):
		return ir.Number(math.MaxFloat64)
	case math.IsInf(f, -1):
		return ir.Number(-math.MaxFloat64)
	}
	return v
}
