package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/factstore/internal/ir"
)

// CompileSpec parses a CUE value into a FactSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the spec struct itself:
//
//	name: "dungeon"
//	facts: {gold: 100, has_key: false}
//	computed: {rich: "gold >= 1000"}
//	history: {enabled: true, max: 50}
//	persistence: {key: "facts", auto_save: true}
//
// Facts and computed entries keep their declaration order.
func CompileSpec(v cue.Value) (*ir.FactSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.FactSpec{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}

	var err error
	spec.Facts, err = parseFacts(v)
	if err != nil {
		return nil, err
	}

	spec.Computed, err = parseComputed(v)
	if err != nil {
		return nil, err
	}

	if histVal := v.LookupPath(cue.ParsePath("history")); histVal.Exists() {
		spec.History, err = parseHistory(histVal)
		if err != nil {
			return nil, err
		}
	}

	if persistVal := v.LookupPath(cue.ParsePath("persistence")); persistVal.Exists() {
		spec.Persistence, err = parsePersistence(persistVal)
		if err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// CompileSpecSource compiles CUE source text. filename is used for error
// positions and, when the source declares no name, as the spec name.
func CompileSpecSource(src []byte, filename string) (*ir.FactSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	spec, err := CompileSpec(v)
	if err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = specNameFromFile(filename)
	}
	return spec, nil
}

func specNameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseFacts extracts initial facts in declaration order.
func parseFacts(v cue.Value) ([]ir.Fact, error) {
	factsVal := v.LookupPath(cue.ParsePath("facts"))
	if !factsVal.Exists() {
		return nil, nil
	}

	iter, err := factsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var facts []ir.Fact
	for iter.Next() {
		key := iter.Label()
		val, err := cueToValue(iter.Value())
		if err != nil {
			return nil, &CompileError{
				Field:   "facts." + key,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		facts = append(facts, ir.Fact{Key: key, Value: val})
	}
	return facts, nil
}

// cueToValue converts a concrete CUE scalar to a Value. null maps to nil.
func cueToValue(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return ir.Bool(b), nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return ir.Number(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return ir.String(s), nil
	case cue.BottomKind:
		return nil, fmt.Errorf("value must be concrete")
	default:
		return nil, fmt.Errorf("unsupported value kind %s: facts must be bool, number, or string", v.Kind())
	}
}

// parseComputed extracts condition-backed computed facts.
func parseComputed(v cue.Value) ([]ir.ComputedSpec, error) {
	compVal := v.LookupPath(cue.ParsePath("computed"))
	if !compVal.Exists() {
		return nil, nil
	}

	iter, err := compVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var computed []ir.ComputedSpec
	for iter.Next() {
		key := iter.Label()
		cond, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "computed." + key,
				Message: "condition must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		computed = append(computed, ir.ComputedSpec{Key: key, Condition: cond})
	}
	return computed, nil
}

func parseHistory(v cue.Value) (ir.HistorySpec, error) {
	var h ir.HistorySpec

	// Shorthand: history: true
	if b, err := v.Bool(); err == nil {
		h.Enabled = b
		return h, nil
	}

	if enabledVal := v.LookupPath(cue.ParsePath("enabled")); enabledVal.Exists() {
		b, err := enabledVal.Bool()
		if err != nil {
			return h, formatCUEError(err)
		}
		h.Enabled = b
	} else {
		h.Enabled = true
	}

	if maxVal := v.LookupPath(cue.ParsePath("max")); maxVal.Exists() {
		n, err := maxVal.Int64()
		if err != nil {
			return h, &CompileError{Field: "history.max", Message: "must be an integer", Pos: maxVal.Pos()}
		}
		h.Max = int(n)
	}
	return h, nil
}

func parsePersistence(v cue.Value) (*ir.PersistenceSpec, error) {
	p := &ir.PersistenceSpec{}

	keyVal := v.LookupPath(cue.ParsePath("key"))
	if !keyVal.Exists() {
		return nil, &CompileError{Field: "persistence.key", Message: "key is required", Pos: v.Pos()}
	}
	key, err := keyVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	p.Key = key

	if autoVal := v.LookupPath(cue.ParsePath("auto_save")); autoVal.Exists() {
		b, err := autoVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.AutoSave = b
	}
	return p, nil
}

// CompileError reports a spec that cannot be compiled, with its CUE
// source position when known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
