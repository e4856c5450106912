package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factstore/internal/ir"
	"github.com/roach88/factstore/internal/store"
)

const saveKey = "game.facts"

func TestSaveLoad_RoundTripPreservesTypes(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()

	src := newTestEngine(t, WithPersistence(backend, saveKey, false))
	require.NoError(t, src.SetMany(
		ir.F("flag", ir.Bool(true)),
		ir.F("n", ir.Number(3.14)),
		ir.F("s", ir.String("")),
	))
	require.NoError(t, src.Save(ctx))

	raw, ok, err := backend.Get(ctx, saveKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"flag":true,"n":3.14,"s":""}`, raw)

	dst := newTestEngine(t, WithPersistence(backend, saveKey, false))
	assert.Equal(t, src.All(), dst.All())
}

func TestSaveLoad_AcrossBackends(t *testing.T) {
	ctx := context.Background()

	sqlite, err := store.OpenSQLite(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	bdg, err := store.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { bdg.Close() })

	for name, backend := range map[string]store.Backend{"sqlite": sqlite, "badger": bdg} {
		t.Run(name, func(t *testing.T) {
			src := newTestEngine(t, WithPersistence(backend, saveKey, false))
			require.NoError(t, src.Set("hero", ir.String("Ann")))
			require.NoError(t, src.Set("gold", ir.Number(-12.5)))
			require.NoError(t, src.Save(ctx))

			dst := newTestEngine(t, WithPersistence(backend, saveKey, false))
			assert.Equal(t, []ir.Fact{
				ir.F("hero", ir.String("Ann")),
				ir.F("gold", ir.Number(-12.5)),
			}, dst.All())
		})
	}
}

func TestPersistence_Disabled(t *testing.T) {
	e := newTestEngine(t)
	assert.ErrorIs(t, e.Save(context.Background()), ErrPersistenceDisabled)
	assert.ErrorIs(t, e.Load(context.Background()), ErrPersistenceDisabled)
}

func TestAutoSave(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	e := newTestEngine(t, WithPersistence(backend, saveKey, true))

	require.NoError(t, e.Set("a", ir.Number(1)))
	raw, ok, err := backend.Get(ctx, saveKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, raw)

	require.NoError(t, e.Batch(func() error {
		_ = e.Set("b", ir.Bool(false))
		raw, _, _ := backend.Get(ctx, saveKey)
		assert.Equal(t, `{"a":1}`, raw, "no save while a batch is open")
		return nil
	}))
	raw, _, _ = backend.Get(ctx, saveKey)
	assert.Equal(t, `{"a":1,"b":false}`, raw)
}

func TestAutoSave_RolledBackBatchDoesNotSave(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	e := newTestEngine(t, WithPersistence(backend, saveKey, true))

	_ = e.Batch(func() error {
		_ = e.Set("a", ir.Number(1))
		return errors.New("abort")
	})

	_, ok, err := backend.Get(ctx, saveKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingBackend struct {
	store.Backend
	err error
}

func (f failingBackend) Set(context.Context, string, string) error { return f.err }

func (f failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, f.err
}

func TestSave_BackendErrorReturned(t *testing.T) {
	boom := errors.New("disk full")
	e := newTestEngine(t, WithPersistence(failingBackend{err: boom}, saveKey, false))

	err := e.Save(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), saveKey)
}

func TestAutoSave_FailureIsLogged(t *testing.T) {
	logger, buf := captureLogger()
	boom := errors.New("disk full")
	e := newTestEngine(t, WithLogger(logger), WithPersistence(failingBackend{err: boom}, saveKey, true))

	require.NoError(t, e.Set("a", ir.Number(1)), "mutation succeeds despite save failure")
	assert.Contains(t, buf.String(), "auto-save failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestLoad_CorruptDataLeavesTableUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	require.NoError(t, backend.Set(ctx, saveKey, `{"a": tru`))

	logger, buf := captureLogger()
	e := newTestEngine(t, WithLogger(logger), WithInitial(ir.F("seed", ir.Number(1))),
		WithPersistence(backend, saveKey, false))

	assert.Equal(t, []string{"seed"}, e.Keys())
	require.NoError(t, e.Load(ctx))
	assert.Equal(t, []string{"seed"}, e.Keys())
	assert.Contains(t, buf.String(), "persisted facts are corrupt")
}

func TestLoad_SkipsHazardAndInvalidEntries(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	require.NoError(t, backend.Set(ctx, saveKey,
		`{"__proto__":true,"constructor":1,"bad key":1,"and":true,"ok":"yes"}`))

	e := newTestEngine(t, WithPersistence(backend, saveKey, false))

	assert.Equal(t, []ir.Fact{ir.F("ok", ir.String("yes"))}, e.All())
}

func TestLoad_MissingKeyIsNotAnError(t *testing.T) {
	e := newTestEngine(t, WithPersistence(store.NewMemory(), saveKey, false))
	require.NoError(t, e.Load(context.Background()))
	assert.Zero(t, e.Len())
}

func TestLoad_PersistedOverridesInitial(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	require.NoError(t, backend.Set(ctx, saveKey, `{"gold":50}`))

	e := newTestEngine(t,
		WithInitial(ir.F("gold", ir.Number(0)), ir.F("level", ir.Number(1))),
		WithPersistence(backend, saveKey, false))

	v, _ := e.Get("gold")
	assert.Equal(t, ir.Number(50), v)
	v, _ = e.Get("level")
	assert.Equal(t, ir.Number(1), v)
}

func TestLoad_AppliesAsOneBatch(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	e := newTestEngine(t, WithHistory(), WithPersistence(backend, saveKey, false),
		WithInitial(ir.F("gold", ir.Number(10))))
	require.NoError(t, e.ComputedCondition("rich", "gold >= 100"))
	r := record(t, e)

	require.NoError(t, backend.Set(ctx, saveKey, `{"gold":500,"hero":"Ann"}`))
	require.NoError(t, e.Load(ctx))

	assert.Equal(t, []string{AggregateKey}, r.Keys())
	v, _ := e.Get("rich")
	assert.Equal(t, ir.Bool(true), v)

	undo, _ := e.History().Len()
	assert.Equal(t, 1, undo)
	require.True(t, e.History().Undo())
	v, _ = e.Get("gold")
	assert.Equal(t, ir.Number(10), v)
	assert.False(t, e.Has("hero"))
}

func TestSave_ExcludesComputed(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	e := newTestEngine(t, WithPersistence(backend, saveKey, false),
		WithInitial(ir.F("gold", ir.Number(500))))
	require.NoError(t, e.ComputedCondition("rich", "gold >= 100"))

	require.NoError(t, e.Save(ctx))
	raw, _, err := backend.Get(ctx, saveKey)
	require.NoError(t, err)
	assert.Equal(t, `{"gold":500}`, raw)
}

func TestLoad_IgnoresPersistedComputedKeys(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	e := newTestEngine(t, WithPersistence(backend, saveKey, false),
		WithInitial(ir.F("gold", ir.Number(5))))
	require.NoError(t, e.ComputedCondition("rich", "gold >= 100"))

	require.NoError(t, backend.Set(ctx, saveKey, `{"rich":true}`))
	require.NoError(t, e.Load(ctx))

	v, _ := e.Get("rich")
	assert.Equal(t, ir.Bool(false), v)
}
