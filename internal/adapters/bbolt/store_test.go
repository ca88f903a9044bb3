package bbolt

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// =============================================================================
// bbolt Binding Cache: save/load per-file extractions, hash validation,
// crash recovery
// Expectation: an unchanged binding file is never re-parsed after a restart;
// a changed one always is.
// =============================================================================

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

// makeTestSymbols creates a realistic extraction of a step definition file.
func makeTestSymbols() *ports.FileSymbols {
	return &ports.FileSymbols{
		BindingClasses: []string{"CartSteps"},
		AttributeClasses: []ports.ClassDecl{
			{Name: "VerifyAttribute", Bases: []string{"StepDefinitionBaseAttribute"}},
		},
		Methods: []ports.AnnotatedMethod{
			{
				Name:  "GivenItems",
				Class: "CartSteps",
				Range: ports.Span{StartLine: 7, StartCol: 8, EndLine: 8, EndCol: 40},
				Attributes: []ports.Attribute{{
					Name:  "Given",
					Args:  []ports.AttributeArg{{Value: `I have (\d+) items`, IsString: true}},
					Range: ports.Span{StartLine: 7, StartCol: 9, EndLine: 7, EndCol: 37},
				}},
			},
			{
				Name:  "Pay",
				Class: "CartSteps",
				Range: ports.Span{StartLine: 10, StartCol: 8, EndLine: 12, EndCol: 29},
				Attributes: []ports.Attribute{
					{Name: "When", Args: []ports.AttributeArg{{Name: "Regex", Value: "I pay", IsString: true}}},
					{Name: "Then"},
				},
			},
		},
	}
}

func TestStore_SaveLoadSymbols_Roundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	original := makeTestSymbols()

	err := store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/Steps/CartSteps.cs": {Hash: 42, Symbols: original},
	})
	require.NoError(t, err)

	loaded, ok, err := store.LoadSymbols("/ws/Steps/CartSteps.cs", 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original, loaded)
}

func TestStore_LoadSymbols_HashMismatchIsMiss(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/A.cs": {Hash: 1, Symbols: makeTestSymbols()},
	}))

	syms, ok, err := store.LoadSymbols("/ws/A.cs", 2)
	require.NoError(t, err)
	assert.False(t, ok, "a changed file must be re-parsed")
	assert.Nil(t, syms)
}

func TestStore_LoadSymbols_EmptyDatabase(t *testing.T) {
	// Fresh workspace: the bucket does not exist yet.
	store, _ := newTestStore(t)

	syms, ok, err := store.LoadSymbols("/ws/A.cs", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, syms)
}

func TestStore_SaveSymbols_FileWithoutBindings(t *testing.T) {
	// Plain C# files are cached as empty extractions so they are not
	// re-parsed either.
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/Plain.cs": {Hash: 9},
	}))

	syms, ok, err := store.LoadSymbols("/ws/Plain.cs", 9)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, syms)
	assert.Empty(t, syms.Methods)
	assert.Empty(t, syms.BindingClasses)
}

func TestStore_SaveSymbols_BatchAndReplace(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/A.cs": {Hash: 1, Symbols: makeTestSymbols()},
		"/ws/B.cs": {Hash: 2, Symbols: &ports.FileSymbols{BindingClasses: []string{"B"}}},
	}))
	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/B.cs": {Hash: 3, Symbols: &ports.FileSymbols{BindingClasses: []string{"B2"}}},
	}))

	paths, err := store.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"/ws/A.cs", "/ws/B.cs"}, paths)

	_, ok, err := store.LoadSymbols("/ws/B.cs", 2)
	require.NoError(t, err)
	assert.False(t, ok, "replaced entry keeps only the newest hash")

	syms, ok, err := store.LoadSymbols("/ws/B.cs", 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"B2"}, syms.BindingClasses)
}

func TestStore_DeleteSymbols(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/A.cs": {Hash: 1},
		"/ws/B.cs": {Hash: 2},
	}))

	require.NoError(t, store.DeleteSymbols("/ws/A.cs", "/ws/missing.cs"))

	_, ok, err := store.LoadSymbols("/ws/A.cs", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.LoadSymbols("/ws/B.cs", 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DeleteSymbols_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.DeleteSymbols("/ws/never.cs"), "no bucket yet")
	assert.NoError(t, store.DeleteSymbols())
}

func TestStore_Prune(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/A.cs": {Hash: 1},
		"/ws/B.cs": {Hash: 2},
		"/ws/C.cs": {Hash: 3},
	}))

	removed, err := store.Prune(func(path string) bool { return path == "/ws/B.cs" })
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	paths, err := store.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"/ws/B.cs"}, paths)
}

func TestStore_ForeignEntryIsMiss(t *testing.T) {
	// An entry written by an older format reads as a miss, not an error.
	store, _ := newTestStore(t)
	require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSymbols)
		if err != nil {
			return err
		}
		return b.Put([]byte("/ws/Old.cs"), []byte(`{"hash":1}`))
	}))

	_, ok, err := store.LoadSymbols("/ws/Old.cs", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CrashRecovery(t *testing.T) {
	// Write data, close, reopen database. Data from the last committed
	// transaction is intact. bbolt's transactional writes guarantee this.
	dir := t.TempDir()
	path := filepath.Join(dir, "crash.db")

	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/A.cs": {Hash: 7, Symbols: makeTestSymbols()},
	}))

	// Close (simulates orderly shutdown — bbolt fsyncs on commit)
	require.NoError(t, store.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	// Reopen — data from committed transaction should be intact
	store2, err := NewStore(path)
	require.NoError(t, err)
	defer store2.Close()

	loaded, ok, err := store2.LoadSymbols("/ws/A.cs", 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, loaded.Methods, 2)
}

func TestStore_ConcurrentReads(t *testing.T) {
	// bbolt supports concurrent readers, single writer.
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSymbols(map[string]ports.CachedSymbols{
		"/ws/A.cs": {Hash: 1, Symbols: makeTestSymbols()},
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			syms, ok, err := store.LoadSymbols("/ws/A.cs", 1)
			if err != nil {
				errs <- err
				return
			}
			if !ok {
				errs <- fmt.Errorf("unexpected miss")
				return
			}
			if len(syms.Methods) != 2 {
				errs <- fmt.Errorf("expected 2 methods, got %d", len(syms.Methods))
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent read error: %v", err)
	}
}

func TestStore_LargeBatch_Performance(t *testing.T) {
	// A workspace with 500 binding files is saved in one transaction.
	store, _ := newTestStore(t)

	entries := make(map[string]ports.CachedSymbols, 500)
	for i := 0; i < 500; i++ {
		entries[fmt.Sprintf("/ws/Steps/Module%d/Steps.cs", i)] = ports.CachedSymbols{
			Hash:    uint64(i),
			Symbols: makeTestSymbols(),
		}
	}

	start := time.Now()
	require.NoError(t, store.SaveSymbols(entries))
	saveTime := time.Since(start)

	start = time.Now()
	for path, e := range entries {
		_, ok, err := store.LoadSymbols(path, e.Hash)
		require.NoError(t, err)
		require.True(t, ok)
	}
	loadTime := time.Since(start)

	assert.Less(t, saveTime, 2*time.Second, "save took %v", saveTime) // generous for CI
	t.Logf("Performance: save=%v load=%v files=%d", saveTime, loadTime, len(entries))
}

// =============================================================================
// Lock contention tests — verify the 1s timeout prevents hangs
// =============================================================================

func TestStore_OpenTimeout_DoesNotHang(t *testing.T) {
	// When another daemon holds the bbolt exclusive lock, a second open
	// should time out in ~1 second, not hang forever.
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	defer store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.Error(t, err, "second open should fail with lock timeout")
	assert.Nil(t, store2, "store should be nil on timeout")
	assert.Contains(t, err.Error(), "bbolt open")
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, elapsed, 3*time.Second, "should complete within 3s, not hang")
}

func TestStore_OpenAfterClose_Succeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "released.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.SaveSymbols(map[string]ports.CachedSymbols{"/ws/A.cs": {Hash: 1}}))
	store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.NoError(t, err, "open after close should succeed")
	require.NotNil(t, store2)
	defer store2.Close()
	assert.Less(t, elapsed, 500*time.Millisecond, "should open instantly after lock released")

	_, ok, err := store2.LoadSymbols("/ws/A.cs", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
