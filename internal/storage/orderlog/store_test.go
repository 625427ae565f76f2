package orderlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usdtdesk/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "orderlog.json"), filepath.Join(dir, "history"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

func testEntry(id string) domain.LogEntry {
	entry := domain.NewLogEntry(domain.OrderTypeLimit, domain.SideBuy, "1350.00", "1.0000")
	entry.Status = domain.LogStatusSuccess
	entry.OrderID = id
	return entry
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	entries := store.Load()
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLoadCorruptFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orderlog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"this is": "not a log"`), 0o644))

	store, err := NewStore(path, filepath.Join(dir, "history"))
	require.NoError(t, err)
	defer store.Close()

	assert.Empty(t, store.Load())
}

func TestAppendPersistsAndReloads(t *testing.T) {
	store := newTestStore(t)

	entry := testEntry("ord-1")
	require.NoError(t, store.Append(entry))

	entries := store.Load()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.UUID, entries[0].UUID)
	assert.Equal(t, domain.LogStatusSuccess, entries[0].Status)
	assert.Equal(t, "ord-1", entries[0].OrderID)
}

func TestAppendCapsAtMaxEntries(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < MaxEntries+20; i++ {
		require.NoError(t, store.Append(testEntry(fmt.Sprintf("ord-%d", i))))
	}

	entries := store.Load()
	require.Len(t, entries, MaxEntries)

	// oldest entries are dropped, the most recent survive in order.
	assert.Equal(t, "ord-20", entries[0].OrderID)
	assert.Equal(t, fmt.Sprintf("ord-%d", MaxEntries+19), entries[MaxEntries-1].OrderID)
}

func TestAppendWritesValidJSONArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orderlog.json")

	store, err := NewStore(path, filepath.Join(dir, "history"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(testEntry("ord-1")))
	require.NoError(t, store.Append(testEntry("ord-2")))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Len(t, raw, 2)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not survive a successful append")
}

func TestAppendRecordsRevisions(t *testing.T) {
	store := newTestStore(t)

	first := testEntry("ord-1")
	second := testEntry("ord-2")
	require.NoError(t, store.Append(first))
	require.NoError(t, store.Append(second))

	revisions, err := store.RevisionsAfter(0)
	require.NoError(t, err)
	require.Len(t, revisions, 2)

	assert.Equal(t, first.UUID, revisions[0].Entry.UUID)
	assert.Equal(t, second.UUID, revisions[1].Entry.UUID)
	assert.Contains(t, revisions[0].Key, first.UUID)
	assert.Equal(t, uint64(2), store.CurrentIndex())

	later, err := store.RevisionsAfter(1)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, second.UUID, later[0].Entry.UUID)
}
