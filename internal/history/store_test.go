package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndListNewestFirst(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for i := 0; i < 3; i++ {
		rec := NewRecord(fmt.Sprintf("run-%d", i), "Assistant", "vobiz", nil)
		require.NoError(t, store.Append("user-1", rec))
	}
	records, err := store.List("user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "run-2", records[0].Name)
	assert.Equal(t, "run-0", records[2].Name)
}

func TestAppendCapsAtFifty(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for i := 0; i < maxRecords+5; i++ {
		rec := NewRecord(fmt.Sprintf("run-%d", i), "Assistant", "vobiz", nil)
		require.NoError(t, store.Append("user-1", rec))
	}
	records, err := store.List("user-1")
	require.NoError(t, err)
	assert.Len(t, records, maxRecords)
	assert.Equal(t, fmt.Sprintf("run-%d", maxRecords+4), records[0].Name)
}

func TestDeleteRecord(t *testing.T) {
	store := NewFileStore(t.TempDir())
	rec := NewRecord("doomed", "Assistant", "vobiz", nil)
	require.NoError(t, store.Append("user-1", rec))
	require.NoError(t, store.Delete("user-1", rec.ID))
	records, err := store.List("user-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	// Unknown ids are a no-op.
	require.NoError(t, store.Delete("user-1", "missing"))
}

func TestListIsPerUser(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Append("user-1", NewRecord("a", "", "vobiz", nil)))
	records, err := store.List("user-2")
	require.NoError(t, err)
	assert.Empty(t, records)
}
