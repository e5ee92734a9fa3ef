package badger

import (
	"context"
	"testing"

	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteByPrimaryKey(t *testing.T) {
	ctx := context.Background()
	db := newTaskDB(t, "delete-primary")
	insertTasks(t, db, core.Record{"name": "A"}, core.Record{"name": "B"})

	require.NoError(t, db.Delete(ctx, "tasks", core.Query{Value: 1}))

	records, err := db.Select(ctx, "tasks", core.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(records))

	// The index entries of the deleted record go with it.
	records, err = db.Select(ctx, "tasks", core.Query{Key: "tasksName", Value: "A"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteMissingPrimaryKeyIsNoOp(t *testing.T) {
	ctx := context.Background()
	db := newTaskDB(t, "delete-missing")
	insertTasks(t, db, core.Record{"name": "A"})

	assert.NoError(t, db.Delete(ctx, "tasks", core.Query{Value: 99}))

	records, err := db.Select(ctx, "tasks", core.Query{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeleteByIndexValue(t *testing.T) {
	ctx := context.Background()
	db := newTaskDB(t, "delete-index")
	insertTasks(t, db,
		core.Record{"name": "A"},
		core.Record{"name": "B"},
		core.Record{"name": "A"},
	)

	require.NoError(t, db.Delete(ctx, "tasks", core.Query{Key: "tasksName", Value: "A"}))

	records, err := db.Select(ctx, "tasks", core.Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.Record{"id": float64(2), "name": "B"}, records[0])
}

func TestDeleteByIndexValueNoMatches(t *testing.T) {
	ctx := context.Background()
	db := newTaskDB(t, "delete-index-empty")
	insertTasks(t, db, core.Record{"name": "A"})

	assert.NoError(t, db.Delete(ctx, "tasks", core.Query{Key: "tasksName", Value: "missing"}))
}

func TestDeleteRemovesAllIndexEntries(t *testing.T) {
	ctx := context.Background()
	db := newTaskDB(t, "delete-all-indexes")
	insertTasks(t, db, core.Record{"name": "A", "priority": 1})

	require.NoError(t, db.Delete(ctx, "tasks", core.Query{Key: "tasksName", Value: "A"}))

	records, err := db.Select(ctx, "tasks", core.Query{Key: "tasksPriority"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteByIndexValueLeavesNulLookalikeUntouched(t *testing.T) {
	ctx := context.Background()
	db := newTaskDB(t, "delete-nul-lookalike")
	insertTasks(t, db,
		core.Record{"name": "A"},
		core.Record{"name": "A\x00x"},
	)

	// A NUL-bearing value is stored but never indexed, so it cannot bleed
	// into the exact-match range of "A".
	records, err := db.Select(ctx, "tasks", core.Query{Key: "tasksName", Value: "A"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, ids(records))

	_, err = db.Select(ctx, "tasks", core.Query{Key: "tasksName", Value: "A\x00x"})
	assert.ErrorIs(t, err, storage.ErrUnindexableValue)

	require.NoError(t, db.Delete(ctx, "tasks", core.Query{Key: "tasksName", Value: "A"}))

	records, err = db.Select(ctx, "tasks", core.Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A\x00x", records[0]["name"])
}

func TestDeleteByUniqueIndexValue(t *testing.T) {
	ctx := context.Background()
	db := newUniqueDB(t, "delete-unique")

	_, err := db.Insert(ctx, "users", core.Record{"email": "a@example.com"})
	require.NoError(t, err)
	_, err = db.Insert(ctx, "users", core.Record{"email": "b@example.com"})
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, "users", core.Query{Key: "usersEmail", Value: "a@example.com"}))

	records, err := db.Select(ctx, "users", core.Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b@example.com", records[0]["email"])

	// The value is free for reuse once its holder is gone.
	_, err = db.Insert(ctx, "users", core.Record{"email": "a@example.com"})
	assert.NoError(t, err)
}

func TestDeleteErrors(t *testing.T) {
	ctx := context.Background()
	db := newTaskDB(t, "delete-errors")

	err := db.Delete(ctx, "tasks", core.Query{})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)

	err = db.Delete(ctx, "tasks", core.Query{Value: core.Range{Lower: 1, Upper: 2}})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)

	err = db.Delete(ctx, "ghost", core.Query{Value: 1})
	assert.ErrorIs(t, err, core.ErrUnknownStorage)

	err = db.Delete(ctx, "tasks", core.Query{Key: "noSuchIndex", Value: "A"})
	assert.ErrorIs(t, err, core.ErrUnknownIndex)
}
