package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskSchema(name string, version uint64) core.Schema {
	return core.Schema{
		Name:     name,
		Version:  version,
		Storages: []string{"tasks"},
		Indexes: map[string][]core.IndexSpec{
			"tasks": {{Name: "tasksName", Field: "name"}},
		},
	}
}

func TestOpenFreshCreatesStorages(t *testing.T) {
	db, err := NewMemoryDB(taskSchema("lifecycle-fresh", 1))
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.HasStorage("tasks"))
	assert.False(t, db.HasStorage("notes"))
	assert.Equal(t, []string{"tasks"}, db.Storages())
}

func TestOpenInvalidSchema(t *testing.T) {
	_, err := NewMemoryDB(core.Schema{Name: ""})
	assert.ErrorIs(t, err, core.ErrInvalidSchema)
}

func TestUpgradeKeepsExistingStorageUntouched(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, taskSchema("app", 1), Options{Dir: dir})
	require.NoError(t, err)
	for _, name := range []string{"A", "B", "A"} {
		_, err := db.Insert(ctx, "tasks", core.Record{"name": name})
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	// Bump the version with an extra storage; tasks must keep its records.
	upgraded := taskSchema("app", 2)
	upgraded.Storages = append(upgraded.Storages, "notes")

	db, err = Open(ctx, upgraded, Options{Dir: dir})
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.HasStorage("notes"))
	records, err := db.Select(ctx, "tasks", core.Query{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestReopenSameVersion(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, taskSchema("app", 1), Options{Dir: dir})
	require.NoError(t, err)
	_, err = db.Insert(ctx, "tasks", core.Record{"name": "A"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, taskSchema("app", 1), Options{Dir: dir})
	require.NoError(t, err)
	defer db.Close()

	records, err := db.Select(ctx, "tasks", core.Query{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestOpenVersionConflict(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, taskSchema("app", 3), Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, taskSchema("app", 2), Options{Dir: dir})
	assert.ErrorIs(t, err, storage.ErrVersionConflict)
}

func TestOpenSchemaChangedWithoutBump(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, taskSchema("app", 1), Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	changed := taskSchema("app", 1)
	changed.Storages = append(changed.Storages, "notes")
	_, err = Open(ctx, changed, Options{Dir: dir})
	assert.ErrorIs(t, err, storage.ErrSchemaChanged)
}

func TestOpenDefaultVersionAdoptsStored(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, taskSchema("app", 5), Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, taskSchema("app", 0), Options{Dir: dir})
	require.NoError(t, err)
	defer db.Close()
	assert.True(t, db.HasStorage("tasks"))
}

func TestCreateStorage(t *testing.T) {
	ctx := context.Background()
	db, err := NewMemoryDB(taskSchema("lifecycle-create", 1))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreateStorage(ctx, "notes"))
	assert.True(t, db.HasStorage("notes"))

	err = db.CreateStorage(ctx, "notes")
	assert.ErrorIs(t, err, core.ErrStorageExists)
}

func TestDeleteStorage(t *testing.T) {
	ctx := context.Background()
	db, err := NewMemoryDB(taskSchema("lifecycle-delete", 1))
	require.NoError(t, err)
	defer db.Close()

	t.Run("missing storage is a no-op", func(t *testing.T) {
		assert.NoError(t, db.DeleteStorage(ctx, "ghost"))
	})

	t.Run("removes records and restarts the lifetime", func(t *testing.T) {
		_, err := db.Insert(ctx, "tasks", core.Record{"name": "A"})
		require.NoError(t, err)
		_, err = db.Insert(ctx, "tasks", core.Record{"name": "B"})
		require.NoError(t, err)

		require.NoError(t, db.DeleteStorage(ctx, "tasks"))
		assert.False(t, db.HasStorage("tasks"))

		_, err = db.Select(ctx, "tasks", core.Query{})
		assert.ErrorIs(t, err, core.ErrUnknownStorage)

		require.NoError(t, db.CreateStorage(ctx, "tasks"))
		id, err := db.Insert(ctx, "tasks", core.Record{"name": "C"})
		require.NoError(t, err)
		assert.Equal(t, core.ID(1), id)
	})
}

func TestDropBlockedByOpenConnection(t *testing.T) {
	ctx := context.Background()
	schema := taskSchema("lifecycle-blocked", 1)

	first, err := NewMemoryDB(schema)
	require.NoError(t, err)
	second, err := NewMemoryDB(schema)
	require.NoError(t, err)

	err = first.Drop(ctx)
	assert.ErrorIs(t, err, storage.ErrDeleteBlocked)

	// The blocked handle stays usable.
	_, err = first.Insert(ctx, "tasks", core.Record{"name": "A"})
	require.NoError(t, err)

	require.NoError(t, second.Close())
	require.NoError(t, first.Drop(ctx))
}

func TestDropRemovesFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, taskSchema("app", 1), Options{Dir: dir})
	require.NoError(t, err)
	_, err = db.Insert(ctx, "tasks", core.Record{"name": "A"})
	require.NoError(t, err)

	require.NoError(t, db.Drop(ctx))

	_, err = os.Stat(filepath.Join(dir, "app"))
	assert.True(t, os.IsNotExist(err))

	// A dropped handle refuses further work.
	_, err = db.Select(ctx, "tasks", core.Query{})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestClosedHandle(t *testing.T) {
	ctx := context.Background()
	db, err := NewMemoryDB(taskSchema("lifecycle-closed", 1))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.Insert(ctx, "tasks", core.Record{"name": "A"})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, db.CreateStorage(ctx, "notes"), storage.ErrStorageClosed)
}
