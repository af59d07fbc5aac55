package veyra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseCreateGetHasListDrop(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenDatabase(dir)
	require.NoError(t, err)
	defer db.Close()

	c, err := db.CreateCollection(testConfig("widgets", 3))
	require.NoError(t, err)
	require.NoError(t, c.Insert(context.Background(), 1, []float32{1, 2, 3}, nil))

	assert.True(t, db.HasCollection("widgets"))
	assert.Equal(t, []string{"widgets"}, db.ListCollections())

	got, err := db.GetCollection("widgets")
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = db.CreateCollection(testConfig("widgets", 3))
	require.Error(t, err)
	assert.Equal(t, AlreadyExists, CodeOf(err))

	require.NoError(t, db.DropCollection("widgets"))
	assert.False(t, db.HasCollection("widgets"))

	_, err = db.GetCollection("widgets")
	assert.Equal(t, NotFound, CodeOf(err))
}

func TestDatabaseReopenLoadsExistingCollections(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := OpenDatabase(dir)
	require.NoError(t, err)

	c, err := db.CreateCollection(testConfig("gadgets", 2))
	require.NoError(t, err)
	require.NoError(t, c.Insert(ctx, 1, []float32{5, 5}, nil))
	require.NoError(t, db.Close())

	reopened, err := OpenDatabase(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.HasCollection("gadgets"))
	got, err := reopened.GetCollection("gadgets")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Size())
}

func TestDatabaseGetUnknownCollection(t *testing.T) {
	db, err := OpenDatabase(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.GetCollection("nope")
	require.Error(t, err)
	assert.Equal(t, NotFound, CodeOf(err))
}
