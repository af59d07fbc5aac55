package veyra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyra-db/veyra/internal/scalar"
)

func testConfig(name string, dim int) CollectionConfig {
	return CollectionConfig{
		Name:      name,
		Dimension: dim,
		Metric:    L2,
		Index:     IndexParams{M: 8, EfConstruction: 64, MaxElements: 64},
	}
}

func TestNewCollectionInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 3))
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, 1, []float32{1, 0, 0}, nil))
	require.NoError(t, c.Insert(ctx, 2, []float32{0, 1, 0}, scalar.Document{"tag": scalar.FromString("b")}))

	hits, err := c.Search(ctx, []float32{1, 0, 0}, 2, 32)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint64(1), hits[0].ID)

	assert.Equal(t, 2, c.Size())
	assert.Equal(t, uint64(2), c.CurrentTxID()-1)
}

func TestInsertDimensionMismatchReturnsCode(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 4))
	require.NoError(t, err)

	err = c.Insert(ctx, 1, []float32{1, 2, 3}, nil)
	require.Error(t, err)
	assert.Equal(t, DimensionMismatch, CodeOf(err))
}

func TestInsertDuplicateReturnsAlreadyExists(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 2))
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, 1, []float32{1, 1}, nil))
	err = c.Insert(ctx, 1, []float32{2, 2}, nil)
	require.Error(t, err)
	assert.Equal(t, AlreadyExists, CodeOf(err))
}

func TestRemoveUnknownIsNotFound(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 2))
	require.NoError(t, err)

	err = c.Remove(ctx, 999)
	require.Error(t, err)
	assert.Equal(t, NotFound, CodeOf(err))
}

func TestRemoveHidesFromSearchAndErasesMetadata(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 2))
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, 1, []float32{1, 1}, scalar.Document{"a": scalar.FromInt64(1)}))
	require.NoError(t, c.Insert(ctx, 2, []float32{2, 2}, nil))

	require.NoError(t, c.Remove(ctx, 1))

	hits, err := c.Search(ctx, []float32{1, 1}, 5, 32)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, uint64(1), h.ID)
	}

	_, ok := c.Metadata(1)
	assert.False(t, ok)
}

func TestInsertBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 3))
	require.NoError(t, err)

	records := []InsertRecord{
		{ID: 1, Vector: []float32{1, 2, 3}},
		{ID: 2, Vector: []float32{1, 2}}, // wrong dimension
		{ID: 3, Vector: []float32{4, 5, 6}},
	}
	res, err := c.InsertBatch(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, DimensionMismatch, res.Results[1].Code)
	assert.Equal(t, Ok, res.Results[0].Code)
	assert.Equal(t, Ok, res.Results[2].Code)
}

func TestInsertBatchDuplicateWithinIndex(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 2))
	require.NoError(t, err)
	require.NoError(t, c.Insert(ctx, 1, []float32{1, 1}, nil))

	res, err := c.InsertBatch(ctx, []InsertRecord{{ID: 1, Vector: []float32{2, 2}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, AlreadyExists, res.Results[0].Code)
}

func TestSetMetadataAndGet(t *testing.T) {
	c, err := NewCollection(testConfig("docs", 2))
	require.NoError(t, err)
	require.NoError(t, c.Insert(context.Background(), 1, []float32{1, 1}, nil))

	c.SetMetadata(1, scalar.Document{"x": scalar.FromBool(true)})
	md, ok := c.Metadata(1)
	require.True(t, ok)
	b, _ := md["x"].Bool()
	assert.True(t, b)
}

func TestSearchBatchFanOut(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 2))
	require.NoError(t, err)
	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, c.Insert(ctx, i, []float32{float32(i), float32(i)}, nil))
	}

	queries := [][]float32{{1, 1}, {10, 10}, {5, 5}}
	results, err := c.SearchBatch(ctx, queries, 3, 32)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, hits := range results {
		assert.LessOrEqual(t, len(hits), 3)
	}
}

func TestSearchBatchPropagatesError(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollection(testConfig("docs", 2))
	require.NoError(t, err)
	require.NoError(t, c.Insert(ctx, 1, []float32{1, 1}, nil))

	_, err = c.SearchBatch(ctx, [][]float32{{1, 1}, {1, 1, 1}}, 1, 10)
	require.Error(t, err)
	assert.Equal(t, DimensionMismatch, CodeOf(err))
}

func TestVectorByIDRoundTrip(t *testing.T) {
	c, err := NewCollection(testConfig("docs", 3))
	require.NoError(t, err)
	require.NoError(t, c.Insert(context.Background(), 7, []float32{1, 2, 3}, nil))

	vec, ok := c.VectorByID(7)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	_, ok = c.VectorByID(999)
	assert.False(t, ok)
}
