package hnsw

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, m Metric) *Index {
	t.Helper()
	idx := New(Config{Dimension: 6, Metric: m, M: 8, EfConstruction: 64})
	for i, v := range randomVectors(80, 6, 7) {
		require.NoError(t, idx.Insert(uint64(i+1), v))
	}
	require.NoError(t, idx.MarkDelete(3))
	require.NoError(t, idx.MarkDelete(10))
	return idx
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, m := range []Metric{L2, Cosine, InnerProduct} {
		idx := buildTestIndex(t, m)

		var buf bytes.Buffer
		require.NoError(t, idx.Save(&buf))

		loaded, err := Load(&buf, Config{Dimension: 6, Metric: m, M: 8, EfConstruction: 64})
		require.NoError(t, err)

		assert.Equal(t, idx.Size(), loaded.Size())
		assert.Equal(t, idx.DeletedCount(), loaded.DeletedCount())

		for id := uint64(1); id <= 80; id++ {
			wantVec, wantOK := idx.VectorByID(id)
			gotVec, gotOK := loaded.VectorByID(id)
			require.Equal(t, wantOK, gotOK)
			assert.Equal(t, wantVec, gotVec)
		}

		query := randomVectors(1, 6, 99)[0]
		want, err := idx.Search(query, 5, 50)
		require.NoError(t, err)
		got, err := loaded.Search(query, 5, 50)
		require.NoError(t, err)
		require.Equal(t, len(want), len(got))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.InDelta(t, want[i].Score, got[i].Score, 1e-5)
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	_, err := Load(&buf, Config{Dimension: 4})
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestLoadRejectsCorruptedPayload(t *testing.T) {
	idx := New(Config{Dimension: 3, Metric: L2})
	require.NoError(t, idx.Insert(1, []float32{1, 2, 3}))
	require.NoError(t, idx.Insert(2, []float32{4, 5, 6}))

	var buf bytes.Buffer
	require.NoError(t, idx.Save(&buf))
	data := buf.Bytes()

	// Flip a byte inside the payload (past the 18-byte header) so the CRC
	// check catches it.
	data[20] ^= 0xFF

	_, err := Load(bytes.NewReader(data), Config{Dimension: 3, Metric: L2})
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestLoadRejectsDimensionMismatch(t *testing.T) {
	idx := New(Config{Dimension: 3, Metric: L2})
	require.NoError(t, idx.Insert(1, []float32{1, 2, 3}))

	var buf bytes.Buffer
	require.NoError(t, idx.Save(&buf))

	_, err := Load(&buf, Config{Dimension: 4, Metric: L2})
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestLoadRejectsMetricMismatch(t *testing.T) {
	idx := New(Config{Dimension: 3, Metric: L2})
	require.NoError(t, idx.Insert(1, []float32{1, 2, 3}))

	var buf bytes.Buffer
	require.NoError(t, idx.Save(&buf))

	_, err := Load(&buf, Config{Dimension: 3, Metric: Cosine})
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestSaveLoadEmptyIndex(t *testing.T) {
	idx := New(Config{Dimension: 5, Metric: L2})

	var buf bytes.Buffer
	require.NoError(t, idx.Save(&buf))

	loaded, err := Load(&buf, Config{Dimension: 5, Metric: L2})
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Size())

	res, err := loaded.Search([]float32{1, 1, 1, 1, 1}, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}
