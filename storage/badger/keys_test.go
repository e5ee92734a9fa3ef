package badger

import (
	"bytes"
	"testing"
	"time"

	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeScalarNumberOrdering(t *testing.T) {
	values := []float64{-1e9, -2.5, -1, 0, 0.5, 1, 2, 1000, 1e12}
	for i := 0; i < len(values)-1; i++ {
		a, err := encodeScalar(values[i])
		require.NoError(t, err)
		b, err := encodeScalar(values[i+1])
		require.NoError(t, err)
		assert.Negative(t, bytes.Compare(a, b), "%v should sort before %v", values[i], values[i+1])
	}
}

func TestEncodeScalarStringOrdering(t *testing.T) {
	a, err := encodeScalar("A")
	require.NoError(t, err)
	b, err := encodeScalar("B")
	require.NoError(t, err)
	assert.Negative(t, bytes.Compare(a, b))
}

func TestEncodeScalarNumbersSortBeforeStrings(t *testing.T) {
	n, err := encodeScalar(float64(1e12))
	require.NoError(t, err)
	s, err := encodeScalar("")
	require.NoError(t, err)
	assert.Negative(t, bytes.Compare(n, s))
}

func TestEncodeScalarNumericFormsAgree(t *testing.T) {
	want, err := encodeScalar(float64(42))
	require.NoError(t, err)
	for _, v := range []any{42, int64(42), uint64(42), float32(42), core.ID(42)} {
		got, err := encodeScalar(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%T", v)
	}
}

func TestEncodeScalarTime(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	a, err := encodeScalar(earlier)
	require.NoError(t, err)
	b, err := encodeScalar(later)
	require.NoError(t, err)
	assert.Negative(t, bytes.Compare(a, b))

	// The encoding must agree with what the record round-trips through JSON.
	fromJSON, err := encodeScalar(earlier.Format(time.RFC3339Nano))
	require.NoError(t, err)
	assert.Equal(t, fromJSON, a)
}

func TestEncodeScalarUnsupported(t *testing.T) {
	for _, v := range []any{true, []int{1}, map[string]any{}} {
		_, err := encodeScalar(v)
		assert.ErrorIs(t, err, storage.ErrUnindexableValue, "%T", v)
	}
}

func TestEncodeScalarRejectsNulBytes(t *testing.T) {
	// "A\x00x" would prefix-match the exact-match range of "A".
	for _, v := range []string{"A\x00x", "\x00", "A\x00"} {
		_, err := encodeScalar(v)
		assert.ErrorIs(t, err, storage.ErrUnindexableValue, "%q", v)
	}
}

func TestRecordKeyOrdering(t *testing.T) {
	a := makeRecordKey("tasks", 2)
	b := makeRecordKey("tasks", 10)
	assert.Negative(t, bytes.Compare(a, b))
	assert.True(t, hasPrefix(a, makeRecordPrefix("tasks")))
}

func TestIndexEntryKeyTieBreak(t *testing.T) {
	encoded, err := encodeScalar("A")
	require.NoError(t, err)

	first := makeIndexEntryKey("tasks", "tasksName", false, encoded, 1)
	third := makeIndexEntryKey("tasks", "tasksName", false, encoded, 3)
	assert.Negative(t, bytes.Compare(first, third))

	prefix := makeIndexValuePrefix("tasks", "tasksName", encoded)
	assert.True(t, hasPrefix(first, prefix))
	assert.True(t, hasPrefix(third, prefix))
}

func TestUniqueIndexEntryKeyHasNoIDSuffix(t *testing.T) {
	encoded, err := encodeScalar("a@example.com")
	require.NoError(t, err)

	key := makeIndexEntryKey("users", "usersEmail", true, encoded, 7)
	assert.Equal(t, makeIndexValuePrefix("users", "usersEmail", encoded), key)
}

func TestIndexValuePrefixIsExact(t *testing.T) {
	a, err := encodeScalar("A")
	require.NoError(t, err)
	ab, err := encodeScalar("AB")
	require.NoError(t, err)

	entry := makeIndexEntryKey("tasks", "tasksName", false, ab, 1)
	assert.False(t, hasPrefix(entry, makeIndexValuePrefix("tasks", "tasksName", a)))
}

func TestPrefixSuccessor(t *testing.T) {
	prefix := []byte("idx:tasks:")
	successor := prefixSuccessor(prefix)
	assert.Positive(t, bytes.Compare(successor, prefix))
	assert.Positive(t, bytes.Compare(successor, append(append([]byte{}, prefix...), 0xFF)))

	assert.Equal(t, []byte{0x01}, prefixSuccessor([]byte{0x00}))
	assert.Equal(t, []byte{0x01}, prefixSuccessor([]byte{0x00, 0xFF}))
}
