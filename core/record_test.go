package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		id   ID
		ok   bool
	}{
		{name: "ID", in: ID(7), id: 7, ok: true},
		{name: "int", in: 7, id: 7, ok: true},
		{name: "int64", in: int64(7), id: 7, ok: true},
		{name: "uint64", in: uint64(7), id: 7, ok: true},
		{name: "float64 from JSON", in: float64(7), id: 7, ok: true},
		{name: "fractional float", in: 7.5, ok: false},
		{name: "zero", in: 0, ok: false},
		{name: "negative", in: -1, ok: false},
		{name: "string", in: "7", ok: false},
		{name: "nil", in: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ToID(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.id, id)
			}
		})
	}
}

func TestRecordPrimaryKey(t *testing.T) {
	id, ok := Record{"id": float64(3), "name": "A"}.PrimaryKey()
	assert.True(t, ok)
	assert.Equal(t, ID(3), id)

	_, ok = Record{"name": "A"}.PrimaryKey()
	assert.False(t, ok)
}

func TestRecordClone(t *testing.T) {
	original := Record{"name": "A"}
	clone := original.Clone()
	clone["id"] = ID(1)

	assert.Equal(t, Record{"name": "A"}, original)
	assert.Equal(t, Record{"name": "A", "id": ID(1)}, clone)
}
