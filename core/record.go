package core

// ID is the surrogate primary key of a record. IDs are assigned by the
// storage engine's sequence on insert, start at 1, and are never reused
// within a storage's lifetime.
type ID uint64

// PrimaryKeyField is the record field that carries the primary key.
// A Query whose Key is empty or equal to PrimaryKeyField targets the
// primary-key space rather than a secondary index.
const PrimaryKeyField = "id"

// Record is a schema-free application object. The only structural
// requirement is the PrimaryKeyField, populated by the engine on insert.
// Records read back from storage are JSON-decoded, so numeric field values
// (including the primary key) carry float64.
type Record map[string]any

// PrimaryKey extracts the record's primary key. Returns false when the field
// is absent, non-numeric, or not positive.
func (r Record) PrimaryKey() (ID, bool) {
	return ToID(r[PrimaryKeyField])
}

// Clone returns a shallow copy of the record. Insert stores a clone so the
// caller's map is never mutated.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToID converts any numeric value to an ID. JSON decoding produces float64,
// while callers constructing queries by hand tend to pass int or ID.
func ToID(v any) (ID, bool) {
	switch n := v.(type) {
	case ID:
		return n, n > 0
	case uint64:
		return ID(n), n > 0
	case int:
		return ID(n), n > 0
	case int64:
		return ID(n), n > 0
	case float64:
		if n <= 0 || n != float64(ID(n)) {
			return 0, false
		}
		return ID(n), true
	default:
		return 0, false
	}
}
