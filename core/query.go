package core

import "fmt"

// Order is the traversal direction of a select.
type Order uint8

const (
	// OrderAsc is the engine's natural key order and the default.
	OrderAsc Order = iota
	// OrderDesc walks the key space in reverse.
	OrderDesc
)

// Range bounds a key-ordered scan. A nil Lower or Upper leaves that side
// unbounded; the Open flags exclude the bound itself.
type Range struct {
	Lower     any
	Upper     any
	LowerOpen bool
	UpperOpen bool
}

// Query is a selection descriptor. The zero value selects every record of
// the targeted storage in ascending primary-key order.
type Query struct {
	// Key targets the primary-key space when empty or PrimaryKeyField,
	// otherwise it names a declared index of the targeted storage.
	Key string
	// Value is a scalar for an exact match, a Range for a bounded scan,
	// or nil for the whole key space.
	Value any
	// Count caps the number of results; 0 means unbounded. Exhausting the
	// store before Count is a short result, not an error.
	Count int
	// Order selects traversal direction; descending forces cursor walking.
	Order Order
}

// Strategy is the retrieval plan computed once from a Query. Keeping the
// four-way choice explicit keeps the branch logic testable without an
// engine.
type Strategy uint8

const (
	// StrategyPrimaryBulk reads the primary-key space in natural order,
	// optionally capped at Count. A scalar Value degenerates to a point
	// lookup.
	StrategyPrimaryBulk Strategy = iota
	// StrategyIndexBulk reads an index range in natural order, resolving
	// each entry to its record.
	StrategyIndexBulk
	// StrategyPrimaryCursor walks the primary-key space in reverse.
	StrategyPrimaryCursor
	// StrategyIndexCursor walks an index range in reverse.
	StrategyIndexCursor
)

func (s Strategy) String() string {
	switch s {
	case StrategyPrimaryBulk:
		return "primary-bulk"
	case StrategyIndexBulk:
		return "index-bulk"
	case StrategyPrimaryCursor:
		return "primary-cursor"
	case StrategyIndexCursor:
		return "index-cursor"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// Primary reports whether the query targets the primary-key space.
func (q *Query) Primary() bool {
	return q.Key == "" || q.Key == PrimaryKeyField
}

// Plan picks the retrieval strategy. Ascending scans never need cursor
// walking because the engine's bulk range read already yields ascending key
// order; only a descending traversal pays for a reverse cursor.
func (q *Query) Plan() Strategy {
	if q.Order == OrderDesc {
		if q.Primary() {
			return StrategyPrimaryCursor
		}
		return StrategyIndexCursor
	}
	if q.Primary() {
		return StrategyPrimaryBulk
	}
	return StrategyIndexBulk
}

// Validate checks descriptor invariants that do not require the schema.
func (q *Query) Validate() error {
	if q.Count < 0 {
		return fmt.Errorf("%w: negative count %d", ErrInvalidQuery, q.Count)
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		return fmt.Errorf("%w: order %d", ErrInvalidQuery, q.Order)
	}
	return nil
}
