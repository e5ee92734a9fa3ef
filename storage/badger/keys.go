package badger

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
)

// Key prefixes for the different key spaces of one database
const (
	recordPrefix   = "rec"
	indexPrefix    = "idx"
	storagePrefix  = "sto"
	seqPrefix      = "seq"
	metaVersionKey = "meta:version"
	metaSchemaKey  = "meta:schema"
)

// Scalar type tags. Numbers sort before strings, matching the host engine's
// key ordering across types.
const (
	scalarTagNumber byte = 0x02
	scalarTagString byte = 0x03
)

// entrySeparator terminates the encoded value inside a composite index key
// so that one value's entries never prefix-match another's. encodeScalar
// rejects strings containing it; no other encoding can produce a stray one
// at the value boundary.
const entrySeparator byte = 0x00

// makeRecordKey generates the primary key for a record.
// Format: rec:storage:id, with the ID in BigEndian so lexicographic order
// matches numeric order.
func makeRecordKey(storageName string, id core.ID) []byte {
	prefix := makeRecordPrefix(storageName)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeRecordPrefix generates the prefix covering every record of a storage.
func makeRecordPrefix(storageName string) []byte {
	return []byte(recordPrefix + core.KeySeparator + storageName + core.KeySeparator)
}

// makeIndexPrefix generates the prefix covering every entry of one index.
func makeIndexPrefix(storageName, indexName string) []byte {
	return []byte(indexPrefix + core.KeySeparator + storageName + core.KeySeparator + indexName + core.KeySeparator)
}

// makeIndexValuePrefix generates the prefix covering every entry of one
// index holding one encoded value.
func makeIndexValuePrefix(storageName, indexName string, encoded []byte) []byte {
	prefix := makeIndexPrefix(storageName, indexName)
	buf := make([]byte, 0, len(prefix)+len(encoded)+1)
	buf = append(buf, prefix...)
	buf = append(buf, encoded...)
	buf = append(buf, entrySeparator)
	return buf
}

// makeIndexEntryKey generates a composite key for one index entry.
// Format: idx:storage:index:value\x00id, BigEndian ID last so that ties
// within a non-unique index break by insertion order. A unique index holds
// exactly one entry per value, keyed without the ID suffix, so enforcing
// uniqueness is a point read that lands in the transaction's conflict set.
func makeIndexEntryKey(storageName, indexName string, unique bool, encoded []byte, id core.ID) []byte {
	prefix := makeIndexValuePrefix(storageName, indexName, encoded)
	if unique {
		return prefix
	}
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeStorageKey generates the marker key recording a storage's existence
// and its index declarations.
func makeStorageKey(name string) []byte {
	return []byte(storagePrefix + core.KeySeparator + name)
}

// makeStoragePrefix generates the prefix covering every storage marker.
func makeStoragePrefix() []byte {
	return []byte(storagePrefix + core.KeySeparator)
}

// makeSeqKey generates the key backing a storage's ID sequence.
func makeSeqKey(storageName string) []byte {
	return []byte(seqPrefix + core.KeySeparator + storageName)
}

// encodeScalar encodes an indexable value so that lexicographic byte order
// matches the value order. Supported: numbers, NUL-free strings and
// time.Time (stored in its RFC3339Nano form, the same form JSON decoding
// yields). A string containing the separator byte would prefix-match a
// shorter value's exact-match range, so it is rejected rather than indexed.
func encodeScalar(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		if strings.IndexByte(val, entrySeparator) >= 0 {
			return nil, fmt.Errorf("%w: string contains NUL", storage.ErrUnindexableValue)
		}
		return encodeString(val), nil
	case time.Time:
		return encodeString(val.UTC().Format(time.RFC3339Nano)), nil
	case float64:
		return encodeNumber(val), nil
	case float32:
		return encodeNumber(float64(val)), nil
	case int:
		return encodeNumber(float64(val)), nil
	case int8:
		return encodeNumber(float64(val)), nil
	case int16:
		return encodeNumber(float64(val)), nil
	case int32:
		return encodeNumber(float64(val)), nil
	case int64:
		return encodeNumber(float64(val)), nil
	case uint:
		return encodeNumber(float64(val)), nil
	case uint8:
		return encodeNumber(float64(val)), nil
	case uint16:
		return encodeNumber(float64(val)), nil
	case uint32:
		return encodeNumber(float64(val)), nil
	case uint64:
		return encodeNumber(float64(val)), nil
	case core.ID:
		return encodeNumber(float64(val)), nil
	default:
		return nil, fmt.Errorf("%w: %T", storage.ErrUnindexableValue, v)
	}
}

// encodeNumber flips the sign bit (and all bits for negatives) so that the
// BigEndian form of any float64 sorts numerically.
func encodeNumber(f float64) []byte {
	bits := math.Float64bits(f)
	if bits>>63 == 1 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 9)
	buf[0] = scalarTagNumber
	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf
}

func encodeString(s string) []byte {
	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, scalarTagString)
	buf = append(buf, s...)
	return buf
}

// encodeID encodes a primary key for use inside record keys and bounds.
func encodeID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// prefixSuccessor returns the smallest key greater than every key carrying
// the prefix.
func prefixSuccessor(prefix []byte) []byte {
	buf := make([]byte, len(prefix))
	copy(buf, prefix)
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] < 0xFF {
			buf[i]++
			return buf[:i+1]
		}
	}
	// All 0xFF; nothing sorts above the prefix.
	return append(buf, 0xFF)
}

// hasPrefix checks if a byte slice has a given prefix
func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}
