package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// KeySeparator is reserved for composite key construction in the storage
// layer. Storage and index names must not contain it.
const KeySeparator = ":"

// IndexSpec declares a secondary index over one record field.
type IndexSpec struct {
	Name   string
	Field  string
	Unique bool
}

// Schema describes a database: its name, migration version, storages and
// their secondary indexes. A Schema is immutable once handed to Init for a
// given version; changing storages or indexes requires a version bump.
type Schema struct {
	Name     string
	Version  uint64 // 0 means engine-assigned: stored version, or 1 when fresh
	Storages []string
	Indexes  map[string][]IndexSpec
}

// HasStorage reports whether the schema declares the named storage.
func (s *Schema) HasStorage(name string) bool {
	for _, storage := range s.Storages {
		if storage == name {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of the descriptor.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidSchema)
	}
	if strings.Contains(s.Name, KeySeparator) {
		return fmt.Errorf("%w: database name %q contains %q", ErrInvalidSchema, s.Name, KeySeparator)
	}
	seen := make(map[string]bool, len(s.Storages))
	for _, storage := range s.Storages {
		if storage == "" {
			return fmt.Errorf("%w: empty storage name", ErrInvalidSchema)
		}
		if strings.Contains(storage, KeySeparator) {
			return fmt.Errorf("%w: storage name %q contains %q", ErrInvalidSchema, storage, KeySeparator)
		}
		if seen[storage] {
			return fmt.Errorf("%w: duplicate storage %q", ErrInvalidSchema, storage)
		}
		seen[storage] = true
	}
	for storage, indexes := range s.Indexes {
		if !seen[storage] {
			return fmt.Errorf("%w: indexes declared for undeclared storage %q", ErrInvalidSchema, storage)
		}
		names := make(map[string]bool, len(indexes))
		for _, index := range indexes {
			if index.Name == "" || index.Field == "" {
				return fmt.Errorf("%w: storage %q has an index with an empty name or field", ErrInvalidSchema, storage)
			}
			if strings.Contains(index.Name, KeySeparator) {
				return fmt.Errorf("%w: index name %q contains %q", ErrInvalidSchema, index.Name, KeySeparator)
			}
			if names[index.Name] {
				return fmt.Errorf("%w: storage %q declares index %q twice", ErrInvalidSchema, storage, index.Name)
			}
			names[index.Name] = true
		}
	}
	return nil
}

// Fingerprint returns a deterministic 64-bit digest of the descriptor,
// excluding Version. Two schemas with the same fingerprint declare the same
// storages and indexes, so a fingerprint change without a version bump means
// the caller broke the immutability contract.
func (s *Schema) Fingerprint() uint64 {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('\n')
	for _, storage := range s.Storages {
		b.WriteString(storage)
		b.WriteByte('\n')
		for _, index := range s.Indexes[storage] {
			b.WriteString(index.Name)
			b.WriteByte(',')
			b.WriteString(index.Field)
			b.WriteByte(',')
			b.WriteString(strconv.FormatBool(index.Unique))
			b.WriteByte('\n')
		}
	}
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(b.String()))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}
