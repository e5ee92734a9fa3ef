// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/stash/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalVersion serializes a schema version to bytes.
func MarshalVersion(version uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(version))
	varint.Uint64.Marshal(version, buf)
	return buf
}

// UnmarshalVersion deserializes a schema version from bytes.
func UnmarshalVersion(data []byte) (uint64, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return v, nil
}

// MarshalIndexSpecs serializes a storage's index declarations. This is the
// value of a storage marker key.
func MarshalIndexSpecs(specs []core.IndexSpec) []byte {
	size := varint.Int.Size(len(specs))
	for _, spec := range specs {
		size += ord.String.Size(spec.Name)
		size += ord.String.Size(spec.Field)
		size += ord.Bool.Size(spec.Unique)
	}
	buf := make([]byte, size)
	n := varint.Int.Marshal(len(specs), buf)
	for _, spec := range specs {
		n += ord.String.Marshal(spec.Name, buf[n:])
		n += ord.String.Marshal(spec.Field, buf[n:])
		n += ord.Bool.Marshal(spec.Unique, buf[n:])
	}
	return buf
}

// UnmarshalIndexSpecs deserializes a storage's index declarations.
func UnmarshalIndexSpecs(data []byte) ([]core.IndexSpec, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative index count", ErrSerializationFailed)
	}
	specs := make([]core.IndexSpec, 0, count)
	for i := 0; i < count; i++ {
		var (
			spec core.IndexSpec
			m    int
		)
		if spec.Name, m, err = ord.String.Unmarshal(data[n:]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		n += m
		if spec.Field, m, err = ord.String.Unmarshal(data[n:]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		n += m
		if spec.Unique, m, err = ord.Bool.Unmarshal(data[n:]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		n += m
		specs = append(specs, spec)
	}
	return specs, nil
}

// MarshalRecord serializes a record to bytes. Records are schema-free maps,
// so they are stored as JSON rather than a static-schema codec.
func MarshalRecord(record core.Record) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalRecord deserializes a record from bytes.
func UnmarshalRecord(data []byte) (core.Record, error) {
	var record core.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return record, nil
}
