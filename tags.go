// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package ignite

import (
	"hash/fnv"
)

// Tag is the single wire-format discriminator byte. Values are stable and
// MUST NOT be renumbered: they travel on the wire between nodes running
// different builds of this module.
type Tag uint8

const (
	NullTag Tag = iota
	HandleTag

	ByteTag
	ShortTag
	IntTag
	LongTag
	FloatTag
	DoubleTag
	CharTag
	BoolTag

	ByteArrayTag
	ShortArrayTag
	IntArrayTag
	LongArrayTag
	FloatArrayTag
	DoubleArrayTag
	CharArrayTag
	BoolArrayTag

	StringTag
	UUIDTag
	DateTag
	ClassTag
	PropertiesTag
	ArrayListTag
	LinkedListTag
	HashMapTag
	HashSetTag
	LinkedHashMapTag
	LinkedHashSetTag
	ObjectArrayTag
	EnumTag
	ExternalizableTag
	MarshalAwareTag
	SerializableTag
)

func (t Tag) String() string {
	switch t {
	case NullTag:
		return "NULL"
	case HandleTag:
		return "HANDLE"
	case ByteTag:
		return "BYTE"
	case ShortTag:
		return "SHORT"
	case IntTag:
		return "INT"
	case LongTag:
		return "LONG"
	case FloatTag:
		return "FLOAT"
	case DoubleTag:
		return "DOUBLE"
	case CharTag:
		return "CHAR"
	case BoolTag:
		return "BOOL"
	case ByteArrayTag:
		return "BYTE_ARRAY"
	case ShortArrayTag:
		return "SHORT_ARRAY"
	case IntArrayTag:
		return "INT_ARRAY"
	case LongArrayTag:
		return "LONG_ARRAY"
	case FloatArrayTag:
		return "FLOAT_ARRAY"
	case DoubleArrayTag:
		return "DOUBLE_ARRAY"
	case CharArrayTag:
		return "CHAR_ARRAY"
	case BoolArrayTag:
		return "BOOL_ARRAY"
	case StringTag:
		return "STRING"
	case UUIDTag:
		return "UUID"
	case DateTag:
		return "DATE"
	case ClassTag:
		return "CLASS"
	case PropertiesTag:
		return "PROPERTIES"
	case ArrayListTag:
		return "ARRAY_LIST"
	case LinkedListTag:
		return "LINKED_LIST"
	case HashMapTag:
		return "HASH_MAP"
	case HashSetTag:
		return "HASH_SET"
	case LinkedHashMapTag:
		return "LINKED_HASH_MAP"
	case LinkedHashSetTag:
		return "LINKED_HASH_SET"
	case ObjectArrayTag:
		return "OBJECT_ARRAY"
	case EnumTag:
		return "ENUM"
	case ExternalizableTag:
		return "EXTERNALIZABLE"
	case MarshalAwareTag:
		return "MARSHAL_AWARE"
	case SerializableTag:
		return "SERIALIZABLE"
	default:
		return "UNKNOWN"
	}
}

// IdMapper maps a fully-qualified type name to a stable 32-bit type id.
// Returning 0 tells the resolver to fall back to the deterministic name
// hash, and the writer emits the name inline instead of a bare id.
type IdMapper interface {
	TypeId(name string) uint32
}

// idMapperFunc adapts a plain function to the IdMapper interface.
type idMapperFunc func(name string) uint32

func (f idMapperFunc) TypeId(name string) uint32 { return f(name) }

// resolveTypeId implements the pure type-id resolution rule:
// mapper.TypeId(name) if non-zero, else a deterministic hash of the name.
// Zero is reserved to mean "emit the name inline" and is never returned: a
// zero from the mapper falls through to the hash, and hashTypeName maps a
// zero hash to 1.
func resolveTypeId(name string, mapper IdMapper) uint32 {
	if mapper != nil {
		if id := mapper.TypeId(name); id != 0 {
			return id
		}
	}
	return hashTypeName(name)
}

// hashTypeName is the fallback name hash: FNV-1a over the UTF-8 bytes of
// the fully-qualified type name. The resulting id travels on the wire and
// must stay fixed forever; the stdlib FNV-1a implementation covers that
// without an extra hash dependency (murmur3 stays reserved for the schema
// digests in checksum.go).
func hashTypeName(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()
	if sum == 0 {
		// Reserve 0 for "emit inline"; nudge the rare collision.
		sum = 1
	}
	return sum
}
