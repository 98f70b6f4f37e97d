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
	"encoding/binary"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// FieldMeta is one entry of a published field schema.
type FieldMeta struct {
	Name string
	Kind FieldKind
}

// FieldSchema is the published metadata for one type id: enough for a
// consumer to enumerate field names and kinds without touching bytes.
type FieldSchema struct {
	TypeName string
	Fields   []FieldMeta
}

// MetadataHandler is the process-wide type-id to field-schema map fed by
// the write path on the first marshal of each indexed or marshal-aware
// type.
type MetadataHandler struct {
	schemas *xsync.MapOf[uint32, *FieldSchema]
}

// NewMetadataHandler returns an empty metadata map.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{schemas: xsync.NewMapOf[uint32, *FieldSchema]()}
}

// Publish installs schema for typeID if none is present yet; it reports
// whether this call was the installing one.
func (h *MetadataHandler) Publish(typeID uint32, schema *FieldSchema) bool {
	_, loaded := h.schemas.LoadOrStore(typeID, schema)
	return !loaded
}

// Schema returns the published schema for typeID.
func (h *MetadataHandler) Schema(typeID uint32) (*FieldSchema, bool) {
	return h.schemas.Load(typeID)
}

// FieldNames enumerates the published field names for typeID, in wire
// order, without touching serialized bytes.
func (h *MetadataHandler) FieldNames(typeID uint32) []string {
	s, ok := h.schemas.Load(typeID)
	if !ok {
		return nil
	}
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// IndexingHandler decides which indexable classes actually get a footer
// and owns the metadata map schemas are published to.
type IndexingHandler interface {
	EnableIndexing(t reflect.Type) bool
	Metadata() *MetadataHandler
}

// defaultIndexingHandler enables footers for every indexable class.
type defaultIndexingHandler struct {
	metadata *MetadataHandler
}

// NewIndexingHandler returns a handler that indexes every class whose
// descriptor supports it.
func NewIndexingHandler() IndexingHandler {
	return &defaultIndexingHandler{metadata: NewMetadataHandler()}
}

func (h *defaultIndexingHandler) EnableIndexing(reflect.Type) bool { return true }
func (h *defaultIndexingHandler) Metadata() *MetadataHandler       { return h.metadata }

// CacheObjectContext controls how ReadField surfaces a nested indexable
// object: when KeepBinary reports true, the field comes back undecoded as
// a *CacheObject instead of a reconstructed value.
type CacheObjectContext interface {
	KeepBinary() bool
}

// KeepBinary is the canonical CacheObjectContext for binary-mode callers.
type KeepBinary struct{}

func (KeepBinary) KeepBinary() bool { return true }

// CacheObject is a lazily-parsed handle over a serialized object embedded
// in a larger blob. Nothing is decoded until one of its methods asks.
type CacheObject struct {
	m        *Marshaller
	resolver ClassResolver
	data     []byte
	off      int
	length   int
}

// Bytes returns the raw serialized form of the wrapped object.
func (o *CacheObject) Bytes() []byte { return o.data[o.off : o.off+o.length] }

// Deserialize fully reconstructs the wrapped object.
func (o *CacheObject) Deserialize() (any, error) {
	return o.m.UnmarshalAt(o.data, o.off, o.length, o.resolver)
}

// HasField answers over the wrapped object's footer without decoding.
func (o *CacheObject) HasField(name string) (bool, error) {
	return o.m.HasField(name, o.data, o.off, o.length)
}

// Field extracts one field of the wrapped object.
func (o *CacheObject) Field(name string) (any, error) {
	return o.m.ReadField(name, o.data, o.off, o.length, o.resolver, nil)
}

// footerEntries locates the footer of a serialized SERIALIZABLE blob and
// returns the wire type id (the field-id salt) and the raw entry region.
// found is false when the blob carries no footer-bearing tag.
func (m *Marshaller) footerEntries(data []byte, off, length int) (typeID uint32, entries []byte, found bool, err error) {
	if length < 1 {
		return 0, nil, false, protocolViolationErrorf(off, "empty blob")
	}
	buf := NewInBuffer(data[off : off+length])
	tb, err := buf.ReadByte()
	if err != nil {
		return 0, nil, false, err
	}
	if Tag(tb) != SerializableTag {
		return 0, nil, false, nil
	}
	typeID, _, err = m.readTypeMeta(buf)
	if err != nil {
		return 0, nil, false, err
	}
	if length < 4 {
		return 0, nil, false, protocolViolationErrorf(off, "truncated footer")
	}
	footerStart := int(binary.LittleEndian.Uint32(data[off+length-4 : off+length]))
	if footerStart <= 0 || footerStart > length-4 || (length-4-footerStart)%8 != 0 {
		return 0, nil, false, nil
	}
	return typeID, data[off+footerStart : off+length-4], true, nil
}

// HasField reports whether the serialized blob's footer contains the
// named field, without decoding the object.
func (m *Marshaller) HasField(name string, data []byte, off, length int) (bool, error) {
	typeID, entries, found, err := m.footerEntries(data, off, length)
	if err != nil || !found {
		return false, err
	}
	fid := fieldID(typeID, name)
	for i := 0; i+8 <= len(entries); i += 8 {
		if binary.LittleEndian.Uint32(entries[i:]) == fid {
			return true, nil
		}
	}
	return false, nil
}

// ReadField extracts one field from the serialized blob by jumping to its
// footer-recorded offset and decoding only that value. When the field is
// itself an indexable object and ctx asks for binary mode, the field
// comes back undecoded as a *CacheObject.
func (m *Marshaller) ReadField(name string, data []byte, off, length int, resolver ClassResolver, ctx CacheObjectContext) (any, error) {
	typeID, entries, found, err := m.footerEntries(data, off, length)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fieldNotFoundError(name)
	}
	fid := fieldID(typeID, name)
	rel := -1
	for i := 0; i+8 <= len(entries); i += 8 {
		if binary.LittleEndian.Uint32(entries[i:]) == fid {
			rel = int(binary.LittleEndian.Uint32(entries[i+4:]))
			break
		}
	}
	if rel < 0 {
		return nil, fieldNotFoundError(name)
	}
	if rel >= length {
		return nil, protocolViolationErrorf(off+rel, "footer offset past blob end")
	}

	if ctx != nil && ctx.KeepBinary() && Tag(data[off+rel]) == SerializableTag {
		extent, err := m.valueExtent(data, off, length, rel, resolver)
		if err == nil {
			return &CacheObject{m: m, resolver: resolver, data: data, off: off + rel, length: extent}, nil
		}
		// An unskippable payload falls through to eager decoding.
	}

	in := m.registry.acquireIn()
	defer m.registry.releaseIn(in)
	in.reset(data[off:off+length], resolver)
	in.partial = true
	in.buf.SetPosition(rel)
	v, err := in.readReflect()
	if err != nil {
		return nil, err
	}
	return ifaceOf(v), nil
}

// valueExtent measures the serialized size of the value starting at rel
// by walking the wire structurally without building objects.
func (m *Marshaller) valueExtent(data []byte, off, length, rel int, resolver ClassResolver) (int, error) {
	buf := NewInBuffer(data[off : off+length])
	buf.SetPosition(rel)
	if err := m.skipValue(buf, resolver); err != nil {
		return 0, err
	}
	return buf.Position() - rel, nil
}

// skipValue advances buf past one tagged value. EXTERNALIZABLE,
// MARSHAL_AWARE, and custom-marshalled payloads are opaque (no length
// word) and cannot be skipped.
func (m *Marshaller) skipValue(buf *InBuffer, resolver ClassResolver) error {
	pos := buf.Position()
	tb, err := buf.ReadByte()
	if err != nil {
		return err
	}
	tag := Tag(tb)

	skipN := func(n int) error {
		_, err := buf.ReadBytesRaw(n)
		return err
	}
	skipLenScaled := func(scale int) error {
		n, err := buf.ReadUint32()
		if err != nil {
			return err
		}
		return skipN(int(n) * scale)
	}
	skipValues := func(count int) error {
		for i := 0; i < count; i++ {
			if err := m.skipValue(buf, resolver); err != nil {
				return err
			}
		}
		return nil
	}
	skipMeta := func() error {
		_, _, err := m.readTypeMeta(buf)
		return err
	}

	switch tag {
	case NullTag:
		return nil
	case HandleTag:
		return skipN(4)
	case ByteTag, BoolTag:
		return skipN(1)
	case ShortTag, CharTag:
		return skipN(2)
	case IntTag, FloatTag:
		return skipN(4)
	case LongTag, DoubleTag:
		return skipN(8)
	case ByteArrayTag, BoolArrayTag:
		return skipLenScaled(1)
	case ShortArrayTag, CharArrayTag:
		return skipLenScaled(2)
	case IntArrayTag, FloatArrayTag:
		return skipLenScaled(4)
	case LongArrayTag, DoubleArrayTag:
		return skipLenScaled(8)
	case StringTag:
		return skipLenScaled(1)
	case UUIDTag:
		return skipN(16)
	case DateTag:
		return skipN(8)
	case ClassTag:
		return skipMeta()
	case PropertiesTag:
		if err := m.skipValue(buf, resolver); err != nil {
			return err
		}
		n, err := buf.ReadUint32()
		if err != nil {
			return err
		}
		for i := 0; i < int(n); i++ {
			if err := skipLenScaled(1); err != nil {
				return err
			}
			if err := skipLenScaled(1); err != nil {
				return err
			}
		}
		return nil
	case ArrayListTag, LinkedListTag:
		n, err := buf.ReadUint32()
		if err != nil {
			return err
		}
		return skipValues(int(n))
	case HashMapTag, HashSetTag, LinkedHashMapTag, LinkedHashSetTag:
		n, err := buf.ReadUint32()
		if err != nil {
			return err
		}
		if _, err := buf.ReadFloat32(); err != nil {
			return err
		}
		count := int(n)
		if tag == HashMapTag || tag == LinkedHashMapTag {
			count *= 2
		}
		if tag == LinkedHashMapTag {
			if _, err := buf.ReadBool(); err != nil {
				return err
			}
		}
		return skipValues(count)
	case ObjectArrayTag:
		if err := skipMeta(); err != nil {
			return err
		}
		n, err := buf.ReadUint32()
		if err != nil {
			return err
		}
		return skipValues(int(n))
	case EnumTag:
		if err := skipMeta(); err != nil {
			return err
		}
		return skipN(4)
	case ExternalizableTag, MarshalAwareTag:
		return protocolViolationErrorf(pos, "cannot skip opaque %s payload", tag)
	case SerializableTag:
		_, name, err := m.readTypeMeta(buf)
		if err != nil {
			return err
		}
		if resolver == nil {
			return classNotFoundByNameError(name)
		}
		t, err := resolver.Resolve(name)
		if err != nil {
			return asIgniteError(err)
		}
		d, err := m.descriptorFor(t)
		if err != nil {
			return err
		}
		if err := skipN(2); err != nil {
			return err
		}
		if d.hasCustomMarshal {
			return protocolViolationErrorf(pos, "cannot skip opaque payload of %s", d.typeName)
		}
		indexed := m.indexingEnabled(d)
		fields := d.flatFields()
		for range fields {
			if indexed {
				if err := skipN(4); err != nil {
					return err
				}
			}
			if err := m.skipValue(buf, resolver); err != nil {
				return err
			}
		}
		if indexed {
			return skipN(len(fields)*8 + 4)
		}
		return nil
	}
	return protocolViolationErrorf(pos, "malformed tag 0x%02x", tb)
}
