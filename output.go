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
	"fmt"
	"reflect"
	"sort"
	"time"
	"unsafe"

	"github.com/google/uuid"
)

// defaultLoadFactor is the sentinel emitted as a container's load-factor
// internal parameter. Go maps expose no such knob, so the writer always
// synthesizes the canonical 0.75 and the reader discards it.
const defaultLoadFactor float32 = 0.75

// Output is the write half of a stream handle: a growable buffer plus the
// handle table for one top-level Marshal call. Not safe for concurrent
// use; ownership is per invocation, enforced by the stream registry.
type Output struct {
	buf     *OutBuffer
	handles *writeHandles
	m       *Marshaller
}

func newOutput(m *Marshaller) *Output {
	return &Output{buf: NewOutBuffer(nil), handles: newWriteHandles(), m: m}
}

// reset prepares the handle for the next top-level call: position rewinds,
// the buffer's backing array is retained up to the soft cap, and the
// handle table is cleared.
func (o *Output) reset() {
	o.buf.Reset()
	clear(o.handles.positions)
}

// The exported Write methods below form the stream view handed to
// Externalizable, MarshalAware, and CustomMarshaler callbacks.

func (o *Output) WriteByte(v byte) error     { o.buf.WriteByte(v); return nil }
func (o *Output) WriteBool(v bool) error     { o.buf.WriteBool(v); return nil }
func (o *Output) WriteInt8(v int8) error     { o.buf.WriteInt8(v); return nil }
func (o *Output) WriteInt16(v int16) error   { o.buf.WriteInt16(v); return nil }
func (o *Output) WriteInt32(v int32) error   { o.buf.WriteInt32(v); return nil }
func (o *Output) WriteInt64(v int64) error   { o.buf.WriteInt64(v); return nil }
func (o *Output) WriteUint16(v uint16) error { o.buf.WriteUint16(v); return nil }
func (o *Output) WriteUint32(v uint32) error { o.buf.WriteUint32(v); return nil }
func (o *Output) WriteUint64(v uint64) error { o.buf.WriteUint64(v); return nil }
func (o *Output) WriteFloat32(v float32) error { o.buf.WriteFloat32(v); return nil }
func (o *Output) WriteFloat64(v float64) error { o.buf.WriteFloat64(v); return nil }
func (o *Output) WriteChar(v Char) error     { o.buf.WriteUint16(uint16(v)); return nil }
func (o *Output) WriteString(v string) error { o.buf.WriteString(v); return nil }

// WriteBytes writes a u32 length prefix followed by the raw bytes.
func (o *Output) WriteBytes(v []byte) error {
	o.buf.WriteUint32(uint32(len(v)))
	o.buf.WriteBytesRaw(v)
	return nil
}

// WriteValue writes one tagged value, the root of the write path.
func (o *Output) WriteValue(v any) error {
	if v == nil {
		o.buf.WriteByte(byte(NullTag))
		return nil
	}
	return o.writeReflect(reflect.ValueOf(v))
}

func (o *Output) writeNull() {
	o.buf.WriteByte(byte(NullTag))
}

// writeReflect writes one value: null and back-reference short circuits,
// then descriptor resolution, writeReplace, handle registration, and the
// per-tag dispatch.
func (o *Output) writeReflect(rv reflect.Value) error {
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			o.writeNull()
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Invalid:
		o.writeNull()
		return nil
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			o.writeNull()
			return nil
		}
	}

	var ident uintptr
	if rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Map {
		ident = rv.Pointer()
		if pos, ok := o.handles.lookup(ident); ok {
			o.buf.WriteByte(byte(HandleTag))
			o.buf.WriteUint32(uint32(pos))
			return nil
		}
	}

	elem := rv
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	d, err := o.m.descriptorFor(elem.Type())
	if err != nil {
		return err
	}
	if d.excluded {
		o.writeNull()
		return nil
	}

	if d.hasWriteReplace {
		elem = ensureAddressable(elem)
		if wr, ok := callbackOf[WriteReplacer](elem); ok {
			rep, err := wr.WriteReplace()
			if err != nil {
				return asIgniteError(err)
			}
			if replaced, nrv := isReplacement(rv, rep); replaced {
				if !nrv.IsValid() {
					if ident != 0 {
						o.handles.register(ident, o.buf.Len())
					}
					o.writeNull()
					return nil
				}
				elem = nrv
				for elem.Kind() == reflect.Pointer {
					elem = elem.Elem()
				}
				if d, err = o.m.descriptorFor(elem.Type()); err != nil {
					return err
				}
				if d.excluded {
					o.writeNull()
					return nil
				}
			}
		}
	}

	pos := o.buf.Len()
	if ident != 0 {
		o.handles.register(ident, pos)
	}
	o.buf.WriteByte(byte(d.tag))

	switch d.tag {
	case ByteTag, ShortTag, IntTag, LongTag, FloatTag, DoubleTag, CharTag, BoolTag:
		o.writeScalar(d.tag, elem)
		return nil
	case ByteArrayTag, ShortArrayTag, IntArrayTag, LongArrayTag,
		FloatArrayTag, DoubleArrayTag, CharArrayTag, BoolArrayTag:
		o.writePrimitiveArray(d.tag, elem)
		return nil
	case StringTag:
		o.buf.WriteString(elem.String())
		return nil
	case UUIDTag:
		writeUUID(o.buf, elem.Interface().(uuid.UUID))
		return nil
	case DateTag:
		writeDate(o.buf, elem.Interface().(time.Time))
		return nil
	case ClassTag:
		lit := elem.Interface().(ClassLiteral)
		o.writeTypeMetaName(lit.TypeName)
		return nil
	case PropertiesTag:
		return o.writeProperties(ensureAddressable(elem).Addr().Interface().(*Properties))
	case ArrayListTag:
		return o.writeArrayList(elem)
	case LinkedListTag:
		return o.writeLinkedList(ensureAddressable(elem).Addr().Interface().(*LinkedList))
	case HashMapTag:
		return o.writeHashMap(elem)
	case HashSetTag:
		return o.writeHashSet(ensureAddressable(elem).Addr().Interface().(*HashSet))
	case LinkedHashMapTag:
		return o.writeLinkedHashMap(ensureAddressable(elem).Addr().Interface().(*LinkedHashMap))
	case LinkedHashSetTag:
		return o.writeLinkedHashSet(ensureAddressable(elem).Addr().Interface().(*LinkedHashSet))
	case ObjectArrayTag:
		return o.writeObjectArray(elem)
	case EnumTag:
		return o.writeEnum(d, elem)
	case ExternalizableTag:
		return o.writeExternalizable(d, elem)
	case MarshalAwareTag:
		return o.writeMarshalAware(d, elem)
	case SerializableTag:
		return o.writeSerializable(d, elem, pos)
	}
	return protocolViolationErrorf(pos, "no writer for tag %s", d.tag)
}

func (o *Output) writeScalar(tag Tag, v reflect.Value) {
	switch tag {
	case ByteTag:
		o.buf.WriteByte(byte(scalarBits(v)))
	case ShortTag, CharTag:
		o.buf.WriteUint16(uint16(scalarBits(v)))
	case IntTag:
		o.buf.WriteUint32(uint32(scalarBits(v)))
	case LongTag:
		o.buf.WriteUint64(scalarBits(v))
	case FloatTag:
		o.buf.WriteFloat32(float32(v.Float()))
	case DoubleTag:
		o.buf.WriteFloat64(v.Float())
	case BoolTag:
		o.buf.WriteBool(v.Bool())
	}
}

// scalarBits extracts an integer scalar's raw bits regardless of sign.
func scalarBits(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(v.Int())
	default:
		return v.Uint()
	}
}

func (o *Output) writePrimitiveArray(tag Tag, v reflect.Value) {
	n := v.Len()
	o.buf.WriteUint32(uint32(n))
	if tag == ByteArrayTag && v.Type().Elem().Kind() == reflect.Uint8 {
		o.buf.WriteBytesRaw(v.Bytes())
		return
	}
	for i := 0; i < n; i++ {
		e := v.Index(i)
		switch tag {
		case ByteArrayTag:
			o.buf.WriteByte(byte(scalarBits(e)))
		case ShortArrayTag, CharArrayTag:
			o.buf.WriteUint16(uint16(scalarBits(e)))
		case IntArrayTag:
			o.buf.WriteUint32(uint32(scalarBits(e)))
		case LongArrayTag:
			o.buf.WriteUint64(scalarBits(e))
		case FloatArrayTag:
			o.buf.WriteFloat32(float32(e.Float()))
		case DoubleArrayTag:
			o.buf.WriteFloat64(e.Float())
		case BoolArrayTag:
			o.buf.WriteBool(e.Bool())
		}
	}
}

// writeTypeMeta emits the type-id metadata block: the bare id for mapped
// types, 0 plus the inline UTF name otherwise. Mapped emissions publish
// the binding to the marshaller context so remote readers can resolve it.
func (o *Output) writeTypeMeta(d *ClassDescriptor) {
	if d.idMapped {
		o.buf.WriteUint32(d.typeID)
		if o.m.config.Context != nil {
			o.m.config.Context.RegisterClassName(d.typeID, d.typeName)
		}
		return
	}
	o.buf.WriteUint32(0)
	o.buf.WriteString(d.typeName)
}

// writeTypeMetaName is the name-only variant used for CLASS literals,
// where no concrete Go type backs the reference.
func (o *Output) writeTypeMetaName(name string) {
	if mapper := o.m.config.IdMapper; mapper != nil {
		if id := mapper.TypeId(name); id != 0 {
			o.buf.WriteUint32(id)
			if o.m.config.Context != nil {
				o.m.config.Context.RegisterClassName(id, name)
			}
			return
		}
	}
	o.buf.WriteUint32(0)
	o.buf.WriteString(name)
}

func (o *Output) writeArrayList(v reflect.Value) error {
	n := v.Len()
	o.buf.WriteUint32(uint32(n))
	for i := 0; i < n; i++ {
		if err := o.writeReflect(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Output) writeObjectArray(v reflect.Value) error {
	comp, err := o.m.descriptorFor(v.Type().Elem())
	if err != nil {
		return err
	}
	o.writeTypeMeta(comp)
	n := v.Len()
	o.buf.WriteUint32(uint32(n))
	for i := 0; i < n; i++ {
		if err := o.writeReflect(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Output) writeLinkedList(l *LinkedList) error {
	values := l.Values()
	o.buf.WriteUint32(uint32(len(values)))
	for _, v := range values {
		if err := o.WriteValue(v); err != nil {
			return err
		}
	}
	return nil
}

// writeHashMap emits a Go map as HASH_MAP. Go randomizes map iteration, so
// entries are ordered by a canonical rendering of the key to keep marshal
// output byte-identical across runs.
func (o *Output) writeHashMap(v reflect.Value) error {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return canonicalKey(keys[i]) < canonicalKey(keys[j])
	})
	o.buf.WriteUint32(uint32(len(keys)))
	o.buf.WriteFloat32(defaultLoadFactor)
	for _, k := range keys {
		if err := o.writeReflect(k); err != nil {
			return err
		}
		if err := o.writeReflect(v.MapIndex(k)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Output) writeHashSet(s *HashSet) error {
	values := s.Values()
	sort.Slice(values, func(i, j int) bool {
		return canonicalKey(reflect.ValueOf(values[i])) < canonicalKey(reflect.ValueOf(values[j]))
	})
	o.buf.WriteUint32(uint32(len(values)))
	o.buf.WriteFloat32(defaultLoadFactor)
	for _, v := range values {
		if err := o.WriteValue(v); err != nil {
			return err
		}
	}
	return nil
}

func (o *Output) writeLinkedHashMap(m *LinkedHashMap) error {
	o.buf.WriteUint32(uint32(m.Len()))
	o.buf.WriteFloat32(defaultLoadFactor)
	o.buf.WriteBool(m.AccessOrder)
	for _, e := range m.Entries() {
		if err := o.WriteValue(e.key); err != nil {
			return err
		}
		if err := o.WriteValue(e.value); err != nil {
			return err
		}
	}
	return nil
}

func (o *Output) writeLinkedHashSet(s *LinkedHashSet) error {
	o.buf.WriteUint32(uint32(s.Len()))
	o.buf.WriteFloat32(defaultLoadFactor)
	for _, v := range s.Values() {
		if err := o.WriteValue(v); err != nil {
			return err
		}
	}
	return nil
}

func (o *Output) writeProperties(p *Properties) error {
	if err := o.WriteValue(p.Defaults); err != nil {
		return err
	}
	keys := p.Keys()
	sort.Strings(keys)
	o.buf.WriteUint32(uint32(len(keys)))
	for _, k := range keys {
		v, _ := p.Get(k)
		o.buf.WriteString(k)
		o.buf.WriteString(v)
	}
	return nil
}

func (o *Output) writeEnum(d *ClassDescriptor, v reflect.Value) error {
	o.writeTypeMeta(d)
	ord, err := enumOrdinal(v)
	if err != nil {
		return err
	}
	o.buf.WriteInt32(ord)
	return nil
}

func (o *Output) writeExternalizable(d *ClassDescriptor, elem reflect.Value) error {
	o.writeTypeMeta(d)
	o.buf.WriteUint16(d.checksum)
	elem = ensureAddressable(elem)
	ext, ok := callbackOf[Externalizable](elem)
	if !ok {
		return protocolViolationErrorf(o.buf.Len(), "%s lost its external-write callback", d.typeName)
	}
	return asIgniteError(ext.WriteExternal(o))
}

func (o *Output) writeMarshalAware(d *ClassDescriptor, elem reflect.Value) error {
	o.writeTypeMeta(d)
	o.buf.WriteUint16(d.checksum)
	o.m.publishSchema(d)
	elem = ensureAddressable(elem)
	aware, ok := callbackOf[MarshalAware](elem)
	if !ok {
		return protocolViolationErrorf(o.buf.Len(), "%s lost its write-fields callback", d.typeName)
	}
	return asIgniteError(aware.WriteFields(o))
}

// idxEntry is one pending footer row: the field id and the value's offset
// relative to the object's tag byte.
type idxEntry struct {
	id  uint32
	off uint32
}

// writeSerializable emits the SERIALIZABLE payload: type metadata, the
// schema checksum, then either the custom WriteObject blob or the
// per-level field walk (base-first, lexicographic within level), with the
// field-id prefix and trailing footer when indexing is enabled.
func (o *Output) writeSerializable(d *ClassDescriptor, elem reflect.Value, start int) error {
	o.writeTypeMeta(d)
	o.buf.WriteUint16(d.checksum)

	elem = ensureAddressable(elem)
	if d.hasCustomMarshal {
		cm, ok := callbackOf[CustomMarshaler](elem)
		if !ok {
			return protocolViolationErrorf(start, "%s lost its write hook", d.typeName)
		}
		return asIgniteError(cm.WriteObject(o))
	}

	indexed := o.m.indexingEnabled(d)
	if indexed {
		o.m.publishSchema(d)
	}

	base := elem.Addr().UnsafePointer()
	var entries []idxEntry
	for _, lvl := range d.levels {
		for _, f := range lvl.fields {
			if indexed {
				fid := fieldID(d.typeID, f.name)
				o.buf.WriteUint32(fid)
				entries = append(entries, idxEntry{id: fid, off: uint32(o.buf.Len() - start)})
			}
			if err := o.writeFieldAt(base, f); err != nil {
				return err
			}
		}
	}
	if indexed {
		footerStart := uint32(o.buf.Len() - start)
		for _, e := range entries {
			o.buf.WriteUint32(e.id)
			o.buf.WriteUint32(e.off)
		}
		o.buf.WriteUint32(footerStart)
	}
	return nil
}

// writeFieldAt writes one field as a tagged value, loading primitives
// directly from the recorded offset so the hot path never dispatches
// through reflect. Phantom fields write their kind's zero value.
func (o *Output) writeFieldAt(base unsafe.Pointer, f fieldRecord) error {
	if f.kind != KindOther {
		o.buf.WriteByte(byte(tagForKind(f.kind)))
		if f.phantom {
			o.writeZeroOfKind(f.kind)
			return nil
		}
		p := unsafe.Add(base, f.offset)
		switch f.kind {
		case KindByte:
			o.buf.WriteByte(*(*byte)(p))
		case KindShort, KindChar:
			o.buf.WriteUint16(*(*uint16)(p))
		case KindInt:
			o.buf.WriteUint32(*(*uint32)(p))
		case KindLong:
			o.buf.WriteUint64(*(*uint64)(p))
		case KindFloat:
			o.buf.WriteUint32(*(*uint32)(p))
		case KindDouble:
			o.buf.WriteUint64(*(*uint64)(p))
		case KindBool:
			o.buf.WriteBool(*(*bool)(p))
		}
		return nil
	}
	if f.phantom {
		o.writeNull()
		return nil
	}
	rv := reflect.NewAt(f.typ, unsafe.Add(base, f.offset)).Elem()
	return o.writeReflect(rv)
}

func (o *Output) writeZeroOfKind(k FieldKind) {
	switch k {
	case KindByte, KindBool:
		o.buf.WriteByte(0)
	case KindShort, KindChar:
		o.buf.WriteUint16(0)
	case KindInt, KindFloat:
		o.buf.WriteUint32(0)
	case KindLong, KindDouble:
		o.buf.WriteUint64(0)
	}
}

// ensureAddressable returns v itself when addressable, or an addressable
// copy otherwise, so callbacks with pointer receivers and raw offset
// access always have a stable base address.
func ensureAddressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

// callbackOf fetches a callback interface from v, trying the value first
// and its address second for pointer-receiver methods.
func callbackOf[T any](v reflect.Value) (T, bool) {
	if v.CanInterface() {
		if i, ok := v.Interface().(T); ok {
			return i, true
		}
	}
	if v.CanAddr() {
		if i, ok := v.Addr().Interface().(T); ok {
			return i, true
		}
	}
	var zero T
	return zero, false
}

// isReplacement decides whether rep is a genuinely different object from
// the original rv. Pointer-identical replacements are treated as "no
// replacement" so a WriteReplace returning its receiver costs nothing.
func isReplacement(rv reflect.Value, rep any) (bool, reflect.Value) {
	if rep == nil {
		return true, reflect.Value{}
	}
	nrv := reflect.ValueOf(rep)
	if nrv.Kind() == reflect.Pointer && rv.Kind() == reflect.Pointer && nrv.Pointer() == rv.Pointer() {
		return false, reflect.Value{}
	}
	return true, nrv
}

// canonicalKey renders a map key or set element for deterministic
// ordering. Distinct values with equal renderings order arbitrarily among
// themselves but still deterministically per run input.
func canonicalKey(v reflect.Value) string {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() {
		return "<nil>"
	}
	return fmt.Sprintf("%v:%v", v.Type(), v.Interface())
}
