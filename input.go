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
	"reflect"
	"unsafe"
)

// Input is the read half of a stream handle: a positioned buffer plus the
// handle table for one top-level Unmarshal call. Not safe for concurrent
// use; ownership is per invocation, enforced by the stream registry.
type Input struct {
	buf      *InBuffer
	handles  *readHandles
	m        *Marshaller
	resolver ClassResolver

	// partial marks a ReadField invocation: a back-reference to a position
	// not yet traversed is resolved by seeking instead of failing, since
	// the whole blob is at hand.
	partial bool
}

func newInput(m *Marshaller) *Input {
	return &Input{buf: NewInBuffer(nil), handles: newReadHandles(), m: m}
}

func (in *Input) reset(data []byte, resolver ClassResolver) {
	in.buf = NewInBuffer(data)
	clear(in.handles.values)
	in.resolver = resolver
	in.partial = false
}

// The exported Read methods below form the stream view handed to
// Externalizable, MarshalAware, and CustomMarshaler callbacks.

func (in *Input) ReadByte() (byte, error)       { return in.buf.ReadByte() }
func (in *Input) ReadBool() (bool, error)       { return in.buf.ReadBool() }
func (in *Input) ReadInt8() (int8, error)       { return in.buf.ReadInt8() }
func (in *Input) ReadInt16() (int16, error)     { return in.buf.ReadInt16() }
func (in *Input) ReadInt32() (int32, error)     { return in.buf.ReadInt32() }
func (in *Input) ReadInt64() (int64, error)     { return in.buf.ReadInt64() }
func (in *Input) ReadUint16() (uint16, error)   { return in.buf.ReadUint16() }
func (in *Input) ReadUint32() (uint32, error)   { return in.buf.ReadUint32() }
func (in *Input) ReadUint64() (uint64, error)   { return in.buf.ReadUint64() }
func (in *Input) ReadFloat32() (float32, error) { return in.buf.ReadFloat32() }
func (in *Input) ReadFloat64() (float64, error) { return in.buf.ReadFloat64() }
func (in *Input) ReadString() (string, error)   { return in.buf.ReadString() }

func (in *Input) ReadChar() (Char, error) {
	v, err := in.buf.ReadUint16()
	return Char(v), err
}

// ReadBytes reads a u32 length prefix followed by that many raw bytes.
// The returned slice is copied out of the stream buffer.
func (in *Input) ReadBytes() ([]byte, error) {
	n, err := in.buf.ReadUint32()
	if err != nil {
		return nil, err
	}
	raw, err := in.buf.ReadBytesRaw(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// ReadValue reads one tagged value, the root of the read path.
func (in *Input) ReadValue() (any, error) {
	v, err := in.readReflect()
	if err != nil {
		return nil, err
	}
	return ifaceOf(v), nil
}

func ifaceOf(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// readTypeMeta consumes a type-id metadata block and returns the wire
// type id (the field-id salt) and the resolved class name.
func (in *Input) readTypeMeta() (uint32, string, error) {
	return in.m.readTypeMeta(in.buf)
}

func (in *Input) resolveClass(name string) (reflect.Type, *ClassDescriptor, error) {
	if in.resolver == nil {
		return nil, nil, classNotFoundByNameError(name)
	}
	t, err := in.resolver.Resolve(name)
	if err != nil {
		return nil, nil, asIgniteError(err)
	}
	d, err := in.m.descriptorFor(t)
	if err != nil {
		return nil, nil, err
	}
	return t, d, nil
}

// readReflect reads one tagged value. The returned Value is invalid for
// NULL.
func (in *Input) readReflect() (reflect.Value, error) {
	pos := in.buf.Position()
	tb, err := in.buf.ReadByte()
	if err != nil {
		return reflect.Value{}, err
	}
	tag := Tag(tb)
	if tag > SerializableTag {
		return reflect.Value{}, protocolViolationErrorf(pos, "malformed tag 0x%02x", tb)
	}

	switch tag {
	case NullTag:
		return reflect.Value{}, nil

	case HandleTag:
		p, err := in.buf.ReadUint32()
		if err != nil {
			return reflect.Value{}, err
		}
		if v, ok := in.handles.lookup(int(p)); ok {
			return v, nil
		}
		if in.partial {
			// Partial extraction jumps into the middle of a stream, so the
			// referent may simply not have been traversed yet.
			cur := in.buf.Position()
			in.buf.SetPosition(int(p))
			v, err := in.readReflect()
			in.buf.SetPosition(cur)
			return v, err
		}
		return reflect.Value{}, protocolViolationErrorf(pos, "handle to unwritten position %d", p)

	case ByteTag:
		v, err := in.buf.ReadInt8()
		return reflect.ValueOf(v), err
	case ShortTag:
		v, err := in.buf.ReadInt16()
		return reflect.ValueOf(v), err
	case IntTag:
		v, err := in.buf.ReadInt32()
		return reflect.ValueOf(v), err
	case LongTag:
		v, err := in.buf.ReadInt64()
		return reflect.ValueOf(v), err
	case FloatTag:
		v, err := in.buf.ReadFloat32()
		return reflect.ValueOf(v), err
	case DoubleTag:
		v, err := in.buf.ReadFloat64()
		return reflect.ValueOf(v), err
	case CharTag:
		v, err := in.buf.ReadUint16()
		return reflect.ValueOf(Char(v)), err
	case BoolTag:
		v, err := in.buf.ReadBool()
		return reflect.ValueOf(v), err

	case ByteArrayTag:
		n, err := in.buf.ReadUint32()
		if err != nil {
			return reflect.Value{}, err
		}
		raw, err := in.buf.ReadBytesRaw(int(n))
		if err != nil {
			return reflect.Value{}, err
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return reflect.ValueOf(out), nil
	case ShortArrayTag:
		return in.readNumericArray(func() (any, error) { v, err := in.buf.ReadInt16(); return v, err }, []int16(nil))
	case IntArrayTag:
		return in.readNumericArray(func() (any, error) { v, err := in.buf.ReadInt32(); return v, err }, []int32(nil))
	case LongArrayTag:
		return in.readNumericArray(func() (any, error) { v, err := in.buf.ReadInt64(); return v, err }, []int64(nil))
	case FloatArrayTag:
		return in.readNumericArray(func() (any, error) { v, err := in.buf.ReadFloat32(); return v, err }, []float32(nil))
	case DoubleArrayTag:
		return in.readNumericArray(func() (any, error) { v, err := in.buf.ReadFloat64(); return v, err }, []float64(nil))
	case CharArrayTag:
		return in.readNumericArray(func() (any, error) { v, err := in.buf.ReadUint16(); return Char(v), err }, []Char(nil))
	case BoolArrayTag:
		return in.readNumericArray(func() (any, error) { v, err := in.buf.ReadBool(); return v, err }, []bool(nil))

	case StringTag:
		v, err := in.buf.ReadString()
		return reflect.ValueOf(v), err
	case UUIDTag:
		v, err := readUUID(in.buf)
		return reflect.ValueOf(v), err
	case DateTag:
		v, err := readDate(in.buf)
		return reflect.ValueOf(v), err
	case ClassTag:
		_, name, err := in.readTypeMeta()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(ClassLiteral{TypeName: name}), nil

	case PropertiesTag:
		return in.readProperties(pos)
	case ArrayListTag:
		return in.readArrayList()
	case LinkedListTag:
		return in.readLinkedList(pos)
	case HashMapTag:
		return in.readHashMap(pos)
	case HashSetTag:
		return in.readHashSet(pos)
	case LinkedHashMapTag:
		return in.readLinkedHashMap(pos)
	case LinkedHashSetTag:
		return in.readLinkedHashSet(pos)
	case ObjectArrayTag:
		return in.readObjectArray()
	case EnumTag:
		return in.readEnum()
	case ExternalizableTag:
		return in.readExternalizable(pos)
	case MarshalAwareTag:
		return in.readMarshalAware(pos)
	case SerializableTag:
		return in.readSerializable(pos)
	}
	return reflect.Value{}, protocolViolationErrorf(pos, "no reader for tag %s", tag)
}

func (in *Input) readNumericArray(read func() (any, error), proto any) (reflect.Value, error) {
	n, err := in.buf.ReadUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(reflect.TypeOf(proto), int(n), int(n))
	for i := 0; i < int(n); i++ {
		v, err := read()
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(reflect.ValueOf(v))
	}
	return out, nil
}

func (in *Input) readArrayList() (reflect.Value, error) {
	n, err := in.buf.ReadUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	out := make([]any, int(n))
	for i := range out {
		v, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		out[i] = ifaceOf(v)
	}
	return reflect.ValueOf(out), nil
}

func (in *Input) readObjectArray() (reflect.Value, error) {
	_, name, err := in.readTypeMeta()
	if err != nil {
		return reflect.Value{}, err
	}
	comp, _, err := in.resolveClass(name)
	if err != nil {
		return reflect.Value{}, err
	}
	n, err := in.buf.ReadUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(reflect.SliceOf(comp), int(n), int(n))
	for i := 0; i < int(n); i++ {
		v, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		if err := assignValue(out.Index(i), v); err != nil {
			return reflect.Value{}, err
		}
	}
	return out, nil
}

func (in *Input) readLinkedList(pos int) (reflect.Value, error) {
	l := NewLinkedList()
	in.handles.register(pos, reflect.ValueOf(l))
	n, err := in.buf.ReadUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	for i := 0; i < int(n); i++ {
		v, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		l.PushBack(ifaceOf(v))
	}
	return reflect.ValueOf(l), nil
}

// readContainerParams consumes the size and load-factor words common to
// the hash containers. The load factor is a synthesized sentinel on the
// write side and carries no information for Go containers.
func (in *Input) readContainerParams() (int, error) {
	n, err := in.buf.ReadUint32()
	if err != nil {
		return 0, err
	}
	if _, err := in.buf.ReadFloat32(); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (in *Input) readHashMap(pos int) (reflect.Value, error) {
	n, err := in.readContainerParams()
	if err != nil {
		return reflect.Value{}, err
	}
	m := make(map[any]any, n)
	in.handles.register(pos, reflect.ValueOf(m))
	for i := 0; i < n; i++ {
		k, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		m[ifaceOf(k)] = ifaceOf(v)
	}
	return reflect.ValueOf(m), nil
}

func (in *Input) readHashSet(pos int) (reflect.Value, error) {
	s := NewHashSet()
	in.handles.register(pos, reflect.ValueOf(s))
	n, err := in.readContainerParams()
	if err != nil {
		return reflect.Value{}, err
	}
	for i := 0; i < n; i++ {
		v, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		s.Add(ifaceOf(v))
	}
	return reflect.ValueOf(s), nil
}

func (in *Input) readLinkedHashMap(pos int) (reflect.Value, error) {
	m := NewLinkedHashMap()
	in.handles.register(pos, reflect.ValueOf(m))
	n, err := in.readContainerParams()
	if err != nil {
		return reflect.Value{}, err
	}
	accessOrder, err := in.buf.ReadBool()
	if err != nil {
		return reflect.Value{}, err
	}
	m.AccessOrder = accessOrder
	for i := 0; i < n; i++ {
		k, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		m.Put(ifaceOf(k), ifaceOf(v))
	}
	return reflect.ValueOf(m), nil
}

func (in *Input) readLinkedHashSet(pos int) (reflect.Value, error) {
	s := NewLinkedHashSet()
	in.handles.register(pos, reflect.ValueOf(s))
	n, err := in.readContainerParams()
	if err != nil {
		return reflect.Value{}, err
	}
	for i := 0; i < n; i++ {
		v, err := in.readReflect()
		if err != nil {
			return reflect.Value{}, err
		}
		s.Add(ifaceOf(v))
	}
	return reflect.ValueOf(s), nil
}

func (in *Input) readProperties(pos int) (reflect.Value, error) {
	p := NewProperties()
	in.handles.register(pos, reflect.ValueOf(p))
	defaults, err := in.readReflect()
	if err != nil {
		return reflect.Value{}, err
	}
	if defaults.IsValid() {
		dp, ok := ifaceOf(defaults).(*Properties)
		if !ok {
			return reflect.Value{}, protocolViolationErrorf(pos, "defaults chain is not PROPERTIES")
		}
		p.Defaults = dp
	}
	n, err := in.buf.ReadUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	for i := 0; i < int(n); i++ {
		k, err := in.buf.ReadString()
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := in.buf.ReadString()
		if err != nil {
			return reflect.Value{}, err
		}
		p.Set(k, v)
	}
	return reflect.ValueOf(p), nil
}

func (in *Input) readEnum() (reflect.Value, error) {
	_, name, err := in.readTypeMeta()
	if err != nil {
		return reflect.Value{}, err
	}
	t, _, err := in.resolveClass(name)
	if err != nil {
		return reflect.Value{}, err
	}
	ord, err := in.buf.ReadInt32()
	if err != nil {
		return reflect.Value{}, err
	}
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(ord))
	default:
		v.SetInt(int64(ord))
	}
	return v, nil
}

// readCallbackType handles the shared front half of the EXTERNALIZABLE and
// MARSHAL_AWARE reads: metadata, checksum validation, allocation, and the
// captured-constructor run.
func (in *Input) readCallbackType(pos int) (reflect.Value, *ClassDescriptor, error) {
	_, name, err := in.readTypeMeta()
	if err != nil {
		return reflect.Value{}, nil, err
	}
	t, d, err := in.resolveClass(name)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	sum, err := in.buf.ReadUint16()
	if err != nil {
		return reflect.Value{}, nil, err
	}
	if sum != d.checksum {
		return reflect.Value{}, nil, schemaMismatchError(name, sum, d.checksum)
	}
	pv := reflect.New(t)
	if c, ok := pv.Interface().(Constructible); ok {
		c.Construct()
	}
	in.handles.register(pos, pv)
	return pv, d, nil
}

func (in *Input) readExternalizable(pos int) (reflect.Value, error) {
	pv, d, err := in.readCallbackType(pos)
	if err != nil {
		return reflect.Value{}, err
	}
	ext, ok := callbackOf[Externalizable](pv.Elem())
	if !ok {
		return reflect.Value{}, protocolViolationErrorf(pos, "%s lost its external-read callback", d.typeName)
	}
	if err := ext.ReadExternal(in); err != nil {
		return reflect.Value{}, asIgniteError(err)
	}
	return in.applyReadResolve(pos, pv, d)
}

func (in *Input) readMarshalAware(pos int) (reflect.Value, error) {
	pv, d, err := in.readCallbackType(pos)
	if err != nil {
		return reflect.Value{}, err
	}
	aware, ok := callbackOf[MarshalAware](pv.Elem())
	if !ok {
		return reflect.Value{}, protocolViolationErrorf(pos, "%s lost its read-fields callback", d.typeName)
	}
	if err := aware.ReadFields(in); err != nil {
		return reflect.Value{}, asIgniteError(err)
	}
	return in.applyReadResolve(pos, pv, d)
}

// readSerializable reads the SERIALIZABLE payload: type metadata, the
// checksum guard, a zeroed instance allocated without running any
// initialization, handle registration before the field walk so cycles
// resolve, then the fields exactly symmetric to the write path.
func (in *Input) readSerializable(pos int) (reflect.Value, error) {
	wireTypeID, name, err := in.readTypeMeta()
	if err != nil {
		return reflect.Value{}, err
	}
	t, d, err := in.resolveClass(name)
	if err != nil {
		return reflect.Value{}, err
	}
	sum, err := in.buf.ReadUint16()
	if err != nil {
		return reflect.Value{}, err
	}
	if sum != d.checksum {
		return reflect.Value{}, schemaMismatchError(name, sum, d.checksum)
	}

	pv := reflect.New(t)
	in.handles.register(pos, pv)

	if d.hasCustomMarshal {
		cm, ok := callbackOf[CustomMarshaler](pv.Elem())
		if !ok {
			return reflect.Value{}, protocolViolationErrorf(pos, "%s lost its read hook", d.typeName)
		}
		if err := cm.ReadObject(in); err != nil {
			return reflect.Value{}, asIgniteError(err)
		}
		return in.applyReadResolve(pos, pv, d)
	}

	indexed := in.m.indexingEnabled(d)
	base := pv.UnsafePointer()
	fieldCount := 0
	for _, lvl := range d.levels {
		for _, f := range lvl.fields {
			fieldCount++
			if indexed {
				fid, err := in.buf.ReadUint32()
				if err != nil {
					return reflect.Value{}, err
				}
				if fid != fieldID(wireTypeID, f.name) {
					return reflect.Value{}, protocolViolationErrorf(in.buf.Position(),
						"field id mismatch for %s.%s", name, f.name)
				}
			}
			if err := in.readFieldAt(base, f); err != nil {
				return reflect.Value{}, err
			}
		}
	}
	if indexed {
		// The footer is index data, not object state; skip it.
		if _, err := in.buf.ReadBytesRaw(fieldCount*8 + 4); err != nil {
			return reflect.Value{}, err
		}
	}
	return in.applyReadResolve(pos, pv, d)
}

func (in *Input) applyReadResolve(pos int, pv reflect.Value, d *ClassDescriptor) (reflect.Value, error) {
	if !d.hasReadResolve {
		return pv, nil
	}
	rr, ok := callbackOf[ReadResolver](pv.Elem())
	if !ok {
		return pv, nil
	}
	res, err := rr.ReadResolve()
	if err != nil {
		return reflect.Value{}, asIgniteError(err)
	}
	if res == nil {
		in.handles.patch(pos, reflect.Value{})
		return reflect.Value{}, nil
	}
	rv := reflect.ValueOf(res)
	in.handles.patch(pos, rv)
	return rv, nil
}

// readFieldAt reads one field written by writeFieldAt: primitives store
// directly at the recorded offset, KindOther routes through the generic
// value reader. Phantom fields consume their payload and discard it.
func (in *Input) readFieldAt(base unsafe.Pointer, f fieldRecord) error {
	if f.kind == KindOther {
		v, err := in.readReflect()
		if err != nil {
			return err
		}
		if f.phantom || !v.IsValid() {
			return nil
		}
		dst := reflect.NewAt(f.typ, unsafe.Add(base, f.offset)).Elem()
		return assignValue(dst, v)
	}

	pos := in.buf.Position()
	tb, err := in.buf.ReadByte()
	if err != nil {
		return err
	}
	if Tag(tb) != tagForKind(f.kind) {
		return protocolViolationErrorf(pos, "field %s: tag %s where %s expected",
			f.name, Tag(tb), tagForKind(f.kind))
	}
	var p unsafe.Pointer
	if !f.phantom {
		p = unsafe.Add(base, f.offset)
	}
	switch f.kind {
	case KindByte:
		v, err := in.buf.ReadByte()
		if err != nil {
			return err
		}
		if p != nil {
			*(*byte)(p) = v
		}
	case KindShort, KindChar:
		v, err := in.buf.ReadUint16()
		if err != nil {
			return err
		}
		if p != nil {
			*(*uint16)(p) = v
		}
	case KindInt, KindFloat:
		v, err := in.buf.ReadUint32()
		if err != nil {
			return err
		}
		if p != nil {
			*(*uint32)(p) = v
		}
	case KindLong, KindDouble:
		v, err := in.buf.ReadUint64()
		if err != nil {
			return err
		}
		if p != nil {
			*(*uint64)(p) = v
		}
	case KindBool:
		v, err := in.buf.ReadBool()
		if err != nil {
			return err
		}
		if p != nil {
			*(*bool)(p) = v
		}
	}
	return nil
}

// assignValue stores a decoded value into dst, bridging the wire's
// canonical representations (interface containers, decoded pointers) back
// to the destination field's declared type.
func assignValue(dst reflect.Value, src reflect.Value) error {
	if !src.IsValid() {
		return nil
	}
	for src.Kind() == reflect.Interface {
		if src.IsNil() {
			return nil
		}
		src = src.Elem()
	}
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	// A value decoded as *T populating a plain T field.
	if src.Kind() == reflect.Pointer && src.Type().Elem().AssignableTo(dst.Type()) {
		dst.Set(src.Elem())
		return nil
	}
	// A value decoded as T populating a *T field.
	if dst.Kind() == reflect.Pointer {
		pv := reflect.New(dst.Type().Elem())
		if err := assignValue(pv.Elem(), src); err != nil {
			return err
		}
		dst.Set(pv)
		return nil
	}
	if isConvertibleScalar(src.Type(), dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	switch {
	case dst.Kind() == reflect.Map && src.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(dst.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			k := reflect.New(dst.Type().Key()).Elem()
			if err := assignValue(k, iter.Key()); err != nil {
				return err
			}
			v := reflect.New(dst.Type().Elem()).Elem()
			if err := assignValue(v, iter.Value()); err != nil {
				return err
			}
			out.SetMapIndex(k, v)
		}
		dst.Set(out)
		return nil
	case dst.Kind() == reflect.Slice && src.Kind() == reflect.Slice:
		out := reflect.MakeSlice(dst.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			if err := assignValue(out.Index(i), src.Index(i)); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	}
	return protocolViolationErrorf(0, "cannot store decoded %s into field of type %s", src.Type(), dst.Type())
}

// isConvertibleScalar permits numeric-to-numeric and same-kind named-type
// conversions, but not the cross-kind conversions reflect would allow
// (e.g. integer to string).
func isConvertibleScalar(src, dst reflect.Type) bool {
	if !src.ConvertibleTo(dst) {
		return false
	}
	return (isNumericKind(src.Kind()) && isNumericKind(dst.Kind())) || src.Kind() == dst.Kind()
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
