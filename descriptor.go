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
	"strconv"
)

// Serializable is the formal capability marker a type declares to be
// eligible for the SERIALIZABLE wire tag when RequireSerializable is set.
// The well-known primitive, container, and value types are implicitly
// serializable and never need it.
type Serializable interface {
	Serializable()
}

// Externalizable is the capability interface for the EXTERNALIZABLE wire
// tag: the type owns its entire wire representation, writing and reading
// through the stream views directly.
type Externalizable interface {
	WriteExternal(out *Output) error
	ReadExternal(in *Input) error
}

// MarshalAware is the capability interface for the MARSHAL_AWARE wire tag:
// the type writes/reads its own fields but the marshaller still manages
// type metadata, checksum, and schema publication around it.
type MarshalAware interface {
	WriteFields(out *Output) error
	ReadFields(in *Input) error
}

// Constructible replaces the no-arg constructor the descriptor captures
// for EXTERNALIZABLE and MARSHAL_AWARE types: unlike the SERIALIZABLE
// path, which allocates a zeroed instance directly, those two variants run
// Construct once on every freshly allocated instance before the type's
// read callback sees it.
type Constructible interface {
	Construct()
}

// CustomMarshaler lets a type fully override the default field-by-field
// walk for the SERIALIZABLE tag, the Go counterpart of per-class-level
// private writeObject/readObject methods.
//
// Go methods are not scoped per embedding level the way Java private
// methods are scoped per class in a hierarchy, so this module applies the
// hook to the whole leaf type rather than per level (see DESIGN.md for
// the rationale). A type implementing this
// interface is never indexable.
type CustomMarshaler interface {
	WriteObject(out *Output) error
	ReadObject(in *Input) error
}

// WriteReplacer lets a type substitute a different object to be written
// in its place.
type WriteReplacer interface {
	WriteReplace() (any, error)
}

// ReadResolver lets a type substitute a different object after it has
// been read.
type ReadResolver interface {
	ReadResolve() (any, error)
}

var (
	serializableType    = reflect.TypeOf((*Serializable)(nil)).Elem()
	externalizableType  = reflect.TypeOf((*Externalizable)(nil)).Elem()
	marshalAwareType    = reflect.TypeOf((*MarshalAware)(nil)).Elem()
	customMarshalerType = reflect.TypeOf((*CustomMarshaler)(nil)).Elem()
	writeReplacerType   = reflect.TypeOf((*WriteReplacer)(nil)).Elem()
	readResolverType    = reflect.TypeOf((*ReadResolver)(nil)).Elem()
)

// typeNameOf computes the fully-qualified wire name of a type: import path
// plus type name for named types, the reflect syntax for builtins and
// anonymous types.
func typeNameOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// classLevel is one embedding level of a SERIALIZABLE descriptor, base
// class first.
type classLevel struct {
	fields []fieldRecord
}

// ClassDescriptor is the immutable reflective summary of one concrete
// type. Once built it never changes; the cache in cache.go owns the
// one-descriptor-per-type invariant.
type ClassDescriptor struct {
	typ      reflect.Type
	typeName string
	tag      Tag
	typeID   uint32

	// idMapped records that the type id came from the user's IdMapper, so
	// the writer emits the bare id instead of 0 plus the inline name.
	idMapped bool

	excluded       bool
	isPrimitive    bool
	isEnum         bool
	isClassLiteral bool
	requireSerial  bool

	enumNames []string

	checksum uint16

	// levels holds the SERIALIZABLE field table, base class first.
	levels []classLevel

	hasCustomMarshal bool
	hasWriteReplace  bool
	hasReadResolve   bool

	indexable bool

	// container-only offsets, captured so the reader can reconstruct the
	// container's internal parameters (access order, defaults chain).
	accessOrderOffset uintptr
	hasAccessOrder    bool
	defaultsOffset    uintptr
	hasDefaults       bool
}

// Indexable reports whether this descriptor supports footer emission.
func (d *ClassDescriptor) Indexable() bool { return d.indexable }

// TypeID returns the descriptor's resolved 32-bit type identifier.
func (d *ClassDescriptor) TypeID() uint32 { return d.typeID }

// Checksum returns the 16-bit schema checksum.
func (d *ClassDescriptor) Checksum() uint16 { return d.checksum }

// TypeName returns the fully-qualified wire name.
func (d *ClassDescriptor) TypeName() string { return d.typeName }

// WireTag returns the tag byte this descriptor's type is written under.
func (d *ClassDescriptor) WireTag() Tag { return d.tag }

// EnumNames returns the captured ordinal-indexed constant table for an
// enum-tagged descriptor, nil otherwise.
func (d *ClassDescriptor) EnumNames() []string { return d.enumNames }

// Fields returns the descriptor's field layout in wire order, one entry
// per field with its name and kind.
func (d *ClassDescriptor) Fields() []FieldMeta {
	var out []FieldMeta
	for _, f := range d.flatFields() {
		out = append(out, FieldMeta{Name: f.name, Kind: f.kind})
	}
	return out
}

// flatFields returns every field across every level, in wire order
// (base-first, lexicographic within level): the order used by the footer
// and by HasField/ReadField.
func (d *ClassDescriptor) flatFields() []fieldRecord {
	var out []fieldRecord
	for _, lvl := range d.levels {
		out = append(out, lvl.fields...)
	}
	return out
}

// fieldSchema derives the published metadata schema: field names and kinds
// in wire order.
func (d *ClassDescriptor) fieldSchema() *FieldSchema {
	s := &FieldSchema{TypeName: d.typeName}
	for _, f := range d.flatFields() {
		s.Fields = append(s.Fields, FieldMeta{Name: f.name, Kind: f.kind})
	}
	return s
}

// levelRef is one link of the embedding chain: the level's type plus its
// accumulated byte offset within the leaf struct, so field offsets can be
// rebased to the leaf instance the stream actually walks.
type levelRef struct {
	typ    reflect.Type
	offset uintptr
}

// collectLevels walks the embedding chain of a struct type, modeling Go's
// anonymous-embedded-field chain as a single-inheritance superclass chain:
// the struct embedded through the most hops is treated as base-most. Only
// the first anonymous struct field at each level is followed.
func collectLevels(t reflect.Type) []levelRef {
	var chain []levelRef
	cur, off := t, uintptr(0)
	for {
		chain = append(chain, levelRef{typ: cur, offset: off})
		next := reflect.Type(nil)
		nextOff := uintptr(0)
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				next = f.Type
				nextOff = off + f.Offset
				break
			}
		}
		if next == nil {
			break
		}
		cur, off = next, nextOff
	}
	// chain is leaf-first; reverse to base-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// buildDescriptor constructs a ClassDescriptor for t. excluded is decided
// by the caller (the Marshaller looks t up in the configured exclusion
// list and passes the result down through the cache).
func buildDescriptor(t reflect.Type, mapper IdMapper, excluded bool, requireSerializable bool) (*ClassDescriptor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := typeNameOf(t)

	d := &ClassDescriptor{
		typ:           t,
		typeName:      name,
		typeID:        resolveTypeId(name, mapper),
		requireSerial: requireSerializable,
	}
	if mapper != nil && mapper.TypeId(name) != 0 {
		d.idMapped = true
	}
	if excluded {
		d.excluded = true
		return d, nil
	}

	if tag, ok := wellKnownTag(t); ok {
		d.tag = tag
		d.isPrimitive = tag < StringTag
		if tag == EnumTag {
			d.isEnum = true
			d.enumNames = enumConstantTable(t)
		}
		if tag == ClassTag {
			d.isClassLiteral = true
		}
		if isContainerTag(tag) {
			captureContainerOffsets(d, t)
		}
		return d, nil
	}

	ptrT := reflect.PointerTo(t)
	switch {
	case ptrT.Implements(externalizableType) || t.Implements(externalizableType):
		d.tag = ExternalizableTag
	case ptrT.Implements(marshalAwareType) || t.Implements(marshalAwareType):
		d.tag = MarshalAwareTag
	default:
		d.tag = SerializableTag
		if t.Kind() != reflect.Struct {
			return nil, notSerializableError(name)
		}
		if requireSerializable && !ptrT.Implements(serializableType) && !t.Implements(serializableType) {
			return nil, notSerializableError(name)
		}
	}

	if ptrT.Implements(customMarshalerType) || t.Implements(customMarshalerType) {
		d.hasCustomMarshal = true
	}
	if ptrT.Implements(writeReplacerType) || t.Implements(writeReplacerType) {
		d.hasWriteReplace = true
	}
	if ptrT.Implements(readResolverType) || t.Implements(readResolverType) {
		d.hasReadResolve = true
	}

	if t.Kind() == reflect.Struct {
		// The checksum covers the leaf type's own fields only, so two
		// versions of a type differing solely in an inherited level still
		// match, exactly like per-class serialVersionUID-style digests.
		d.checksum = schemaChecksum(buildFieldLevel(t))
	}

	switch d.tag {
	case SerializableTag, MarshalAwareTag:
		for _, lvl := range collectLevels(t) {
			fields := buildFieldLevel(lvl.typ)
			for i := range fields {
				if !fields[i].phantom {
					fields[i].offset += lvl.offset
				}
			}
			d.levels = append(d.levels, classLevel{fields: fields})
		}
	}
	if d.tag == SerializableTag {
		d.indexable = computeIndexable(d)
	}

	return d, nil
}

func computeIndexable(d *ClassDescriptor) bool {
	if d.hasCustomMarshal {
		return false
	}
	seen := make(map[string]bool)
	for _, lvl := range d.levels {
		for _, f := range lvl.fields {
			if seen[f.name] {
				return false
			}
			seen[f.name] = true
		}
	}
	return true
}

func captureContainerOffsets(d *ClassDescriptor, t reflect.Type) {
	// Slices and Go maps have no internal fields to capture.
	if t.Kind() != reflect.Struct {
		return
	}
	if f, ok := t.FieldByName("AccessOrder"); ok {
		d.accessOrderOffset = f.Offset
		d.hasAccessOrder = true
	}
	if f, ok := t.FieldByName("Defaults"); ok {
		d.defaultsOffset = f.Offset
		d.hasDefaults = true
	}
}

func isContainerTag(tag Tag) bool {
	switch tag {
	case ArrayListTag, LinkedListTag, HashMapTag, HashSetTag, LinkedHashMapTag, LinkedHashSetTag, PropertiesTag:
		return true
	default:
		return false
	}
}

// wellKnownTag performs the exact-match tag selection for primitives,
// primitive arrays, and the well-known value/container types. Enums and
// object arrays are recognized here too since they are also exact
// structural matches (kind-based, not a fallback).
func wellKnownTag(t reflect.Type) (Tag, bool) {
	switch t {
	case uuidType:
		return UUIDTag, true
	case timeType:
		return DateTag, true
	}
	switch t {
	case reflect.TypeOf(LinkedList{}):
		return LinkedListTag, true
	case reflect.TypeOf(LinkedHashMap{}):
		return LinkedHashMapTag, true
	case reflect.TypeOf(LinkedHashSet{}):
		return LinkedHashSetTag, true
	case reflect.TypeOf(HashSet{}):
		return HashSetTag, true
	case reflect.TypeOf(Properties{}):
		return PropertiesTag, true
	case reflect.TypeOf(ClassLiteral{}):
		return ClassTag, true
	}

	if isEnumType(t) {
		return EnumTag, true
	}

	if t == charType {
		return CharTag, true
	}

	switch t.Kind() {
	case reflect.String:
		return StringTag, true
	case reflect.Int8, reflect.Uint8:
		return ByteTag, true
	case reflect.Int16, reflect.Uint16:
		return ShortTag, true
	case reflect.Int32, reflect.Uint32:
		return IntTag, true
	case reflect.Int, reflect.Uint:
		if strconv.IntSize == 64 {
			return LongTag, true
		}
		return IntTag, true
	case reflect.Int64, reflect.Uint64:
		return LongTag, true
	case reflect.Float32:
		return FloatTag, true
	case reflect.Float64:
		return DoubleTag, true
	case reflect.Bool:
		return BoolTag, true
	}

	if t.Kind() == reflect.Slice {
		if t.Elem() == charType {
			return CharArrayTag, true
		}
		switch t.Elem().Kind() {
		case reflect.Uint8, reflect.Int8:
			return ByteArrayTag, true
		case reflect.Int16, reflect.Uint16:
			return ShortArrayTag, true
		case reflect.Int32, reflect.Uint32:
			return IntArrayTag, true
		case reflect.Int64, reflect.Uint64:
			return LongArrayTag, true
		case reflect.Int, reflect.Uint:
			if strconv.IntSize == 64 {
				return LongArrayTag, true
			}
			return IntArrayTag, true
		case reflect.Float32:
			return FloatArrayTag, true
		case reflect.Float64:
			return DoubleArrayTag, true
		case reflect.Bool:
			return BoolArrayTag, true
		case reflect.Interface:
			// []any is this module's mapping for java.util.ArrayList: an
			// untyped resizable list whose elements are individually tagged.
			return ArrayListTag, true
		}
		// A typed slice of non-primitive element carries component-type
		// metadata on the wire, Java's T[] object array counterpart.
		return ObjectArrayTag, true
	}

	if t.Kind() == reflect.Map {
		return HashMapTag, true
	}

	return 0, false
}
