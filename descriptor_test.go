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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type dupBase struct {
	X int32
}

func (dupBase) Serializable() {}

type dupLeaf struct {
	dupBase
	X int32
}

func (dupLeaf) Serializable() {}

func TestWellKnownTagSelection(t *testing.T) {
	cases := []struct {
		sample any
		want   Tag
	}{
		{int8(0), ByteTag},
		{int16(0), ShortTag},
		{int32(0), IntTag},
		{int64(0), LongTag},
		{float32(0), FloatTag},
		{float64(0), DoubleTag},
		{false, BoolTag},
		{Char(0), CharTag},
		{"", StringTag},
		{[]byte(nil), ByteArrayTag},
		{[]int16(nil), ShortArrayTag},
		{[]int32(nil), IntArrayTag},
		{[]int64(nil), LongArrayTag},
		{[]float32(nil), FloatArrayTag},
		{[]float64(nil), DoubleArrayTag},
		{[]bool(nil), BoolArrayTag},
		{[]Char(nil), CharArrayTag},
		{[]any(nil), ArrayListTag},
		{[]wireAddress(nil), ObjectArrayTag},
		{uuid.UUID{}, UUIDTag},
		{time.Time{}, DateTag},
		{map[any]any(nil), HashMapTag},
		{map[string]int32(nil), HashMapTag},
		{LinkedList{}, LinkedListTag},
		{LinkedHashMap{}, LinkedHashMapTag},
		{LinkedHashSet{}, LinkedHashSetTag},
		{HashSet{}, HashSetTag},
		{Properties{}, PropertiesTag},
		{ClassLiteral{}, ClassTag},
		{color(0), EnumTag},
	}
	for _, c := range cases {
		tag, ok := wellKnownTag(reflect.TypeOf(c.sample))
		require.True(t, ok, "%T", c.sample)
		require.Equal(t, c.want, tag, "%T", c.sample)
	}

	_, ok := wellKnownTag(reflect.TypeOf(wireAddress{}))
	require.False(t, ok)
}

func TestFieldOrderBaseFirstLexicographic(t *testing.T) {
	d, err := buildDescriptor(reflect.TypeOf(wirePerson{}), nil, false, true)
	require.NoError(t, err)
	require.Equal(t, SerializableTag, d.tag)

	var names []string
	for _, f := range d.flatFields() {
		names = append(names, f.name)
	}
	require.Equal(t, []string{"City", "Zip", "Age", "Name"}, names)
}

func TestEmbeddedFieldOffsetsAreLeafRelative(t *testing.T) {
	d, err := buildDescriptor(reflect.TypeOf(wirePerson{}), nil, false, true)
	require.NoError(t, err)

	leaf := reflect.TypeOf(wirePerson{})
	cityField, _ := leaf.FieldByName("City")
	for _, f := range d.flatFields() {
		if f.name == "City" {
			require.Equal(t, cityField.Offset, f.offset)
		}
	}
}

func TestIndexabilityRules(t *testing.T) {
	d, err := buildDescriptor(reflect.TypeOf(wirePerson{}), nil, false, true)
	require.NoError(t, err)
	require.True(t, d.Indexable())

	// A custom write/read hook disables indexing.
	d, err = buildDescriptor(reflect.TypeOf(blobBox{}), nil, false, true)
	require.NoError(t, err)
	require.False(t, d.Indexable())

	// Duplicate field names across the embedding chain disable indexing.
	d, err = buildDescriptor(reflect.TypeOf(dupLeaf{}), nil, false, true)
	require.NoError(t, err)
	require.False(t, d.Indexable())
}

func TestCapabilityTags(t *testing.T) {
	d, err := buildDescriptor(reflect.TypeOf(extPoint{}), nil, false, true)
	require.NoError(t, err)
	require.Equal(t, ExternalizableTag, d.tag)

	d, err = buildDescriptor(reflect.TypeOf(awarePair{}), nil, false, true)
	require.NoError(t, err)
	require.Equal(t, MarshalAwareTag, d.tag)

	d, err = buildDescriptor(reflect.TypeOf(replOriginal{}), nil, false, true)
	require.NoError(t, err)
	require.True(t, d.hasWriteReplace)

	d, err = buildDescriptor(reflect.TypeOf(replProxy{}), nil, false, true)
	require.NoError(t, err)
	require.True(t, d.hasReadResolve)
}

func TestRequireSerializableAtBuild(t *testing.T) {
	_, err := buildDescriptor(reflect.TypeOf(plainThing{}), nil, false, true)
	require.Error(t, err)
	require.Equal(t, ErrKindNotSerializable, errKind(t, err))

	d, err := buildDescriptor(reflect.TypeOf(plainThing{}), nil, false, false)
	require.NoError(t, err)
	require.Equal(t, SerializableTag, d.tag)
}

func TestEnumConstantTable(t *testing.T) {
	d, err := buildDescriptor(reflect.TypeOf(color(0)), nil, false, true)
	require.NoError(t, err)
	require.True(t, d.isEnum)
	require.Equal(t, []string{"RED", "GREEN", "BLUE"}, d.enumNames)

	require.Equal(t, "BLUE", enumName(d.enumNames, 2))
	require.Equal(t, "ORDINAL_9", enumName(d.enumNames, 9))
}

func TestExcludedDescriptor(t *testing.T) {
	d, err := buildDescriptor(reflect.TypeOf(secretThing{}), nil, true, true)
	require.NoError(t, err)
	require.True(t, d.excluded)
}

func TestTypeIdResolution(t *testing.T) {
	require.NotZero(t, resolveTypeId("com.example.Foo", nil))
	require.Equal(t, resolveTypeId("com.example.Foo", nil), resolveTypeId("com.example.Foo", nil))
	require.NotEqual(t, resolveTypeId("com.example.Foo", nil), resolveTypeId("com.example.Bar", nil))

	mapper := idMapperFunc(func(name string) uint32 {
		if name == "com.example.Foo" {
			return 4242
		}
		return 0
	})
	require.Equal(t, uint32(4242), resolveTypeId("com.example.Foo", mapper))
	require.Equal(t, hashTypeName("com.example.Bar"), resolveTypeId("com.example.Bar", mapper))
}

func TestSchemaChecksumProperties(t *testing.T) {
	a := []fieldRecord{{name: "A", kind: KindInt}, {name: "B", kind: KindOther}}
	b := []fieldRecord{{name: "A", kind: KindInt}, {name: "B", kind: KindOther}}
	require.Equal(t, schemaChecksum(a), schemaChecksum(b))

	c := []fieldRecord{{name: "A", kind: KindLong}, {name: "B", kind: KindOther}}
	require.NotEqual(t, schemaChecksum(a), schemaChecksum(c))

	d := []fieldRecord{{name: "A", kind: KindInt}}
	require.NotEqual(t, schemaChecksum(a), schemaChecksum(d))
}
