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
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// fixtures
// ---------------------------------------------------------------------------

type wireAddress struct {
	City string
	Zip  int32
}

func (wireAddress) Serializable() {}

type wirePerson struct {
	wireAddress
	Age  int32
	Name string
	Note string `ignite:"-"`
}

func (wirePerson) Serializable() {}

type node struct {
	Next *node
	Val  int32
}

func (node) Serializable() {}

type pairHolder struct {
	L *wireAddress
	R *wireAddress
}

func (pairHolder) Serializable() {}

type record struct {
	ID   uuid.UUID
	When time.Time
	Data []byte
	Tags map[string]int32
	Vals []int64
}

func (record) Serializable() {}

type plainThing struct {
	X int32
}

type secretThing struct {
	Token string
}

func (secretThing) Serializable() {}

var extConstructs int

type extPoint struct {
	X int32
}

func (p *extPoint) Construct() { extConstructs++ }

func (p *extPoint) WriteExternal(out *Output) error { return out.WriteInt32(p.X) }

func (p *extPoint) ReadExternal(in *Input) error {
	v, err := in.ReadInt32()
	p.X = v
	return err
}

type awarePair struct {
	A int32
	B int32
}

func (p *awarePair) WriteFields(out *Output) error {
	if err := out.WriteInt32(p.A); err != nil {
		return err
	}
	return out.WriteInt32(p.B)
}

func (p *awarePair) ReadFields(in *Input) error {
	a, err := in.ReadInt32()
	if err != nil {
		return err
	}
	b, err := in.ReadInt32()
	if err != nil {
		return err
	}
	p.A, p.B = a, b
	return nil
}

type blobBox struct {
	Data []byte
}

func (blobBox) Serializable() {}

func (b *blobBox) WriteObject(out *Output) error { return out.WriteBytes(b.Data) }

func (b *blobBox) ReadObject(in *Input) error {
	d, err := in.ReadBytes()
	b.Data = d
	return err
}

type replOriginal struct {
	V int32
}

func (replOriginal) Serializable() {}

func (o *replOriginal) WriteReplace() (any, error) { return &replProxy{V: o.V}, nil }

type replProxy struct {
	V int32
}

func (replProxy) Serializable() {}

func (p *replProxy) ReadResolve() (any, error) { return &replOriginal{V: p.V}, nil }

type color int32

func (c color) EnumOrdinal() int32 { return int32(c) }

func (color) EnumNames() []string { return []string{"RED", "GREEN", "BLUE"} }

type legacyRec struct {
	A int32
}

func (legacyRec) Serializable() {}

func (*legacyRec) PersistentFields() []PersistentField {
	return []PersistentField{
		{Name: "A", Kind: KindInt},
		{Name: "B", Kind: KindLong},
	}
}

func testResolver() *TypeRegistry {
	reg := NewTypeRegistry()
	for _, sample := range []any{
		wireAddress{}, wirePerson{}, node{}, pairHolder{}, record{},
		plainThing{}, secretThing{}, extPoint{}, awarePair{}, blobBox{},
		replOriginal{}, replProxy{}, color(0), legacyRec{},
	} {
		reg.Register(sample)
	}
	return reg
}

func newTestMarshaller(t *testing.T, opts ...Option) *Marshaller {
	t.Helper()
	m, err := New(opts...)
	require.NoError(t, err)
	return m
}

func errKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var ie Error
	require.True(t, errors.As(err, &ie), "not a marshaller error: %v", err)
	return ie.Kind()
}

// ---------------------------------------------------------------------------
// wire scenarios
// ---------------------------------------------------------------------------

func TestMarshalNil(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(nil)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(NullTag)}, data)

	v, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestMarshalInt32Layout(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(int32(42))
	require.NoError(t, err)
	require.Equal(t, []byte{byte(IntTag), 0x2A, 0x00, 0x00, 0x00}, data)
}

func TestMarshalStringLayout(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal("abc")
	require.NoError(t, err)
	require.Equal(t, []byte{byte(StringTag), 0x03, 0x00, 0x00, 0x00, 'a', 'b', 'c'}, data)
}

func TestScalarRoundTrips(t *testing.T) {
	m := newTestMarshaller(t)
	reg := testResolver()
	for _, v := range []any{
		int8(-7), int16(-300), int32(123456), int64(-1 << 40),
		float32(1.5), float64(-2.25), true, false, Char('A'), "héllo",
	} {
		data, err := m.Marshal(v)
		require.NoError(t, err)
		got, err := m.Unmarshal(data, reg)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestPrimitiveArrayRoundTrips(t *testing.T) {
	m := newTestMarshaller(t)
	reg := testResolver()
	for _, v := range []any{
		[]byte{1, 2, 3},
		[]int16{-1, 0, 1},
		[]int32{1 << 20, -5},
		[]int64{1 << 40, -9},
		[]float32{0.5, -0.5},
		[]float64{3.25},
		[]bool{true, false, true},
		[]Char{'o', 'k'},
	} {
		data, err := m.Marshal(v)
		require.NoError(t, err)
		got, err := m.Unmarshal(data, reg)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestValueTypeRoundTrips(t *testing.T) {
	m := newTestMarshaller(t)
	reg := testResolver()

	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	data, err := m.Marshal(id)
	require.NoError(t, err)
	got, err := m.Unmarshal(data, reg)
	require.NoError(t, err)
	require.Equal(t, id, got)

	when := time.UnixMilli(1700000000123).UTC()
	data, err = m.Marshal(when)
	require.NoError(t, err)
	got, err = m.Unmarshal(data, reg)
	require.NoError(t, err)
	require.Equal(t, when, got)

	lit := ClassLiteral{TypeName: "com.example.Missing"}
	data, err = m.Marshal(lit)
	require.NoError(t, err)
	got, err = m.Unmarshal(data, reg)
	require.NoError(t, err)
	require.Equal(t, lit, got)
}

func TestStructRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	p := &wirePerson{
		wireAddress: wireAddress{City: "Graz", Zip: 8010},
		Age:         30,
		Name:        "Eva",
		Note:        "dropped on the wire",
	}
	data, err := m.Marshal(p)
	require.NoError(t, err)

	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	want := *p
	want.Note = ""
	require.Equal(t, &want, got)
}

func TestRichStructRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	r := &record{
		ID:   uuid.MustParse("c7a9e9a0-9dc0-11d1-b245-5ffdce74fad2"),
		When: time.UnixMilli(1690000000001).UTC(),
		Data: []byte{0xCA, 0xFE},
		Tags: map[string]int32{"a": 1, "b": 2},
		Vals: []int64{7, 8, 9},
	}
	data, err := m.Marshal(r)
	require.NoError(t, err)
	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestPersistentFieldsOverride(t *testing.T) {
	m := newTestMarshaller(t)
	d, err := m.Describe(legacyRec{})
	require.NoError(t, err)
	require.Equal(t, []FieldMeta{{Name: "A", Kind: KindInt}, {Name: "B", Kind: KindLong}}, d.Fields())

	data, err := m.Marshal(&legacyRec{A: 7})
	require.NoError(t, err)
	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, &legacyRec{A: 7}, got)
}

func TestIdentityPreserved(t *testing.T) {
	m := newTestMarshaller(t)
	shared := &wireAddress{City: "Linz", Zip: 4020}
	data, err := m.Marshal(&pairHolder{L: shared, R: shared})
	require.NoError(t, err)

	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	h := got.(*pairHolder)
	require.Same(t, h.L, h.R)
	require.Equal(t, shared, h.L)
}

func TestCycleRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	n := &node{Val: 1}
	n.Next = n
	data, err := m.Marshal(n)
	require.NoError(t, err)

	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	gn := got.(*node)
	require.Same(t, gn, gn.Next)
	require.Equal(t, int32(1), gn.Val)
}

func TestDeterministicBytes(t *testing.T) {
	m := newTestMarshaller(t)
	v := map[any]any{"x": int32(1), "y": int32(2), "z": "s"}
	a, err := m.Marshal(v)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		b, err := m.Marshal(v)
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
}

func TestChecksumIgnoresTransientFields(t *testing.T) {
	// wirePerson's tagged-out Note must not influence its schema, so its
	// leaf checksum equals a hand-built schema of the visible fields only.
	m := newTestMarshaller(t)
	d, err := m.Describe(wirePerson{})
	require.NoError(t, err)
	visible := schemaChecksum([]fieldRecord{
		{name: "Age", kind: KindInt},
		{name: "Name", kind: KindOther},
	})
	require.Equal(t, visible, d.Checksum())
}

func TestSchemaMismatchRejected(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(&wireAddress{City: "Wels", Zip: 4600})
	require.NoError(t, err)

	// Layout: tag, u32 id(=0), u32 name length, name, u16 checksum.
	nameLen := int(binary.LittleEndian.Uint32(data[5:9]))
	sumOff := 9 + nameLen
	data[sumOff] ^= 0xFF

	_, err = m.Unmarshal(data, testResolver())
	require.Error(t, err)
	require.Equal(t, ErrKindSchemaMismatch, errKind(t, err))
	require.Contains(t, err.Error(), "class version differs across nodes")
}

func TestExternalizableRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(&extPoint{X: 7})
	require.NoError(t, err)

	extConstructs = 0
	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, &extPoint{X: 7}, got)
	require.Equal(t, 1, extConstructs)
}

func TestMarshalAwareRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(&awarePair{A: 3, B: 4})
	require.NoError(t, err)
	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, &awarePair{A: 3, B: 4}, got)
}

func TestCustomMarshalerRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(&blobBox{Data: []byte{9, 8, 7}})
	require.NoError(t, err)
	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, &blobBox{Data: []byte{9, 8, 7}}, got)
}

func TestWriteReplaceReadResolve(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(&replOriginal{V: 11})
	require.NoError(t, err)
	// The wire carries the proxy's type, not the original's.
	require.True(t, bytes.Contains(data, []byte("replProxy")))
	require.False(t, bytes.Contains(data, []byte("replOriginal")))

	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, &replOriginal{V: 11}, got)
}

func TestEnumRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(color(2))
	require.NoError(t, err)
	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, color(2), got)
}

func TestNotSerializableRejected(t *testing.T) {
	m := newTestMarshaller(t)
	_, err := m.Marshal(&plainThing{X: 1})
	require.Error(t, err)
	require.Equal(t, ErrKindNotSerializable, errKind(t, err))
}

func TestRequireSerializableWaived(t *testing.T) {
	m := newTestMarshaller(t, WithRequireSerializable(false))
	data, err := m.Marshal(&plainThing{X: 5})
	require.NoError(t, err)
	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Equal(t, &plainThing{X: 5}, got)
}

func TestExclusionWritesNull(t *testing.T) {
	m := newTestMarshaller(t, WithExclusions(secretThing{}))
	data, err := m.Marshal(&secretThing{Token: "hunter2"})
	require.NoError(t, err)
	require.Equal(t, []byte{byte(NullTag)}, data)

	got, err := m.Unmarshal(data, testResolver())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestClassNotFound(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal(&wireAddress{City: "Steyr"})
	require.NoError(t, err)

	_, err = m.Unmarshal(data, NewTypeRegistry())
	require.Error(t, err)
	require.Equal(t, ErrKindClassNotFound, errKind(t, err))
	require.Contains(t, err.Error(), "peer class")
}

func TestProtocolViolations(t *testing.T) {
	m := newTestMarshaller(t)
	reg := testResolver()

	_, err := m.Unmarshal([]byte{0xEE}, reg)
	require.Error(t, err)
	require.Equal(t, ErrKindProtocolViolation, errKind(t, err))

	// A handle pointing at a position nothing was written to.
	_, err = m.Unmarshal([]byte{byte(HandleTag), 9, 0, 0, 0}, reg)
	require.Error(t, err)
	require.Equal(t, ErrKindProtocolViolation, errKind(t, err))

	// Truncated payload.
	data, err := m.Marshal(&wireAddress{City: "Enns", Zip: 4470})
	require.NoError(t, err)
	_, err = m.Unmarshal(data[:len(data)-2], reg)
	require.Error(t, err)
	require.Equal(t, ErrKindProtocolViolation, errKind(t, err))
}

type failingSink struct{}

func (failingSink) Write([]byte) (int, error) { return 0, errors.New("sink closed") }

func TestMarshalTo(t *testing.T) {
	m := newTestMarshaller(t)
	var buf bytes.Buffer
	require.NoError(t, m.MarshalTo(int32(1), &buf))
	require.Equal(t, []byte{byte(IntTag), 1, 0, 0, 0}, buf.Bytes())

	err := m.MarshalTo(int32(1), failingSink{})
	require.Error(t, err)
	require.Equal(t, ErrKindIO, errKind(t, err))
}

func TestUnmarshalAtOffset(t *testing.T) {
	m := newTestMarshaller(t)
	data, err := m.Marshal("xyz")
	require.NoError(t, err)

	padded := append([]byte{0xAA, 0xBB}, data...)
	got, err := m.UnmarshalAt(padded, 2, len(data), testResolver())
	require.NoError(t, err)
	require.Equal(t, "xyz", got)

	_, err = m.UnmarshalAt(padded, 2, len(padded), testResolver())
	require.Error(t, err)
}

func TestConcurrentRoundTrips(t *testing.T) {
	m := newTestMarshaller(t)
	reg := testResolver()
	p := &wirePerson{wireAddress: wireAddress{City: "Wien", Zip: 1010}, Age: 44, Name: "Ada"}
	want, err := m.Marshal(p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				data, err := m.Marshal(p)
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(data, want) {
					errs <- errors.New("non-deterministic bytes under concurrency")
					return
				}
				got, err := m.Unmarshal(data, reg)
				if err != nil {
					errs <- err
					return
				}
				gp := got.(*wirePerson)
				if gp.Name != p.Name || gp.Zip != p.Zip {
					errs <- errors.New("wrong reconstruction under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
