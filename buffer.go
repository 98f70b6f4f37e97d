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
	"math"
)

// softCapBytes is the release-time soft cap on a retained buffer
// (component G): a buffer larger than this when released back to its
// registry is reallocated smaller rather than kept at its high-water mark.
const softCapBytes = 512 * 1024

// OutBuffer is a growable little-endian output buffer. It is the write
// half of component B: every primitive on the wire grammar is fixed-width,
// so unlike a varint-oriented codec this buffer never branches on value
// magnitude.
type OutBuffer struct {
	writerIndex int
	data        []byte
}

// NewOutBuffer returns an OutBuffer ready to write, reusing data's backing
// array if non-nil.
func NewOutBuffer(data []byte) *OutBuffer {
	return &OutBuffer{data: data}
}

func (b *OutBuffer) grow(n int) {
	need := b.writerIndex + n
	if need <= len(b.data) {
		return
	}
	if need <= cap(b.data) {
		b.data = b.data[:cap(b.data)]
		return
	}
	newBuf := make([]byte, 2*need)
	copy(newBuf, b.data[:b.writerIndex])
	b.data = newBuf
}

// Bytes returns the written portion of the buffer.
func (b *OutBuffer) Bytes() []byte { return b.data[:b.writerIndex] }

// Len returns the current write position.
func (b *OutBuffer) Len() int { return b.writerIndex }

// Reset rewinds the write position to zero without releasing the backing
// array, then shrinks it if it grew past softCapBytes.
func (b *OutBuffer) Reset() {
	b.writerIndex = 0
	if cap(b.data) > softCapBytes {
		b.data = make([]byte, 0, softCapBytes)
	}
}

func (b *OutBuffer) WriteByte(value byte) {
	b.grow(1)
	b.data[b.writerIndex] = value
	b.writerIndex++
}

func (b *OutBuffer) WriteBool(value bool) {
	if value {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
}

func (b *OutBuffer) WriteInt8(value int8) { b.WriteByte(byte(value)) }

func (b *OutBuffer) WriteUint16(value uint16) {
	b.grow(2)
	binary.LittleEndian.PutUint16(b.data[b.writerIndex:], value)
	b.writerIndex += 2
}

func (b *OutBuffer) WriteInt16(value int16) { b.WriteUint16(uint16(value)) }

func (b *OutBuffer) WriteUint32(value uint32) {
	b.grow(4)
	binary.LittleEndian.PutUint32(b.data[b.writerIndex:], value)
	b.writerIndex += 4
}

func (b *OutBuffer) WriteInt32(value int32) { b.WriteUint32(uint32(value)) }

func (b *OutBuffer) WriteUint64(value uint64) {
	b.grow(8)
	binary.LittleEndian.PutUint64(b.data[b.writerIndex:], value)
	b.writerIndex += 8
}

func (b *OutBuffer) WriteInt64(value int64) { b.WriteUint64(uint64(value)) }

func (b *OutBuffer) WriteFloat32(value float32) { b.WriteUint32(math.Float32bits(value)) }

func (b *OutBuffer) WriteFloat64(value float64) { b.WriteUint64(math.Float64bits(value)) }

func (b *OutBuffer) WriteChar(value rune) { b.WriteUint16(uint16(value)) }

// WriteBytesRaw writes data verbatim, with no length prefix: callers that
// need a length-prefixed blob call WriteUint32 themselves first, matching
// the wire grammar's explicit `u32 length` + payload shape.
func (b *OutBuffer) WriteBytesRaw(data []byte) {
	b.grow(len(data))
	copy(b.data[b.writerIndex:], data)
	b.writerIndex += len(data)
}

// WriteString writes a u32 byte-length prefix followed by UTF-8 bytes.
func (b *OutBuffer) WriteString(s string) {
	b.WriteUint32(uint32(len(s)))
	b.WriteBytesRaw([]byte(s))
}

// InBuffer is a positioned little-endian input buffer, the read half of
// component B. Every Read method returns a protocol-violation Error on
// out-of-bound access rather than panicking: a truncated or malformed
// payload is caller-visible, not a crash.
type InBuffer struct {
	data        []byte
	readerIndex int
}

// NewInBuffer wraps data for reading from offset zero.
func NewInBuffer(data []byte) *InBuffer {
	return &InBuffer{data: data}
}

// Position returns the current read offset.
func (b *InBuffer) Position() int { return b.readerIndex }

// SetPosition seeks to an absolute offset, used by the handle table and by
// the field-indexing footer's relative-offset jumps.
func (b *InBuffer) SetPosition(pos int) { b.readerIndex = pos }

// Remaining returns the number of unread bytes.
func (b *InBuffer) Remaining() int { return len(b.data) - b.readerIndex }

func (b *InBuffer) require(n int) error {
	if b.Remaining() < n {
		return protocolViolationErrorf(b.readerIndex, "truncated payload: need %d bytes, have %d", n, b.Remaining())
	}
	return nil
}

func (b *InBuffer) ReadByte() (byte, error) {
	if err := b.require(1); err != nil {
		return 0, err
	}
	v := b.data[b.readerIndex]
	b.readerIndex++
	return v, nil
}

func (b *InBuffer) ReadBool() (bool, error) {
	v, err := b.ReadByte()
	return v != 0, err
}

func (b *InBuffer) ReadInt8() (int8, error) {
	v, err := b.ReadByte()
	return int8(v), err
}

func (b *InBuffer) ReadUint16() (uint16, error) {
	if err := b.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(b.data[b.readerIndex:])
	b.readerIndex += 2
	return v, nil
}

func (b *InBuffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *InBuffer) ReadUint32() (uint32, error) {
	if err := b.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b.data[b.readerIndex:])
	b.readerIndex += 4
	return v, nil
}

func (b *InBuffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *InBuffer) ReadUint64() (uint64, error) {
	if err := b.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(b.data[b.readerIndex:])
	b.readerIndex += 8
	return v, nil
}

func (b *InBuffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *InBuffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

func (b *InBuffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

func (b *InBuffer) ReadChar() (rune, error) {
	v, err := b.ReadUint16()
	return rune(v), err
}

func (b *InBuffer) ReadBytesRaw(n int) ([]byte, error) {
	if err := b.require(n); err != nil {
		return nil, err
	}
	v := b.data[b.readerIndex : b.readerIndex+n]
	b.readerIndex += n
	return v, nil
}

func (b *InBuffer) ReadString() (string, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return "", err
	}
	raw, err := b.ReadBytesRaw(int(n))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
