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

import "reflect"

// writeHandles is the write-side handle table: objects already written in
// the current top-level write, keyed by pointer identity, so that a second
// reference to the same object emits a HANDLE back-reference instead of a
// duplicate payload. Lifetime equals one top-level Marshal call.
type writeHandles struct {
	positions map[uintptr]int
}

func newWriteHandles() *writeHandles {
	return &writeHandles{positions: make(map[uintptr]int)}
}

// lookup returns the wire position at which ptr was previously registered,
// and whether it was found.
func (h *writeHandles) lookup(ptr uintptr) (int, bool) {
	pos, ok := h.positions[ptr]
	return pos, ok
}

// register records ptr as written at pos. Must be called before the
// object's fields are written so that self-referential graphs resolve.
func (h *writeHandles) register(ptr uintptr, pos int) {
	h.positions[ptr] = pos
}

// readHandles is the read-side counterpart: wire position -> the instance
// allocated for the object written at that position. Populated before a
// value's fields are read so cyclic references resolve correctly.
type readHandles struct {
	values map[int]reflect.Value
}

func newReadHandles() *readHandles {
	return &readHandles{values: make(map[int]reflect.Value)}
}

func (h *readHandles) register(pos int, v reflect.Value) {
	h.values[pos] = v
}

func (h *readHandles) lookup(pos int) (reflect.Value, bool) {
	v, ok := h.values[pos]
	return v, ok
}

// patch updates the value registered at pos, used when a readResolve hook
// substitutes a different object after the handle was already registered.
func (h *readHandles) patch(pos int, v reflect.Value) {
	h.values[pos] = v
}
