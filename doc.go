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

/*
Package ignite implements an optimized binary object marshaller for a
distributed in-memory data grid.

It serializes arbitrary heterogeneous object graphs to a compact,
self-describing, tagged-union wire form and reconstructs them on remote
nodes without invoking constructors. Unlike a generic reflection-based
serializer, it supports partial field extraction: HasField/ReadField can
answer questions about a serialized blob without fully decoding it, by
consulting a trailing field-index footer.

# Quick start

	type User struct {
		ID   int64
		Name string
	}

	// Types normally declare the Serializable capability; the option
	// below waives the check instead.
	m, err := ignite.New(ignite.WithRequireSerializable(false))
	if err != nil {
		panic(err)
	}
	ignite.RegisterType(User{})

	data, err := m.Marshal(&User{ID: 1, Name: "Alice"})
	if err != nil {
		panic(err)
	}

	out, err := m.Unmarshal(data, ignite.DefaultClassResolver)
	if err != nil {
		panic(err)
	}
	user := out.(*User)
	_ = user

# Descriptors are cached per type

The first time a Marshaller sees a concrete type it reflects over it once,
computing a ClassDescriptor (field offsets, schema checksum, callback
methods, indexability) and installs it into a concurrent cache. Every later
Marshal/Unmarshal of that type reuses the cached layout; primitive fields
are read and written directly at their raw memory offsets, without
per-field dispatch through reflect, while other fields go through the
generic value writer and reader.

# Streams are pooled

A Marshaller acquires a stream handle (buffer + handle table) from its
stream registry for the duration of one Marshal or Unmarshal call. With the
default PoolSize of 0, handles are recycled through a sync.Pool (O(1),
never blocks). With PoolSize > 0, a bounded pool of that many input/output
handles is shared, and acquiring a handle blocks until one is available.

# Field indexing

A class is indexable when it declares no custom WriteObject/ReadObject
hooks, has no duplicate field names across its embedding chain, and every
embedded level is itself indexable. For indexable classes, Marshal appends
a footer of (field-id, relative-offset) pairs, letting HasField and
ReadField answer over raw bytes without a full Unmarshal.
*/
package ignite
