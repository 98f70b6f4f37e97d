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
	"github.com/spaolacci/murmur3"
)

// schemaChecksum computes the 16-bit digest over a class's own field
// schema (component C, "Schema checksum"): the low 16 bits of a murmur3
// hash over each field's name and kind byte, in the class's own sorted
// field order. Two class versions with identical field names and types
// produce identical checksums.
func schemaChecksum(fields []fieldRecord) uint16 {
	h := murmur3.New32()
	for _, f := range fields {
		_, _ = h.Write([]byte(f.name))
		_, _ = h.Write([]byte{byte(f.kind)})
	}
	return uint16(h.Sum32())
}

// fieldID is the per-field wire identifier used by the indexing footer: a
// murmur3 hash of the field name salted by the owning type's id. Salting by
// type id keeps identically-named fields on unrelated types from colliding
// in the process-wide metadata map (see indexing.go). The hash travels on
// the wire, so it must never change.
func fieldID(typeID uint32, name string) uint32 {
	return murmur3.Sum32WithSeed([]byte(name), typeID)
}
