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

	"github.com/google/uuid"
)

var uuidType = reflect.TypeOf(uuid.UUID{})

// writeUUID emits the UUID wire tag payload: two u64 halves of the
// 128-bit value, most-significant 8 bytes first, the same hi/lo split the
// thin-client drivers use on the wire.
func writeUUID(out *OutBuffer, id uuid.UUID) {
	hi := binary.BigEndian.Uint64(id[0:8])
	lo := binary.BigEndian.Uint64(id[8:16])
	out.WriteUint64(hi)
	out.WriteUint64(lo)
}

func readUUID(in *InBuffer) (uuid.UUID, error) {
	hi, err := in.ReadUint64()
	if err != nil {
		return uuid.UUID{}, err
	}
	lo, err := in.ReadUint64()
	if err != nil {
		return uuid.UUID{}, err
	}
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[0:8], hi)
	binary.BigEndian.PutUint64(id[8:16], lo)
	return id, nil
}
