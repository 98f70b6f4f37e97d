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
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// writeDate emits the DATE wire tag payload: a u64 of milliseconds since
// the Unix epoch, matching java.util.Date's own internal representation.
func writeDate(out *OutBuffer, t time.Time) {
	out.WriteUint64(uint64(t.UnixMilli()))
}

func readDate(in *InBuffer) (time.Time, error) {
	millis, err := in.ReadUint64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(millis)).UTC(), nil
}
