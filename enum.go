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
	"fmt"
	"reflect"
)

// Enum is implemented by a named integer type to mark it for the ENUM wire
// tag, the nearest Go equivalent of a Java enum constant. Go has no
// first-class enum type, so this module leans on the same capability-
// interface pattern used for Externalizable and MarshalAware.
type Enum interface {
	EnumOrdinal() int32
}

// EnumNamer is optionally implemented alongside Enum to supply the full
// ordinal-indexed constant name table, mirroring the enum constant capture
// Java serializers get from enumConstants(). Without it, the descriptor's
// constant table is nil and enumName renders ORDINAL_<n> placeholders.
type EnumNamer interface {
	EnumNames() []string
}

var enumInterfaceType = reflect.TypeOf((*Enum)(nil)).Elem()

func isEnumType(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(enumInterfaceType) || t.Implements(enumInterfaceType)
}

// enumConstantTable builds the ordinal->name table for an enum-tagged
// type, exposed through ClassDescriptor.EnumNames and printed by the CLI.
func enumConstantTable(t reflect.Type) []string {
	zero := reflect.New(t).Elem().Interface()
	if namer, ok := zero.(EnumNamer); ok {
		return namer.EnumNames()
	}
	if v, ok := reflect.New(t).Interface().(EnumNamer); ok {
		return v.EnumNames()
	}
	return nil
}

func enumOrdinal(v reflect.Value) (int32, error) {
	if e, ok := v.Interface().(Enum); ok {
		return e.EnumOrdinal(), nil
	}
	if v.CanAddr() {
		if e, ok := v.Addr().Interface().(Enum); ok {
			return e.EnumOrdinal(), nil
		}
	}
	return 0, protocolViolationError(0, "value does not implement Enum")
}

func enumName(names []string, ordinal int32) string {
	if ordinal >= 0 && int(ordinal) < len(names) {
		return names[ordinal]
	}
	return fmt.Sprintf("ORDINAL_%d", ordinal)
}
