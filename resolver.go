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

	"github.com/puzpuzpuz/xsync/v3"
)

// ClassResolver resolves a fully-qualified type name read off the wire to
// a concrete Go type. It is supplied per Unmarshal/ReadField call, playing
// the role of the caller's class loader.
type ClassResolver interface {
	Resolve(name string) (reflect.Type, error)
}

// TypeRegistry is the standard ClassResolver: a concurrent name-to-type
// map populated by explicit registration.
type TypeRegistry struct {
	types *xsync.MapOf[string, reflect.Type]
}

// NewTypeRegistry returns an empty registry, pre-seeded with the builtin
// scalar types so that object-array component metadata for them always
// resolves.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: xsync.NewMapOf[string, reflect.Type]()}
	for _, sample := range []any{
		"", int8(0), int16(0), int32(0), int64(0), int(0),
		float32(0), float64(0), false, Char(0),
	} {
		r.Register(sample)
	}
	return r
}

// Register records the concrete type of sample under its fully-qualified
// name and returns that name. Pointer samples register their element type.
func (r *TypeRegistry) Register(sample any) string {
	t := reflect.TypeOf(sample)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := typeNameOf(t)
	r.types.Store(name, t)
	return name
}

// Resolve implements ClassResolver.
func (r *TypeRegistry) Resolve(name string) (reflect.Type, error) {
	if t, ok := r.types.Load(name); ok {
		return t, nil
	}
	return nil, classNotFoundByNameError(name)
}

// DefaultClassResolver is a process-wide registry for callers that do not
// need per-call resolution scoping.
var DefaultClassResolver = NewTypeRegistry()

// RegisterType records sample's concrete type in DefaultClassResolver and
// returns its wire name.
func RegisterType(sample any) string {
	return DefaultClassResolver.Register(sample)
}

// inProcessContext is the default single-process MarshallerContext: a
// concurrent id-to-name map with no cluster transport behind it.
type inProcessContext struct {
	names *xsync.MapOf[uint32, string]
}

// NewInProcessContext returns a MarshallerContext scoped to this process,
// suitable for tests and single-node deployments.
func NewInProcessContext() MarshallerContext {
	return &inProcessContext{names: xsync.NewMapOf[uint32, string]()}
}

func (c *inProcessContext) RegisterClassName(typeID uint32, name string) {
	c.names.Store(typeID, name)
}

func (c *inProcessContext) ClassName(typeID uint32) (string, bool) {
	return c.names.Load(typeID)
}
