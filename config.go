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

	metrics "github.com/rcrowley/go-metrics"
)

// ProtocolVersion selects the wire layout. Only V1 is defined; any future
// revision bumps the top-level stream preamble and is rejected by builds
// that do not know it.
type ProtocolVersion uint8

// ProtoV1 is the initial (and currently only) wire layout.
const ProtoV1 ProtocolVersion = 1

// Config holds the configuration of a Marshaller instance.
type Config struct {
	// RequireSerializable fails writes of types that do not formally
	// declare the Serializable capability. Defaults to true.
	RequireSerializable bool
	// IdMapper supplies custom type-name to type-id mapping. Nil falls
	// back to the deterministic name hash for every type.
	IdMapper IdMapper
	// ProtocolVersion is reserved for forward-compatible wire changes.
	ProtocolVersion ProtocolVersion
	// PoolSize selects the stream registry mode: 0 recycles handles
	// through a sync.Pool (acquire never blocks), >0 uses a bounded shared
	// pool of exactly that many input and output handles with blocking
	// acquire.
	PoolSize int
	// IndexingHandler enables HasField/ReadField footer emission. Nil
	// disables indexing entirely.
	IndexingHandler IndexingHandler
	// Context resolves bare type ids to class names out-of-band when an
	// IdMapper is in use. Nil restricts reads to inline-name emissions.
	Context MarshallerContext
	// MetricsRegistry receives the marshaller's counters and timers. Nil
	// uses a private unregistered registry.
	MetricsRegistry metrics.Registry

	exclusions map[reflect.Type]bool
}

func defaultConfig() Config {
	return Config{
		RequireSerializable: true,
		ProtocolVersion:     ProtoV1,
	}
}

// Option configures a Marshaller at construction time.
type Option func(*Config)

// WithRequireSerializable toggles the formal-capability check on writes.
func WithRequireSerializable(required bool) Option {
	return func(c *Config) { c.RequireSerializable = required }
}

// WithIdMapper installs a custom type-name to type-id mapping.
func WithIdMapper(mapper IdMapper) Option {
	return func(c *Config) { c.IdMapper = mapper }
}

// WithIdMapperFunc adapts a plain function as the IdMapper.
func WithIdMapperFunc(fn func(name string) uint32) Option {
	return func(c *Config) { c.IdMapper = idMapperFunc(fn) }
}

// WithProtocolVersion pins the wire layout version.
func WithProtocolVersion(v ProtocolVersion) Option {
	return func(c *Config) { c.ProtocolVersion = v }
}

// WithPoolSize selects the stream registry mode (see Config.PoolSize).
func WithPoolSize(n int) Option {
	return func(c *Config) { c.PoolSize = n }
}

// WithIndexingHandler enables field-index footer emission and the
// HasField/ReadField surface.
func WithIndexingHandler(h IndexingHandler) Option {
	return func(c *Config) { c.IndexingHandler = h }
}

// WithContext installs the cluster-wide id-to-name resolution context.
func WithContext(ctx MarshallerContext) Option {
	return func(c *Config) { c.Context = ctx }
}

// WithMetricsRegistry routes instrumentation into the given registry.
func WithMetricsRegistry(r metrics.Registry) Option {
	return func(c *Config) { c.MetricsRegistry = r }
}

// WithExclusions marks the concrete types of the given sample values as
// excluded: writes of them emit NULL, reads of them never occur.
func WithExclusions(samples ...any) Option {
	return func(c *Config) {
		if c.exclusions == nil {
			c.exclusions = make(map[reflect.Type]bool)
		}
		for _, s := range samples {
			t := reflect.TypeOf(s)
			for t.Kind() == reflect.Pointer {
				t = t.Elem()
			}
			c.exclusions[t] = true
		}
	}
}

// MarshallerContext carries the cluster-wide registries used to resolve a
// bare type id (emitted when an IdMapper is in use) back to a class name
// on the reading node.
type MarshallerContext interface {
	// RegisterClassName publishes the id-to-name binding cluster-wide.
	RegisterClassName(typeID uint32, name string)
	// ClassName resolves a previously registered binding.
	ClassName(typeID uint32) (string, bool)
}
