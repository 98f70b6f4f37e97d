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
	"io"
	"reflect"
	"strconv"
	"time"
	"unsafe"

	metrics "github.com/rcrowley/go-metrics"
)

// Marshaller is the optimized binary object marshaller. One instance owns
// one descriptor cache and one stream registry; every exported method is
// safe for concurrent use.
type Marshaller struct {
	config   Config
	cache    *DescriptorCache
	registry *streamRegistry

	marshalCalls   metrics.Timer
	unmarshalCalls metrics.Timer
}

// New constructs a Marshaller from the given options.
func New(opts ...Option) (*Marshaller, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ProtocolVersion != ProtoV1 {
		return nil, protocolViolationErrorf(0, "unknown protocol version %d", cfg.ProtocolVersion)
	}
	// Raw offset access needs a conventional pointer model: 32- or 64-bit
	// word size and byte-addressable memory.
	if ws := unsafe.Sizeof(uintptr(0)); ws != 4 && ws != 8 {
		return nil, unsupportedPlatformError("unsupported word size")
	}
	if strconv.IntSize != 32 && strconv.IntSize != 64 {
		return nil, unsupportedPlatformError("unsupported int size")
	}

	reg := cfg.MetricsRegistry
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	m := &Marshaller{
		config:         cfg,
		cache:          NewDescriptorCache(reg),
		marshalCalls:   metrics.GetOrRegisterTimer("ignite.marshal.calls", reg),
		unmarshalCalls: metrics.GetOrRegisterTimer("ignite.unmarshal.calls", reg),
	}
	m.registry = newStreamRegistry(m, cfg.PoolSize, reg)
	return m, nil
}

// descriptorFor returns the cached descriptor for t, building it on first
// sight under the default (empty) loader tag.
func (m *Marshaller) descriptorFor(t reflect.Type) (*ClassDescriptor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return m.cache.getOrBuild(t, "", m.config.IdMapper, m.config.exclusions[t], m.config.RequireSerializable)
}

// RegisterTypeForLoader pre-builds the descriptor for sample's concrete
// type under the given loader tag, so a later OnUndeploy of that tag
// evicts it. If the type is already cached, the existing entry and its
// loader tag are kept.
func (m *Marshaller) RegisterTypeForLoader(sample any, loaderID string) (*ClassDescriptor, error) {
	t := reflect.TypeOf(sample)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return m.cache.getOrBuild(t, loaderID, m.config.IdMapper, m.config.exclusions[t], m.config.RequireSerializable)
}

// Describe returns the descriptor for sample's concrete type, building it
// if needed. Used by diagnostic tooling.
func (m *Marshaller) Describe(sample any) (*ClassDescriptor, error) {
	return m.descriptorFor(reflect.TypeOf(sample))
}

// OnUndeploy evicts every cached descriptor registered under loaderID.
// In-flight calls holding an evicted descriptor complete normally.
func (m *Marshaller) OnUndeploy(loaderID string) {
	m.cache.onUndeploy(loaderID)
}

// indexingEnabled reports whether the footer is emitted (and expected
// back) for d's type under this marshaller's configuration.
func (m *Marshaller) indexingEnabled(d *ClassDescriptor) bool {
	return m.config.IndexingHandler != nil &&
		d.tag == SerializableTag &&
		d.indexable &&
		m.config.IndexingHandler.EnableIndexing(d.typ)
}

// publishSchema installs d's field schema into the metadata map on the
// first marshal of its type id.
func (m *Marshaller) publishSchema(d *ClassDescriptor) {
	h := m.config.IndexingHandler
	if h == nil || h.Metadata() == nil {
		return
	}
	h.Metadata().Publish(d.typeID, d.fieldSchema())
}

// readTypeMeta consumes a type-id metadata block from buf: a bare id is
// resolved through the marshaller context, 0 reads the inline name. The
// returned id is the field-id salt.
func (m *Marshaller) readTypeMeta(buf *InBuffer) (uint32, string, error) {
	id, err := buf.ReadUint32()
	if err != nil {
		return 0, "", err
	}
	if id == 0 {
		name, err := buf.ReadString()
		if err != nil {
			return 0, "", err
		}
		return hashTypeName(name), name, nil
	}
	if m.config.Context == nil {
		return 0, "", classNotFoundError(id)
	}
	name, ok := m.config.Context.ClassName(id)
	if !ok {
		return 0, "", classNotFoundError(id)
	}
	return id, name, nil
}

// Marshal serializes obj and returns the wire bytes.
func (m *Marshaller) Marshal(obj any) ([]byte, error) {
	start := time.Now()
	out := m.registry.acquireOut()
	defer func() {
		m.registry.releaseOut(out)
		m.marshalCalls.UpdateSince(start)
	}()
	if err := out.WriteValue(obj); err != nil {
		return nil, err
	}
	data := make([]byte, out.buf.Len())
	copy(data, out.buf.Bytes())
	return data, nil
}

// MarshalTo serializes obj into sink. Sink failures surface verbatim as
// I/O errors.
func (m *Marshaller) MarshalTo(obj any, sink io.Writer) error {
	data, err := m.Marshal(obj)
	if err != nil {
		return err
	}
	if _, err := sink.Write(data); err != nil {
		return ioError(err)
	}
	return nil
}

// Unmarshal reconstructs the object serialized in data, resolving type
// names through resolver.
func (m *Marshaller) Unmarshal(data []byte, resolver ClassResolver) (any, error) {
	return m.UnmarshalAt(data, 0, len(data), resolver)
}

// UnmarshalAt reconstructs the object serialized at data[off:off+length].
func (m *Marshaller) UnmarshalAt(data []byte, off, length int, resolver ClassResolver) (any, error) {
	if off < 0 || length < 0 || off+length > len(data) {
		return nil, protocolViolationErrorf(off, "blob range [%d:%d) outside %d bytes", off, off+length, len(data))
	}
	start := time.Now()
	in := m.registry.acquireIn()
	defer func() {
		m.registry.releaseIn(in)
		m.unmarshalCalls.UpdateSince(start)
	}()
	in.reset(data[off:off+length], resolver)
	v, err := in.readReflect()
	if err != nil {
		return nil, err
	}
	return ifaceOf(v), nil
}
