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
	metrics "github.com/rcrowley/go-metrics"
)

// descriptorEntry pairs a built descriptor with the loader tag it was
// registered under, so undeploy can scan for a match.
type descriptorEntry struct {
	descriptor *ClassDescriptor
	loaderID   string
}

// DescriptorCache is the concurrent class -> descriptor mapping (component
// D). Lookup is lock-free for hits; install-on-miss races are resolved by
// xsync.MapOf's own compare-and-swap LoadOrStore, so a losing builder's
// candidate is simply discarded.
//
// Go has no ClassLoader; this module models undeploy-by-loader as an
// opaque caller-supplied LoaderID string tagged onto a descriptor at
// registration time (see DESIGN.md).
type DescriptorCache struct {
	descriptors *xsync.MapOf[reflect.Type, *descriptorEntry]

	hits   metrics.Counter
	misses metrics.Counter
}

// NewDescriptorCache returns an empty cache instrumented with the given
// metrics registry (nil uses a private unregistered registry, matching
// go-metrics's own DefaultRegistry-optional convention).
func NewDescriptorCache(registry metrics.Registry) *DescriptorCache {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &DescriptorCache{
		descriptors: xsync.NewMapOf[reflect.Type, *descriptorEntry](),
		hits:        metrics.GetOrRegisterCounter("ignite.descriptor_cache.hits", registry),
		misses:      metrics.GetOrRegisterCounter("ignite.descriptor_cache.misses", registry),
	}
}

// getOrBuild returns the cached descriptor for t, building and installing
// one on first sight.
func (c *DescriptorCache) getOrBuild(t reflect.Type, loaderID string, mapper IdMapper, excluded bool, requireSerializable bool) (*ClassDescriptor, error) {
	if entry, ok := c.descriptors.Load(t); ok {
		c.hits.Inc(1)
		return entry.descriptor, nil
	}
	c.misses.Inc(1)

	candidate, err := buildDescriptor(t, mapper, excluded, requireSerializable)
	if err != nil {
		return nil, err
	}
	entry := &descriptorEntry{descriptor: candidate, loaderID: loaderID}
	installed, _ := c.descriptors.LoadOrStore(t, entry)
	return installed.descriptor, nil
}

// onUndeploy removes every descriptor registered under loaderID. Undeploy
// is an infrequent administrative operation, not on the hot path; calls
// holding a reference to a removed descriptor complete normally.
func (c *DescriptorCache) onUndeploy(loaderID string) {
	var toDelete []reflect.Type
	c.descriptors.Range(func(t reflect.Type, entry *descriptorEntry) bool {
		if entry.loaderID == loaderID {
			toDelete = append(toDelete, t)
		}
		return true
	})
	for _, t := range toDelete {
		c.descriptors.Delete(t)
	}
}

// Len returns the number of cached descriptors.
func (c *DescriptorCache) Len() int { return c.descriptors.Size() }
