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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheInstallsExactlyOneDescriptor(t *testing.T) {
	c := NewDescriptorCache(nil)
	typ := reflect.TypeOf(wirePerson{})

	results := make([]*ClassDescriptor, 32)
	var wg sync.WaitGroup
	for g := 0; g < len(results); g++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			d, err := c.getOrBuild(typ, "", nil, false, true)
			require.NoError(t, err)
			results[slot] = d
		}(g)
	}
	wg.Wait()

	for _, d := range results {
		require.Same(t, results[0], d)
	}
	require.Equal(t, 1, c.Len())
}

func TestCacheHitReturnsSameDescriptor(t *testing.T) {
	c := NewDescriptorCache(nil)
	typ := reflect.TypeOf(wireAddress{})

	a, err := c.getOrBuild(typ, "", nil, false, true)
	require.NoError(t, err)
	b, err := c.getOrBuild(typ, "", nil, false, true)
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestCacheBuildErrorNotInstalled(t *testing.T) {
	c := NewDescriptorCache(nil)
	typ := reflect.TypeOf(plainThing{})

	_, err := c.getOrBuild(typ, "", nil, false, true)
	require.Error(t, err)
	require.Zero(t, c.Len())
}

func TestUndeployEvictsByLoader(t *testing.T) {
	c := NewDescriptorCache(nil)

	_, err := c.getOrBuild(reflect.TypeOf(wireAddress{}), "app1", nil, false, true)
	require.NoError(t, err)
	_, err = c.getOrBuild(reflect.TypeOf(wirePerson{}), "app1", nil, false, true)
	require.NoError(t, err)
	_, err = c.getOrBuild(reflect.TypeOf(node{}), "app2", nil, false, true)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	c.onUndeploy("app1")
	require.Equal(t, 1, c.Len())

	// An evicted type rebuilds on next sight.
	_, err = c.getOrBuild(reflect.TypeOf(wireAddress{}), "", nil, false, true)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
}

func TestMarshallerUndeploySurface(t *testing.T) {
	m := newTestMarshaller(t)
	_, err := m.RegisterTypeForLoader(wireAddress{}, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, 1, m.cache.Len())

	m.OnUndeploy("tenant-a")
	require.Zero(t, m.cache.Len())

	// Marshalling after undeploy just rebuilds the descriptor; the string
	// City field caches the string type's descriptor alongside it.
	_, err = m.Marshal(&wireAddress{City: "Hall"})
	require.NoError(t, err)
	require.Equal(t, 2, m.cache.Len())
}
