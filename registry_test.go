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
	"sync"
	"testing"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/require"
)

func TestCachedModeNeverBlocks(t *testing.T) {
	m := newTestMarshaller(t)
	r := m.registry

	out := r.acquireOut()
	require.NotNil(t, out)
	out.buf.WriteUint32(7)
	r.releaseOut(out)

	// Handles come back reset regardless of recycling.
	again := r.acquireOut()
	require.Zero(t, again.buf.Len())
	require.Empty(t, again.handles.positions)
	r.releaseOut(again)
}

func TestPooledModeBounded(t *testing.T) {
	m := newTestMarshaller(t, WithPoolSize(1))
	r := m.registry

	first := r.acquireOut()
	acquired := make(chan *Output)
	go func() {
		acquired <- r.acquireOut()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must block while the only handle is held")
	case <-time.After(50 * time.Millisecond):
	}

	r.releaseOut(first)
	select {
	case o := <-acquired:
		r.releaseOut(o)
	case <-time.After(time.Second):
		t.Fatal("release did not wake the waiter")
	}
}

func TestPooledModeConcurrentCalls(t *testing.T) {
	m := newTestMarshaller(t, WithPoolSize(2))
	reg := testResolver()
	p := &wireAddress{City: "Imst", Zip: 6460}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				data, err := m.Marshal(p)
				if err != nil {
					t.Error(err)
					return
				}
				got, err := m.Unmarshal(data, reg)
				if err != nil {
					t.Error(err)
					return
				}
				if got.(*wireAddress).City != p.City {
					t.Error("wrong reconstruction from pooled handles")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPooledModeCountsExhaustion(t *testing.T) {
	reg := metrics.NewRegistry()
	m := newTestMarshaller(t, WithPoolSize(1), WithMetricsRegistry(reg))
	r := m.registry

	held := r.acquireOut()
	done := make(chan struct{})
	go func() {
		o := r.acquireOut()
		r.releaseOut(o)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	r.releaseOut(held)
	<-done

	c := metrics.GetOrRegisterCounter("ignite.stream_registry.exhausted", reg)
	require.Positive(t, c.Count())
}

func TestHandleBufferRetainedUpToSoftCap(t *testing.T) {
	m := newTestMarshaller(t, WithPoolSize(1))
	r := m.registry

	out := r.acquireOut()
	out.buf.WriteBytesRaw(make([]byte, softCapBytes*2))
	r.releaseOut(out)

	out = r.acquireOut()
	require.Zero(t, out.buf.Len())
	require.LessOrEqual(t, cap(out.buf.Bytes()), softCapBytes)
	r.releaseOut(out)
}
