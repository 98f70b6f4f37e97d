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
	"time"

	metrics "github.com/rcrowley/go-metrics"
)

// streamRegistry hands out stream handles for the duration of one
// Marshal/Unmarshal call. PoolSize 0 runs in cached mode: handles are
// recycled through a sync.Pool, so acquire is O(1) and never blocks and a
// busy goroutine effectively keeps its own pair warm. PoolSize > 0 runs
// in shared mode: exactly that many input and output handles exist,
// acquire blocks until one is released, and release wakes one waiter.
type streamRegistry struct {
	outCache sync.Pool
	inCache  sync.Pool

	outPool chan *Output
	inPool  chan *Input

	acquireWait metrics.Timer
	exhausted   metrics.Counter
}

func newStreamRegistry(m *Marshaller, poolSize int, registry metrics.Registry) *streamRegistry {
	r := &streamRegistry{
		acquireWait: metrics.GetOrRegisterTimer("ignite.stream_registry.acquire_wait", registry),
		exhausted:   metrics.GetOrRegisterCounter("ignite.stream_registry.exhausted", registry),
	}
	if poolSize > 0 {
		r.outPool = make(chan *Output, poolSize)
		r.inPool = make(chan *Input, poolSize)
		for i := 0; i < poolSize; i++ {
			r.outPool <- newOutput(m)
			r.inPool <- newInput(m)
		}
		return r
	}
	r.outCache.New = func() any { return newOutput(m) }
	r.inCache.New = func() any { return newInput(m) }
	return r
}

func (r *streamRegistry) acquireOut() *Output {
	if r.outPool == nil {
		return r.outCache.Get().(*Output)
	}
	select {
	case o := <-r.outPool:
		return o
	default:
	}
	r.exhausted.Inc(1)
	start := time.Now()
	o := <-r.outPool
	r.acquireWait.UpdateSince(start)
	return o
}

func (r *streamRegistry) releaseOut(o *Output) {
	o.reset()
	if r.outPool == nil {
		r.outCache.Put(o)
		return
	}
	r.outPool <- o
}

func (r *streamRegistry) acquireIn() *Input {
	if r.inPool == nil {
		return r.inCache.Get().(*Input)
	}
	select {
	case in := <-r.inPool:
		return in
	default:
	}
	r.exhausted.Inc(1)
	start := time.Now()
	in := <-r.inPool
	r.acquireWait.UpdateSince(start)
	return in
}

func (r *streamRegistry) releaseIn(in *Input) {
	in.reset(nil, nil)
	if r.inPool == nil {
		r.inCache.Put(in)
		return
	}
	r.inPool <- in
}
