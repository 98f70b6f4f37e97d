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

import "container/list"

// LinkedList is the Go-native counterpart of java.util.LinkedList used for
// the LINKED_LIST wire tag: a genuine doubly-linked list, not a slice
// dressed up to look like one. container/list.List is the standard
// library's equivalent structure; this module wraps it so the LINKED_LIST
// tag has a dedicated type to match on.
type LinkedList struct {
	*list.List
}

// NewLinkedList returns an empty LinkedList.
func NewLinkedList() *LinkedList {
	return &LinkedList{List: list.New()}
}

// Values copies the list's elements into a slice in front-to-back order,
// used by the output path to iterate without exposing container/list's
// element-pointer API to callers.
func (l *LinkedList) Values() []any {
	out := make([]any, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value)
	}
	return out
}

// linkedEntry is one key/value pair of a LinkedHashMap, kept in insertion
// order.
type linkedEntry struct {
	key   any
	value any
}

// LinkedHashMap is an insertion-ordered map, the Go counterpart of
// java.util.LinkedHashMap: Go's builtin map type has no defined iteration
// order, so the LINKED_HASH_MAP wire tag (which must round-trip insertion
// order) needs this dedicated type.
type LinkedHashMap struct {
	index   map[any]int
	entries []linkedEntry
	// AccessOrder mirrors java.util.LinkedHashMap's accessOrder flag, one
	// of the container-internal parameters the descriptor captures and the
	// wire format carries.
	AccessOrder bool
}

// NewLinkedHashMap returns an empty insertion-ordered map.
func NewLinkedHashMap() *LinkedHashMap {
	return &LinkedHashMap{index: make(map[any]int)}
}

// Put inserts or updates key, preserving the original insertion position
// on update (matching java.util.LinkedHashMap's default, non-access-order
// iteration).
func (m *LinkedHashMap) Put(key, value any) {
	if i, ok := m.index[key]; ok {
		m.entries[i].value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, linkedEntry{key: key, value: value})
}

// Get returns the value for key and whether it was present.
func (m *LinkedHashMap) Get(key any) (any, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].value, true
}

// Len returns the number of entries.
func (m *LinkedHashMap) Len() int { return len(m.entries) }

// Entries returns the key/value pairs in insertion order.
func (m *LinkedHashMap) Entries() []linkedEntry { return m.entries }

// LinkedHashSet is the insertion-ordered counterpart of java.util.HashSet,
// backing the LINKED_HASH_SET wire tag.
type LinkedHashSet struct {
	index  map[any]int
	values []any
}

// NewLinkedHashSet returns an empty insertion-ordered set.
func NewLinkedHashSet() *LinkedHashSet {
	return &LinkedHashSet{index: make(map[any]int)}
}

// Add inserts value if absent; returns whether it was newly added.
func (s *LinkedHashSet) Add(value any) bool {
	if _, ok := s.index[value]; ok {
		return false
	}
	s.index[value] = len(s.values)
	s.values = append(s.values, value)
	return true
}

// Contains reports whether value is present.
func (s *LinkedHashSet) Contains(value any) bool {
	_, ok := s.index[value]
	return ok
}

// Len returns the number of elements.
func (s *LinkedHashSet) Len() int { return len(s.values) }

// Values returns the elements in insertion order.
func (s *LinkedHashSet) Values() []any { return s.values }

// HashSet is an unordered set, backing the HASH_SET wire tag. Go has no
// builtin set type; this module's is a thin wrapper over map[any]struct{},
// the idiomatic Go set representation.
type HashSet struct {
	values map[any]struct{}
}

// NewHashSet returns an empty set.
func NewHashSet() *HashSet {
	return &HashSet{values: make(map[any]struct{})}
}

// Add inserts value; returns whether it was newly added.
func (s *HashSet) Add(value any) bool {
	if _, ok := s.values[value]; ok {
		return false
	}
	s.values[value] = struct{}{}
	return true
}

// Contains reports whether value is present.
func (s *HashSet) Contains(value any) bool {
	_, ok := s.values[value]
	return ok
}

// Len returns the number of elements.
func (s *HashSet) Len() int { return len(s.values) }

// Values returns the set's elements in unspecified order, matching
// java.util.HashSet's own lack of an ordering guarantee.
func (s *HashSet) Values() []any {
	out := make([]any, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	return out
}

// ClassLiteral represents a reference to a type itself rather than an
// instance of it, backing the CLASS wire tag: only the type-id metadata
// block travels, never any instance state.
type ClassLiteral struct {
	TypeName string
}

// Properties is the Go counterpart of java.util.Properties: a string-keyed
// map with an optional defaults chain consulted on lookup miss, backing
// the PROPERTIES wire tag.
type Properties struct {
	values   map[string]string
	Defaults *Properties
}

// NewProperties returns an empty Properties with no defaults chain.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set stores a property value.
func (p *Properties) Set(key, value string) { p.values[key] = value }

// Get returns a property, falling back to Defaults when key is not set
// locally, matching java.util.Properties.getProperty.
func (p *Properties) Get(key string) (string, bool) {
	if v, ok := p.values[key]; ok {
		return v, true
	}
	if p.Defaults != nil {
		return p.Defaults.Get(key)
	}
	return "", false
}

// Keys returns the locally-set keys; order is unspecified, matching
// java.util.Properties which itself extends Hashtable with no ordering
// guarantee.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of locally-set properties (excluding defaults).
func (p *Properties) Len() int { return len(p.values) }
