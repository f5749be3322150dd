/*
 * Copyright 2020 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package container

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ChainedMap is open hashing with external chaining over uint32 keys,
// generic over the value type V. It intentionally does not deduplicate on
// Insert (spec §4.2): repeated inserts under one key are allowed, and Get
// returns the most recently inserted of them by walking each bucket's chain
// newest-first.
type ChainedMap[V any] struct {
	buckets    [][]chainEntry[V]
	size       int
	hashed     bool
}

type chainEntry[V any] struct {
	key   uint32
	value V
}

// NewChainedMap returns an empty ChainedMap with the teacher's starting
// table size of 8 (doubled once load exceeds 1/2, same threshold ristretto's
// Buffer/MinHeap growth family uses elsewhere in the corpus).
func NewChainedMap[V any]() *ChainedMap[V] {
	return &ChainedMap[V]{buckets: make([][]chainEntry[V], 8)}
}

// NewHashedChainedMap is like NewChainedMap but re-hashes keys through
// xxhash before bucketing, for callers whose uint32 keys are low-entropy
// (e.g. sequentially assigned seed IDs) and would otherwise cluster in the
// low buckets of a plain `key mod table_size` fit.
func NewHashedChainedMap[V any]() *ChainedMap[V] {
	m := NewChainedMap[V]()
	m.hashed = true
	return m
}

func (m *ChainedMap[V]) fit(key uint32) int {
	k := key
	if m.hashed {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], key)
		k = uint32(xxhash.Sum64(buf[:]))
	}
	return int(k % uint32(len(m.buckets)))
}

func (m *ChainedMap[V]) resize() {
	newBuckets := make([][]chainEntry[V], len(m.buckets)*2)
	for _, chain := range m.buckets {
		for _, e := range chain {
			idx := int(e.key) % len(newBuckets)
			if m.hashed {
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], e.key)
				idx = int(uint32(xxhash.Sum64(buf[:])) % uint32(len(newBuckets)))
			}
			newBuckets[idx] = append(newBuckets[idx], e)
		}
	}
	m.buckets = newBuckets
}

// Insert adds a key-value pair, doubling the table once load exceeds 1/2
// (spec §4.2, P9). Multiple inserts under the same key are all kept.
func (m *ChainedMap[V]) Insert(key uint32, value V) {
	idx := m.fit(key)
	m.buckets[idx] = append(m.buckets[idx], chainEntry[V]{key: key, value: value})
	m.size++
	if m.size > len(m.buckets)/2 {
		m.resize()
	}
}

// Get returns the most recently inserted value for key, and whether it was
// found at all.
func (m *ChainedMap[V]) Get(key uint32) (V, bool) {
	idx := m.fit(key)
	chain := m.buckets[idx]
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].key == key {
			return chain[i].value, true
		}
	}
	var zero V
	return zero, false
}

// Remove deletes the first matching entry for key (in chain order, not
// insertion-recency order), per spec §4.2. Returns whether anything was
// removed.
func (m *ChainedMap[V]) Remove(key uint32) bool {
	idx := m.fit(key)
	chain := m.buckets[idx]
	for i, e := range chain {
		if e.key == key {
			m.buckets[idx] = append(chain[:i], chain[i+1:]...)
			m.size--
			return true
		}
	}
	return false
}

// Iterate visits every key-value pair. Visitation order is unspecified.
// Removing from the map while iterating is not supported.
func (m *ChainedMap[V]) Iterate(fn func(key uint32, value V)) {
	for _, chain := range m.buckets {
		for _, e := range chain {
			fn(e.key, e.value)
		}
	}
}

// Size returns the number of entries currently stored, counting duplicate
// inserts under the same key separately.
func (m *ChainedMap[V]) Size() int {
	return m.size
}
