/*
 * Copyright 2024 Dgraph Labs, Inc. and Contributors
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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainedMapInsertGet(t *testing.T) {
	m := NewChainedMap[string]()
	m.Insert(1, "a")
	v, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, "a", v)

	_, ok = m.Get(2)
	require.False(t, ok)
}

func TestChainedMapNoDedupReturnsNewest(t *testing.T) {
	m := NewChainedMap[int]()
	m.Insert(5, 1)
	m.Insert(5, 2)
	v, ok := m.Get(5)
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 2, m.Size())
}

func TestChainedMapRemoveFirstMatch(t *testing.T) {
	m := NewChainedMap[int]()
	m.Insert(5, 1)
	m.Insert(5, 2)
	require.True(t, m.Remove(5))
	v, ok := m.Get(5)
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, m.Size())
}

func TestChainedMapRemoveMissingKey(t *testing.T) {
	m := NewChainedMap[int]()
	require.False(t, m.Remove(99))
}

func TestChainedMapGrowsAndKeepsAllEntries(t *testing.T) {
	m := NewChainedMap[int]()
	for i := uint32(0); i < 100; i++ {
		m.Insert(i, int(i))
	}
	require.Equal(t, 100, m.Size())
	require.True(t, len(m.buckets) > 8)
	for i := uint32(0); i < 100; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, int(i), v)
	}
}

func TestHashedChainedMapSpreadsLowEntropyKeys(t *testing.T) {
	m := NewHashedChainedMap[int]()
	for i := uint32(0); i < 8; i++ {
		m.Insert(i, int(i))
	}
	used := map[int]bool{}
	for i := uint32(0); i < 8; i++ {
		used[m.fit(i)] = true
	}
	require.Greater(t, len(used), 1)
}

func TestChainedMapIterateVisitsEverything(t *testing.T) {
	m := NewChainedMap[int]()
	m.Insert(1, 10)
	m.Insert(2, 20)
	seen := map[uint32]int{}
	m.Iterate(func(k uint32, v int) { seen[k] = v })
	require.Equal(t, map[uint32]int{1: 10, 2: 20}, seen)
}
