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

func TestSequencePushPop(t *testing.T) {
	s := NewSequence[int]()
	s.PushBack(1)
	s.PushBack(2)
	s.PushBack(3)
	require.Equal(t, 3, s.Size())
	require.Equal(t, 1, s.PopFront())
	require.Equal(t, 2, s.Get(0))
	require.Equal(t, 3, s.PopBack())
	require.Equal(t, 1, s.Size())
}

func TestSequencePushFront(t *testing.T) {
	s := NewSequence[int]()
	s.PushBack(1)
	s.PushBack(2)
	s.PushFront(0)
	require.Equal(t, []int{0, 1, 2}, s.data)
}

func TestSequencePopOutOfRange(t *testing.T) {
	s := NewSequence[int]()
	require.Equal(t, 0, s.Pop(5))
	require.Equal(t, 0, s.PopFront())
	require.Equal(t, 0, s.PopBack())
}

func TestSequenceSetDoesNotShift(t *testing.T) {
	s := NewSequence[*int]()
	a, b, c := 1, 2, 3
	s.PushBack(&a)
	s.PushBack(&b)
	s.PushBack(&c)
	s.Set(1, nil)
	require.Equal(t, 3, s.Size())
	require.Nil(t, s.Get(1))
	require.Equal(t, &c, s.Get(2))
}

func TestSequenceReduceCompactsNils(t *testing.T) {
	s := NewSequence[*int]()
	a, c := 1, 3
	s.PushBack(&a)
	s.PushBack(nil)
	s.PushBack(&c)
	s.Reduce(func(v *int) bool { return v == nil })
	require.Equal(t, 2, s.Size())
	require.Equal(t, &a, s.Get(0))
	require.Equal(t, &c, s.Get(1))
}

func TestSequenceCloneIsIndependent(t *testing.T) {
	s := NewSequence[int]()
	s.PushBack(1)
	clone := s.Clone()
	clone.PushBack(2)
	require.Equal(t, 1, s.Size())
	require.Equal(t, 2, clone.Size())
}

func TestSequenceEachVisitsInOrder(t *testing.T) {
	s := NewSequence[int]()
	s.PushBack(10)
	s.PushBack(20)
	var seen []int
	s.Each(func(i int, v int) { seen = append(seen, v) })
	require.Equal(t, []int{10, 20}, seen)
}
