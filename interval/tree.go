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

package interval

import (
	"math/rand"

	"github.com/pkg/errors"
)

// SplitRatio is the imbalance threshold every Tree uses (spec §4.3, §6): a node
// adaptively re-splits when the higher of its two children's score/count
// ratios exceeds the lower by more than this factor.
const SplitRatio = 1.5

// node covers [start, end] of the quantized location axis. Leaves have
// start == end. count/score are an aggregate *cache* over the subtree: the
// adaptive split step deliberately perturbs this cache away from a plain
// sum of the underlying leaves (see Tree.Insert), so it must not be treated
// as ground truth the way the leaf-level count/score arrays are.
type node struct {
	left, right *node
	start, end  uint32
	count       uint64
	score       float64
}

func newNode(start, end uint32) *node {
	n := &node{start: start, end: end}
	if start == end {
		return n
	}
	mid := start + (end-start)/2
	n.left = newNode(start, mid)
	n.right = newNode(mid+1, end)
	return n
}

func ratio(n *node) float64 {
	if n == nil || n.count == 0 {
		return 0
	}
	return n.score / float64(n.count)
}

// Tree is the adaptive segment tree over [0, Size) used to bias exploration
// toward high reward-density regions. Size must be a power of two.
type Tree struct {
	root       *node
	count      []uint64
	score      []float64
	rnd        *rand.Rand
	Size       uint32
	totalCount uint64
}

// New returns a Tree covering [0, size). size must be a power of two
// (spec §6, INTERVAL_SIZE default 1024).
func New(size uint32) *Tree {
	return &Tree{
		Size:  size,
		count: make([]uint64, size),
		score: make([]float64, size),
		root:  newNode(0, size-1),
		rnd:   rand.New(rand.NewSource(1)),
	}
}

// SeedRandom reseeds the Tree's PRNG, used by tests that need determinism
// beyond the default fixed seed.
func (t *Tree) SeedRandom(seed int64) {
	t.rnd = rand.New(rand.NewSource(seed))
}

// Insert records one observation at key with reward value, growing the
// leaf-level count/score (the source of truth) and propagating into the
// tree cache, adaptively re-splitting imbalanced nodes toward the
// higher-density child. Returns an error, without otherwise failing, if key
// is out of range (spec §7: "observation is dropped; nothing else fails").
func (t *Tree) Insert(key uint32, value float64) error {
	if key >= t.Size {
		return errors.Errorf("interval: key %d out of range [0, %d)", key, t.Size)
	}
	t.count[key]++
	t.score[key] += value
	t.totalCount++
	t.insert(t.root, key, value)
	return nil
}

func (t *Tree) insert(n *node, key uint32, value float64) {
	n.count++
	n.score += value
	if n.start == n.end {
		return
	}
	mid := n.start + (n.end-n.start)/2
	if key <= mid {
		t.insert(n.left, key, value)
	} else {
		t.insert(n.right, key, value)
	}

	rl, rr := ratio(n.left), ratio(n.right)
	if rl == 0 || rr == 0 {
		return
	}
	hi, lo := rl, rr
	higher := n.left
	if rr > rl {
		hi, lo = rr, rl
		higher = n.right
	}
	if hi/lo > SplitRatio {
		t.insert(higher, key, value)
	}
}

// Select returns a bucket in [0, Size), uniformly at random during warm-up
// (fewer than Size total observations) and thereafter greedily descending
// toward the higher score/count ratio child at each step, ties broken
// uniformly at random (spec §4.3, P6).
func (t *Tree) Select() uint32 {
	if t.totalCount < uint64(t.Size) {
		return uint32(t.rnd.Int63n(int64(t.Size)))
	}
	n := t.root
	for n.start != n.end {
		rl, rr := ratio(n.left), ratio(n.right)
		switch {
		case rl > rr:
			n = n.left
		case rr > rl:
			n = n.right
		default:
			if t.rnd.Intn(2) == 0 {
				n = n.left
			} else {
				n = n.right
			}
		}
	}
	return n.start
}

// TotalCount returns the number of successful Insert calls so far.
func (t *Tree) TotalCount() uint64 {
	return t.totalCount
}
