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

// Package interval implements the adaptive segment tree over the quantized
// location axis: Quantize maps a real location into a bucket, and Tree
// supports weighted-bucket selection biased toward high reward-density
// regions.
package interval

import "github.com/dgryski/go-farm"

// Quantize maps loc, a real number in [0,1), into an integer bucket in
// [0, buckets). buckets must be a power of two; values outside [0,1) are
// clamped to the nearest valid bucket rather than rejected, since this path
// never sees a caller-supplied out-of-range key the way Tree.Insert does.
func Quantize(loc float64, buckets uint32) uint32 {
	if loc < 0 {
		loc = 0
	}
	if loc >= 1 {
		loc = 0.999999999
	}
	return uint32(loc * float64(buckets))
}

// QuantizeHashed folds an opaque identifier (rather than a [0,1) float)
// into a bucket, for collaborators whose notion of "location" is a hash or
// address rather than a normalized real — farm-hashes the key and takes it
// modulo buckets. buckets must be a power of two.
func QuantizeHashed(key []byte, buckets uint32) uint32 {
	return uint32(farm.Hash64(key) & uint64(buckets-1))
}
