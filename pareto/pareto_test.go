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

package pareto

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dafl-go/scheduler/seed"
)

func mkSeed(id uint32, adjusted float64, covered uint32, length uint32) *seed.Seed {
	s := seed.New(id, length, 0, id, id, 0, uint64(adjusted), covered)
	s.ProxScore.Adjusted = adjusted
	return s
}

func TestPushMarksNewlyAdded(t *testing.T) {
	sch := New(Config{RecycleBudget: 10, RebuildMin: 4})
	s := mkSeed(1, 10, 0, 1)
	sch.Push(s)
	require.Equal(t, seed.NewlyAdded, s.MOOInfo.Status)
	require.Equal(t, seed.NewlyAdded, s.ExploreInfo.Status)
}

func TestNextEmptyReturnsNil(t *testing.T) {
	sch := New(Config{RecycleBudget: 10, RebuildMin: 4})
	require.Nil(t, sch.Next(false))
}

func TestNextRebuildsAndReturnsDominantSeed(t *testing.T) {
	sch := New(Config{RecycleBudget: 10, RebuildMin: 1})
	weak := mkSeed(1, 1, 0, 100)
	strong := mkSeed(2, 100, 10, 1)
	sch.Push(weak)
	sch.Push(strong)

	got := sch.Next(false)
	require.NotNil(t, got)
	require.Equal(t, 1, sch.DominatedSize(false))
}

func TestNonDominatedFrontKeepsIncomparableSeeds(t *testing.T) {
	sch := New(Config{RecycleBudget: 10, RebuildMin: 1})
	// a beats b on adjusted but loses on length; neither dominates.
	a := mkSeed(1, 100, 0, 50)
	b := mkSeed(2, 10, 0, 1)
	sch.Push(a)
	sch.Push(b)
	sch.Next(false)
	require.Equal(t, 2, sch.FrontierSize(false))
	require.Equal(t, 0, sch.DominatedSize(false))
}

func TestRecycleThenRebuildReturnsSeedAgain(t *testing.T) {
	sch := New(Config{RecycleBudget: 1, RebuildMin: 1})
	s := mkSeed(1, 10, 0, 1)
	sch.Push(s)

	first := sch.Next(false)
	require.Same(t, s, first)
	require.Equal(t, uint32(1), s.SelectionCount)

	second := sch.Next(false)
	require.Same(t, s, second)
	// A rebuild-promoted seed gets a fresh selection budget.
	require.Equal(t, uint32(1), s.SelectionCount)
}

func TestRemoveExcludesSeedFromNextRebuild(t *testing.T) {
	sch := New(Config{RecycleBudget: 10, RebuildMin: 1})
	s := mkSeed(1, 10, 0, 1)
	sch.Push(s)
	sch.Next(false)
	sch.Remove(s)
	require.True(t, s.Removed)

	// Force a rebuild by pushing a second seed past the trigger.
	other := mkSeed(2, 5, 0, 1)
	sch.Push(other)
	got := sch.Next(false)
	require.NotSame(t, s, got)
}

func TestExploreAxisBumpsDFGPathRarity(t *testing.T) {
	sch := New(Config{RecycleBudget: 10, RebuildMin: 1})
	s := mkSeed(1, 10, 0, 1)
	sch.Push(s)
	before := sch.dfgPathRarity(s.DFGCksum)
	sch.Next(true)
	after := sch.dfgPathRarity(s.DFGCksum)
	require.Less(t, after, before)
}

func TestDominatesIsStrict(t *testing.T) {
	require.True(t, dominates([]float64{2, 2}, []float64{1, 2}))
	require.False(t, dominates([]float64{2, 2}, []float64{2, 2}))
	require.False(t, dominates([]float64{2, 1}, []float64{1, 2}))
}

func TestNonDominatedFrontDiff(t *testing.T) {
	candidates := []*seed.Seed{
		mkSeed(1, 10, 5, 1),
		mkSeed(2, 1, 0, 1),
	}
	scoreFuncs := []func(*seed.Seed) float64{
		func(s *seed.Seed) float64 { return s.ProxScore.Adjusted },
		func(s *seed.Seed) float64 { return float64(s.ProxScore.Covered) },
	}
	frontier, dominated := nonDominatedFront(candidates, scoreFuncs)
	if diff := cmp.Diff([]*seed.Seed{candidates[0]}, frontier); diff != "" {
		t.Fatalf("frontier mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]*seed.Seed{candidates[1]}, dominated); diff != "" {
		t.Fatalf("dominated mismatch (-want +got):\n%s", diff)
	}
}
