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

// Package pareto implements the multi-objective scheduler: two independent
// rank partitions (MOO and EXPLORE), each a tuple of four buckets
// (frontier, dominated, newly_added, recycled), ranked by dominance over a
// fixed objective tuple per axis (spec §4.5).
package pareto

import (
	"github.com/dafl-go/scheduler/container"
	"github.com/dafl-go/scheduler/seed"
)

// Axis names one of the two independent rank structures a Seed belongs to.
type Axis uint8

const (
	MOO Axis = iota
	Explore
)

// Config holds the Pareto scheduler's tunables (spec §6).
type Config struct {
	// RecycleBudget is the selection-count threshold past which a seed is
	// moved to the recycled bucket until the next rebuild reinstates it
	// (spec §4.5, P5).
	RecycleBudget uint32
	// RebuildMin is the floor of the |newly_added| rebuild trigger
	// (REBUILD_TRIGGER = max(RebuildMin, |frontier|/4), spec §6).
	RebuildMin int
	// OnRecycle, if set, is called whenever a seed crosses its selection-
	// count budget and moves to the recycled bucket on the given axis —
	// lets a caller count recycles without this package depending on the
	// caller's own metrics type, the same role ristretto's Config.OnEvict
	// callback plays for its cache.
	OnRecycle func(axis Axis)
	// OnRebuild, if set, is called whenever the given axis's non-dominated
	// front is recomputed.
	OnRebuild func(axis Axis)
}

type partition struct {
	frontier, dominated, newlyAdded, recycled *container.Sequence[*seed.Seed]
	scoreFuncs                                []func(*seed.Seed) float64
	axis                                      Axis
}

func newPartition(axis Axis) *partition {
	return &partition{
		axis:       axis,
		frontier:   container.NewSequence[*seed.Seed](),
		dominated:  container.NewSequence[*seed.Seed](),
		newlyAdded: container.NewSequence[*seed.Seed](),
		recycled:   container.NewSequence[*seed.Seed](),
	}
}

func infoPtr(s *seed.Seed, axis Axis) *seed.RankInfo {
	if axis == MOO {
		return &s.MOOInfo
	}
	return &s.ExploreInfo
}

func reindex(seq *container.Sequence[*seed.Seed], axis Axis, status seed.Status) {
	seq.Each(func(i int, s *seed.Seed) {
		if s == nil {
			return
		}
		info := infoPtr(s, axis)
		info.Status = status
		info.Index = i
	})
}

func (p *partition) push(s *seed.Seed) {
	p.newlyAdded.PushBack(s)
	info := infoPtr(s, p.axis)
	info.Status = seed.NewlyAdded
	info.Index = p.newlyAdded.Size() - 1
}

func (p *partition) clearSlot(s *seed.Seed) {
	info := infoPtr(s, p.axis)
	switch info.Status {
	case seed.Frontier:
		p.frontier.Set(info.Index, nil)
	case seed.Dominated:
		p.dominated.Set(info.Index, nil)
	case seed.NewlyAdded:
		p.newlyAdded.Set(info.Index, nil)
	case seed.Recycled:
		p.recycled.Set(info.Index, nil)
	}
}

// Scheduler is the Pareto scheduler (spec §4.5).
type Scheduler struct {
	moo          *partition
	explore      *partition
	countDFGPath *container.ChainedMap[int]
	cfg          Config
}

// New constructs a Scheduler with the EXPLORE axis's dfg_path_rarity
// objective wired to this instance's own per-DFG-path selection histogram
// (spec §4.5).
func New(cfg Config) *Scheduler {
	sch := &Scheduler{
		moo:          newPartition(MOO),
		explore:      newPartition(Explore),
		countDFGPath: container.NewChainedMap[int](),
		cfg:          cfg,
	}
	sch.moo.scoreFuncs = []func(*seed.Seed) float64{
		func(s *seed.Seed) float64 { return s.ProxScore.Adjusted },
		func(s *seed.Seed) float64 { return float64(s.ProxScore.Covered) },
		func(s *seed.Seed) float64 { return -float64(s.Length) },
		func(s *seed.Seed) float64 { return -float64(s.Handicap) },
	}
	sch.explore.scoreFuncs = []func(*seed.Seed) float64{
		// coverage_novelty: the Seed record exposes no "newly covered since
		// last observed" counter (tracking that requires the global
		// coverage bitmap, explicitly out of scope per spec §1) — Covered
		// is the closest available proxy and is reused here, decided as an
		// Open Question answer (see DESIGN.md).
		func(s *seed.Seed) float64 { return float64(s.ProxScore.Covered) },
		func(s *seed.Seed) float64 { return sch.dfgPathRarity(s.DFGCksum) },
		func(s *seed.Seed) float64 { return -float64(s.Length) },
	}
	return sch
}

func (sch *Scheduler) dfgPathRarity(dfgCksum uint32) float64 {
	count, _ := sch.countDFGPath.Get(dfgCksum)
	return 1 / (1 + float64(count))
}

func (sch *Scheduler) bumpDFGPath(dfgCksum uint32) {
	count, _ := sch.countDFGPath.Get(dfgCksum)
	sch.countDFGPath.Remove(dfgCksum)
	sch.countDFGPath.Insert(dfgCksum, count+1)
}

// Push admits s into both rank partitions as NEWLY_ADDED (spec §4.5).
func (sch *Scheduler) Push(s *seed.Seed) {
	sch.moo.push(s)
	sch.explore.push(s)
}

// Remove marks s removed and clears its slot in both partitions; the next
// rebuild of each axis compacts the hole (spec §4.5).
func (sch *Scheduler) Remove(s *seed.Seed) {
	s.Removed = true
	sch.moo.clearSlot(s)
	sch.explore.clearSlot(s)
}

// Next pops the next seed from the given axis, rebuilding first if the
// frontier is empty or the rebuild trigger fires, recycling any seed whose
// selection_count has reached the configured budget and retrying (spec
// §4.5, P5). Returns nil if the axis holds no live seed (P4).
func (sch *Scheduler) Next(explore bool) *seed.Seed {
	p := sch.moo
	if explore {
		p = sch.explore
	}
	for {
		if p.frontier.Size() == 0 || p.newlyAdded.Size() >= max(sch.cfg.RebuildMin, p.frontier.Size()/4) {
			sch.rebuild(p)
		}
		if p.frontier.Size() == 0 {
			return nil
		}
		s := p.frontier.PopFront()
		reindex(p.frontier, p.axis, seed.Frontier)
		if s == nil || !s.Live() {
			continue
		}
		if s.SelectionCount >= sch.cfg.RecycleBudget {
			p.recycled.PushBack(s)
			info := infoPtr(s, p.axis)
			info.Status = seed.Recycled
			info.Index = p.recycled.Size() - 1
			if sch.cfg.OnRecycle != nil {
				sch.cfg.OnRecycle(p.axis)
			}
			continue
		}
		s.SelectionCount++
		if p.axis == Explore {
			sch.bumpDFGPath(s.DFGCksum)
		}
		p.frontier.PushBack(s)
		reindex(p.frontier, p.axis, seed.Frontier)
		return s
	}
}

// rebuild recomputes the non-dominated front over
// frontier ∪ newly_added ∪ recycled (excluding removed seeds), per spec
// §4.5. Seeds already in dominated stay there (removed ones are compacted
// out) and newly dominated candidates are appended after them. Seeds
// promoted out of recycled have their selection_count reset to
// 0 — P5's "recycled until the next rebuild" only makes sense if a
// rebuild-promoted seed is immediately eligible for a fresh selection
// budget, since nothing else in the spec ever lowers selection_count.
func (sch *Scheduler) rebuild(p *partition) {
	if sch.cfg.OnRebuild != nil {
		sch.cfg.OnRebuild(p.axis)
	}
	capacity := p.frontier.Size() + p.newlyAdded.Size() + p.recycled.Size()
	candidates := make([]*seed.Seed, 0, capacity)
	fromRecycled := make(map[*seed.Seed]bool, p.recycled.Size())

	collect := func(seq *container.Sequence[*seed.Seed], recycled bool) {
		seq.Each(func(_ int, s *seed.Seed) {
			if s == nil || !s.Live() {
				return
			}
			candidates = append(candidates, s)
			if recycled {
				fromRecycled[s] = true
			}
		})
	}
	collect(p.frontier, false)
	collect(p.newlyAdded, false)
	collect(p.recycled, true)

	frontierSeeds, dominatedSeeds := nonDominatedFront(candidates, p.scoreFuncs)

	p.frontier.Clear()
	p.dominated.Reduce(func(s *seed.Seed) bool { return !s.Live() })
	p.newlyAdded.Clear()
	p.recycled.Clear()

	for _, s := range frontierSeeds {
		if fromRecycled[s] {
			s.SelectionCount = 0
		}
		p.frontier.PushBack(s)
	}
	for _, s := range dominatedSeeds {
		p.dominated.PushBack(s)
	}
	reindex(p.frontier, p.axis, seed.Frontier)
	reindex(p.dominated, p.axis, seed.Dominated)
}

// nonDominatedFront partitions candidates into the non-dominated front and
// everything else, O(n^2), per spec §4.5.
func nonDominatedFront(candidates []*seed.Seed, scoreFuncs []func(*seed.Seed) float64) (frontier, dominated []*seed.Seed) {
	scores := make([][]float64, len(candidates))
	for i, s := range candidates {
		row := make([]float64, len(scoreFuncs))
		for j, f := range scoreFuncs {
			row[j] = f(s)
		}
		scores[i] = row
	}
	beaten := make([]bool, len(candidates))
	for i := range candidates {
		for j := range candidates {
			if i == j {
				continue
			}
			if dominates(scores[j], scores[i]) {
				beaten[i] = true
				break
			}
		}
	}
	for i, s := range candidates {
		if beaten[i] {
			dominated = append(dominated, s)
		} else {
			frontier = append(frontier, s)
		}
	}
	return frontier, dominated
}

// dominates reports whether a dominates b: a is >= b on every objective and
// strictly greater on at least one (every score here is already oriented
// so that "higher is better").
func dominates(a, b []float64) bool {
	strictlyBetter := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

// FrontierSize and DominatedSize expose bucket sizes for metrics and tests.
func (sch *Scheduler) FrontierSize(explore bool) int {
	if explore {
		return sch.explore.frontier.Size()
	}
	return sch.moo.frontier.Size()
}

func (sch *Scheduler) DominatedSize(explore bool) int {
	if explore {
		return sch.explore.dominated.Size()
	}
	return sch.moo.dominated.Size()
}
