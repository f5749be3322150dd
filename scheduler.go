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

// Package scheduler is a directed greybox fuzzer's seed-scheduling core: it
// decides which seed in the corpus a fuzzer driver should mutate next,
// ranking seeds by distance-to-target proximity and coverage (package
// pareto) while optionally steering the driver down one DFG path at a time
// (package vertical), as spec.md's distillation of the original DAFL
// scheduler describes.
package scheduler

import (
	"time"

	"github.com/dafl-go/scheduler/container"
	"github.com/dafl-go/scheduler/pareto"
	"github.com/dafl-go/scheduler/seed"
	"github.com/dafl-go/scheduler/vertical"
)

// Scheduler is the externally visible push/next/mode surface (spec §4.6).
// A Scheduler is not safe for concurrent use from multiple goroutines
// except through its Metrics field — spec §5 mandates a single-threaded
// cooperative driver loop, the same contract ristretto's Cache rejects by
// instead locking everything; here there is nothing to lock.
type Scheduler struct {
	cfg     Config
	moo     *pareto.Scheduler
	vert    *vertical.Manager
	seen    *container.ChainedMap[struct{}]
	Metrics *Metrics
}

// New constructs a Scheduler from cfg. start is the wall-clock reference
// the vertical manager measures T_warm against; most callers should pass
// time.Now().
func New(cfg Config, start time.Time) *Scheduler {
	sched := &Scheduler{
		cfg:     cfg,
		seen:    container.NewChainedMap[struct{}](),
		Metrics: NewMetrics(),
	}
	sched.moo = pareto.New(pareto.Config{
		RecycleBudget: cfg.RecycleBudget,
		RebuildMin:    cfg.RebuildMin,
		OnRecycle: func(axis pareto.Axis) {
			sched.Metrics.add(recycle, 1)
		},
		OnRebuild: func(axis pareto.Axis) {
			if axis == pareto.Explore {
				sched.Metrics.add(exploreRebuild, 1)
			} else {
				sched.Metrics.add(mooRebuild, 1)
			}
		},
	})
	sched.vert = vertical.NewManager(vertical.Config{
		IntervalSize:   cfg.IntervalSize,
		BudgetBase:     cfg.BudgetBase,
		BudgetPerCover: cfg.BudgetPerCover,
		Alpha:          cfg.Alpha,
		PVertical:      cfg.PVertical,
		PExploration:   cfg.PExploration,
		TWarm:          cfg.TWarm,
		DynamicMode:    cfg.DynamicMode,
		Enabled:        cfg.VerticalEnabled,
	}, start)
	return sched
}

// Push admits s into the scheduler: both Pareto rank partitions and the
// vertical manager's DFG-path entries (spec §4.6). Push is idempotent by
// seed ID — a second Push for an ID already seen is a no-op, reported via
// Metrics.DuplicatePushes, since a fuzzer driver may re-discover the same
// seed through more than one code path. Returns false for a duplicate.
func (s *Scheduler) Push(sd *seed.Seed) bool {
	s.Metrics.add(push, 1)
	if _, dup := s.seen.Get(sd.ID); dup {
		s.Metrics.add(duplicatePush, 1)
		return false
	}
	s.seen.Insert(sd.ID, struct{}{})
	s.moo.Push(sd)
	s.vert.Push(sd)
	return true
}

// MarkRemoved marks sd removed from the corpus (spec §4.6). sd.Removed is a
// field on the shared Seed the vertical manager's entries also point to, so
// flagging it here is enough to keep both structures honest: the Pareto
// scheduler drops it from its partitions lazily at the next rebuild, and
// vertical.Entry.Head skips past it immediately rather than waiting for a
// rebuild. Neither structure hands a removed seed back from Next (spec
// §4.5, §4.4).
func (s *Scheduler) MarkRemoved(sd *seed.Seed) {
	s.moo.Remove(sd)
}

// Next selects the scheduling mode, then returns the next seed to fuzz:
// HORIZONTAL and EXPLORATION modes defer to the Pareto scheduler's MOO and
// EXPLORE axes respectively; VERTICAL mode asks the vertical manager for
// an active entry and returns its head seed, falling back to the Pareto
// MOO axis if the vertical manager has nothing active (spec §4.6). Returns
// nil only when every source is exhausted.
func (s *Scheduler) Next() *seed.Seed {
	s.Metrics.add(next, 1)
	mode := s.vert.SelectMode()
	s.countMode(mode)

	var out *seed.Seed
	switch mode {
	case vertical.Vertical:
		if entry := s.vert.SelectEntry(); entry != nil {
			out = entry.Head()
			if entry.UseCount == s.retirementMark(entry) {
				s.Metrics.add(verticalRetirement, 1)
			}
		}
		if out == nil {
			out = s.moo.Next(false)
		}
	case vertical.Exploration:
		out = s.moo.Next(true)
	default:
		out = s.moo.Next(false)
	}

	if out == nil {
		s.Metrics.add(emptyNext, 1)
	}
	return out
}

// retirementMark mirrors vertical.Manager's private budget computation
// closely enough to tell whether the entry SelectEntry just returned was
// the one that tipped into retirement, for metrics purposes only; a wrong
// guess here costs nothing but an undercounted metric.
func (s *Scheduler) retirementMark(e *vertical.Entry) uint32 {
	var covered uint32
	if f := e.Founder(); f != nil {
		covered = f.ProxScore.Covered
	}
	return s.cfg.BudgetBase + covered*s.cfg.BudgetPerCover
}

func (s *Scheduler) countMode(mode vertical.Mode) {
	switch mode {
	case vertical.Vertical:
		s.Metrics.add(modeVertical, 1)
	case vertical.Exploration:
		s.Metrics.add(modeExploration, 1)
	default:
		s.Metrics.add(modeHorizontal, 1)
	}
}

// GetMode returns the mode selected by the most recent Next call, without
// triggering a new selection (spec §4.4, §4.6).
func (s *Scheduler) GetMode() vertical.Mode {
	return s.vert.GetMode()
}

// SetVerticalEnabled toggles vertical scheduling at runtime (spec §6,
// P7): disabling forces HORIZONTAL immediately.
func (s *Scheduler) SetVerticalEnabled(enabled bool) {
	s.vert.SetEnabled(enabled)
}

// FrontierSize and DominatedSize expose Pareto bucket sizes (axis=false is
// MOO, axis=true is EXPLORE) for an embedding driver's own metrics/UI.
func (s *Scheduler) FrontierSize(explore bool) int  { return s.moo.FrontierSize(explore) }
func (s *Scheduler) DominatedSize(explore bool) int { return s.moo.DominatedSize(explore) }

// ActiveEntries and RetiredEntries expose the vertical manager's chain
// sizes for the same purpose.
func (s *Scheduler) ActiveEntries() int  { return s.vert.ActiveCount() }
func (s *Scheduler) RetiredEntries() int { return s.vert.RetiredCount() }
