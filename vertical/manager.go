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

package vertical

import (
	"container/list"
	"math"
	"time"

	"github.com/dafl-go/scheduler/container"
	"github.com/dafl-go/scheduler/interval"
	"github.com/dafl-go/scheduler/seed"
)

// Mode is the scheduling mode the vertical manager arbitrates between.
type Mode uint8

const (
	Horizontal Mode = iota
	Vertical
	Exploration
)

func (m Mode) String() string {
	switch m {
	case Vertical:
		return "vertical"
	case Exploration:
		return "exploration"
	default:
		return "horizontal"
	}
}

// Config holds the vertical manager's tunables (spec §6).
type Config struct {
	IntervalSize   uint32
	BudgetBase     uint32
	BudgetPerCover uint32
	Alpha          float64
	PVertical      float64
	PExploration   float64
	TWarm          time.Duration
	DynamicMode    bool
	Enabled        bool
}

// Manager is the vertical manager (spec §4.4): it partitions the corpus by
// DFG-path hash, retires exhausted entries, and arbitrates the current
// scheduling mode.
type Manager struct {
	cfg       Config
	pathMap   *container.ChainedMap[*Entry]
	active    *list.List
	retired   *list.List
	tree      *interval.Tree
	startTime time.Time
	now       func() time.Time
	mode      Mode
	rngState  uint64
}

// NewManager constructs a Manager. start is the wall-clock reference for
// T_warm; callers that need deterministic tests should also call
// SeedRandom and override the clock with SetNow.
func NewManager(cfg Config, start time.Time) *Manager {
	m := &Manager{
		cfg:       cfg,
		pathMap:   container.NewChainedMap[*Entry](),
		active:    list.New(),
		retired:   list.New(),
		tree:      interval.New(cfg.IntervalSize),
		startTime: start,
		now:       time.Now,
		rngState:  0x9e3779b97f4a7c15, // golden-ratio constant, never zero
	}
	return m
}

// SeedRandom reseeds the manager's xorshift source, mirroring
// interval.Tree.SeedRandom, for deterministic tests of mode arbitration.
func (m *Manager) SeedRandom(seed uint64) {
	if seed == 0 {
		seed = 1
	}
	m.rngState = seed
}

// SetNow overrides the manager's clock, for tests that need to simulate
// T_warm elapsing without sleeping.
func (m *Manager) SetNow(now func() time.Time) {
	m.now = now
}

// nextFloat draws a value in [0,1) using the same xorshift technique
// ristretto's lossless ring buffer uses to pick a stripe (ring/ring.go's
// pushLossless): cheap, deterministic given a seed, "racy but random
// enough" — adequate for mode arbitration, which has no correctness
// requirement on the distribution beyond the configured probabilities.
func (m *Manager) nextFloat() float64 {
	m.rngState ^= m.rngState << 13
	m.rngState ^= m.rngState >> 7
	m.rngState ^= m.rngState << 17
	return float64(m.rngState%1_000_000) / 1_000_000
}

// Push admits seed into the vertical entry for its DFG-path hash, creating
// the entry if this is the first seed on that path, splicing newly-created
// (previously empty) entries to the head of the active chain, and
// recording the seed's location/proximity in the interval tree (spec
// §4.4). The richer two-branch splice rule in original_source/afl-fuzz.h
// (move-to-front on a locally-unique valuation hash) is superseded by
// spec.md's simplified rule, per SPEC_FULL.md's Open Question decision.
func (m *Manager) Push(s *seed.Seed) {
	entry, existed := m.pathMap.Get(s.DFGCksum)
	if !existed {
		entry = newEntry(s.DFGCksum)
		m.pathMap.Insert(s.DFGCksum, entry)
	}
	wasEmpty := entry.Entries.Size() == 0
	entry.Entries.PushBack(s)
	entry.ValueMap.Insert(s.ValuationHash, s)
	if wasEmpty {
		m.active.PushFront(entry)
	}
	_ = m.tree.Insert(s.Location, float64(s.ProxScore.Original))
}

// budget is a monotone function of the founding seed's coverage: larger
// coverage earns a larger selection allowance before retirement (spec
// §4.4).
func (m *Manager) budget(e *Entry) uint32 {
	var covered uint32
	if f := e.Founder(); f != nil {
		covered = f.ProxScore.Covered
	}
	return m.cfg.BudgetBase + covered*m.cfg.BudgetPerCover
}

// SelectEntry asks the interval tree for a target bucket, walks the active
// chain for the first entry whose head seed quantizes into that bucket and
// still has budget remaining, falling back to the chain head on a miss,
// and retires the chosen entry once its budget is exhausted (spec §4.4).
// Returns nil if there are no active entries.
func (m *Manager) SelectEntry() *Entry {
	if m.active.Len() == 0 {
		return nil
	}
	bucket := m.tree.Select()
	var chosen *list.Element
	for el := m.active.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*Entry)
		if head := entry.Head(); head != nil && head.Location == bucket && entry.UseCount < m.budget(entry) {
			chosen = el
			break
		}
	}
	if chosen == nil {
		chosen = m.active.Front()
	}
	entry := chosen.Value.(*Entry)
	entry.UseCount++
	m.decay(entry)
	if entry.UseCount == m.budget(entry) {
		m.active.Remove(chosen)
		m.retired.PushBack(entry)
	}
	return entry
}

// decay applies the retirement-proximity rule (spec §4.4, P10): every seed
// still held by entry has its Adjusted score recomputed as
// Original * Alpha^UseCount, so heavily-used DFG paths lose MOO priority
// monotonically as they're reused.
func (m *Manager) decay(entry *Entry) {
	factor := math.Pow(m.cfg.Alpha, float64(entry.UseCount))
	entry.Entries.Each(func(_ int, s *seed.Seed) {
		if s == nil {
			return
		}
		s.ProxScore.Adjusted = float64(s.ProxScore.Original) * factor
	})
}

// SelectMode arbitrates HORIZONTAL/VERTICAL/EXPLORATION (spec §4.4),
// updating the internal counters (elapsed time is read via the manager's
// clock) that drive the arbitration. Not side-effect free; GetMode is.
func (m *Manager) SelectMode() Mode {
	if !m.cfg.Enabled {
		m.mode = Horizontal
		return m.mode
	}
	if m.now().Sub(m.startTime) < m.cfg.TWarm {
		m.mode = Horizontal
		return m.mode
	}
	pv := m.cfg.PVertical
	if m.cfg.DynamicMode {
		total := m.active.Len() + m.retired.Len()
		if total > 0 {
			fraction := float64(m.retired.Len()) / float64(total)
			pv *= 1 - fraction
		}
	}
	r := m.nextFloat()
	switch {
	case r < pv:
		m.mode = Vertical
	case r < pv+m.cfg.PExploration:
		m.mode = Exploration
	default:
		m.mode = Horizontal
	}
	return m.mode
}

// GetMode returns the mode computed by the most recent SelectMode call,
// without any side effects (spec §4.4, §6).
func (m *Manager) GetMode() Mode {
	return m.mode
}

// SetEnabled toggles vertical scheduling. Disabling forces HORIZONTAL
// immediately, satisfying P7 even before the next SelectMode call.
func (m *Manager) SetEnabled(enabled bool) {
	m.cfg.Enabled = enabled
	if !enabled {
		m.mode = Horizontal
	}
}

// Enabled reports whether vertical scheduling is currently turned on.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// ActiveCount and RetiredCount expose chain sizes for metrics/tests.
func (m *Manager) ActiveCount() int  { return m.active.Len() }
func (m *Manager) RetiredCount() int { return m.retired.Len() }
