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

// Package vertical groups seeds by DFG-path hash into vertical entries,
// retires entries whose budget is exhausted, and arbitrates between
// horizontal, vertical, and exploration scheduling modes.
package vertical

import (
	"github.com/dafl-go/scheduler/container"
	"github.com/dafl-go/scheduler/seed"
)

// Entry is one distinct DFG path's bundle of seeds (spec §3, §4.4).
type Entry struct {
	Entries   *container.Sequence[*seed.Seed]
	ValueMap  *container.ChainedMap[*seed.Seed] // valuation hash -> seed
	Hash      uint32
	UseCount  uint32
}

func newEntry(hash uint32) *Entry {
	return &Entry{
		Hash:     hash,
		Entries:  container.NewSequence[*seed.Seed](),
		ValueMap: container.NewChainedMap[*seed.Seed](),
	}
}

// Founder returns the first seed ever appended to this entry, whose
// ProxScore.Covered determines the entry's budget (spec §4.4).
func (e *Entry) Founder() *seed.Seed {
	return e.Entries.Get(0)
}

// Head returns the first live (not removed) seed in the entry's sequence —
// the one select_entry and the façade's VERTICAL mode hand back to the
// caller. A seed marked removed (by the Pareto scheduler's Remove, which
// flags it in place) must never be handed back by next() (spec §4.5), so
// Head skips past any removed seeds at the front instead of returning them.
// Returns nil if every seed in the entry has been removed.
func (e *Entry) Head() *seed.Seed {
	var head *seed.Seed
	e.Entries.Each(func(_ int, s *seed.Seed) {
		if head != nil || s == nil || !s.Live() {
			return
		}
		head = s
	})
	return head
}
