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

package scheduler

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// metricType names one of Metrics's counters, following the enum-indexed
// layout ristretto's metrics.go uses for its hit/miss/eviction counters,
// adapted to this scheduler's own events: a fuzzer driver wants to know
// how often it's recycling seeds or retiring vertical entries the same
// way a cache's operator wants hit ratio.
type metricType int

const (
	push metricType = iota
	duplicatePush
	next
	emptyNext
	mooRebuild
	exploreRebuild
	recycle
	verticalRetirement
	modeHorizontal
	modeVertical
	modeExploration
	doNotUse
)

func stringFor(t metricType) string {
	switch t {
	case push:
		return "pushes"
	case duplicatePush:
		return "pushes-duplicate"
	case next:
		return "next-calls"
	case emptyNext:
		return "next-calls-empty"
	case mooRebuild:
		return "moo-rebuilds"
	case exploreRebuild:
		return "explore-rebuilds"
	case recycle:
		return "recycles"
	case verticalRetirement:
		return "vertical-retirements"
	case modeHorizontal:
		return "mode-horizontal"
	case modeVertical:
		return "mode-vertical"
	case modeExploration:
		return "mode-exploration"
	default:
		return "unidentified"
	}
}

// Metrics is a set of atomic counters tracking scheduler activity, safe to
// read from a goroutine other than the one driving Push/Next — unlike the
// rest of this module, which assumes the single-threaded cooperative model
// spec §5 mandates.
type Metrics struct {
	all [doNotUse]atomic.Uint64
}

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) add(t metricType, delta uint64) {
	if m == nil {
		return
	}
	m.all[t].Add(delta)
}

func (m *Metrics) get(t metricType) uint64 {
	if m == nil {
		return 0
	}
	return m.all[t].Load()
}

// Pushes is the total number of Push calls, including duplicates.
func (m *Metrics) Pushes() uint64 { return m.get(push) }

// DuplicatePushes is the number of Push calls rejected as a repeat seed ID.
func (m *Metrics) DuplicatePushes() uint64 { return m.get(duplicatePush) }

// NextCalls is the total number of Next calls.
func (m *Metrics) NextCalls() uint64 { return m.get(next) }

// EmptyNext is the number of Next calls that found no live seed anywhere.
func (m *Metrics) EmptyNext() uint64 { return m.get(emptyNext) }

// Recycles is the number of times a seed was moved to a recycled bucket.
func (m *Metrics) Recycles() uint64 { return m.get(recycle) }

// VerticalRetirements is the number of vertical entries retired.
func (m *Metrics) VerticalRetirements() uint64 { return m.get(verticalRetirement) }

// Clear resets all counters to zero.
func (m *Metrics) Clear() {
	if m == nil {
		return
	}
	for i := range m.all {
		m.all[i].Store(0)
	}
}

// String renders a human-readable summary, in the spirit of ristretto's
// Metrics.String(), using go-humanize to comma-format the counts.
func (m *Metrics) String() string {
	if m == nil {
		return ""
	}
	var buf bytes.Buffer
	for i := 0; i < int(doNotUse); i++ {
		t := metricType(i)
		fmt.Fprintf(&buf, "%s: %s ", stringFor(t), humanize.Comma(int64(m.get(t))))
	}
	return buf.String()
}
