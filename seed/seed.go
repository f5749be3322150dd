/*
 * Copyright 2019 Dgraph Labs, Inc. and Contributors
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

// Package seed holds the queue-entry record the rest of the scheduling core
// operates on. A Seed is owned by the external corpus registry; the
// scheduler only holds non-owning references to it and mutates a small,
// explicitly documented subset of its fields.
package seed

// Status is the lifecycle state of a Seed inside one rank partition
// (MOO or EXPLORE). A live Seed's Status is never Uninitialized.
type Status uint8

const (
	Uninitialized Status = iota
	Frontier
	Dominated
	NewlyAdded
	Recycled
)

func (s Status) String() string {
	switch s {
	case Frontier:
		return "frontier"
	case Dominated:
		return "dominated"
	case NewlyAdded:
		return "newly_added"
	case Recycled:
		return "recycled"
	default:
		return "uninitialized"
	}
}

// RankInfo locates a Seed inside one rank partition's bucket sequences:
// Status names the bucket, Index is the Seed's position within it. Buckets
// are index-carrying sequences rather than linked structures so that a Seed
// never needs a back-pointer into scheduler-owned storage (see DESIGN.md).
type RankInfo struct {
	Status Status
	Index  int
}

// ProximityScore is the directed-ness signal attached to a Seed by the
// execution collaborator. Original is the unadjusted sum reported by that
// collaborator; Adjusted is the value ranking actually uses, discounted by
// the vertical manager as the Seed's DFG path is reused (see
// vertical.Manager's decay).
type ProximityScore struct {
	DFGCountMap map[uint32]uint32
	DFGDenseMap []uint32
	Original    uint64
	Adjusted    float64
	Covered     uint32
}

// Seed is one admitted test case. Fields annotated "scheduler-owned" are the
// only ones the scheduling core is allowed to mutate; everything else is
// supplied once by the execution/DFG collaborators and never changed here.
type Seed struct {
	// Identity and execution-collaborator-supplied fields (read-only to the
	// scheduler).
	ID         uint32
	Length     uint32
	ExecCksum  uint32
	DFGCksum   uint32 // the DFG-path hash; groups seeds into vertical entries.
	ValuationHash uint32
	Location   uint32 // quantized into [0, B); derived from a [0,1) float upstream.
	ProxScore  ProximityScore

	// Caller-supplied bookkeeping, read by ranking but not mutated here.
	Handicap uint32
	Depth    uint32
	ExecUs   uint64

	// Flags, all caller- or scheduler- set per the table in spec §3.
	WasFuzzed      bool
	Favored        bool
	Removed        bool // scheduler-owned.
	HasNewCov      bool
	HandledInCycle bool // scheduler-owned.
	BaseCrashSeed  bool
	TrimDone       bool
	PassedDet      bool
	VarBehavior    bool
	FSRedundant    bool

	// Scheduler-owned state.
	SelectionCount uint32
	MOOInfo        RankInfo
	ExploreInfo    RankInfo
}

// New constructs a Seed with both rank infos Uninitialized, matching the
// lifecycle described in spec §3: a Seed is Uninitialized until both
// schedulers have observed it via Push.
func New(id uint32, length uint32, execCksum, dfgCksum, valuationHash uint32, location uint32, original uint64, covered uint32) *Seed {
	return &Seed{
		ID:            id,
		Length:        length,
		ExecCksum:     execCksum,
		DFGCksum:      dfgCksum,
		ValuationHash: valuationHash,
		Location:      location,
		ProxScore: ProximityScore{
			Original: original,
			Adjusted: float64(original),
			Covered:  covered,
		},
	}
}

// Live reports whether the Seed is still a member of the corpus. Removed
// seeds are never freed (pointer stability, spec §5) but are excluded from
// rebuilds and from vertical/Pareto bookkeeping going forward.
func (s *Seed) Live() bool {
	return s != nil && !s.Removed
}
