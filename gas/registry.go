// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package gas

import (
	"sort"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/probechain/atmoscore/log"
)

var registryLog = log.Default().Module("registry")

// corruptionLogCacheSize bounds the dedup cache fix_corrupted_atmos uses
// so a wide sweep across a damaged arena logs each handle once instead of
// once per tick.
const corruptionLogCacheSize = 4096

// Registry holds the process-wide, read-mostly gas metadata tables: gas
// count, specific heats, visibility thresholds, fire info, and the
// priority-ordered reaction set. Reads are not lock-free: every accessor
// takes the read lock, and Init or a reload takes the writer lock over
// the whole table.
type Registry struct {
	mu          sync.RWMutex
	initialized atomic.Bool

	gasCount     int
	specificHeat []float32
	visibility   []*float32 // nil entry = never visible
	fireInfo     []FireInfo

	reactions []Reaction // sorted by descending Priority

	// corruptionSeen dedupes "fixed corrupt mixture" log lines across
	// repeated fix_corrupted_atmos sweeps.
	corruptionSeen *lru.Cache
}

// NewRegistry returns an uninitialized Registry. Accessors called before
// Init return no error: they report zero gases and zero-valued metadata.
func NewRegistry() *Registry {
	cache, err := lru.New(corruptionLogCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which corruptionLogCacheSize
		// never is.
		panic(err)
	}
	return &Registry{corruptionSeen: cache}
}

// Init replaces all gas-metadata tables atomically. Called once on the
// host's init_atmos signal.
func (r *Registry) Init(specificHeat []float32, visibility []*float32, fireInfo []FireInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(specificHeat)
	r.gasCount = n
	r.specificHeat = append([]float32(nil), specificHeat...)
	r.visibility = append([]*float32(nil), visibility...)
	r.fireInfo = append([]FireInfo(nil), fireInfo...)
	r.initialized.Store(true)

	registryLog.Info("gas registry initialized", "gasCount", n)
}

// Initialized reports whether Init has run at least once.
func (r *Registry) Initialized() bool { return r.initialized.Load() }

// GasCount returns the number of known gas species.
func (r *Registry) GasCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gasCount
}

// SpecificHeat returns the specific heat of gas id i, or 0 if out of range.
func (r *Registry) SpecificHeat(i GasID) float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || int(i) >= len(r.specificHeat) {
		return 0
	}
	return r.specificHeat[i]
}

// Visibility returns the visibility threshold of gas id i, and whether one
// is set at all ("None" in spec.md means the gas is never visible).
func (r *Registry) Visibility(i GasID) (threshold float32, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || int(i) >= len(r.visibility) || r.visibility[i] == nil {
		return 0, false
	}
	return *r.visibility[i], true
}

// FireInfo returns the combustion record of gas id i, or the zero value
// (FireNone) if out of range.
func (r *Registry) FireInfo(i GasID) FireInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || int(i) >= len(r.fireInfo) {
		return FireInfo{}
	}
	return r.fireInfo[i]
}

// ReloadReactions replaces the reaction set atomically under the writer
// lock, sorting by descending priority once up front so WithReactions and
// AllReactable never need to re-sort on the hot path.
func (r *Registry) ReloadReactions(reactions []Reaction) {
	sorted := append([]Reaction(nil), reactions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactions = sorted

	registryLog.Info("reaction set reloaded", "count", len(sorted))
}

// WithReactions invokes fn with the current reaction set, highest priority
// first. fn must not retain the slice past the call.
func (r *Registry) WithReactions(fn func([]Reaction)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.reactions)
}

// NoteCorruptionFixed records that handle h's mixture was repaired by a
// fix_corrupted_atmos sweep, logging only the first time h appears since
// it was last evicted from the dedup cache.
func (r *Registry) NoteCorruptionFixed(h Handle) {
	if _, seen := r.corruptionSeen.Get(h); seen {
		return
	}
	r.corruptionSeen.Add(h, struct{}{})
	registryLog.Warn("fixed corrupt mixture", "handle", h)
}
