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
	"math"
	"sync/atomic"
)

// heatCapacityInvalid is the bit pattern stored in a heatCache when no
// value has been computed yet. NaN is never a valid heat capacity, so it
// doubles as the sentinel.
var heatCapacityInvalid = math.Float32bits(float32(math.NaN()))

// heatCache is a lock-free single-slot cache for a Mixture's heat
// capacity. It tolerates races: moles mutation is already serialized by
// the arena's per-slot lock, so the only race is two readers computing
// the same fresh value and both trying to install it, which is harmless.
type heatCache struct {
	bits atomic.Uint32
}

func newHeatCache() heatCache {
	var c heatCache
	c.bits.Store(heatCapacityInvalid)
	return c
}

// load returns the cached value and whether it is valid.
func (c *heatCache) load() (float32, bool) {
	bits := c.bits.Load()
	if bits == heatCapacityInvalid {
		return 0, false
	}
	return math.Float32frombits(bits), true
}

// invalidate marks the cache as needing recomputation. Safe to call from
// any mutator; idempotent.
func (c *heatCache) invalidate() {
	c.bits.Store(heatCapacityInvalid)
}

// storeComputed installs a freshly computed value. If another goroutine
// raced in a different value first, that value wins; both are correct
// for the moles vector at the time each was computed, and moles cannot
// change mid-computation because the caller holds the slot's lock.
func (c *heatCache) storeComputed(v float32) {
	c.bits.CompareAndSwap(heatCapacityInvalid, math.Float32bits(v))
}

// storeExact installs v unconditionally, used by merge() which can
// compute the new capacity additively without re-folding the moles
// vector (Ca + Cb is exact).
func (c *heatCache) storeExact(v float32) {
	c.bits.Store(math.Float32bits(v))
}
