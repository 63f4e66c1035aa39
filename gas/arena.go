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
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/probechain/atmoscore/params"
)

// freeListEnd is the free-list terminator; no real slot index reaches it
// because a single Arena never holds more than 2^32-1 slots.
const freeListEnd = math.MaxUint32

// arenaSlot is one recyclable home for a Mixture. Its RWMutex is the only
// lock a caller ever needs to touch a live mixture; next and live are
// free-list bookkeeping touched only by Allocate/Release.
type arenaSlot struct {
	mu      sync.RWMutex
	mixture *Mixture
	next    atomic.Uint32
	live    atomic.Bool
}

// Arena owns every Mixture the host has allocated, recycling slots by
// index instead of returning them to the Go garbage collector. Growth
// (appending a new slot) is serialized by growMu and bounded by a
// timed retry so a slow grower never stalls a concurrent Allocate
// indefinitely on the structural lock.
type Arena struct {
	registry *Registry

	mu    sync.RWMutex // guards the slots slice header (append/read)
	slots []*arenaSlot

	growMu sync.Mutex

	freeHead  atomic.Uint32
	liveCount atomic.Int64

	defaultVolume float32
}

// NewArena returns an empty arena whose freshly allocated mixtures start
// at defaultVolume.
func NewArena(registry *Registry, defaultVolume float32) *Arena {
	a := &Arena{registry: registry, defaultVolume: defaultVolume}
	a.freeHead.Store(freeListEnd)
	return a
}

func (a *Arena) slotAt(i uint32) *arenaSlot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(i) >= len(a.slots) {
		return nil
	}
	return a.slots[i]
}

// Allocate returns a handle to a mixture reset to volume vol, recycling a
// free slot if one exists or growing the arena otherwise.
func (a *Arena) Allocate(vol float32) Handle {
	for {
		head := a.freeHead.Load()
		if head == freeListEnd {
			return a.grow(vol)
		}
		slot := a.slotAt(head)
		next := slot.next.Load()
		if a.freeHead.CompareAndSwap(head, next) {
			slot.mu.Lock()
			slot.mixture.ClearWithVol(vol)
			slot.live.Store(true)
			slot.mu.Unlock()
			a.liveCount.Add(1)
			return Handle(head)
		}
	}
}

func (a *Arena) grow(vol float32) Handle {
	interval := time.Duration(params.ArenaGrowthRetryInterval) * time.Microsecond
	for {
		if a.growMu.TryLock() {
			if a.freeHead.Load() != freeListEnd {
				a.growMu.Unlock()
				return a.Allocate(vol)
			}
			h := a.appendSlot(vol)
			a.growMu.Unlock()
			return h
		}
		time.Sleep(interval)
	}
}

func (a *Arena) appendSlot(vol float32) Handle {
	a.mu.Lock()
	idx := uint32(len(a.slots))
	s := &arenaSlot{mixture: NewMixture(a.registry, vol)}
	s.live.Store(true)
	a.slots = append(a.slots, s)
	a.mu.Unlock()
	a.liveCount.Add(1)
	return Handle(idx)
}

// Release returns h's slot to the free list. Releasing an already-dead
// or out-of-range handle is a no-op.
func (a *Arena) Release(h Handle) {
	s := a.slotAt(uint32(h))
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.live.Load() {
		s.mu.Unlock()
		return
	}
	s.live.Store(false)
	s.mu.Unlock()
	a.liveCount.Add(-1)

	for {
		head := a.freeHead.Load()
		s.next.Store(head)
		if a.freeHead.CompareAndSwap(head, uint32(h)) {
			return
		}
	}
}

// WithOne runs fn against h's mixture under the slot's write lock.
func (a *Arena) WithOne(h Handle, fn func(*Mixture) error) error {
	s := a.slotAt(uint32(h))
	if s == nil {
		return ErrInvalidHandle(h)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live.Load() {
		return ErrInvalidHandle(h)
	}
	return fn(s.mixture)
}

// WithTwo runs fn against the mixtures at i and j, always acquiring the
// two slot locks in ascending index order to avoid deadlock regardless
// of argument order. When i == j, fn receives the live mixture and a
// clone of it, matching the "same handle twice" contract host callers
// may rely on for operations like merge(h, h).
func (a *Arena) WithTwo(i, j Handle, fn func(a, b *Mixture) error) error {
	if i == j {
		s := a.slotAt(uint32(i))
		if s == nil {
			return ErrInvalidHandle(i)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.live.Load() {
			return ErrInvalidHandle(i)
		}
		return fn(s.mixture, s.mixture.Clone())
	}

	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	sLo := a.slotAt(uint32(lo))
	if sLo == nil {
		return ErrInvalidHandle(lo)
	}
	sHi := a.slotAt(uint32(hi))
	if sHi == nil {
		return ErrInvalidHandle(hi)
	}

	sLo.mu.Lock()
	defer sLo.mu.Unlock()
	sHi.mu.Lock()
	defer sHi.mu.Unlock()

	if !sLo.live.Load() {
		return ErrInvalidHandle(lo)
	}
	if !sHi.live.Load() {
		return ErrInvalidHandle(hi)
	}
	if i < j {
		return fn(sLo.mixture, sHi.mixture)
	}
	return fn(sHi.mixture, sLo.mixture)
}

func (a *Arena) snapshot() []*arenaSlot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap := make([]*arenaSlot, len(a.slots))
	copy(snap, a.slots)
	return snap
}

// Iterate visits every live mixture in ascending handle order, each
// under its own slot's read lock. fn must not call back into the arena.
func (a *Arena) Iterate(fn func(Handle, *Mixture)) {
	for idx, s := range a.snapshot() {
		s.mu.RLock()
		if s.live.Load() {
			fn(Handle(idx), s.mixture)
		}
		s.mu.RUnlock()
	}
}

// IterateParallel fans the same visit out across an errgroup, cancelling
// the remaining work on the first error or on ctx's own cancellation.
func (a *Arena) IterateParallel(ctx context.Context, fn func(Handle, *Mixture) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for idx, s := range a.snapshot() {
		idx, s := idx, s
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.mu.RLock()
			defer s.mu.RUnlock()
			if !s.live.Load() {
				return nil
			}
			return fn(Handle(idx), s.mixture)
		})
	}
	return g.Wait()
}

// LiveCount returns the number of currently allocated (non-free) slots.
func (a *Arena) LiveCount() int64 { return a.liveCount.Load() }

// Cap returns the total number of slots the arena has ever grown to,
// live or free.
func (a *Arena) Cap() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots)
}

// Clear drops every slot, live or free, resetting the arena to empty.
// Used by the host's shutdown_gases call.
func (a *Arena) Clear() {
	a.mu.Lock()
	a.slots = nil
	a.mu.Unlock()
	a.freeHead.Store(freeListEnd)
	a.liveCount.Store(0)
}
