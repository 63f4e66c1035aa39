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
	"sync"
	"testing"
	"time"

	"github.com/probechain/atmoscore/params"
)

// Invariant 6: arena liveness -- a handle is only usable between
// allocate and release.
func TestArenaLiveness(t *testing.T) {
	reg := uniformHeatRegistry(1, 20)
	arena := NewArena(reg, params.DefaultVolume)

	h := arena.Allocate(params.DefaultVolume)
	if err := arena.WithOne(h, func(m *Mixture) error { return nil }); err != nil {
		t.Fatalf("WithOne on freshly allocated handle failed: %v", err)
	}

	arena.Release(h)
	if err := arena.WithOne(h, func(m *Mixture) error { return nil }); err == nil {
		t.Fatal("WithOne succeeded on a released handle")
	}

	h2 := arena.Allocate(params.DefaultVolume)
	if h2 != h {
		t.Fatalf("expected recycled slot index %d, got %d", h, h2)
	}
	if err := arena.WithOne(h2, func(m *Mixture) error { return nil }); err != nil {
		t.Fatalf("WithOne on recycled handle failed: %v", err)
	}
}

func TestArenaReleaseIsIdempotent(t *testing.T) {
	reg := uniformHeatRegistry(1, 20)
	arena := NewArena(reg, params.DefaultVolume)
	h := arena.Allocate(params.DefaultVolume)
	arena.Release(h)
	arena.Release(h) // must not corrupt the free list
	h2 := arena.Allocate(params.DefaultVolume)
	h3 := arena.Allocate(params.DefaultVolume)
	if h2 == h3 {
		t.Fatalf("double release handed out the same slot twice: %d, %d", h2, h3)
	}
}

func TestArenaAllocateGrows(t *testing.T) {
	reg := uniformHeatRegistry(1, 20)
	arena := NewArena(reg, params.DefaultVolume)
	if arena.Cap() != 0 {
		t.Fatalf("fresh arena cap = %d, want 0", arena.Cap())
	}
	arena.Allocate(params.DefaultVolume)
	arena.Allocate(params.DefaultVolume)
	if arena.Cap() != 2 {
		t.Fatalf("arena cap after two allocates = %d, want 2", arena.Cap())
	}
	if arena.LiveCount() != 2 {
		t.Fatalf("live count = %d, want 2", arena.LiveCount())
	}
}

// Invariant 7: concurrent pair operations on the same two indices never
// deadlock, regardless of argument order.
func TestArenaPairLockOrdering(t *testing.T) {
	reg := uniformHeatRegistry(1, 20)
	arena := NewArena(reg, params.DefaultVolume)
	h1 := arena.Allocate(params.DefaultVolume)
	h2 := arena.Allocate(params.DefaultVolume)

	const rounds = 500
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_ = arena.WithTwo(h1, h2, func(a, b *Mixture) error { return nil })
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_ = arena.WithTwo(h2, h1, func(a, b *Mixture) error { return nil })
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pair operations on the same two handles deadlocked")
	}
}

func TestArenaWithTwoSameHandleClones(t *testing.T) {
	reg := uniformHeatRegistry(1, 20)
	arena := NewArena(reg, params.DefaultVolume)
	h := arena.Allocate(params.DefaultVolume)
	arena.WithOne(h, func(m *Mixture) error {
		m.SetMoles(0, 10)
		return nil
	})

	err := arena.WithTwo(h, h, func(live, clone *Mixture) error {
		if live == clone {
			t.Fatal("same-handle pair op must hand back a distinct clone")
		}
		if clone.GetMoles(0) != 10 {
			t.Fatalf("clone.moles[0] = %v, want 10", clone.GetMoles(0))
		}
		live.Merge(clone)
		return nil
	})
	if err != nil {
		t.Fatalf("WithTwo(h, h) failed: %v", err)
	}
	arena.WithOne(h, func(m *Mixture) error {
		if m.GetMoles(0) != 20 {
			t.Fatalf("after merging clone into self, moles[0] = %v, want 20", m.GetMoles(0))
		}
		return nil
	})
}

func TestArenaClear(t *testing.T) {
	reg := uniformHeatRegistry(1, 20)
	arena := NewArena(reg, params.DefaultVolume)
	arena.Allocate(params.DefaultVolume)
	arena.Allocate(params.DefaultVolume)
	arena.Clear()
	if arena.LiveCount() != 0 || arena.Cap() != 0 {
		t.Fatalf("arena not empty after Clear: live=%d cap=%d", arena.LiveCount(), arena.Cap())
	}
}
