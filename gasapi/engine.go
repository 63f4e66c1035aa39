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

// Package gasapi is the procedural, host-facing surface the scripting
// bridge calls into: every entry point takes a context, validates its
// arguments, and returns a *gas.RuntimeError instead of panicking on
// script-driven input.
package gasapi

import (
	"context"

	"github.com/probechain/atmoscore/gas"
	"github.com/probechain/atmoscore/log"
	"github.com/probechain/atmoscore/params"
)

var engineLog = log.Default().Module("gasapi")

// Engine is the single entry point a host embeds: one registry, one
// arena. All methods are safe to call from multiple goroutines at once.
type Engine struct {
	registry *gas.Registry
	arena    *gas.Arena
}

// NewEngine returns an Engine with an uninitialized registry and an
// empty arena. No method checks whether InitAtmos has run, and none
// returns ErrRegistryNotInitialized: before InitAtmos the registry reports
// zero gases, so per-gas setters are silent no-ops and heat capacities
// read as zero.
func NewEngine() *Engine {
	registry := gas.NewRegistry()
	return &Engine{
		registry: registry,
		arena:    gas.NewArena(registry, params.DefaultVolume),
	}
}

// GasSpec is one row of the gas-metadata table InitAtmos loads.
type GasSpec struct {
	SpecificHeat float32
	// Visibility is nil when the gas is never visible.
	Visibility *float32
	FireInfo   gas.FireInfo
}

// InitAtmos loads the gas-metadata table, replacing whatever was there
// before. Must be called once before any other method that looks up gas
// metadata.
func (e *Engine) InitAtmos(_ context.Context, specs []GasSpec) error {
	specificHeat := make([]float32, len(specs))
	visibility := make([]*float32, len(specs))
	fireInfo := make([]gas.FireInfo, len(specs))
	for i, s := range specs {
		specificHeat[i] = s.SpecificHeat
		visibility[i] = s.Visibility
		fireInfo[i] = s.FireInfo
	}
	e.registry.Init(specificHeat, visibility, fireInfo)
	return nil
}

// ReloadReactions replaces the registered reaction set.
func (e *Engine) ReloadReactions(_ context.Context, reactions []gas.Reaction) error {
	e.registry.ReloadReactions(reactions)
	return nil
}

// ShutdownGases releases every live mixture and resets the arena to
// empty. The registry's gas-metadata tables are left intact.
func (e *Engine) ShutdownGases(_ context.Context) error {
	e.arena.Clear()
	engineLog.Info("atmos shut down")
	return nil
}

// GetAmtGasMixes returns the number of currently live mixtures.
func (e *Engine) GetAmtGasMixes(_ context.Context) (int64, error) {
	return e.arena.LiveCount(), nil
}

// GetMaxGasMixes returns the total number of slots the arena has ever
// grown to, live or free.
func (e *Engine) GetMaxGasMixes(_ context.Context) (int, error) {
	return e.arena.Cap(), nil
}

// FixCorruptedAtmos sweeps every live mixture, repairing any that fail
// the corruption check and logging each repaired handle once.
func (e *Engine) FixCorruptedAtmos(ctx context.Context) error {
	return e.arena.IterateParallel(ctx, func(h gas.Handle, m *gas.Mixture) error {
		if !m.IsCorrupt() {
			return nil
		}
		m.FixCorruption()
		e.registry.NoteCorruptionFixed(h)
		return nil
	})
}

// Register allocates a new mixture at the given volume and returns its
// handle.
func (e *Engine) Register(_ context.Context, volume float32) (gas.Handle, error) {
	if !isFiniteNormalOrZero(volume) {
		return 0, gas.ErrBadVolume()
	}
	return e.arena.Allocate(volume), nil
}

// Unregister releases h's slot back to the arena's free list.
func (e *Engine) Unregister(_ context.Context, h gas.Handle) error {
	e.arena.Release(h)
	return nil
}

// Clear empties h's moles, a no-op if h is immutable.
func (e *Engine) Clear(_ context.Context, h gas.Handle) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.Clear()
		return nil
	})
}

// MarkImmutable freezes h against every future mutator.
func (e *Engine) MarkImmutable(_ context.Context, h gas.Handle) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.MarkImmutable()
		return nil
	})
}

// Multiply scales every entry of h by k.
func (e *Engine) Multiply(_ context.Context, h gas.Handle, k float32) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.Multiply(k)
		return nil
	})
}

// SetVolume sets h's container volume.
func (e *Engine) SetVolume(_ context.Context, h gas.Handle, volume float32) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.SetVolume(volume)
		return nil
	})
}

// SetTemperature sets h's temperature; rejects non-finite input.
func (e *Engine) SetTemperature(_ context.Context, h gas.Handle, t float32) error {
	if !isFiniteNormalOrZero(t) {
		return gas.ErrBadTemperature()
	}
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.SetTemperature(t)
		return nil
	})
}

// SetMinHeatCapacity sets the floor used when folding h's heat capacity.
func (e *Engine) SetMinHeatCapacity(_ context.Context, h gas.Handle, c float32) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.SetMinHeatCapacity(c)
		return nil
	})
}

// HeatCapacity returns h's heat capacity.
func (e *Engine) HeatCapacity(_ context.Context, h gas.Handle) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.HeatCapacity()
		return nil
	})
	return result, err
}

// PartialHeatCapacity returns the heat capacity contributed by a single
// gas within h.
func (e *Engine) PartialHeatCapacity(_ context.Context, h gas.Handle, id gas.GasID) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.PartialHeatCapacity(id)
		return nil
	})
	return result, err
}

// TotalMoles returns the sum of h's moles vector.
func (e *Engine) TotalMoles(_ context.Context, h gas.Handle) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.TotalMoles()
		return nil
	})
	return result, err
}

// ReturnPressure returns h's pressure.
func (e *Engine) ReturnPressure(_ context.Context, h gas.Handle) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.Pressure()
		return nil
	})
	return result, err
}

// ReturnTemperature returns h's temperature.
func (e *Engine) ReturnTemperature(_ context.Context, h gas.Handle) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.Temperature()
		return nil
	})
	return result, err
}

// ReturnVolume returns h's volume.
func (e *Engine) ReturnVolume(_ context.Context, h gas.Handle) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.Volume()
		return nil
	})
	return result, err
}

// ThermalEnergy returns h's heat_capacity * temperature.
func (e *Engine) ThermalEnergy(_ context.Context, h gas.Handle) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.ThermalEnergy()
		return nil
	})
	return result, err
}

// GetGases returns the ids of every gas present in h above the
// presence threshold, in ascending order. Mapping an id to a
// human-readable name is the host's responsibility; the core engine has
// no name table of its own.
func (e *Engine) GetGases(_ context.Context, h gas.Handle) ([]gas.GasID, error) {
	var result []gas.GasID
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.Gases()
		return nil
	})
	return result, err
}

// GetMoles returns h's mole count for a single gas id.
func (e *Engine) GetMoles(_ context.Context, h gas.Handle, id gas.GasID) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.GetMoles(id)
		return nil
	})
	return result, err
}

// SetMoles assigns h's mole count for a single gas id; rejects negative
// or non-finite input.
func (e *Engine) SetMoles(_ context.Context, h gas.Handle, id gas.GasID, amt float32) error {
	if amt < 0 {
		return gas.ErrNegativeMoles()
	}
	if !isFiniteNormalOrZero(amt) {
		return gas.ErrNonNumber()
	}
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.SetMoles(id, amt)
		return nil
	})
}

// AdjustMoles adds delta to h's mole count for a single gas id.
func (e *Engine) AdjustMoles(_ context.Context, h gas.Handle, id gas.GasID, delta float32) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.AdjustMoles(id, delta)
		return nil
	})
}

// AdjustMultiMoles batches several (id, delta) adjustments into one
// vector expansion, cache invalidation, and trim pass.
func (e *Engine) AdjustMultiMoles(_ context.Context, h gas.Handle, deltas []gas.MoleDelta) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.AdjustMulti(deltas)
		return nil
	})
}

// AdjustHeat injects thermal energy q into h, holding heat capacity fixed.
func (e *Engine) AdjustHeat(_ context.Context, h gas.Handle, q float32) error {
	return e.arena.WithOne(h, func(m *gas.Mixture) error {
		m.AdjustHeat(q)
		return nil
	})
}

// Merge folds giver into target: target <- target + giver.
func (e *Engine) Merge(_ context.Context, target, giver gas.Handle) error {
	return e.arena.WithTwo(target, giver, func(t, g *gas.Mixture) error {
		t.Merge(g)
		return nil
	})
}

// CopyFrom overwrites dest's moles and temperature with src's.
func (e *Engine) CopyFrom(_ context.Context, dest, src gas.Handle) error {
	return e.arena.WithTwo(dest, src, func(d, s *gas.Mixture) error {
		d.CopyFrom(s)
		return nil
	})
}

// RemoveRatio copies source into dest scaled by ratio, and scales source
// by 1-ratio.
func (e *Engine) RemoveRatio(_ context.Context, source, dest gas.Handle, ratio float64) error {
	return e.arena.WithTwo(source, dest, func(s, d *gas.Mixture) error {
		s.RemoveRatioInto(ratio, d)
		return nil
	})
}

// Remove is RemoveRatio expressed as a raw mole amount rather than a ratio.
func (e *Engine) Remove(_ context.Context, source, dest gas.Handle, moles float32) error {
	return e.arena.WithTwo(source, dest, func(s, d *gas.Mixture) error {
		s.RemoveInto(moles, d)
		return nil
	})
}

// TransferTo moves a ratio of the named gases from source to dest.
func (e *Engine) TransferTo(_ context.Context, source, dest gas.Handle, ratio float64, ids []gas.GasID) error {
	return e.arena.WithTwo(source, dest, func(s, d *gas.Mixture) error {
		s.TransferGasesTo(ratio, ids, d)
		return nil
	})
}

// TransferRatioTo is an alias host scripts historically spell
// differently than TransferTo for the same operation.
func (e *Engine) TransferRatioTo(ctx context.Context, source, dest gas.Handle, ratio float64, ids []gas.GasID) error {
	return e.TransferTo(ctx, source, dest, ratio, ids)
}

// Compare returns the largest per-gas mole delta between a and b.
func (e *Engine) Compare(_ context.Context, a, b gas.Handle) (float32, error) {
	var result float32
	err := e.arena.WithTwo(a, b, func(ma, mb *gas.Mixture) error {
		result = ma.Compare(mb)
		return nil
	})
	return result, err
}

// TemperatureShare runs one step of conduction between a and b, returning
// b's resulting temperature.
func (e *Engine) TemperatureShare(_ context.Context, a, b gas.Handle, k float64) (float32, error) {
	var result float32
	err := e.arena.WithTwo(a, b, func(ma, mb *gas.Mixture) error {
		result = ma.TemperatureShare(mb, k)
		return nil
	})
	return result, err
}

// TemperatureShareNonGas runs one step of conduction between h and a
// non-mixture heat source described by (sharerTemp, sharerCap) -- the
// scalar overload used for superconduction through a solid. It returns
// the source's resulting temperature; h itself is mutated in place.
func (e *Engine) TemperatureShareNonGas(_ context.Context, h gas.Handle, k float64, sharerTemp, sharerCap float32) (float32, error) {
	var result float32
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.TemperatureShareNonGas(k, sharerTemp, sharerCap)
		return nil
	})
	return result, err
}

// ScrubInto removes the listed gases from source into dest entirely
// (ratio 1), leaving the rest of source untouched.
func (e *Engine) ScrubInto(_ context.Context, source, dest gas.Handle, ids []gas.GasID) error {
	return e.arena.WithTwo(source, dest, func(s, d *gas.Mixture) error {
		s.TransferGasesTo(1, ids, d)
		return nil
	})
}

// EqualizeWith pools a and b, then splits the combined contents back
// across both in proportion to their volumes -- the two-mixture special
// case of
// EqualizeAllGasesInList.
func (e *Engine) EqualizeWith(ctx context.Context, a, b gas.Handle) error {
	return e.EqualizeAllGasesInList(ctx, []gas.Handle{a, b})
}

// React reports every reaction id whose precondition h currently
// satisfies, highest priority first. The engine only evaluates
// preconditions; running the reaction's effect is the host's job.
func (e *Engine) React(_ context.Context, h gas.Handle) ([]gas.ReactionID, error) {
	var result []gas.ReactionID
	err := e.arena.WithOne(h, func(m *gas.Mixture) error {
		result = m.AllReactable()
		return nil
	})
	return result, err
}

// EqualizeAllGasesInList merges every handle's contents into a scratch
// pool mixture, then redistributes the combined moles back across all of them in
// proportion to their volume, leaving every listed mixture at the same
// pressure and temperature. Immutable members neither contribute to nor
// receive from the pool.
func (e *Engine) EqualizeAllGasesInList(_ context.Context, handles []gas.Handle) error {
	if len(handles) == 0 {
		return nil
	}

	type member struct {
		handle gas.Handle
		volume float32
	}
	var mutable []member
	totalVolume := float32(0)
	pool := gas.NewMixture(e.registry, 0)

	for _, h := range handles {
		if err := e.arena.WithOne(h, func(m *gas.Mixture) error {
			if m.Immutable() {
				return nil
			}
			pool.Merge(m)
			totalVolume += m.Volume()
			mutable = append(mutable, member{handle: h, volume: m.Volume()})
			return nil
		}); err != nil {
			return err
		}
	}

	if totalVolume <= 0 || len(mutable) == 0 {
		return nil
	}

	for _, mem := range mutable {
		share := mem.volume / totalVolume
		if err := e.arena.WithOne(mem.handle, func(m *gas.Mixture) error {
			m.SetVolume(mem.volume)
			m.CopyFrom(pool)
			m.Multiply(share)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func isFiniteNormalOrZero(v float32) bool {
	return v == 0 || gas.IsNormalFloat32(v)
}
