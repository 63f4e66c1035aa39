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

// GasID identifies a gas species, an index into [0, Registry.GasCount()).
type GasID int

// FireKind distinguishes what role, if any, a gas plays in combustion.
type FireKind uint8

const (
	FireNone FireKind = iota
	FireOxidizer
	FireFuel
)

// FireInfo is the per-gas combustion record the registry holds. Only one
// of the Oxidizer/Fuel fields is meaningful, selected by Kind.
type FireInfo struct {
	Kind FireKind

	// Oxidizer fields.
	OxidizerTemperature float32 // T_ox: below this, the gas doesn't oxidize.
	OxidizerPower       float32

	// Fuel fields.
	FuelTemperature float32 // T_f: below this, the gas doesn't burn.
	FuelBurnRate    float32
}

// RequiredGas is one entry in a ReactionPrecondition's gas requirements.
type RequiredGas struct {
	ID       GasID
	MinMoles float32
}

// ReactionPrecondition gates whether a reaction is eligible to run against
// a given mixture. All three clauses must hold.
type ReactionPrecondition struct {
	MinTemperature float32
	MinTotalMoles  float32
	Required       []RequiredGas
}

// Met reports whether m satisfies every clause of the precondition.
func (p *ReactionPrecondition) Met(m *Mixture) bool {
	if m.Temperature() < p.MinTemperature {
		return false
	}
	if m.TotalMoles() < p.MinTotalMoles {
		return false
	}
	for _, req := range p.Required {
		if m.GetMoles(req.ID) < req.MinMoles {
			return false
		}
	}
	return true
}

// ReactionID is the opaque identifier the host uses to dispatch to the
// actual chemistry effect; the engine never looks inside it.
type ReactionID uint64

// Reaction is a priority-keyed descriptor: the core only evaluates
// Precondition and reports ID, never the reaction body itself.
type Reaction struct {
	Priority    int
	ID          ReactionID
	Precondition ReactionPrecondition
}
