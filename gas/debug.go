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

import "github.com/davecgh/go-spew/spew"

// debugSnapshot is the plain-data view DebugDump renders -- go-spew walks
// exported fields, and Mixture keeps its registry pointer and atomic
// cache unexported, so a snapshot avoids dumping a registry's entire
// table or an atomic.Uint32's internal noCopy guard for every mixture.
type debugSnapshot struct {
	Temperature float32
	Volume      float32
	MinHeatCap  float32
	Immutable   bool
	Moles       []float32
	HeatCap     float32
	HeatCapSet  bool
}

// DebugDump renders a human-readable snapshot of m for diagnostics. The
// engine itself does not call it.
func (m *Mixture) DebugDump() string {
	hc, ok := m.heatCache.load()
	snap := debugSnapshot{
		Temperature: m.temperature,
		Volume:      m.volume,
		MinHeatCap:  m.minHeatCapacity,
		Immutable:   m.immutable,
		Moles:       m.moles,
		HeatCap:     hc,
		HeatCapSet:  ok,
	}
	return spew.Sdump(snap)
}
