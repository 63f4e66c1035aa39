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

// Package params collects the physical and tuning constants shared by the
// gas-mixture engine. Values mirror the legacy simulation so that ported
// mixtures behave identically; they are not SI-pure, they are what the
// original tuning settled on.
package params

// Temperature bounds, in kelvin.
const (
	// TCMB is the cosmic microwave background temperature, the floor every
	// mixture temperature is clamped to.
	TCMB = 2.7

	// DefaultFixupTemperature is what a corrupt mixture's temperature is
	// reset to by FixCorruption.
	DefaultFixupTemperature = 293.15
)

// RIdealGasConstant is R in the ideal gas law, used by Mixture.Pressure.
const RIdealGasConstant = 8.31

// GasMinMoles is the threshold below which a mole count is treated as
// absent for presence, visibility, and fire-info purposes.
const GasMinMoles = 1e-5

// MinimumHeatCapacity is the heat capacity at or below which
// temperature-affecting operations are skipped, so that near-empty
// mixtures don't blow up temperature-dependent divisions.
const MinimumHeatCapacity = 0.0003

// Mole and temperature deltas below these thresholds are treated as no
// change at all, avoiding floating-point jitter driving turf processing.
const (
	MinimumTemperatureDeltaToConsider = 4.0
	MinimumTemperatureDeltaToSuspend  = 4.0
	MinimumMolesDeltaToMove           = 0.01
)

// Visibility step tuning: moles are bucketed into FactorGasVisibleMax
// discrete steps of MolesGasVisibleStep each for the purposes of the
// visibility hash, so a turf doesn't need a client update for every
// sub-threshold mole change.
const (
	MolesGasVisibleStep = 0.25
	FactorGasVisibleMax = 8
)

// DefaultVolume is the volume, in liters, a bare Mixture gets when no
// volume is specified explicitly (matches a standard turf-sized parcel).
const DefaultVolume = 2500.0

// ArenaGrowthRetryInterval bounds how long Arena.Allocate waits for the
// growth lock before retrying, so a reader blocked behind a grower never
// stalls indefinitely.
const ArenaGrowthRetryInterval = 500 // microseconds
