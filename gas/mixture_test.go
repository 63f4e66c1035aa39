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
	"testing"

	"github.com/probechain/atmoscore/params"
)

func uniformHeatRegistry(n int, specificHeat float32) *Registry {
	r := NewRegistry()
	sh := make([]float32, n)
	for i := range sh {
		sh[i] = specificHeat
	}
	r.Init(sh, make([]*float32, n), make([]FireInfo, n))
	return r
}

func closeEnough(a, b, tol float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// S1: merge conserves moles and blends temperature by heat capacity.
func TestMergeScenario(t *testing.T) {
	reg := uniformHeatRegistry(4, 20)

	a := NewMixture(reg, params.DefaultVolume)
	a.SetMoles(0, 82)
	a.SetMoles(1, 22)
	a.SetTemperature(293.15)

	b := NewMixture(reg, params.DefaultVolume)
	b.SetMoles(3, 100)
	b.SetTemperature(313.15)

	a.Merge(b)

	if a.GetMoles(3) != 100 {
		t.Fatalf("A.moles[3] = %v, want 100", a.GetMoles(3))
	}
	if b.GetMoles(3) != 100 {
		t.Fatalf("giver must be left unchanged, B.moles[3] = %v, want 100", b.GetMoles(3))
	}
	if !closeEnough(a.Temperature(), 302.953, 0.01) {
		t.Fatalf("A.T = %v, want ~302.953", a.Temperature())
	}
}

// S2: remove_ratio(0.5) splits a mixture exactly in half, compare == 0.
func TestRemoveRatioScenario(t *testing.T) {
	reg := uniformHeatRegistry(2, 20)

	x := NewMixture(reg, params.DefaultVolume)
	x.SetMoles(0, 22)
	x.SetMoles(1, 82)

	y := NewMixture(reg, params.DefaultVolume)
	x.RemoveRatioInto(0.5, y)

	if !closeEnough(x.GetMoles(0), 11, 1e-3) || !closeEnough(x.GetMoles(1), 41, 1e-3) {
		t.Fatalf("X after split = {0:%v,1:%v}, want {0:11,1:41}", x.GetMoles(0), x.GetMoles(1))
	}
	if !closeEnough(y.GetMoles(0), 11, 1e-3) || !closeEnough(y.GetMoles(1), 41, 1e-3) {
		t.Fatalf("Y after split = {0:%v,1:%v}, want {0:11,1:41}", y.GetMoles(0), y.GetMoles(1))
	}
	if c := x.Compare(y); c != 0 {
		t.Fatalf("compare(X,Y) = %v, want 0", c)
	}
}

// S3: an immutable mixture is a fixed point under remove_ratio_into.
func TestImmutableSplitScenario(t *testing.T) {
	reg := uniformHeatRegistry(2, 20)

	x := NewMixture(reg, params.DefaultVolume)
	x.SetMoles(0, 22)
	x.SetMoles(1, 82)
	x.MarkImmutable()

	z := NewMixture(reg, params.DefaultVolume)
	x.RemoveRatioInto(0.5, z)

	if x.GetMoles(0) != 22 || x.GetMoles(1) != 82 {
		t.Fatalf("immutable X mutated: {0:%v,1:%v}", x.GetMoles(0), x.GetMoles(1))
	}
	if !closeEnough(z.GetMoles(0), 11, 1e-3) || !closeEnough(z.GetMoles(1), 41, 1e-3) {
		t.Fatalf("Z = {0:%v,1:%v}, want {0:11,1:41}", z.GetMoles(0), z.GetMoles(1))
	}

	w := NewMixture(reg, params.DefaultVolume)
	z.RemoveRatioInto(0.5, w)
	if !closeEnough(w.GetMoles(0), 5.5, 1e-3) {
		t.Fatalf("W.moles[0] = %v, want ~5.5", w.GetMoles(0))
	}
}

// S4: temperature_share predicts the exact post-conduction temperatures.
func TestTemperatureShareScenario(t *testing.T) {
	reg := uniformHeatRegistry(1, 20)

	a := NewMixture(reg, params.DefaultVolume)
	a.SetMoles(0, 1)
	a.SetTemperature(400)

	b := NewMixture(reg, params.DefaultVolume)
	b.SetMoles(0, 1)
	b.SetTemperature(200)

	result := a.TemperatureShare(b, 0.4)

	if !closeEnough(a.Temperature(), 360, 0.01) {
		t.Fatalf("A.T = %v, want 360", a.Temperature())
	}
	if !closeEnough(b.Temperature(), 240, 0.01) || !closeEnough(result, 240, 0.01) {
		t.Fatalf("B.T = %v (returned %v), want 240", b.Temperature(), result)
	}
}

// S6: visibility hash changes only when a gas crosses a step boundary.
func TestVisibilityHashScenario(t *testing.T) {
	threshold := float32(5)
	r := NewRegistry()
	r.Init([]float32{0}, []*float32{&threshold}, []FireInfo{{}})

	m := NewMixture(r, params.DefaultVolume)
	m.SetMoles(0, 4)
	h0 := m.VisibilityHash()
	if m.IsVisible() {
		t.Fatal("moles[0]=4 below threshold 5 should not be visible")
	}

	m.SetMoles(0, 6)
	h1 := m.VisibilityHash()
	if h1 == h0 {
		t.Fatal("crossing the visibility threshold must change the hash")
	}
	if !m.IsVisible() {
		t.Fatal("moles[0]=6 at/above threshold 5 should be visible")
	}

	m.SetMoles(0, 7)
	h2 := m.VisibilityHash()
	if h2 != h1 {
		t.Fatalf("staying in the same visibility step bucket must not change the hash: h1=%d h2=%d", h1, h2)
	}
}

// Invariant 1: merge conserves total moles per gas id and approximately
// conserves thermal energy.
func TestMergeConservesMolesAndEnergy(t *testing.T) {
	reg := uniformHeatRegistry(3, 15)

	a := NewMixture(reg, params.DefaultVolume)
	a.SetMoles(0, 5)
	a.SetMoles(2, 3)
	a.SetTemperature(310)

	b := NewMixture(reg, params.DefaultVolume)
	b.SetMoles(0, 7)
	b.SetMoles(1, 4)
	b.SetTemperature(280)

	preEnergy := a.ThermalEnergy() + b.ThermalEnergy()
	preMoles := [3]float32{a.GetMoles(0) + b.GetMoles(0), a.GetMoles(1) + b.GetMoles(1), a.GetMoles(2) + b.GetMoles(2)}

	a.Merge(b)

	for id := GasID(0); id < 3; id++ {
		got := a.GetMoles(id) + b.GetMoles(id)
		if !closeEnough(got, preMoles[id], 1e-3) {
			t.Fatalf("gas %d: conserved total = %v, want %v", id, got, preMoles[id])
		}
	}
	postEnergy := a.ThermalEnergy()
	if !closeEnough(postEnergy, preEnergy, 1) {
		t.Fatalf("thermal energy not conserved: pre=%v post=%v", preEnergy, postEnergy)
	}
}

// Invariant 3: every mutator is a no-op on an immutable mixture.
func TestImmutableFixedPoint(t *testing.T) {
	reg := uniformHeatRegistry(2, 10)
	m := NewMixture(reg, params.DefaultVolume)
	m.SetMoles(0, 10)
	m.SetTemperature(300)
	m.MarkImmutable()

	m.SetTemperature(500)
	m.SetMoles(0, 999)
	m.AdjustMoles(1, 50)
	m.Multiply(2)
	m.Clear()
	m.AdjustHeat(1000)

	if m.Temperature() != 300 {
		t.Fatalf("T mutated on immutable mixture: %v", m.Temperature())
	}
	if m.GetMoles(0) != 10 || m.GetMoles(1) != 0 {
		t.Fatalf("moles mutated on immutable mixture: {0:%v,1:%v}", m.GetMoles(0), m.GetMoles(1))
	}
}

// Invariant 5: the heat-capacity cache always reflects the current moles
// vector after a mutation, never a stale value.
func TestHeatCapacityCacheCoherence(t *testing.T) {
	reg := uniformHeatRegistry(2, 20)
	m := NewMixture(reg, params.DefaultVolume)
	m.SetMoles(0, 10)

	first := m.HeatCapacity()
	if first != 200 {
		t.Fatalf("heat capacity = %v, want 200", first)
	}

	m.AdjustMoles(1, 5)
	second := m.HeatCapacity()
	if second != 300 {
		t.Fatalf("heat capacity after mutation = %v, want 300 (stale cache)", second)
	}
}

// Invariant 8: compare is symmetric and zero against itself.
func TestCompareSymmetry(t *testing.T) {
	reg := uniformHeatRegistry(2, 20)
	a := NewMixture(reg, params.DefaultVolume)
	a.SetMoles(0, 10)
	a.SetMoles(1, 3)
	b := NewMixture(reg, params.DefaultVolume)
	b.SetMoles(0, 4)
	b.SetMoles(1, 3)

	if a.Compare(b) != b.Compare(a) {
		t.Fatalf("compare not symmetric: a.Compare(b)=%v b.Compare(a)=%v", a.Compare(b), b.Compare(a))
	}
	if a.Compare(a) != 0 {
		t.Fatalf("compare(a,a) = %v, want 0", a.Compare(a))
	}
}

func TestIsNormalFloat32(t *testing.T) {
	cases := []struct {
		v    float32
		want bool
	}{
		{0, false},
		{1, true},
		{-1, true},
		{float32(math.NaN()), false},
		{float32(math.Inf(1)), false},
		{float32(math.Inf(-1)), false},
		{1e-40, false}, // subnormal
	}
	for _, c := range cases {
		if got := IsNormalFloat32(c.v); got != c.want {
			t.Errorf("IsNormalFloat32(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestCorruptionDetectionAndFix(t *testing.T) {
	reg := uniformHeatRegistry(2, 20)
	m := NewMixture(reg, params.DefaultVolume)
	m.SetMoles(0, 10)
	m.temperature = float32(math.NaN())

	if !m.IsCorrupt() {
		t.Fatal("mixture with NaN temperature should be corrupt")
	}
	m.FixCorruption()
	if m.IsCorrupt() {
		t.Fatal("FixCorruption should clear corruption")
	}
	if m.Temperature() != params.DefaultFixupTemperature {
		t.Fatalf("fixed temperature = %v, want %v", m.Temperature(), params.DefaultFixupTemperature)
	}
}
