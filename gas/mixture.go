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
	"hash/fnv"
	"math"
	"sync/atomic"

	"github.com/probechain/atmoscore/params"
)

// minNormalFloat32 is the smallest positive normal float32 (2^-126);
// below it a value is subnormal, which we treat the same as NaN/Inf for
// the purposes of the "finite and normal" invariant the legacy
// simulation enforces on temperature and mole deltas.
const minNormalFloat32 = 1.1754943508222875e-38

// IsNormalFloat32 reports whether v is finite, nonzero, and not
// subnormal -- the "finite and normal" bar SetTemperature and
// AdjustMoles hold their inputs to. Exported for gasapi's boundary
// validation, which needs the identical rule before it ever calls in.
func IsNormalFloat32(v float32) bool { return isNormalFloat32(v) }

func isNormalFloat32(v float32) bool {
	if v == 0 {
		return false
	}
	av := math.Abs(float64(v))
	if math.IsNaN(av) || math.IsInf(av, 0) {
		return false
	}
	return av >= minNormalFloat32
}

func clampFloat32(v, lo, hi float32) float32 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Mixture is the gas-parcel value type: a moles vector, temperature,
// volume, immutability flag, and a lock-free cached heat capacity. It
// carries no lock of its own -- callers reach a Mixture only through an
// Arena slot, whose RWMutex serializes every mutation.
type Mixture struct {
	registry *Registry

	temperature     float32
	volume          float32
	minHeatCapacity float32
	immutable       bool
	moles           []float32

	heatCache *heatCache
}

// NewMixture returns an empty mixture with the given volume, temperature
// TCMB, and an invalid heat-capacity cache -- the state construction
// describes in spec.md §4.1.
func NewMixture(registry *Registry, volume float32) *Mixture {
	hc := newHeatCache()
	return &Mixture{
		registry:  registry,
		temperature: params.TCMB,
		volume:      volume,
		heatCache:   &hc,
	}
}

// Clone returns an independent copy of m, including a snapshot of
// whatever the heat-capacity cache currently holds. Used by the arena
// when a host asks for a pair operation on the same handle twice.
func (m *Mixture) Clone() *Mixture {
	hc := newHeatCache()
	if v, ok := m.heatCache.load(); ok {
		hc.storeExact(v)
	}
	return &Mixture{
		registry:        m.registry,
		temperature:     m.temperature,
		volume:          m.volume,
		minHeatCapacity: m.minHeatCapacity,
		immutable:       m.immutable,
		moles:           append([]float32(nil), m.moles...),
		heatCache:       &hc,
	}
}

// ClearWithVol resets m to a freshly-constructed state at the given
// volume: empty moles, temperature TCMB, mutable, cache invalidated. This
// is the only path back to Mutable from Immutable, and is what Arena.Allocate
// runs on a recycled slot before handing its index back out.
func (m *Mixture) ClearWithVol(vol float32) {
	m.temperature = params.TCMB
	m.volume = vol
	m.minHeatCapacity = 0
	m.immutable = false
	m.moles = m.moles[:0]
	m.heatCache.invalidate()
}

// --- accessors ---------------------------------------------------------

func (m *Mixture) Temperature() float32 { return m.temperature }
func (m *Mixture) Volume() float32      { return m.volume }
func (m *Mixture) Immutable() bool      { return m.immutable }

// GetMoles returns the mole count of gas id, or 0 if out of the current
// dense length (never an error: missing entries are zero by definition).
func (m *Mixture) GetMoles(id GasID) float32 {
	if id < 0 || int(id) >= len(m.moles) {
		return 0
	}
	return m.moles[id]
}

// TotalMoles sums every entry.
func (m *Mixture) TotalMoles() float32 {
	var total float32
	for _, v := range m.moles {
		total += v
	}
	return total
}

// Pressure returns total_moles * R * T / V.
func (m *Mixture) Pressure() float32 {
	if m.volume == 0 {
		return 0
	}
	return m.TotalMoles() * params.RIdealGasConstant * m.temperature / m.volume
}

// ThermalEnergy returns heat_capacity * T.
func (m *Mixture) ThermalEnergy() float32 {
	return m.HeatCapacity() * m.temperature
}

// HeatCapacity folds moles against the registry's specific-heat table,
// floored by minHeatCapacity, consulting (and populating) the lock-free
// cache first.
func (m *Mixture) HeatCapacity() float32 {
	if v, ok := m.heatCache.load(); ok {
		return v
	}
	var sum float32
	for i, amt := range m.moles {
		sum += amt * m.registry.SpecificHeat(GasID(i))
	}
	capacity := sum
	if capacity < m.minHeatCapacity {
		capacity = m.minHeatCapacity
	}
	m.heatCache.storeComputed(capacity)
	return capacity
}

// PartialHeatCapacity is the heat capacity contributed by a single gas.
func (m *Mixture) PartialHeatCapacity(id GasID) float32 {
	return m.GetMoles(id) * m.registry.SpecificHeat(id)
}

// Gases returns the ids of every gas present above GasMinMoles, in
// ascending order -- the order the host's gas-name list is built from.
func (m *Mixture) Gases() []GasID {
	var ids []GasID
	for i, amt := range m.moles {
		if amt > params.GasMinMoles {
			ids = append(ids, GasID(i))
		}
	}
	return ids
}

// --- mutation ------------------------------------------------------------

func (m *Mixture) growTo(n int) {
	if n <= len(m.moles) {
		return
	}
	grown := make([]float32, n)
	copy(grown, m.moles)
	m.moles = grown
}

// trim drops trailing entries that have decayed at or below GasMinMoles;
// only the tail can shrink a dense vector's length, middle zeros just sit
// there as zero values.
func (m *Mixture) trim() {
	for len(m.moles) > 0 && !(m.moles[len(m.moles)-1] > params.GasMinMoles) {
		m.moles = m.moles[:len(m.moles)-1]
	}
}

// SetTemperature accepts T only when finite and normal; otherwise the
// call is silently ignored, matching the legacy simulation.
func (m *Mixture) SetTemperature(t float32) {
	if m.immutable || !isNormalFloat32(t) {
		return
	}
	m.temperature = t
}

// SetMinHeatCapacity sets the floor used when folding heat capacity.
func (m *Mixture) SetMinHeatCapacity(c float32) {
	if m.immutable {
		return
	}
	m.minHeatCapacity = c
	m.heatCache.invalidate()
}

// SetVolume sets volume directly; not gated by immutability in the
// legacy simulation (volume is a container property, not a gas amount).
func (m *Mixture) SetVolume(v float32) { m.volume = v }

// SetMoles requires id < gas_count (legacy behavior: out-of-range ids are
// a silent no-op, §7). Grows the dense vector on demand and invalidates
// the heat-capacity cache.
func (m *Mixture) SetMoles(id GasID, amt float32) {
	if m.immutable {
		return
	}
	if id < 0 || m.registry == nil || int(id) >= m.registry.GasCount() {
		return
	}
	m.growTo(int(id) + 1)
	m.moles[id] = amt
	m.heatCache.invalidate()
}

// AdjustMoles adds a finite/normal delta to gas id, clamps the result
// into [0, 1e31] (matching the legacy simulation's overflow guard), and
// trims the tail when the delta was non-positive.
func (m *Mixture) AdjustMoles(id GasID, delta float32) {
	if m.immutable || !isNormalFloat32(delta) {
		return
	}
	if id < 0 || m.registry == nil || int(id) >= m.registry.GasCount() {
		return
	}
	m.growTo(int(id) + 1)
	m.moles[id] = clampFloat32(m.moles[id]+delta, 0, 1e31)
	m.heatCache.invalidate()
	if delta <= 0 {
		m.trim()
	}
}

// MoleDelta is one (id, delta) pair for AdjustMulti.
type MoleDelta struct {
	ID    GasID
	Delta float32
}

// AdjustMulti batches several adjustments into one vector expansion, one
// cache invalidation, and at most one trim.
func (m *Mixture) AdjustMulti(deltas []MoleDelta) {
	if m.immutable {
		return
	}
	maxID := -1
	trimNeeded := false
	for _, d := range deltas {
		if !isNormalFloat32(d.Delta) || d.ID < 0 || m.registry == nil || int(d.ID) >= m.registry.GasCount() {
			continue
		}
		if int(d.ID) > maxID {
			maxID = int(d.ID)
		}
	}
	if maxID >= 0 {
		m.growTo(maxID + 1)
	}
	for _, d := range deltas {
		if !isNormalFloat32(d.Delta) || d.ID < 0 || m.registry == nil || int(d.ID) >= m.registry.GasCount() {
			continue
		}
		m.moles[d.ID] = clampFloat32(m.moles[d.ID]+d.Delta, 0, 1e31)
		if d.Delta <= 0 {
			trimNeeded = true
		}
	}
	m.heatCache.invalidate()
	if trimNeeded {
		m.trim()
	}
}

// Clear empties moles and invalidates the cache; a no-op when immutable.
func (m *Mixture) Clear() {
	if m.immutable {
		return
	}
	m.moles = m.moles[:0]
	m.heatCache.invalidate()
}

// Multiply scales every entry by k. Absent a minHeatCapacity floor, the
// new heat capacity is exactly k times the old one (heat capacity is
// linear in moles), so the cache can be updated directly rather than
// invalidated -- the same "hax" the original simulation uses. When the
// floor is binding before scaling, or scaling would cross it, a direct
// store would go stale against a fresh fold, so the cache is invalidated
// instead.
func (m *Mixture) Multiply(k float32) {
	if m.immutable {
		return
	}
	capacity := m.HeatCapacity()
	for i := range m.moles {
		m.moles[i] *= k
	}
	scaled := capacity * k
	if capacity > m.minHeatCapacity && scaled >= m.minHeatCapacity {
		m.heatCache.storeExact(scaled)
	} else {
		m.heatCache.invalidate()
	}
	m.trim()
}

// AdjustHeat injects thermal energy q directly, holding heat capacity
// fixed: T <- (C*T + q) / C. A no-op when immutable or when heat capacity
// is at or below the floor (division would blow up).
func (m *Mixture) AdjustHeat(q float32) {
	if m.immutable {
		return
	}
	capacity := m.HeatCapacity()
	if capacity <= params.MinimumHeatCapacity {
		return
	}
	m.temperature = (capacity*m.temperature + q) / capacity
}

// CopyFrom overwrites m's moles, temperature, and heat-capacity cache
// snapshot with src's. A no-op when m is immutable.
func (m *Mixture) CopyFrom(src *Mixture) {
	if m.immutable {
		return
	}
	m.moles = append(m.moles[:0], src.moles...)
	m.temperature = src.temperature
	if v, ok := src.heatCache.load(); ok {
		m.heatCache.storeExact(v)
	} else {
		m.heatCache.invalidate()
	}
}

// Merge folds giver into m: self <- self + giver. giver is left
// unchanged. A no-op when m is immutable or giver is corrupt.
func (m *Mixture) Merge(giver *Mixture) {
	if m.immutable || giver.IsCorrupt() {
		return
	}
	ca := m.HeatCapacity()
	cb := giver.HeatCapacity()

	m.growTo(len(giver.moles))
	for i, amt := range giver.moles {
		m.moles[i] += amt
	}

	combined := ca + cb
	if combined > params.MinimumHeatCapacity {
		m.temperature = (ca*m.temperature + cb*giver.temperature) / combined
	}
	m.heatCache.storeExact(combined)
}

// RemoveRatioInto copies self into dest, scales dest by ratio (clamped to
// [0,1]), and scales self by 1-ratio. When self is immutable, self is
// left untouched and dest still receives self*ratio; when dest is
// immutable, dest is left untouched (the CopyFrom/Multiply calls below
// no-op automatically).
func (m *Mixture) RemoveRatioInto(ratio float64, dest *Mixture) {
	r := clampFloat32(float32(ratio), 0, 1)
	dest.CopyFrom(m)
	dest.Multiply(r)
	m.Multiply(1 - r)
}

// RemoveInto removes a raw mole amount (rather than a ratio) into dest.
func (m *Mixture) RemoveInto(moles float32, dest *Mixture) {
	total := m.TotalMoles()
	if total == 0 {
		dest.Multiply(0) // matches ratio=0: dest gets nothing, self untouched
		return
	}
	m.RemoveRatioInto(float64(moles)/float64(total), dest)
}

// TransferGasesTo moves a ratio of the named gases from self to dest,
// tracking the thermal energy carried along and re-deriving dest's
// temperature from its pre-transfer thermal energy plus the heat moved.
func (m *Mixture) TransferGasesTo(ratio float64, ids []GasID, dest *Mixture) {
	preThermal := dest.ThermalEnergy()
	var heatMoved float32
	t := m.temperature
	for _, id := range ids {
		delta := m.GetMoles(id) * float32(ratio)
		heat := delta * t * m.registry.SpecificHeat(id)
		m.AdjustMoles(id, -delta)
		dest.AdjustMoles(id, delta)
		heatMoved += heat
	}
	capacity := dest.HeatCapacity()
	if capacity > params.MinimumHeatCapacity {
		dest.SetTemperature((preThermal + heatMoved) / capacity)
	}
}

// TemperatureShare runs one step of diffusive conduction between m and
// sharer (no bulk gas mixing) and returns sharer's resulting temperature.
func (m *Mixture) TemperatureShare(sharer *Mixture, k float64) float32 {
	delta := m.temperature - sharer.temperature
	if abs32(delta) > params.MinimumTemperatureDeltaToConsider {
		ca := m.HeatCapacity()
		cb := sharer.HeatCapacity()
		if ca > params.MinimumHeatCapacity && cb > params.MinimumHeatCapacity {
			q := float32(k) * delta * (ca * cb / (ca + cb))
			if !m.immutable {
				m.temperature = maxFloat32(params.TCMB, m.temperature-q/ca)
			}
			if !sharer.immutable {
				sharer.temperature = maxFloat32(params.TCMB, sharer.temperature+q/cb)
			}
		}
	}
	return sharer.temperature
}

// TemperatureShareNonGas is the scalar variant used for superconduction:
// sharer is described by (temperature, heat capacity) rather than a
// second Mixture, and only its resulting temperature is returned -- no
// second mixture is mutated.
func (m *Mixture) TemperatureShareNonGas(k float64, sharerTemp, sharerCap float32) float32 {
	delta := m.temperature - sharerTemp
	if abs32(delta) > params.MinimumTemperatureDeltaToConsider {
		ca := m.HeatCapacity()
		if ca > params.MinimumHeatCapacity && sharerCap > params.MinimumHeatCapacity {
			q := float32(k) * delta * (ca * sharerCap / (ca + sharerCap))
			if !m.immutable {
				m.temperature = maxFloat32(params.TCMB, m.temperature-q/ca)
			}
			return maxFloat32(params.TCMB, sharerTemp+q/sharerCap)
		}
	}
	return sharerTemp
}

// TemperatureCompare reports whether m and other differ enough in both
// temperature and total moles to be worth the turf grid's attention.
func (m *Mixture) TemperatureCompare(other *Mixture) bool {
	return abs32(m.temperature-other.temperature) > params.MinimumTemperatureDeltaToSuspend &&
		m.TotalMoles() > params.MinimumMolesDeltaToMove
}

// Compare returns the largest per-gas mole delta between m and other,
// treating entries past either mixture's length as zero.
func (m *Mixture) Compare(other *Mixture) float32 {
	n := len(m.moles)
	if len(other.moles) > n {
		n = len(other.moles)
	}
	var best float32
	for i := 0; i < n; i++ {
		d := abs32(m.GetMoles(GasID(i)) - other.GetMoles(GasID(i)))
		if d > best {
			best = d
		}
	}
	return best
}

// CompareWith reports whether any per-gas delta reaches eps, scanning
// from the tail (the likely-changed end) so it can exit early.
func (m *Mixture) CompareWith(other *Mixture, eps float32) bool {
	n := len(m.moles)
	if len(other.moles) > n {
		n = len(other.moles)
	}
	for i := n - 1; i >= 0; i-- {
		if abs32(m.GetMoles(GasID(i))-other.GetMoles(GasID(i))) >= eps {
			return true
		}
	}
	return false
}

// --- corruption ----------------------------------------------------------

// IsCorrupt reports whether the temperature is non-finite/non-normal or
// the moles vector has grown past the registry's gas count.
func (m *Mixture) IsCorrupt() bool {
	if !isNormalFloat32(m.temperature) {
		return true
	}
	if m.registry != nil && len(m.moles) > m.registry.GasCount() {
		return true
	}
	return false
}

// FixCorruption trims any over-long moles vector and resets a
// non-finite or sub-TCMB temperature to the legacy default.
func (m *Mixture) FixCorruption() {
	if m.registry != nil && len(m.moles) > m.registry.GasCount() {
		m.moles = m.moles[:m.registry.GasCount()]
		m.heatCache.invalidate()
	}
	if !isNormalFloat32(m.temperature) || m.temperature < params.TCMB {
		m.temperature = params.DefaultFixupTemperature
	}
}

// --- burnability -----------------------------------------------------------

// FireContribution is one gas's effective contribution to oxidation or
// fuel, returned by GetFireInfo for the turf grid's combustion model.
type FireContribution struct {
	ID        GasID
	Effective float32
	// PowerOrRate is the oxidizer's power, or the fuel's burn rate,
	// depending on which slice the contribution came from.
	PowerOrRate float32
}

// GetFireInfo folds moles against the registry's fire-info table,
// returning the oxidizer and fuel contributions separately.
func (m *Mixture) GetFireInfo() (oxidizers, fuels []FireContribution) {
	for i, amt := range m.moles {
		if amt <= params.GasMinMoles {
			continue
		}
		id := GasID(i)
		info := m.registry.FireInfo(id)
		switch info.Kind {
		case FireOxidizer:
			if m.temperature > info.OxidizerTemperature {
				eff := amt * maxFloat32(0, 1-info.OxidizerTemperature/m.temperature)
				oxidizers = append(oxidizers, FireContribution{ID: id, Effective: eff, PowerOrRate: info.OxidizerPower})
			}
		case FireFuel:
			if m.temperature > info.FuelTemperature {
				eff := amt * maxFloat32(0, 1-info.FuelTemperature/m.temperature)
				fuels = append(fuels, FireContribution{ID: id, Effective: eff, PowerOrRate: info.FuelBurnRate})
			}
		}
	}
	return oxidizers, fuels
}

// Burnability folds GetFireInfo into the two scalars the combustion
// model actually consumes: total oxidation capacity and total fuel.
func (m *Mixture) Burnability() (oxidation, fuel float32) {
	oxidizers, fuels := m.GetFireInfo()
	for _, o := range oxidizers {
		oxidation += o.Effective * o.PowerOrRate
	}
	for _, f := range fuels {
		if f.PowerOrRate != 0 {
			fuel += f.Effective / f.PowerOrRate
		}
	}
	return oxidation, fuel
}

// --- visibility ------------------------------------------------------------

// IsVisible reports whether any gas has reached its visibility threshold.
func (m *Mixture) IsVisible() bool {
	for i, amt := range m.moles {
		if amt <= 0 {
			continue
		}
		if th, ok := m.registry.Visibility(GasID(i)); ok && amt >= th {
			return true
		}
	}
	return false
}

func visibilityStep(x float32) int {
	step := int(math.Ceil(float64(x / params.MolesGasVisibleStep)))
	if step < 1 {
		step = 1
	}
	if step > params.FactorGasVisibleMax {
		step = params.FactorGasVisibleMax
	}
	return step
}

// VisibilityHash is a stable digest over the sorted (id, visibilityStep)
// pairs of every visible gas; the dense moles vector is already in
// ascending id order, so no sort is needed.
func (m *Mixture) VisibilityHash() uint64 {
	h := fnv.New64a()
	for i, amt := range m.moles {
		if amt <= 0 {
			continue
		}
		th, ok := m.registry.Visibility(GasID(i))
		if !ok || amt < th {
			continue
		}
		h.Write([]byte{byte(i), byte(visibilityStep(amt))})
	}
	return h.Sum64()
}

// VisHashChanged computes the current visibility hash, compares it
// against prev, stores it if different, and reports whether it changed
// -- the turf grid uses this to decide whether a client update is due.
func (m *Mixture) VisHashChanged(prev *atomic.Uint64) bool {
	cur := m.VisibilityHash()
	old := prev.Load()
	if old == cur {
		return false
	}
	prev.Store(cur)
	return true
}

// --- reactions ---------------------------------------------------------

// CanReact reports whether any registered reaction's precondition is met,
// checking highest priority first (but stopping at the first match
// regardless of priority, since only a yes/no is needed here).
func (m *Mixture) CanReact() bool {
	if m.registry == nil {
		return false
	}
	found := false
	m.registry.WithReactions(func(rs []Reaction) {
		for i := range rs {
			if rs[i].Precondition.Met(m) {
				found = true
				return
			}
		}
	})
	return found
}

// AllReactable collects the ids of every reaction whose precondition is
// met, in descending priority order (the registry keeps them pre-sorted).
func (m *Mixture) AllReactable() []ReactionID {
	if m.registry == nil {
		return nil
	}
	var ids []ReactionID
	m.registry.WithReactions(func(rs []Reaction) {
		for i := range rs {
			if rs[i].Precondition.Met(m) {
				ids = append(ids, rs[i].ID)
			}
		}
	})
	return ids
}

// --- state machine -------------------------------------------------------

// MarkImmutable enters the Immutable state. Not reversible except via
// ClearWithVol.
func (m *Mixture) MarkImmutable() { m.immutable = true }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxFloat32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
