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

import "math"

// Handle is an opaque token identifying a live mixture in an Arena. It is
// never dereferenced as a pointer and never arithmetic-compared by a
// host script except for equality; Go code should treat it as an index,
// nothing more.
type Handle uint32

// HandleToFloat reinterprets h's bits as a float32. The host's scripting
// runtime only has a single numeric type at its boundary, so handles are
// smuggled across that boundary as bit patterns rather than converted
// numerically -- converting a Handle to float32(h) would lose precision
// past 2^24 and silently corrupt large handles.
func HandleToFloat(h Handle) float32 {
	return math.Float32frombits(uint32(h))
}

// HandleFromFloat is the inverse of HandleToFloat, used only at the
// scripting boundary -- the core engine itself never needs it.
func HandleFromFloat(f float32) Handle {
	return Handle(math.Float32bits(f))
}
