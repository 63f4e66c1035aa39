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

import "fmt"

// Kind classifies a RuntimeError the way the host's scripting bridge needs
// to distinguish them: an invalid handle is recoverable differently than a
// bad argument.
type Kind uint8

const (
	// KindInvalidHandle means the lookup missed a live arena slot.
	KindInvalidHandle Kind = iota
	// KindInvalidArgument means wrong arity, or a non-number/non-list
	// argument where one was required.
	KindInvalidArgument
	// KindOutOfRange means a finite value was required (temperature,
	// volume, moles) or a non-negative value was required (moles) and
	// neither held.
	KindOutOfRange
	// KindRegistryNotInitialized means a gas-metadata lookup happened
	// before init_atmos ran.
	KindRegistryNotInitialized
)

func (k Kind) String() string {
	switch k {
	case KindInvalidHandle:
		return "invalid handle"
	case KindInvalidArgument:
		return "invalid argument"
	case KindOutOfRange:
		return "out of range"
	case KindRegistryNotInitialized:
		return "registry not initialized"
	default:
		return "unknown"
	}
}

// RuntimeError is the structured failure every host-facing entry point
// returns instead of panicking on script-driven input.
type RuntimeError struct {
	Kind    Kind
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

func newError(kind Kind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidHandle reports that no mixture lives at the given handle.
func ErrInvalidHandle(h Handle) *RuntimeError {
	return newError(KindInvalidHandle, "no mixture with ID %d", h)
}

// ErrWrongArity reports a host call with the wrong number of arguments.
func ErrWrongArity() *RuntimeError {
	return newError(KindInvalidArgument, "wrong number of arguments")
}

// ErrNonNumber reports a host call with a non-number where one was required.
func ErrNonNumber() *RuntimeError {
	return newError(KindInvalidArgument, "non-number argument")
}

// ErrNonList reports a host call with a non-list where one was required.
func ErrNonList() *RuntimeError {
	return newError(KindInvalidArgument, "non-list argument")
}

// ErrBadTemperature reports an attempt to set a non-finite temperature.
func ErrBadTemperature() *RuntimeError {
	return newError(KindOutOfRange, "attempted to set temperature to NaN or infinite")
}

// ErrNegativeMoles reports an attempt to set a negative mole count.
func ErrNegativeMoles() *RuntimeError {
	return newError(KindOutOfRange, "attempted to set moles to negative")
}

// ErrBadVolume reports an attempt to register a mixture with a
// non-finite volume.
func ErrBadVolume() *RuntimeError {
	return newError(KindOutOfRange, "attempted to set volume to NaN or infinite")
}

// ErrRegistryNotInitialized reports a call requiring gas metadata before
// init_atmos populated the registry.
func ErrRegistryNotInitialized() *RuntimeError {
	return newError(KindRegistryNotInitialized, "gas registry not initialized")
}
