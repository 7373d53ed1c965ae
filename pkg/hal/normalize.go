// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import (
	"fmt"
)

// roundDiv divides rounding half away from zero. Written for signed
// operands so the same arithmetic stays correct for negative products.
func roundDiv(num, den int64) int64 {
	if den < 0 {
		num, den = -num, -den
	}
	if num >= 0 {
		return (num + den/2) / den
	}
	return (num - den/2) / den
}

// Denormalize maps a 0-100 value onto r
func Denormalize(normalized int, r Range) (uint32, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	if normalized < NormalizedMin || normalized > NormalizedMax {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrValueOutOfRange, normalized, NormalizedMin, NormalizedMax)
	}

	offset := roundDiv(int64(normalized)*int64(r.Span()), NormalizedMax)
	return r.Min + uint32(offset), nil
}

// Normalize maps a native value in r onto 0-100. Values outside r are a
// device error, not clamped.
func Normalize(native uint32, r Range) (int, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	if !r.Contains(native) {
		return 0, fmt.Errorf("%w: %d not in %s", ErrNativeOutOfRange, native, r)
	}

	return int(roundDiv(int64(native-r.Min)*NormalizedMax, int64(r.Span()))), nil
}
