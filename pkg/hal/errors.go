// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import "errors"

var (
	// Construction errors
	ErrNilDevice    = errors.New("hal: nil device")
	ErrInvalidRange = errors.New("hal: invalid device range")

	// Validation errors, raised before any device I/O
	ErrNotConnected     = errors.New("hal: not connected")
	ErrAlreadyConnected = errors.New("hal: already connected")
	ErrNotSupported     = errors.New("hal: capability not supported")
	ErrValueOutOfRange  = errors.New("hal: normalized value out of range")

	// Device reported a native value outside its declared range
	ErrNativeOutOfRange = errors.New("hal: native value out of range")
)
