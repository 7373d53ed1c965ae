// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Optic - Camera Zoom and Focus Control
//
// A CLI tool and bridge server for driving VISCA block cameras and ITL
// thermal lenses through one normalized 0-100 interface.

package main

import (
	"os"

	"github.com/Thermoquad/optic/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
