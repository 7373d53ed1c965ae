// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/optic/internal/config"
	"github.com/Thermoquad/optic/pkg/visca"
)

var addressClear bool

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Run VISCA address assignment on a camera chain",
	Long: `Broadcast ADDRESS_SET to number the cameras on a VISCA daisy chain.

The first camera takes address 1 and passes the request on; the reply carries
the next free address, so the chain length is one less than that number. The
first camera is then identified with a device-type inquiry.

Examples:
  optic address --port /dev/ttyUSB0
  optic address --host 192.168.0.90:5678 --clear

Exit codes:
  0 - Address assigned and camera identified
  1 - No reply or malformed reply
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runAddress,
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().BoolVar(&addressClear, "clear", false, "Send IF_CLEAR after assignment")
}

func runAddress(cmd *cobra.Command, args []string) error {
	dc, err := flagDevice()
	if err != nil {
		return err
	}
	if dc.Protocol != config.ProtocolVISCA {
		return fmt.Errorf("address assignment needs --protocol visca")
	}

	t, connInfo, err := OpenTransport(dc.Transport)
	if err != nil {
		return err
	}
	if err := t.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer t.Close()

	fmt.Printf("Optic - VISCA Address Assignment\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	cam := visca.NewCamera(t, visca.WithLogger(logger))
	if err := cam.SetAddress(); err != nil {
		fmt.Printf("\033[1;31mADDRESS_SET failed:\033[0m %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\033[1;32mAssigned:\033[0m camera address %d\n", cam.Address())

	if addressClear {
		if err := cam.Clear(); err != nil {
			fmt.Printf("\033[1;31mIF_CLEAR failed:\033[0m %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\033[1;32mCleared:\033[0m command buffers flushed\n")
	}

	info, err := cam.CameraInfo()
	if err != nil {
		fmt.Printf("\033[1;31mDevice type inquiry failed:\033[0m %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n--- Camera %d ---\n", cam.Address())
	fmt.Printf("Vendor:  %s (0x%04X)\n", info.Vendor(), info.VendorID)
	fmt.Printf("Model:   %s (0x%04X)\n", info.Model(), info.ModelID)
	fmt.Printf("ROM:     0x%04X\n", info.ROMVersion)
	fmt.Printf("Sockets: %d\n", info.Socket)
	return nil
}
