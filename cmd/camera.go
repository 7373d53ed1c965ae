// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/optic/pkg/hal"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show camera identity and capabilities",
	Args:  cobra.NoArgs,
	RunE: withHAL(func(h *hal.HAL) error {
		caps, err := h.Capabilities()
		if err != nil {
			return err
		}
		if caps.Has(hal.CapabilityInfo) {
			info, err := h.Info()
			if err != nil {
				return err
			}
			fmt.Printf("Camera:       %s\n", info)
		}
		fmt.Printf("Capabilities: %s\n", caps)
		if r, ok := h.ZoomRange(); ok {
			fmt.Printf("Zoom range:   %s\n", r)
		}
		if r, ok := h.FocusRange(); ok {
			fmt.Printf("Focus range:  %s\n", r)
		}
		return nil
	}),
}

var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "List the features the camera supports",
	Args:  cobra.NoArgs,
	RunE: withHAL(func(h *hal.HAL) error {
		caps, err := h.Capabilities()
		if err != nil {
			return err
		}
		for _, c := range caps.Strings() {
			fmt.Println(c)
		}
		return nil
	}),
}

var zoomCmd = &cobra.Command{
	Use:   "zoom [0-100]",
	Short: "Read or set zoom position",
	Long: `Read the zoom position, or move to a position when one is given.

Positions are normalized: 0 is the wide end, 100 the tele end.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosition(args, (*hal.HAL).Zoom, (*hal.HAL).SetZoom, "Zoom")
	},
}

var focusCmd = &cobra.Command{
	Use:   "focus [0-100]",
	Short: "Read or set focus position",
	Long: `Read the focus position, or move to a position when one is given.

Positions are normalized: 0 is the near end, 100 the far end. Setting a focus
position on a camera in autofocus mode may be overridden by the camera.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosition(args, (*hal.HAL).Focus, (*hal.HAL).SetFocus, "Focus")
	},
}

var autofocusCmd = &cobra.Command{
	Use:   "autofocus [on|off]",
	Short: "Read or switch autofocus",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggle(args, (*hal.HAL).AutoFocus, (*hal.HAL).EnableAutoFocus, "Autofocus")
	},
}

var stabilizeCmd = &cobra.Command{
	Use:   "stabilize [on|off]",
	Short: "Read or switch image stabilization",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggle(args, (*hal.HAL).Stabilization, (*hal.HAL).Stabilize, "Stabilization")
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(capsCmd)
	rootCmd.AddCommand(zoomCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(autofocusCmd)
	rootCmd.AddCommand(stabilizeCmd)
}

// withHAL connects the flag-selected camera, runs fn and disconnects
func withHAL(fn func(h *hal.HAL) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		h, _, err := openHAL()
		if err != nil {
			return err
		}
		defer h.Disconnect()
		return fn(h)
	}
}

func runPosition(args []string, get func(*hal.HAL) (int, error), set func(*hal.HAL, int) error, label string) error {
	var target int
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid position %q", args[0])
		}
		target = v
	}

	return withHAL(func(h *hal.HAL) error {
		if len(args) == 1 {
			if err := set(h, target); err != nil {
				return err
			}
		}
		v, err := get(h)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d\n", label, v)
		return nil
	})(nil, nil)
}

func runToggle(args []string, get func(*hal.HAL) (bool, error), set func(*hal.HAL, bool) error, label string) error {
	var target bool
	if len(args) == 1 {
		v, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		target = v
	}

	return withHAL(func(h *hal.HAL) error {
		if len(args) == 1 {
			if err := set(h, target); err != nil {
				return err
			}
		}
		v, err := get(h)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", label, onOff(v))
		return nil
	})(nil, nil)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "enable":
		return true, nil
	case "off", "false", "0", "disable":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
