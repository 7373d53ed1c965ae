// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
)

// FormatFrame formats a stream frame into a human-readable line
func FormatFrame(f *StreamFrame) string {
	timestamp := f.Timestamp.Format("15:04:05.000")
	return fmt.Sprintf("[%s] %s %s  % X", timestamp, f.Direction(), DescribeFrame(f.Raw), f.Raw)
}

// DescribeFrame names what a raw frame does
func DescribeFrame(raw []byte) string {
	if len(raw) < MinFrameSize {
		return "SHORT"
	}
	header := raw[0]
	payload := raw[1 : len(raw)-1]

	target := "broadcast"
	if header != BroadcastHeader {
		target = fmt.Sprintf("cam%d", (header>>4)&0x07|header&0x07)
	}

	switch {
	case header == BroadcastHeader && payload[0] == addressSetCode:
		return fmt.Sprintf("ADDRESS_SET next=%d", lastByte(payload))
	case len(payload) >= 3 && payload[0] == TypeCommand && payload[1] == CategoryInterface && payload[2] == interfaceClearCode:
		return fmt.Sprintf("IF_CLEAR %s", target)
	case len(payload) >= 3 && payload[0] == TypeCommand:
		return fmt.Sprintf("COMMAND %s %s%s", target, FormatFeature(payload[1], payload[2]), formatArgs(payload[3:]))
	case len(payload) >= 3 && payload[0] == TypeInquiry:
		return fmt.Sprintf("INQUIRY %s %s", target, FormatFeature(payload[1], payload[2]))
	}

	resp, _, err := ParseResponse(raw)
	if err != nil {
		return "MALFORMED"
	}
	switch resp.Type {
	case ResponseAck:
		return fmt.Sprintf("ACK %s socket=%d", target, resp.Socket)
	case ResponseCompletion:
		if len(resp.Payload) == 0 {
			return fmt.Sprintf("COMPLETION %s socket=%d", target, resp.Socket)
		}
		return fmt.Sprintf("COMPLETION %s%s", target, formatArgs(resp.Payload))
	case ResponseError:
		return fmt.Sprintf("ERROR %s socket=%d code=0x%02X (%s)", target, resp.Socket, resp.Code, ErrorReason(resp.Code))
	default:
		return fmt.Sprintf("%s %s", resp.Type, target)
	}
}

// FormatFeature returns the feature name for a category/code pair
func FormatFeature(category, code byte) string {
	if f, ok := LookupFeature(category, code); ok {
		return f.Name
	}
	switch {
	case category == CategoryInterface && code == deviceTypeCode:
		return "device type"
	case category == CategoryCamera1 && code == memoryCode:
		return "memory"
	case category == CategoryPanTilt && code == panTiltDriveCode:
		return "pan/tilt drive"
	case category == CategoryPanTilt && code == panTiltAbsoluteCode:
		return "pan/tilt absolute"
	case category == CategoryPanTilt && code == panTiltHomeCode:
		return "pan/tilt home"
	case category == CategoryPanTilt && code == panTiltResetCode:
		return "pan/tilt reset"
	case category == CategoryPanTilt && code == panTiltPositionCode:
		return "pan/tilt position"
	}
	return fmt.Sprintf("0x%02X/0x%02X", category, code)
}

// formatArgs renders argument bytes, folding four nibbles into one value
func formatArgs(args []byte) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		switch args[0] {
		case On:
			return " = on"
		case Off:
			return " = off"
		}
		return fmt.Sprintf(" = 0x%02X", args[0])
	case 4:
		if v, err := Uint16At(args, 0); err == nil {
			return fmt.Sprintf(" = 0x%04X", v)
		}
	}
	return fmt.Sprintf(" = [% X]", args)
}

func lastByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[len(b)-1]
}
