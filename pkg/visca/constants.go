// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

// Framing
const (
	Terminator      byte = 0xFF
	BroadcastHeader byte = 0x88
	AddressedHeader byte = 0x80

	MaxPayloadSize   = 14
	MaxFrameSize     = MaxPayloadSize + 2
	MinFrameSize     = 3
	MaxCameraAddress = 7

	// Replies from a camera start with 0x90 | (address << 4) style headers;
	// any byte with the high bit set (other than the terminator) can open one
	responseStartMask byte = 0x80

	// receiveBufferSize holds two maximum-size frames back to back
	receiveBufferSize = 2 * MaxFrameSize
)

// Message types (first payload byte)
const (
	TypeCommand byte = 0x01
	TypeInquiry byte = 0x09
)

// Categories (second payload byte)
const (
	CategoryInterface byte = 0x00
	CategoryCamera1   byte = 0x04
	CategoryPanTilt   byte = 0x06
	CategoryCamera2   byte = 0x07
)

// Reply classes (high nibble of the second reply byte)
const (
	replyAck        byte = 0x40
	replyCompletion byte = 0x50
	replyError      byte = 0x60

	replyAddress byte = 0x30
	replyClear   byte = 0x01
)

// Interface messages
const (
	addressSetCode     byte = 0x30
	addressSetFirst    byte = 0x01
	interfaceClearCode byte = 0x01
	deviceTypeCode     byte = 0x02
)

// On/off argument values
const (
	On  byte = 0x02
	Off byte = 0x03
)

// Drive actions for zoom and focus
const (
	DriveStop byte = 0x00
	DriveTele byte = 0x02
	DriveWide byte = 0x03
	DriveFar  byte = 0x02
	DriveNear byte = 0x03

	driveTeleVariable byte = 0x20
	driveWideVariable byte = 0x30
	maxDriveSpeed     byte = 0x07
)

// White balance modes
const (
	WBAuto    byte = 0x00
	WBIndoor  byte = 0x01
	WBOutdoor byte = 0x02
	WBOnePush byte = 0x03
	WBATW     byte = 0x04
	WBManual  byte = 0x05
)

// Auto-exposure modes
const (
	AEFullAuto byte = 0x00
	AEManual   byte = 0x03
	AEShutter  byte = 0x0A
	AEIris     byte = 0x0B
	AEBright   byte = 0x0D
)

// MemoryAction selects what a memory command does with a preset slot
type MemoryAction byte

const (
	MemoryReset  MemoryAction = 0x00
	MemorySet    MemoryAction = 0x01
	MemoryRecall MemoryAction = 0x02

	MaxMemorySlot = 0x0F
)

// Pan/tilt drive directions
const (
	PanLeft  byte = 0x01
	PanRight byte = 0x02
	PanStop  byte = 0x03
	TiltUp   byte = 0x01
	TiltDown byte = 0x02
	TiltStop byte = 0x03

	MaxPanSpeed  byte = 0x18
	MaxTiltSpeed byte = 0x14
)

// Known vendor ids reported by the camera info inquiry
const (
	VendorSony uint16 = 0x0020
)
