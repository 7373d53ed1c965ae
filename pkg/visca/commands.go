// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
)

// FeatureKind selects the wire shape of a feature's set and inquiry
// messages
type FeatureKind int

const (
	// KindOnOff sets with a 0x02/0x03 argument and reports the same
	KindOnOff FeatureKind = iota
	// KindValue sets and reports a nibble-packed 16-bit value
	KindValue
	// KindMode sets and reports a single mode byte
	KindMode
	// KindTrigger takes an action byte and has no inquiry
	KindTrigger
)

func (k FeatureKind) String() string {
	switch k {
	case KindOnOff:
		return "on/off"
	case KindValue:
		return "value"
	case KindMode:
		return "mode"
	case KindTrigger:
		return "trigger"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Feature describes one controllable camera function
type Feature struct {
	Name     string
	Category byte
	Code     byte
	Kind     FeatureKind
}

func (f Feature) require(kind FeatureKind) error {
	if f.Kind != kind {
		return fmt.Errorf("%w: %s is %s, not %s", ErrFeatureKind, f.Name, f.Kind, kind)
	}
	return nil
}

// Camera feature table
var (
	Power          = Feature{"power", CategoryCamera1, 0x00, KindOnOff}
	ICR            = Feature{"icr", CategoryCamera1, 0x01, KindOnOff}
	DigitalZoom    = Feature{"digital zoom", CategoryCamera1, 0x06, KindOnOff}
	ZoomDrive      = Feature{"zoom drive", CategoryCamera1, 0x07, KindTrigger}
	FocusDrive     = Feature{"focus drive", CategoryCamera1, 0x08, KindTrigger}
	WBTrigger      = Feature{"white balance one-push", CategoryCamera1, 0x10, KindTrigger}
	FocusOnePush   = Feature{"focus one-push", CategoryCamera1, 0x18, KindTrigger}
	FocusNearLimit = Feature{"focus near limit", CategoryCamera1, 0x28, KindValue}
	Backlight      = Feature{"backlight", CategoryCamera1, 0x33, KindOnOff}
	Stabilizer     = Feature{"stabilizer", CategoryCamera1, 0x34, KindOnOff}
	WhiteBalance   = Feature{"white balance", CategoryCamera1, 0x35, KindMode}
	FocusAuto      = Feature{"focus auto", CategoryCamera1, 0x38, KindOnOff}
	AutoExposure   = Feature{"auto exposure", CategoryCamera1, 0x39, KindMode}
	WideDynamic    = Feature{"wide dynamic range", CategoryCamera1, 0x3D, KindOnOff}
	ExpComp        = Feature{"exposure compensation", CategoryCamera1, 0x3E, KindOnOff}
	Aperture       = Feature{"aperture", CategoryCamera1, 0x42, KindValue}
	RGain          = Feature{"r gain", CategoryCamera1, 0x43, KindValue}
	BGain          = Feature{"b gain", CategoryCamera1, 0x44, KindValue}
	ZoomPosition   = Feature{"zoom position", CategoryCamera1, 0x47, KindValue}
	FocusPosition  = Feature{"focus position", CategoryCamera1, 0x48, KindValue}
	Shutter        = Feature{"shutter", CategoryCamera1, 0x4A, KindValue}
	Iris           = Feature{"iris", CategoryCamera1, 0x4B, KindValue}
	Gain           = Feature{"gain", CategoryCamera1, 0x4C, KindValue}
	Bright         = Feature{"bright", CategoryCamera1, 0x4D, KindValue}
	ExpCompValue   = Feature{"exposure compensation level", CategoryCamera1, 0x4E, KindValue}
	LRReverse      = Feature{"left/right reverse", CategoryCamera1, 0x61, KindOnOff}
	Freeze         = Feature{"freeze", CategoryCamera1, 0x62, KindOnOff}
	PictureFlip    = Feature{"picture flip", CategoryCamera1, 0x66, KindOnOff}
)

// Features lists every table entry, for lookups by code
var Features = []Feature{
	Power, ICR, DigitalZoom, ZoomDrive, FocusDrive, WBTrigger, FocusOnePush,
	FocusNearLimit, Backlight, Stabilizer, WhiteBalance, FocusAuto, AutoExposure,
	WideDynamic, ExpComp, Aperture, RGain, BGain, ZoomPosition, FocusPosition,
	Shutter, Iris, Gain, Bright, ExpCompValue, LRReverse, Freeze, PictureFlip,
}

// Pan/tilt and memory codes are multi-argument and handled by dedicated
// methods
const (
	memoryCode          byte = 0x3F
	panTiltDriveCode    byte = 0x01
	panTiltAbsoluteCode byte = 0x02
	panTiltHomeCode     byte = 0x04
	panTiltResetCode    byte = 0x05
	panTiltPositionCode byte = 0x12
)

// LookupFeature finds a table entry by category and code
func LookupFeature(category, code byte) (Feature, bool) {
	for _, f := range Features {
		if f.Category == category && f.Code == code {
			return f, true
		}
	}
	return Feature{}, false
}

//////////////////////////////////////////////////////////////
// Generic primitives
//////////////////////////////////////////////////////////////

// SetOnOff switches an on/off feature
func (c *Camera) SetOnOff(f Feature, on bool) error {
	if err := f.require(KindOnOff); err != nil {
		return err
	}
	arg := Off
	if on {
		arg = On
	}
	_, err := c.writeRead(NewCommand(f.Category, f.Code).AppendByte(arg).Bytes())
	return wrapFeature(f, err)
}

// OnOff queries an on/off feature
func (c *Camera) OnOff(f Feature) (bool, error) {
	if err := f.require(KindOnOff); err != nil {
		return false, err
	}
	reply, err := c.writeRead(NewInquiry(f.Category, f.Code).Bytes())
	if err != nil {
		return false, wrapFeature(f, err)
	}
	v, err := Uint8At(reply, 0)
	if err != nil {
		return false, wrapFeature(f, err)
	}
	switch v {
	case On:
		return true, nil
	case Off:
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w: on/off reply 0x%02X", f.Name, ErrMalformedFrame, v)
	}
}

// SetValue sets a 16-bit feature
func (c *Camera) SetValue(f Feature, v uint16) error {
	if err := f.require(KindValue); err != nil {
		return err
	}
	_, err := c.writeRead(NewCommand(f.Category, f.Code).AppendNibbles16(v).Bytes())
	return wrapFeature(f, err)
}

// Value queries a 16-bit feature
func (c *Camera) Value(f Feature) (uint16, error) {
	if err := f.require(KindValue); err != nil {
		return 0, err
	}
	reply, err := c.writeRead(NewInquiry(f.Category, f.Code).Bytes())
	if err != nil {
		return 0, wrapFeature(f, err)
	}
	v, err := Uint16At(reply, 0)
	return v, wrapFeature(f, err)
}

// SetMode selects a mode of a mode feature
func (c *Camera) SetMode(f Feature, mode byte) error {
	if err := f.require(KindMode); err != nil {
		return err
	}
	_, err := c.writeRead(NewCommand(f.Category, f.Code).AppendByte(mode).Bytes())
	return wrapFeature(f, err)
}

// Mode queries a mode feature
func (c *Camera) Mode(f Feature) (byte, error) {
	if err := f.require(KindMode); err != nil {
		return 0, err
	}
	reply, err := c.writeRead(NewInquiry(f.Category, f.Code).Bytes())
	if err != nil {
		return 0, wrapFeature(f, err)
	}
	v, err := Uint8At(reply, 0)
	return v, wrapFeature(f, err)
}

// Trigger sends an action to a trigger feature
func (c *Camera) Trigger(f Feature, action byte) error {
	if err := f.require(KindTrigger); err != nil {
		return err
	}
	_, err := c.writeRead(NewCommand(f.Category, f.Code).AppendByte(action).Bytes())
	return wrapFeature(f, err)
}

func wrapFeature(f Feature, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", f.Name, err)
}

//////////////////////////////////////////////////////////////
// Named operations
//////////////////////////////////////////////////////////////

// SetPower switches the camera on or to standby
func (c *Camera) SetPower(on bool) error { return c.SetOnOff(Power, on) }

// Power reports whether the camera is on
func (c *Camera) Power() (bool, error) { return c.OnOff(Power) }

// SetZoomValue drives zoom to an absolute position
func (c *Camera) SetZoomValue(v uint16) error { return c.SetValue(ZoomPosition, v) }

// ZoomValue returns the zoom position
func (c *Camera) ZoomValue() (uint16, error) { return c.Value(ZoomPosition) }

// SetFocusValue drives focus to an absolute position
func (c *Camera) SetFocusValue(v uint16) error { return c.SetValue(FocusPosition, v) }

// FocusValue returns the focus position
func (c *Camera) FocusValue() (uint16, error) { return c.Value(FocusPosition) }

// SetFocusAuto switches between auto and manual focus
func (c *Camera) SetFocusAuto(on bool) error { return c.SetOnOff(FocusAuto, on) }

// FocusAuto reports whether auto focus is on
func (c *Camera) FocusAuto() (bool, error) { return c.OnOff(FocusAuto) }

// FocusOnePush triggers a single auto-focus pass
func (c *Camera) FocusOnePush() error { return c.Trigger(FocusOnePush, 0x01) }

// SetCamStabilizer switches image stabilization
func (c *Camera) SetCamStabilizer(on bool) error { return c.SetOnOff(Stabilizer, on) }

// CamStabilizer reports whether image stabilization is on
func (c *Camera) CamStabilizer() (bool, error) { return c.OnOff(Stabilizer) }

// ZoomTele starts zooming in at standard speed
func (c *Camera) ZoomTele() error { return c.Trigger(ZoomDrive, DriveTele) }

// ZoomWide starts zooming out at standard speed
func (c *Camera) ZoomWide() error { return c.Trigger(ZoomDrive, DriveWide) }

// ZoomStop stops a zoom drive
func (c *Camera) ZoomStop() error { return c.Trigger(ZoomDrive, DriveStop) }

// ZoomTeleSpeed zooms in at speed 0 (slow) to 7 (fast)
func (c *Camera) ZoomTeleSpeed(speed byte) error {
	if speed > maxDriveSpeed {
		return fmt.Errorf("zoom speed %d out of range 0-%d", speed, maxDriveSpeed)
	}
	return c.Trigger(ZoomDrive, driveTeleVariable|speed)
}

// ZoomWideSpeed zooms out at speed 0 (slow) to 7 (fast)
func (c *Camera) ZoomWideSpeed(speed byte) error {
	if speed > maxDriveSpeed {
		return fmt.Errorf("zoom speed %d out of range 0-%d", speed, maxDriveSpeed)
	}
	return c.Trigger(ZoomDrive, driveWideVariable|speed)
}

// SetZoomFocusValue sets zoom and focus positions in one message
func (c *Camera) SetZoomFocusValue(zoom, focus uint16) error {
	p := NewCommand(CategoryCamera1, ZoomPosition.Code).AppendNibbles16(zoom).AppendNibbles16(focus)
	_, err := c.writeRead(p.Bytes())
	if err != nil {
		return fmt.Errorf("zoom/focus: %w", err)
	}
	return nil
}

// Memory resets, stores, or recalls a preset slot
func (c *Camera) Memory(action MemoryAction, slot byte) error {
	if slot > MaxMemorySlot {
		return fmt.Errorf("memory slot %d out of range 0-%d", slot, MaxMemorySlot)
	}
	p := NewCommand(CategoryCamera1, memoryCode).AppendByte(byte(action)).AppendByte(slot)
	_, err := c.writeRead(p.Bytes())
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	return nil
}

// PanTiltDrive moves the head continuously until stopped
func (c *Camera) PanTiltDrive(panSpeed, tiltSpeed, panDir, tiltDir byte) error {
	if panSpeed > MaxPanSpeed || tiltSpeed > MaxTiltSpeed {
		return fmt.Errorf("pan/tilt speed %d/%d out of range", panSpeed, tiltSpeed)
	}
	p := NewCommand(CategoryPanTilt, panTiltDriveCode).
		AppendByte(panSpeed).AppendByte(tiltSpeed).
		AppendByte(panDir).AppendByte(tiltDir)
	_, err := c.writeRead(p.Bytes())
	if err != nil {
		return fmt.Errorf("pan/tilt drive: %w", err)
	}
	return nil
}

// SetPanTiltAbsolute moves the head to an absolute position. Positions are
// signed; negative values go out in two's complement.
func (c *Camera) SetPanTiltAbsolute(panSpeed, tiltSpeed byte, pan, tilt int16) error {
	if panSpeed > MaxPanSpeed || tiltSpeed > MaxTiltSpeed {
		return fmt.Errorf("pan/tilt speed %d/%d out of range", panSpeed, tiltSpeed)
	}
	p := NewCommand(CategoryPanTilt, panTiltAbsoluteCode).
		AppendByte(panSpeed).AppendByte(tiltSpeed).
		AppendNibbles16(uint16(pan)).AppendNibbles16(uint16(tilt))
	_, err := c.writeRead(p.Bytes())
	if err != nil {
		return fmt.Errorf("pan/tilt absolute: %w", err)
	}
	return nil
}

// PanTiltHome returns the head to its home position
func (c *Camera) PanTiltHome() error {
	_, err := c.writeRead(NewCommand(CategoryPanTilt, panTiltHomeCode).Bytes())
	if err != nil {
		return fmt.Errorf("pan/tilt home: %w", err)
	}
	return nil
}

// PanTiltReset re-initializes the head
func (c *Camera) PanTiltReset() error {
	_, err := c.writeRead(NewCommand(CategoryPanTilt, panTiltResetCode).Bytes())
	if err != nil {
		return fmt.Errorf("pan/tilt reset: %w", err)
	}
	return nil
}

// PanTiltPosition returns the signed pan and tilt positions
func (c *Camera) PanTiltPosition() (pan, tilt int16, err error) {
	reply, err := c.writeRead(NewInquiry(CategoryPanTilt, panTiltPositionCode).Bytes())
	if err != nil {
		return 0, 0, fmt.Errorf("pan/tilt position: %w", err)
	}
	p, err := Uint16At(reply, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("pan/tilt position: %w", err)
	}
	t, err := Uint16At(reply, 4)
	if err != nil {
		return 0, 0, fmt.Errorf("pan/tilt position: %w", err)
	}
	return int16(p), int16(t), nil
}
