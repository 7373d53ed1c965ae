// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
)

// CameraInfo is the decoded reply to the device-type inquiry
type CameraInfo struct {
	VendorID   uint16
	ModelID    uint16
	ROMVersion uint16
	Socket     byte
}

// vendorNames maps vendor ids to names
var vendorNames = map[uint16]string{
	VendorSony: "Sony",
}

// modelNames maps model ids to names
var modelNames = map[uint16]string{
	0x0402: "EVI-D30",
	0x0403: "EVI-D31",
	0x040D: "EVI-D100",
	0x040E: "EVI-D70",
	0x0411: "EVI-HD1",
}

// Vendor returns the vendor name or "unknown"
func (i CameraInfo) Vendor() string {
	if name, ok := vendorNames[i.VendorID]; ok {
		return name
	}
	return "unknown"
}

// Model returns the model name or "unknown"
func (i CameraInfo) Model() string {
	if name, ok := modelNames[i.ModelID]; ok {
		return name
	}
	return "unknown"
}

func (i CameraInfo) String() string {
	return fmt.Sprintf("%s %s (vendor 0x%04X, model 0x%04X, ROM 0x%04X, socket %d)",
		i.Vendor(), i.Model(), i.VendorID, i.ModelID, i.ROMVersion, i.Socket)
}

// CameraInfo queries vendor, model, ROM version and socket count. A reply
// where neither vendor nor model is known is rejected.
func (c *Camera) CameraInfo() (CameraInfo, error) {
	reply, err := c.writeRead(NewInquiry(CategoryInterface, deviceTypeCode).Bytes())
	if err != nil {
		return CameraInfo{}, fmt.Errorf("camera info: %w", err)
	}
	return parseCameraInfo(reply)
}

func parseCameraInfo(reply []byte) (CameraInfo, error) {
	var info CameraInfo
	var err error

	if info.VendorID, err = BigEndian16At(reply, 0); err != nil {
		return CameraInfo{}, fmt.Errorf("camera info: %w", err)
	}
	if info.ModelID, err = BigEndian16At(reply, 2); err != nil {
		return CameraInfo{}, fmt.Errorf("camera info: %w", err)
	}
	if info.ROMVersion, err = BigEndian16At(reply, 4); err != nil {
		return CameraInfo{}, fmt.Errorf("camera info: %w", err)
	}
	if info.Socket, err = Uint8At(reply, 6); err != nil {
		return CameraInfo{}, fmt.Errorf("camera info: %w", err)
	}

	if info.Vendor() == "unknown" && info.Model() == "unknown" {
		return CameraInfo{}, fmt.Errorf("%w: vendor 0x%04X, model 0x%04X", ErrUnknownDevice, info.VendorID, info.ModelID)
	}
	return info, nil
}
