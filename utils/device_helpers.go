package utils

import (
	"fmt"
	"log/slog"

	"github.com/notargets/gocca"
)

// DeviceBackends is the fallback chain tried by CreateTestDevice, parallel
// backends first
var DeviceBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// CreateDevice opens the device described by an OCCA JSON property string
func CreateDevice(props string) (*gocca.OCCADevice, error) {
	device, err := gocca.NewDevice(props)
	if err != nil {
		return nil, fmt.Errorf("creating OCCA device %s: %w", props, err)
	}
	slog.Info("created device", "mode", device.Mode())
	return device, nil
}

// CreateTestDevice creates a Device for testing, preferring parallel backends
func CreateTestDevice() *gocca.OCCADevice {
	for _, props := range DeviceBackends {
		device, err := CreateDevice(props)
		if err == nil {
			return device
		}
		slog.Debug("device backend unavailable", "props", props, "err", err)
	}
	panic("Failed to create any Device")
}
