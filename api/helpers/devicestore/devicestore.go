package devicestore

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
)

// DeviceStore holds the devices found by the last enumeration,
// indexed by their connection identifier.
type DeviceStore struct {
	devices *xsync.MapOf[string, bluetooth.DeviceData]
}

// NewDeviceStore returns an empty device store.
func NewDeviceStore() DeviceStore {
	return DeviceStore{devices: xsync.NewMapOf[string, bluetooth.DeviceData]()}
}

// Replace replaces the contents of the store with the given devices.
// Devices without a connection identifier are skipped.
func (d DeviceStore) Replace(devices []bluetooth.DeviceData) {
	d.devices.Clear()
	for _, device := range devices {
		d.AddDevice(device)
	}
}

// AddDevice adds or updates a device.
func (d DeviceStore) AddDevice(device bluetooth.DeviceData) {
	if device.ConnectionID == "" {
		return
	}

	d.devices.Store(device.ConnectionID, device)
}

// Device returns the device with the given connection identifier.
func (d DeviceStore) Device(connectionID string) (bluetooth.DeviceData, bool) {
	return d.devices.Load(connectionID)
}

// Devices returns all the stored devices, sorted by connection identifier.
func (d DeviceStore) Devices() []bluetooth.DeviceData {
	devices := make([]bluetooth.DeviceData, 0, d.devices.Size())
	d.devices.Range(func(_ string, device bluetooth.DeviceData) bool {
		devices = append(devices, device)
		return true
	})

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ConnectionID < devices[j].ConnectionID
	})

	return devices
}

// Len returns the number of stored devices.
func (d DeviceStore) Len() int {
	return d.devices.Size()
}
