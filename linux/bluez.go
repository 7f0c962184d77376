package linux

import (
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
)

const (
	bluezBusName = "org.bluez"

	adapterInterface       = "org.bluez.Adapter1"
	deviceInterface        = "org.bluez.Device1"
	propertiesInterface    = "org.freedesktop.DBus.Properties"
	objectManagerInterface = "org.freedesktop.DBus.ObjectManager"

	getManagedObjects = objectManagerInterface + ".GetManagedObjects"
	propertiesChanged = propertiesInterface + ".PropertiesChanged"
	interfacesAdded   = objectManagerInterface + ".InterfacesAdded"
	interfacesRemoved = objectManagerInterface + ".InterfacesRemoved"
)

// managedObjects holds the reply of the BlueZ object manager.
type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// adapterInfo holds the adapter that sessions are opened through.
type adapterInfo struct {
	path    dbus.ObjectPath
	powered bool
}

// findAdapter returns the first adapter, ordered by object path.
func findAdapter(objects managedObjects) (adapterInfo, bool) {
	paths := make([]string, 0, 1)
	for path, ifaces := range objects {
		if _, ok := ifaces[adapterInterface]; ok {
			paths = append(paths, string(path))
		}
	}
	if len(paths) == 0 {
		return adapterInfo{}, false
	}

	sort.Strings(paths)

	path := dbus.ObjectPath(paths[0])
	powered, _ := property[bool](objects[path][adapterInterface], "Powered")

	return adapterInfo{path: path, powered: powered}, true
}

// adapterState converts the adapter information to a controller state.
func adapterState(adapter adapterInfo, found bool) bluetooth.ControllerState {
	switch {
	case !found:
		return bluetooth.StateUnsupported
	case adapter.powered:
		return bluetooth.StatePoweredOn
	}

	return bluetooth.StatePoweredOff
}

// pairedDevices returns the paired devices of the adapter. If profile is not
// empty, only devices advertising the profile UUID are returned.
func pairedDevices(objects managedObjects, adapter dbus.ObjectPath, profile string) []bluetooth.DeviceData {
	devices := []bluetooth.DeviceData{}

	for _, ifaces := range objects {
		props, ok := ifaces[deviceInterface]
		if !ok {
			continue
		}

		if owner, _ := property[dbus.ObjectPath](props, "Adapter"); owner != adapter {
			continue
		}
		if paired, _ := property[bool](props, "Paired"); !paired {
			continue
		}
		if profile != "" && !hasProfile(props, profile) {
			continue
		}

		address, _ := property[string](props, "Address")
		mac, err := bluetooth.ParseMAC(address)
		if err != nil {
			continue
		}

		name, ok := property[string](props, "Alias")
		if !ok {
			name, _ = property[string](props, "Name")
		}

		devices = append(devices, bluetooth.DeviceData{
			ConnectionID: mac.String(),
			Name:         name,
			Address:      mac,
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ConnectionID < devices[j].ConnectionID
	})

	return devices
}

func hasProfile(props map[string]dbus.Variant, profile string) bool {
	uuids, _ := property[[]string](props, "UUIDs")
	for _, uuid := range uuids {
		if strings.EqualFold(uuid, profile) {
			return true
		}
	}

	return false
}

// property returns the value of a property if it holds a T.
func property[T any](props map[string]dbus.Variant, name string) (T, bool) {
	var value T

	v, ok := props[name]
	if !ok {
		return value, false
	}

	value, ok = v.Value().(T)

	return value, ok
}
