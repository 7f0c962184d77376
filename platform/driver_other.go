//go:build !linux

package platform

import (
	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/config"
	"github.com/blocinbloc/native-bluetooth/simulator"
)

// Driver returns a platform-specific accessory driver.
// Only the simulated driver is available on this platform.
func Driver(_ config.Configuration) (bluetooth.Driver, PlatformInfo) {
	return simulator.NewDriver(), NewPlatformInfo(SimulatorStack)
}
