//go:build linux

package platform

import (
	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/config"
	"github.com/blocinbloc/native-bluetooth/linux"
	"github.com/blocinbloc/native-bluetooth/simulator"
)

// Driver returns a platform-specific accessory driver.
func Driver(cfg config.Configuration) (bluetooth.Driver, PlatformInfo) {
	if cfg.Simulate {
		return simulator.NewDriver(), NewPlatformInfo(SimulatorStack)
	}

	return linux.NewDriver(cfg), NewPlatformInfo(BluezStack)
}
