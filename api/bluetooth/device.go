package bluetooth

// DeviceData holds the information of an accessory that a controller can be bound to.
type DeviceData struct {
	// ConnectionID holds the opaque identifier passed to SetupController.
	// On Linux it is the Bluetooth MAC address of the device.
	ConnectionID string `json:"connectionId" codec:"connectionId"`

	// Name holds the human-readable name of the device, if known.
	Name string `json:"name,omitempty" codec:"name,omitempty"`

	// Manufacturer holds the manufacturer of the device, if known.
	Manufacturer string `json:"manufacturer,omitempty" codec:"manufacturer,omitempty"`

	// Address holds the Bluetooth MAC address of the device, if known.
	Address MacAddress `json:"address,omitempty" codec:"address,omitempty"`
}
