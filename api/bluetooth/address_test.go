package bluetooth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
)

func TestParseMAC(t *testing.T) {
	mac, err := ParseMAC("00:1a:7d:DA:71:13")
	require.NoError(t, err)

	assert.Equal(t, MacAddress{0x00, 0x1a, 0x7d, 0xda, 0x71, 0x13}, mac)
	assert.Equal(t, "00:1A:7D:DA:71:13", mac.String())
	assert.Equal(t, [6]byte{0x13, 0x71, 0xda, 0x7d, 0x1a, 0x00}, mac.Reversed())

	dashed, err := ParseMAC("00-1A-7D-DA-71-13")
	require.NoError(t, err)
	assert.Equal(t, mac, dashed)
}

func TestParseMACInvalid(t *testing.T) {
	for _, input := range []string{"", "44585484", "00:1A:7D:DA:71", "00:1A:7D:DA:71:1", "00:1A:7D:DA:71:ZZ"} {
		_, err := ParseMAC(input)
		assert.ErrorIs(t, err, errorkinds.ErrInvalidAddress, "ParseMAC(%q)", input)
	}
}

func TestMacAddressText(t *testing.T) {
	var mac MacAddress
	require.NoError(t, mac.UnmarshalText([]byte("AA:BB:CC:DD:EE:FF")))

	text, err := mac.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", string(text))

	require.NoError(t, mac.UnmarshalText(nil))
	assert.True(t, mac.IsNil())
	assert.Equal(t, "", mac.String())
}

func TestControllerState(t *testing.T) {
	assert.Equal(t, "5", StatePoweredOn.Payload())
	assert.Equal(t, "3", StateUnauthorized.Payload())
	assert.True(t, StatePoweredOn.Available())
	assert.False(t, StatePoweredOff.Available())
	assert.Equal(t, "unknown", ControllerState(42).String())
}

func TestEventNames(t *testing.T) {
	for _, id := range Events() {
		assert.Equal(t, id, ParseEventID(id.String()))
	}

	assert.Equal(t, "OnTrameReceived", EventTrameReceived.String())
	assert.Equal(t, EventNone, ParseEventID("SomethingElse"))
}
