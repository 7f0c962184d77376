package bluetooth

import (
	"encoding/hex"
	"strings"

	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
)

// MacAddress holds a Bluetooth MAC address, most significant byte first.
type MacAddress [6]byte

// ParseMAC parses an address of the form "AA:BB:CC:DD:EE:FF".
// Dashes are accepted as separators as well.
func ParseMAC(address string) (MacAddress, error) {
	var mac MacAddress

	parts := strings.FieldsFunc(address, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != len(mac) {
		return mac, errorkinds.ErrInvalidAddress
	}

	for i, part := range parts {
		if len(part) != 2 {
			return mac, errorkinds.ErrInvalidAddress
		}

		b, err := hex.DecodeString(part)
		if err != nil {
			return mac, errorkinds.ErrInvalidAddress
		}

		mac[i] = b[0]
	}

	return mac, nil
}

// IsNil reports whether the address is unset.
func (m MacAddress) IsNil() bool {
	return m == MacAddress{}
}

// Reversed returns the address in the little-endian order used by HCI sockets.
func (m MacAddress) Reversed() [6]byte {
	var r [6]byte
	for i := range m {
		r[i] = m[len(m)-1-i]
	}

	return r
}

// String converts the address to its "AA:BB:CC:DD:EE:FF" form.
func (m MacAddress) String() string {
	if m.IsNil() {
		return ""
	}

	sb := strings.Builder{}
	sb.Grow(17)

	for i, b := range m {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}

	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (m MacAddress) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MacAddress) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = MacAddress{}
		return nil
	}

	mac, err := ParseMAC(string(text))
	if err != nil {
		return err
	}

	*m = mac

	return nil
}
