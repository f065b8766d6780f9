package ieee802154

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// EUI64 is an extended address in canonical (most significant octet first) order.
type EUI64 [8]byte

// ParseEUI64 parses "0011223344556677" or colon/dash separated notation.
func ParseEUI64(s string) (EUI64, error) {
	var e EUI64
	clean := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(clean) != 2*len(e) {
		return e, fmt.Errorf("%w: EUI-64 %q must have 8 octets", ErrInvalidArgument, s)
	}
	if _, err := hex.Decode(e[:], []byte(clean)); err != nil {
		return e, fmt.Errorf("%w: EUI-64 %q: %v", ErrInvalidArgument, s, err)
	}
	return e, nil
}

func (e EUI64) String() string {
	var sb strings.Builder
	for i, b := range e {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// Address holds the value of one addressing field. Which member is carried on the
// wire is decided by the addressing mode in the frame control field.
type Address struct {
	Short    uint16
	Extended EUI64
}

// ShortAddress returns an address carrying a 16-bit short address.
func ShortAddress(a uint16) Address {
	return Address{Short: a}
}

// ExtendedAddress returns an address carrying an EUI-64.
func ExtendedAddress(e EUI64) Address {
	return Address{Extended: e}
}

// Format renders the address for the given mode.
func (a Address) Format(mode AddrMode) string {
	switch mode {
	case AddrModeShort:
		return fmt.Sprintf("0x%04x", a.Short)
	case AddrModeExtended:
		return a.Extended.String()
	default:
		return "-"
	}
}

// canonical drops the member the mode does not carry.
func (a Address) canonical(mode AddrMode) Address {
	switch mode {
	case AddrModeShort:
		return Address{Short: a.Short}
	case AddrModeExtended:
		return Address{Extended: a.Extended}
	default:
		return Address{}
	}
}

func appendAddress(b []byte, mode AddrMode, a Address) []byte {
	switch mode {
	case AddrModeShort:
		return binary.LittleEndian.AppendUint16(b, a.Short)
	case AddrModeExtended:
		// extended addresses travel least significant octet first
		for i := len(a.Extended) - 1; i >= 0; i-- {
			b = append(b, a.Extended[i])
		}
	}
	return b
}

func decodeAddress(b []byte, mode AddrMode) Address {
	var a Address
	switch mode {
	case AddrModeShort:
		a.Short = binary.LittleEndian.Uint16(b)
	case AddrModeExtended:
		for i := range a.Extended {
			a.Extended[i] = b[len(a.Extended)-1-i]
		}
	}
	return a
}
