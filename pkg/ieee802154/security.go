package ieee802154

import (
	"encoding/binary"
	"fmt"
)

// SecurityLevel is the 3-bit security level of the security control field.
type SecurityLevel uint8

const (
	SecurityLevelNone SecurityLevel = iota
	SecurityLevelMIC32
	SecurityLevelMIC64
	SecurityLevelMIC128
	SecurityLevelENC
	SecurityLevelENCMIC32
	SecurityLevelENCMIC64
	SecurityLevelENCMIC128
)

// MICLen returns the length of the message integrity code the level appends to the payload.
func (l SecurityLevel) MICLen() int {
	switch l & 0x3 {
	case 1:
		return 4
	case 2:
		return 8
	case 3:
		return 16
	default:
		return 0
	}
}

// Encrypted reports whether the level encrypts the payload.
func (l SecurityLevel) Encrypted() bool {
	return l&0x4 != 0
}

func (l SecurityLevel) String() string {
	names := [...]string{"none", "mic-32", "mic-64", "mic-128", "enc", "enc-mic-32", "enc-mic-64", "enc-mic-128"}
	if int(l) < len(names) {
		return names[l]
	}
	return fmt.Sprintf("invalid(%d)", uint8(l))
}

// KeyIDMode selects the length of the key identifier field.
type KeyIDMode uint8

const (
	// KeyIDModeImplicit means the key is determined from the addresses.
	KeyIDModeImplicit KeyIDMode = iota
	// KeyIDModeIndex carries a 1-octet key index.
	KeyIDModeIndex
	// KeyIDModeSource4 carries a 4-octet key source and a key index.
	KeyIDModeSource4
	// KeyIDModeSource8 carries an 8-octet key source and a key index.
	KeyIDModeSource8
)

// MaxKeyIDLen is the upper bound of the key identifier field.
const MaxKeyIDLen = 9

var keyIDLens = [...]int{0, 1, 5, 9}

// KeyIDLen returns the wire length of the key identifier for the mode.
func KeyIDLen(mode KeyIDMode) (int, error) {
	if int(mode) >= len(keyIDLens) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidKeyIDMode, mode)
	}
	return keyIDLens[mode], nil
}

const (
	scfLevelMask     = 0x07
	scfKeyIDShift    = 3
	scfKeyIDMask     = 0x03
	auxFixedLen      = 1 + 4
	auxMaxLen        = auxFixedLen + MaxKeyIDLen
	frameCounterSize = 4
)

// SecurityControl is the security control field. The three reserved bits are
// written as zero and ignored on decode.
type SecurityControl struct {
	Level     SecurityLevel
	KeyIDMode KeyIDMode
}

// Byte packs the field into its octet.
func (sc SecurityControl) Byte() byte {
	return byte(sc.Level)&scfLevelMask | (byte(sc.KeyIDMode)&scfKeyIDMask)<<scfKeyIDShift
}

// ParseSecurityControl unpacks the security control octet.
func ParseSecurityControl(b byte) SecurityControl {
	return SecurityControl{
		Level:     SecurityLevel(b & scfLevelMask),
		KeyIDMode: KeyIDMode(b >> scfKeyIDShift & scfKeyIDMask),
	}
}

// AuxSecurityHeader is the auxiliary security header. It is present iff the
// frame control field has SecurityEnabled set. Only the first KeyIDLen(mode)
// octets of KeyIdentifier are significant; the rest must be zero.
type AuxSecurityHeader struct {
	Control       SecurityControl
	FrameCounter  uint32
	KeyIdentifier [MaxKeyIDLen]byte
}

// Len returns the encoded length or an error for an invalid key identifier mode.
func (a *AuxSecurityHeader) Len() (int, error) {
	n, err := KeyIDLen(a.Control.KeyIDMode)
	if err != nil {
		return 0, err
	}
	return auxFixedLen + n, nil
}

// AppendBinary appends the encoded auxiliary security header to b.
func (a *AuxSecurityHeader) AppendBinary(b []byte) ([]byte, error) {
	if a.Control.Level > SecurityLevelENCMIC128 {
		return b, fmt.Errorf("%w: security level %d", ErrInvalidArgument, a.Control.Level)
	}
	n, err := KeyIDLen(a.Control.KeyIDMode)
	if err != nil {
		return b, err
	}
	b = append(b, a.Control.Byte())
	b = binary.LittleEndian.AppendUint32(b, a.FrameCounter)
	return append(b, a.KeyIdentifier[:n]...), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (a *AuxSecurityHeader) MarshalBinary() ([]byte, error) {
	return a.AppendBinary(make([]byte, 0, auxMaxLen))
}

// DecodeAuxSecurityHeader decodes the auxiliary security header at the start of b.
// The key identifier length is taken from the decoded security control field.
func DecodeAuxSecurityHeader(b []byte) (AuxSecurityHeader, int, error) {
	if len(b) < auxFixedLen {
		return AuxSecurityHeader{}, 0, fmt.Errorf("%w: auxiliary security header needs %d octets, have %d",
			ErrMalformedHeader, auxFixedLen, len(b))
	}
	a := AuxSecurityHeader{
		Control:      ParseSecurityControl(b[0]),
		FrameCounter: binary.LittleEndian.Uint32(b[1 : 1+frameCounterSize]),
	}
	n, err := KeyIDLen(a.Control.KeyIDMode)
	if err != nil {
		return AuxSecurityHeader{}, 0, err
	}
	if len(b) < auxFixedLen+n {
		return AuxSecurityHeader{}, 0, fmt.Errorf("%w: key identifier needs %d octets, have %d",
			ErrMalformedHeader, n, len(b)-auxFixedLen)
	}
	copy(a.KeyIdentifier[:], b[auxFixedLen:auxFixedLen+n])
	return a, auxFixedLen + n, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Trailing octets are an error.
func (a *AuxSecurityHeader) UnmarshalBinary(b []byte) error {
	decoded, n, err := DecodeAuxSecurityHeader(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("%w: %d trailing octets after auxiliary security header", ErrMalformedHeader, len(b)-n)
	}
	*a = decoded
	return nil
}

// KeyIndex returns the key index, the last octet of the key identifier.
func (a *AuxSecurityHeader) KeyIndex() (uint8, bool) {
	n, err := KeyIDLen(a.Control.KeyIDMode)
	if err != nil || n == 0 {
		return 0, false
	}
	return a.KeyIdentifier[n-1], true
}

// KeySource returns the key source octets preceding the key index, if the mode carries one.
func (a *AuxSecurityHeader) KeySource() []byte {
	n, err := KeyIDLen(a.Control.KeyIDMode)
	if err != nil || n <= 1 {
		return nil
	}
	return a.KeyIdentifier[:n-1]
}

// SetKey fills the key identifier from a key source and index, selecting the
// key identifier mode from the source length (0, 4 or 8 octets).
func (a *AuxSecurityHeader) SetKey(source []byte, index uint8) error {
	var mode KeyIDMode
	switch len(source) {
	case 0:
		mode = KeyIDModeIndex
	case 4:
		mode = KeyIDModeSource4
	case 8:
		mode = KeyIDModeSource8
	default:
		return fmt.Errorf("%w: key source must be 0, 4 or 8 octets, got %d", ErrInvalidArgument, len(source))
	}
	a.Control.KeyIDMode = mode
	a.KeyIdentifier = [MaxKeyIDLen]byte{}
	copy(a.KeyIdentifier[:], source)
	a.KeyIdentifier[len(source)] = index
	return nil
}
