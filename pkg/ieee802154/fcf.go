package ieee802154

import (
	"encoding/binary"
	"fmt"
)

// FrameType is the 3-bit frame type of the frame control field.
type FrameType uint8

const (
	FrameTypeBeacon FrameType = iota
	FrameTypeData
	FrameTypeAck
	FrameTypeCommand
)

// Valid reports whether the frame type is one of the four defined types.
func (t FrameType) Valid() bool {
	return t <= FrameTypeCommand
}

func (t FrameType) String() string {
	switch t {
	case FrameTypeBeacon:
		return "beacon"
	case FrameTypeData:
		return "data"
	case FrameTypeAck:
		return "ack"
	case FrameTypeCommand:
		return "command"
	default:
		return fmt.Sprintf("reserved(%d)", uint8(t))
	}
}

// AddrMode selects presence and width of an address in the addressing fields.
type AddrMode uint8

const (
	AddrModeNone AddrMode = iota
	AddrModeReserved
	AddrModeShort
	AddrModeExtended
)

// Len returns the number of address octets carried for the mode.
func (m AddrMode) Len() int {
	switch m {
	case AddrModeShort:
		return 2
	case AddrModeExtended:
		return 8
	default:
		return 0
	}
}

func (m AddrMode) String() string {
	switch m {
	case AddrModeNone:
		return "none"
	case AddrModeShort:
		return "short"
	case AddrModeExtended:
		return "extended"
	default:
		return "reserved"
	}
}

// FrameVersion is the 2-bit frame version.
type FrameVersion uint8

const (
	FrameVersion2003 FrameVersion = iota
	FrameVersion2006
	FrameVersion2015
)

// bit positions inside the little-endian FCF word
const (
	fcfFrameTypeShift     = 0
	fcfSecurityShift      = 3
	fcfPendingShift       = 4
	fcfAckRequiredShift   = 5
	fcfIntraPANShift      = 6
	fcfDstAddrModeShift   = 10
	fcfFrameVersionShift  = 12
	fcfSrcAddrModeShift   = 14
	fcfFrameTypeMask      = 0x7
	fcfTwoBitMask         = 0x3
	frameControlFieldSize = 2
)

// FrameControl is the frame control field. Reserved bits are not modelled:
// they are written as zero and ignored when decoding.
type FrameControl struct {
	FrameType       FrameType
	SecurityEnabled bool
	FramePending    bool
	AckRequired     bool
	// IntraPAN is the PAN ID compression flag: the source PAN is elided.
	IntraPAN     bool
	DstAddrMode  AddrMode
	FrameVersion FrameVersion
	SrcAddrMode  AddrMode
}

// Uint16 packs the field into its 16-bit value.
func (fc FrameControl) Uint16() uint16 {
	v := uint16(fc.FrameType&fcfFrameTypeMask) << fcfFrameTypeShift
	v |= boolBit(fc.SecurityEnabled) << fcfSecurityShift
	v |= boolBit(fc.FramePending) << fcfPendingShift
	v |= boolBit(fc.AckRequired) << fcfAckRequiredShift
	v |= boolBit(fc.IntraPAN) << fcfIntraPANShift
	v |= uint16(fc.DstAddrMode&fcfTwoBitMask) << fcfDstAddrModeShift
	v |= uint16(fc.FrameVersion&fcfTwoBitMask) << fcfFrameVersionShift
	v |= uint16(fc.SrcAddrMode&fcfTwoBitMask) << fcfSrcAddrModeShift
	return v
}

// ParseFrameControl unpacks a 16-bit value without validating it.
func ParseFrameControl(v uint16) FrameControl {
	return FrameControl{
		FrameType:       FrameType(v >> fcfFrameTypeShift & fcfFrameTypeMask),
		SecurityEnabled: v>>fcfSecurityShift&1 == 1,
		FramePending:    v>>fcfPendingShift&1 == 1,
		AckRequired:     v>>fcfAckRequiredShift&1 == 1,
		IntraPAN:        v>>fcfIntraPANShift&1 == 1,
		DstAddrMode:     AddrMode(v >> fcfDstAddrModeShift & fcfTwoBitMask),
		FrameVersion:    FrameVersion(v >> fcfFrameVersionShift & fcfTwoBitMask),
		SrcAddrMode:     AddrMode(v >> fcfSrcAddrModeShift & fcfTwoBitMask),
	}
}

// Validate rejects reserved frame types and addressing modes.
func (fc FrameControl) Validate() error {
	if !fc.FrameType.Valid() {
		return fmt.Errorf("%w: frame type %d", ErrReservedField, fc.FrameType)
	}
	if fc.DstAddrMode == AddrModeReserved || fc.DstAddrMode > AddrModeExtended {
		return fmt.Errorf("%w: destination addressing mode %d", ErrReservedField, fc.DstAddrMode)
	}
	if fc.SrcAddrMode == AddrModeReserved || fc.SrcAddrMode > AddrModeExtended {
		return fmt.Errorf("%w: source addressing mode %d", ErrReservedField, fc.SrcAddrMode)
	}
	if fc.FrameVersion > fcfTwoBitMask {
		return fmt.Errorf("%w: frame version %d does not fit in two bits", ErrInvalidArgument, fc.FrameVersion)
	}
	return nil
}

// AppendBinary appends the two FCF octets in wire order.
func (fc FrameControl) AppendBinary(b []byte) ([]byte, error) {
	if err := fc.Validate(); err != nil {
		return b, err
	}
	return binary.LittleEndian.AppendUint16(b, fc.Uint16()), nil
}

// DecodeFrameControl decodes and validates the first two octets of b.
func DecodeFrameControl(b []byte) (FrameControl, error) {
	if len(b) < frameControlFieldSize {
		return FrameControl{}, fmt.Errorf("%w: %d octets, need %d for the frame control field",
			ErrMalformedHeader, len(b), frameControlFieldSize)
	}
	fc := ParseFrameControl(binary.LittleEndian.Uint16(b))
	if err := fc.Validate(); err != nil {
		return FrameControl{}, err
	}
	return fc, nil
}

// HasSrcPAN reports whether a separate source PAN identifier follows the destination address.
func (fc FrameControl) HasSrcPAN() bool {
	return fc.DstAddrMode != AddrModeNone && fc.SrcAddrMode != AddrModeNone && !fc.IntraPAN
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
