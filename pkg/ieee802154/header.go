package ieee802154

import (
	"encoding/binary"
	"fmt"
)

// Header is the MAC frame header: the fixed prefix {FCF, sequence, PAN} followed
// by the addressing fields selected by the frame control field.
//
// PAN is the first PAN identifier on the wire. It is the destination PAN when a
// destination address is present and the source PAN otherwise. SrcPAN is only
// carried when both addresses are present and IntraPAN is not set; in every
// other case it is zero after decoding and ignored when encoding.
type Header struct {
	FrameControl FrameControl
	Seq          uint8
	PAN          uint16
	DstAddr      Address
	SrcPAN       uint16
	SrcAddr      Address
}

// HeaderLen returns the encoded header length implied by the frame control field.
func HeaderLen(fc FrameControl) int {
	n := HeaderPrefixLen + fc.DstAddrMode.Len() + fc.SrcAddrMode.Len()
	if fc.HasSrcPAN() {
		n += 2
	}
	return n
}

// Len returns the encoded length of the header.
func (h *Header) Len() int {
	return HeaderLen(h.FrameControl)
}

// AppendBinary appends the encoded header to b.
func (h *Header) AppendBinary(b []byte) ([]byte, error) {
	b, err := h.FrameControl.AppendBinary(b)
	if err != nil {
		return b, err
	}
	b = append(b, h.Seq)
	b = binary.LittleEndian.AppendUint16(b, h.PAN)
	b = appendAddress(b, h.FrameControl.DstAddrMode, h.DstAddr)
	if h.FrameControl.HasSrcPAN() {
		b = binary.LittleEndian.AppendUint16(b, h.SrcPAN)
	}
	b = appendAddress(b, h.FrameControl.SrcAddrMode, h.SrcAddr)
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, h.Len()))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Trailing octets are an error.
func (h *Header) UnmarshalBinary(b []byte) error {
	decoded, n, err := DecodeHeader(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("%w: %d trailing octets after header", ErrMalformedHeader, len(b)-n)
	}
	*h = decoded
	return nil
}

// DecodeHeader decodes the header at the start of b and returns it together with
// the number of octets it occupies.
func DecodeHeader(b []byte) (Header, int, error) {
	if len(b) < HeaderPrefixLen {
		return Header{}, 0, fmt.Errorf("%w: %d octets, need at least %d", ErrMalformedHeader, len(b), HeaderPrefixLen)
	}
	fc, err := DecodeFrameControl(b)
	if err != nil {
		return Header{}, 0, err
	}
	n := HeaderLen(fc)
	if n > len(b) {
		return Header{}, 0, fmt.Errorf("%w: header needs %d octets, have %d", ErrMalformedHeader, n, len(b))
	}

	h := Header{
		FrameControl: fc,
		Seq:          b[2],
		PAN:          binary.LittleEndian.Uint16(b[3:5]),
	}
	pos := HeaderPrefixLen
	h.DstAddr = decodeAddress(b[pos:], fc.DstAddrMode)
	pos += fc.DstAddrMode.Len()
	if fc.HasSrcPAN() {
		h.SrcPAN = binary.LittleEndian.Uint16(b[pos:])
		pos += 2
	}
	h.SrcAddr = decodeAddress(b[pos:], fc.SrcAddrMode)
	pos += fc.SrcAddrMode.Len()
	return h, pos, nil
}

// Canonical returns a copy with every field the frame control field elides set to zero.
// Decoding an encoded header always yields its canonical form.
func (h Header) Canonical() Header {
	h.DstAddr = h.DstAddr.canonical(h.FrameControl.DstAddrMode)
	h.SrcAddr = h.SrcAddr.canonical(h.FrameControl.SrcAddrMode)
	if !h.FrameControl.HasSrcPAN() {
		h.SrcPAN = 0
	}
	return h
}

// DstPAN returns the destination PAN identifier, if the header carries one.
func (h *Header) DstPAN() (uint16, bool) {
	if h.FrameControl.DstAddrMode == AddrModeNone {
		return 0, false
	}
	return h.PAN, true
}

// SourcePAN returns the PAN identifier the source belongs to, resolving PAN ID compression.
func (h *Header) SourcePAN() (uint16, bool) {
	switch {
	case h.FrameControl.SrcAddrMode == AddrModeNone:
		return 0, false
	case h.FrameControl.HasSrcPAN():
		return h.SrcPAN, true
	default:
		return h.PAN, true
	}
}

func (h *Header) String() string {
	fc := h.FrameControl
	s := fmt.Sprintf("%s seq=%d pan=0x%04x dst=%s src=%s", fc.FrameType, h.Seq, h.PAN,
		h.DstAddr.Format(fc.DstAddrMode), h.SrcAddr.Format(fc.SrcAddrMode))
	if fc.HasSrcPAN() {
		s += fmt.Sprintf(" srcpan=0x%04x", h.SrcPAN)
	}
	if fc.SecurityEnabled {
		s += " secured"
	}
	if fc.AckRequired {
		s += " ackreq"
	}
	return s
}
