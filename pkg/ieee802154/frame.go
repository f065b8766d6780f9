package ieee802154

import (
	"encoding/binary"
	"fmt"
)

// Frame is a MAC frame without its frame check sequence. The payload is opaque:
// when security is enabled it is whatever the external cipher produced, MIC included.
type Frame struct {
	Header   Header
	Security *AuxSecurityHeader
	Payload  []byte
}

// Len returns the encoded frame length.
func (f *Frame) Len() int {
	n := f.Header.Len() + len(f.Payload)
	if f.Security != nil {
		if l, err := f.Security.Len(); err == nil {
			n += l
		}
	}
	return n
}

// AppendBinary appends the encoded frame to b. The auxiliary security header is
// written iff the frame control field has SecurityEnabled set.
func (f *Frame) AppendBinary(b []byte) ([]byte, error) {
	start := len(b)
	b, err := f.Header.AppendBinary(b)
	if err != nil {
		return b[:start], err
	}
	switch {
	case f.Header.FrameControl.SecurityEnabled && f.Security == nil:
		return b[:start], fmt.Errorf("%w: security enabled without auxiliary security header", ErrInvalidArgument)
	case !f.Header.FrameControl.SecurityEnabled && f.Security != nil:
		return b[:start], fmt.Errorf("%w: auxiliary security header on an unsecured frame", ErrInvalidArgument)
	case f.Security != nil:
		if b, err = f.Security.AppendBinary(b); err != nil {
			return b[:start], err
		}
	}
	b = append(b, f.Payload...)
	if len(b)-start > MacMTU {
		return b[:start], fmt.Errorf("%w: frame of %d octets exceeds MAC MTU %d", ErrInvalidArgument, len(b)-start, MacMTU)
	}
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *Frame) MarshalBinary() ([]byte, error) {
	return f.AppendBinary(make([]byte, 0, f.Len()))
}

// DecodeFrame decodes a MAC frame without FCS. The payload aliases b.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) > MacMTU {
		return Frame{}, fmt.Errorf("%w: frame of %d octets exceeds MAC MTU %d", ErrMalformedHeader, len(b), MacMTU)
	}
	h, n, err := DecodeHeader(b)
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Header: h}
	if h.FrameControl.SecurityEnabled {
		aux, m, err := DecodeAuxSecurityHeader(b[n:])
		if err != nil {
			return Frame{}, err
		}
		f.Security = &aux
		n += m
	}
	f.Payload = b[n:]
	return f, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The payload is copied.
func (f *Frame) UnmarshalBinary(b []byte) error {
	decoded, err := DecodeFrame(b)
	if err != nil {
		return err
	}
	decoded.Payload = append([]byte(nil), decoded.Payload...)
	*f = decoded
	return nil
}

// FCS computes the 16-bit frame check sequence (ITU-T CRC-16, reflected, zero initial value).
func FCS(b []byte) uint16 {
	var crc uint16
	for _, c := range b {
		crc ^= uint16(c)
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// AppendFCS appends the frame check sequence of b to b.
func AppendFCS(b []byte) []byte {
	return binary.LittleEndian.AppendUint16(b, FCS(b))
}

// CheckFCS verifies the trailing frame check sequence and returns the frame without it.
func CheckFCS(b []byte) ([]byte, error) {
	if len(b) < MacOverhead {
		return nil, fmt.Errorf("%w: %d octets cannot carry a frame check sequence", ErrMalformedHeader, len(b))
	}
	body := b[:len(b)-MacOverhead]
	want := binary.LittleEndian.Uint16(b[len(b)-MacOverhead:])
	if got := FCS(body); got != want {
		return nil, fmt.Errorf("%w: frame check sequence 0x%04x, computed 0x%04x", ErrMalformedHeader, want, got)
	}
	return body, nil
}
