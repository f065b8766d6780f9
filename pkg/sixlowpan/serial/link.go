package serial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

const (
	start1     = 0x94
	start2     = 0xc3
	maxPDULen  = 512
	headerSize = 4
)

var errPacketTooLong = errors.New("packet too long")

// host -> radio field numbers
const (
	reqTransmit     protowire.Number = 1
	reqGetAddrExt   protowire.Number = 2
	reqGetPANID     protowire.Number = 3
	reqGetAddrShort protowire.Number = 4
	reqSetAddrShort protowire.Number = 5
	fieldRequestID  protowire.Number = 15
)

// radio -> host field numbers
const (
	respFrame          protowire.Number = 1
	respAddrExt        protowire.Number = 2
	respPANID          protowire.Number = 3
	respAddrShort      protowire.Number = 4
	respResult         protowire.Number = 5
	respAddrConfigured protowire.Number = 6
)

type opKind int

const (
	opTransmit opKind = iota + 1
	opGetAddrExt
	opGetPANID
	opGetAddrShort
	opSetAddrShort
)

// toRadio is one host request.
type toRadio struct {
	ID    uint32
	Op    opKind
	Frame []byte
	Addr  uint16
}

func (m *toRadio) marshal() []byte {
	var b []byte
	switch m.Op {
	case opTransmit:
		b = protowire.AppendTag(b, reqTransmit, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Frame)
	case opGetAddrExt:
		b = appendVarintField(b, reqGetAddrExt, 1)
	case opGetPANID:
		b = appendVarintField(b, reqGetPANID, 1)
	case opGetAddrShort:
		b = appendVarintField(b, reqGetAddrShort, 1)
	case opSetAddrShort:
		b = appendVarintField(b, reqSetAddrShort, uint64(m.Addr))
	}
	return appendVarintField(b, fieldRequestID, uint64(m.ID))
}

func (m *toRadio) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v uint64, data []byte) {
		switch num {
		case reqTransmit:
			m.Op, m.Frame = opTransmit, append([]byte(nil), data...)
		case reqGetAddrExt:
			m.Op = opGetAddrExt
		case reqGetPANID:
			m.Op = opGetPANID
		case reqGetAddrShort:
			m.Op = opGetAddrShort
		case reqSetAddrShort:
			m.Op, m.Addr = opSetAddrShort, uint16(v)
		case fieldRequestID:
			m.ID = uint32(v)
		}
	})
}

// fromRadio is a response to a request (ID != 0), a received frame or an association event.
type fromRadio struct {
	ID            uint32
	Result        sixlowpan.ResultCode
	Frame         []byte
	AddrExt       []byte
	PANID         uint16
	HasPANID      bool
	AddrShort     uint16
	HasAddrShort  bool
	Configured    uint16
	HasConfigured bool
}

func (m *fromRadio) marshal() []byte {
	var b []byte
	if m.Frame != nil {
		b = protowire.AppendTag(b, respFrame, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Frame)
	}
	if m.AddrExt != nil {
		b = protowire.AppendTag(b, respAddrExt, protowire.BytesType)
		b = protowire.AppendBytes(b, m.AddrExt)
	}
	if m.HasPANID {
		b = appendVarintField(b, respPANID, uint64(m.PANID))
	}
	if m.HasAddrShort {
		b = appendVarintField(b, respAddrShort, uint64(m.AddrShort))
	}
	if m.Result != sixlowpan.ResultOK {
		b = appendVarintField(b, respResult, uint64(m.Result))
	}
	if m.HasConfigured {
		b = appendVarintField(b, respAddrConfigured, uint64(m.Configured))
	}
	if m.ID != 0 {
		b = appendVarintField(b, fieldRequestID, uint64(m.ID))
	}
	return b
}

func (m *fromRadio) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v uint64, data []byte) {
		switch num {
		case respFrame:
			m.Frame = append([]byte(nil), data...)
		case respAddrExt:
			m.AddrExt = append([]byte(nil), data...)
		case respPANID:
			m.PANID, m.HasPANID = uint16(v), true
		case respAddrShort:
			m.AddrShort, m.HasAddrShort = uint16(v), true
		case respResult:
			m.Result = sixlowpan.ResultCode(v)
		case respAddrConfigured:
			m.Configured, m.HasConfigured = uint16(v), true
		case fieldRequestID:
			m.ID = uint32(v)
		}
	})
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// consumeFields walks a protobuf-encoded message. Unknown fields are skipped.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, data []byte)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			fn(num, typ, v, nil)
			b = b[n:]
		case protowire.BytesType:
			data, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			fn(num, typ, 0, data)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// readPDU reads one framed PDU, resynchronising on the start octets.
func readPDU(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)

	for {
		_, err := io.ReadFull(r, header[:1])
		if err != nil {
			return nil, err
		}
		if header[0] != start1 {
			continue
		}

		_, err = io.ReadFull(r, header[1:2])
		if err != nil {
			return nil, err
		}
		if header[1] != start2 {
			continue
		}

		_, err = io.ReadFull(r, header[2:])
		if err != nil {
			return nil, err
		}

		pduLen := int(binary.BigEndian.Uint16(header[2:4]))
		if pduLen > maxPDULen {
			continue
		}

		data := make([]byte, pduLen)
		_, err = io.ReadFull(r, data)
		return data, err
	}
}

// writePDU writes one framed PDU in a single Write call.
func writePDU(w io.Writer, data []byte) error {
	if len(data) > maxPDULen {
		return fmt.Errorf("%w: %d octets", errPacketTooLong, len(data))
	}

	buf := make([]byte, headerSize, headerSize+len(data))
	buf[0], buf[1] = start1, start2
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(data)))
	_, err := w.Write(append(buf, data...))
	return err
}
