package ieee802154

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeaderIntraPANShort(t *testing.T) {
	data := []byte{
		0x41, 0x88, // FCF: data, intra-PAN, short dst, short src
		0x2a,       // sequence
		0xcd, 0xab, // PAN 0xabcd
		0xff, 0xff, // dst 0xffff
		0x34, 0x12, // src 0x1234
		0xde, 0xad, // payload
	}

	h, n, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, FrameTypeData, h.FrameControl.FrameType)
	assert.True(t, h.FrameControl.IntraPAN)
	assert.False(t, h.FrameControl.SecurityEnabled)
	assert.Equal(t, uint8(0x2a), h.Seq)
	assert.Equal(t, uint16(0xabcd), h.PAN)
	assert.Equal(t, uint16(0xffff), h.DstAddr.Short)
	assert.Equal(t, uint16(0x1234), h.SrcAddr.Short)
	assert.Zero(t, h.SrcPAN)

	pan, ok := h.SourcePAN()
	assert.True(t, ok)
	assert.Equal(t, uint16(0xabcd), pan)
}

func TestDecodeHeaderDualPAN(t *testing.T) {
	data := []byte{
		0x01, 0x98, // FCF: data, short dst, 2006, short src, no PAN compression
		0x07,       // sequence
		0x22, 0x11, // dst PAN 0x1122
		0x02, 0x00, // dst 0x0002
		0x44, 0x33, // src PAN 0x3344
		0x01, 0x00, // src 0x0001
	}

	h, n, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, FrameVersion2006, h.FrameControl.FrameVersion)
	assert.Equal(t, uint16(0x1122), h.PAN)
	assert.Equal(t, uint16(0x3344), h.SrcPAN)
	assert.Equal(t, uint16(0x0002), h.DstAddr.Short)
	assert.Equal(t, uint16(0x0001), h.SrcAddr.Short)

	pan, ok := h.SourcePAN()
	assert.True(t, ok)
	assert.Equal(t, uint16(0x3344), pan)
}

func TestDecodeHeaderExtendedAddresses(t *testing.T) {
	data := []byte{
		0x41, 0xcc, // FCF: data, intra-PAN, extended dst and src
		0x01,       // sequence
		0x34, 0x12, // PAN
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // dst, LSB first
		0x18, 0x17, 0x16, 0x15, 0x14, 0x13, 0x12, 0x11, // src, LSB first
	}

	h, n, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 21, n)
	assert.Equal(t, EUI64{1, 2, 3, 4, 5, 6, 7, 8}, h.DstAddr.Extended)
	assert.Equal(t, EUI64{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18}, h.SrcAddr.Extended)
}

func TestDecodeHeaderSourceOnly(t *testing.T) {
	// no destination: the prefix PAN is the source PAN
	data := []byte{0x03, 0x80, 0x09, 0xcd, 0xab, 0x34, 0x12}

	h, n, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, FrameTypeCommand, h.FrameControl.FrameType)
	_, ok := h.DstPAN()
	assert.False(t, ok)
	pan, ok := h.SourcePAN()
	assert.True(t, ok)
	assert.Equal(t, uint16(0xabcd), pan)
}

func TestDecodeHeaderTooShort(t *testing.T) {
	for n := 0; n < HeaderPrefixLen; n++ {
		_, _, err := DecodeHeader(make([]byte, n))
		assert.ErrorIs(t, err, ErrMalformedHeader, "length %d", n)
	}
}

func TestDecodeHeaderTruncatedAddresses(t *testing.T) {
	data := []byte{0x41, 0x88, 0x2a, 0xcd, 0xab, 0xff, 0xff, 0x34}
	_, _, err := DecodeHeader(data)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestDecodeHeaderReservedFrameType(t *testing.T) {
	for ft := byte(4); ft <= 7; ft++ {
		_, _, err := DecodeHeader([]byte{ft, 0x00, 0x00, 0x00, 0x00})
		assert.ErrorIs(t, err, ErrReservedField, "frame type %d", ft)
	}
}

func TestHeaderEncode(t *testing.T) {
	h := Header{
		FrameControl: FrameControl{
			FrameType:   FrameTypeData,
			AckRequired: true,
			IntraPAN:    true,
			DstAddrMode: AddrModeShort,
			SrcAddrMode: AddrModeExtended,
		},
		Seq:     0x10,
		PAN:     0xbeef,
		DstAddr: ShortAddress(0x0001),
		SrcAddr: ExtendedAddress(EUI64{0, 0x12, 0x4b, 0, 1, 2, 3, 4}),
	}

	b, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x61, 0xc8,
		0x10,
		0xef, 0xbe,
		0x01, 0x00,
		0x04, 0x03, 0x02, 0x01, 0x00, 0x4b, 0x12, 0x00,
	}, b)
	assert.Equal(t, h.Len(), len(b))
}

func TestHeaderRoundTrip(t *testing.T) {
	modes := []AddrMode{AddrModeNone, AddrModeShort, AddrModeExtended}
	for ft := FrameTypeBeacon; ft <= FrameTypeCommand; ft++ {
		for _, dam := range modes {
			for _, sam := range modes {
				for _, intra := range []bool{false, true} {
					for v := FrameVersion2003; v <= FrameVersion2015; v++ {
						h := Header{
							FrameControl: FrameControl{
								FrameType:       ft,
								SecurityEnabled: intra,
								FramePending:    !intra,
								AckRequired:     v == FrameVersion2006,
								IntraPAN:        intra,
								DstAddrMode:     dam,
								FrameVersion:    v,
								SrcAddrMode:     sam,
							},
							Seq:     uint8(ft)<<4 | uint8(v),
							PAN:     0x1234,
							DstAddr: Address{Short: 0xaaaa, Extended: EUI64{1, 2, 3, 4, 5, 6, 7, 8}},
							SrcPAN:  0x5678,
							SrcAddr: Address{Short: 0xbbbb, Extended: EUI64{8, 7, 6, 5, 4, 3, 2, 1}},
						}.Canonical()

						b, err := h.MarshalBinary()
						require.NoError(t, err)
						require.Len(t, b, HeaderLen(h.FrameControl))

						var got Header
						require.NoError(t, got.UnmarshalBinary(b))
						require.Equal(t, h, got)
					}
				}
			}
		}
	}
}

func TestHeaderLenBound(t *testing.T) {
	fc := FrameControl{DstAddrMode: AddrModeExtended, SrcAddrMode: AddrModeExtended}
	assert.Equal(t, MaxHeaderLen, HeaderLen(fc))
	fc.IntraPAN = true
	assert.Equal(t, MaxHeaderLen-2, HeaderLen(fc))
}

func TestHeaderUnmarshalTrailing(t *testing.T) {
	var h Header
	err := h.UnmarshalBinary([]byte{0x41, 0x88, 0x2a, 0xcd, 0xab, 0xff, 0xff, 0x34, 0x12, 0x00})
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestParseEUI64(t *testing.T) {
	e, err := ParseEUI64("00:12:4b:00:01:02:03:04")
	require.NoError(t, err)
	assert.Equal(t, EUI64{0, 0x12, 0x4b, 0, 1, 2, 3, 4}, e)
	assert.Equal(t, "00:12:4b:00:01:02:03:04", e.String())

	_, err = ParseEUI64("0011")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
