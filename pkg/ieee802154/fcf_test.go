package ieee802154

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameControlBitPositions(t *testing.T) {
	tests := []struct {
		name string
		fc   FrameControl
		want uint16
	}{
		{"frame type", FrameControl{FrameType: FrameTypeCommand}, 0x0003},
		{"security enabled", FrameControl{SecurityEnabled: true}, 0x0008},
		{"frame pending", FrameControl{FramePending: true}, 0x0010},
		{"ack required", FrameControl{AckRequired: true}, 0x0020},
		{"intra pan", FrameControl{IntraPAN: true}, 0x0040},
		{"destination mode", FrameControl{DstAddrMode: AddrModeExtended}, 0x0c00},
		{"frame version", FrameControl{FrameVersion: FrameVersion2006}, 0x1000},
		{"source mode", FrameControl{SrcAddrMode: AddrModeExtended}, 0xc000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fc.Uint16())
			assert.Equal(t, tt.fc, ParseFrameControl(tt.want))
		})
	}
}

func TestFrameControlWireOrder(t *testing.T) {
	fc := FrameControl{
		FrameType:   FrameTypeData,
		IntraPAN:    true,
		DstAddrMode: AddrModeShort,
		SrcAddrMode: AddrModeShort,
	}
	b, err := fc.AppendBinary(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x88}, b)
}

func TestDecodeFrameControlReservedBitsIgnored(t *testing.T) {
	// bits 7, 8 and 9 are reserved
	fc, err := DecodeFrameControl([]byte{0x81, 0x03})
	require.NoError(t, err)
	assert.Equal(t, FrameControl{FrameType: FrameTypeData}, fc)
}

func TestDecodeFrameControlReservedFrameType(t *testing.T) {
	for ft := byte(4); ft <= 7; ft++ {
		_, err := DecodeFrameControl([]byte{ft, 0x00})
		assert.ErrorIs(t, err, ErrReservedField, "frame type %d", ft)
	}
}

func TestDecodeFrameControlReservedAddrMode(t *testing.T) {
	_, err := DecodeFrameControl([]byte{0x01, 0x04})
	assert.ErrorIs(t, err, ErrReservedField, "destination")

	_, err = DecodeFrameControl([]byte{0x01, 0x40})
	assert.ErrorIs(t, err, ErrReservedField, "source")
}

func TestFrameControlEncodeRejectsReserved(t *testing.T) {
	_, err := FrameControl{FrameType: 5}.AppendBinary(nil)
	assert.ErrorIs(t, err, ErrReservedField)

	_, err = FrameControl{SrcAddrMode: AddrModeReserved}.AppendBinary(nil)
	assert.ErrorIs(t, err, ErrReservedField)

	_, err = FrameControl{FrameVersion: 4}.AppendBinary(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAddrModeLen(t *testing.T) {
	assert.Equal(t, 0, AddrModeNone.Len())
	assert.Equal(t, 0, AddrModeReserved.Len())
	assert.Equal(t, 2, AddrModeShort.Len())
	assert.Equal(t, 8, AddrModeExtended.Len())
}
