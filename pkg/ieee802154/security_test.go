package ieee802154

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityControlBitPositions(t *testing.T) {
	sc := SecurityControl{Level: SecurityLevelENCMIC64, KeyIDMode: KeyIDModeSource4}
	assert.Equal(t, byte(0x16), sc.Byte())

	// reserved bits 5-7 are ignored
	assert.Equal(t, sc, ParseSecurityControl(0xf6))
	assert.Equal(t, SecurityControl{Level: SecurityLevelMIC32}, ParseSecurityControl(0x01))
	assert.Equal(t, SecurityControl{KeyIDMode: KeyIDModeSource8}, ParseSecurityControl(0x18))
}

func TestKeyIDLen(t *testing.T) {
	want := map[KeyIDMode]int{
		KeyIDModeImplicit: 0,
		KeyIDModeIndex:    1,
		KeyIDModeSource4:  5,
		KeyIDModeSource8:  9,
	}
	for mode, n := range want {
		got, err := KeyIDLen(mode)
		require.NoError(t, err)
		assert.Equal(t, n, got, "mode %d", mode)
	}

	_, err := KeyIDLen(4)
	assert.ErrorIs(t, err, ErrInvalidKeyIDMode)
}

func TestAuxSecurityHeaderRoundTrip(t *testing.T) {
	for mode := KeyIDModeImplicit; mode <= KeyIDModeSource8; mode++ {
		n, err := KeyIDLen(mode)
		require.NoError(t, err)

		aux := AuxSecurityHeader{
			Control:      SecurityControl{Level: SecurityLevelENCMIC32, KeyIDMode: mode},
			FrameCounter: 0x01020304,
		}
		for i := 0; i < n; i++ {
			aux.KeyIdentifier[i] = byte(0xa0 + i)
		}

		b, err := aux.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, b, 5+n, "mode %d must use the mode-derived key identifier length", mode)
		assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b[1:5])

		got, consumed, err := DecodeAuxSecurityHeader(append(b, 0xee, 0xee))
		require.NoError(t, err)
		assert.Equal(t, 5+n, consumed)
		assert.Equal(t, aux, got)
	}
}

func TestAuxSecurityHeaderInvalidKeyIDMode(t *testing.T) {
	aux := AuxSecurityHeader{Control: SecurityControl{KeyIDMode: 4}}
	_, err := aux.MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidKeyIDMode)
}

func TestDecodeAuxSecurityHeaderTruncated(t *testing.T) {
	_, _, err := DecodeAuxSecurityHeader([]byte{0x05, 0x01, 0x00})
	assert.ErrorIs(t, err, ErrMalformedHeader)

	// mode 3 announces 9 key identifier octets but only 2 follow
	_, _, err = DecodeAuxSecurityHeader([]byte{0x1d, 0x01, 0x00, 0x00, 0x00, 0xaa, 0xbb})
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestAuxSecurityHeaderKeyAccessors(t *testing.T) {
	var aux AuxSecurityHeader
	require.NoError(t, aux.SetKey([]byte{1, 2, 3, 4}, 7))
	assert.Equal(t, KeyIDModeSource4, aux.Control.KeyIDMode)
	idx, ok := aux.KeyIndex()
	assert.True(t, ok)
	assert.Equal(t, uint8(7), idx)
	assert.Equal(t, []byte{1, 2, 3, 4}, aux.KeySource())

	require.NoError(t, aux.SetKey(nil, 3))
	assert.Equal(t, KeyIDModeIndex, aux.Control.KeyIDMode)
	assert.Nil(t, aux.KeySource())
	assert.Equal(t, [MaxKeyIDLen]byte{3}, aux.KeyIdentifier)

	assert.ErrorIs(t, aux.SetKey([]byte{1, 2}, 0), ErrInvalidArgument)
}

func TestSecurityLevelProperties(t *testing.T) {
	assert.Equal(t, 0, SecurityLevelNone.MICLen())
	assert.Equal(t, 4, SecurityLevelMIC32.MICLen())
	assert.Equal(t, 16, SecurityLevelENCMIC128.MICLen())
	assert.Equal(t, 0, SecurityLevelENC.MICLen())
	assert.True(t, SecurityLevelENC.Encrypted())
	assert.False(t, SecurityLevelMIC64.Encrypted())
	assert.Equal(t, "enc-mic-64", SecurityLevelENCMIC64.String())
}
