package linkaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

func TestStateAssignment(t *testing.T) {
	eui := ieee802154.EUI64{1, 2, 3, 4, 5, 6, 7, 8}
	s := New(eui, 0x1234, sixlowpan.ShortAddrUnassigned)

	calls := 0
	s.OnShortAddrConfigured(func() { calls++ })

	dst := make([]byte, 8)
	require.NoError(t, s.AddrExt(dst))
	assert.Equal(t, eui[:], dst)
	assert.Equal(t, uint16(0x1234), s.PANID())
	assert.Equal(t, sixlowpan.ShortAddrUnassigned, s.AddrShort())

	require.NoError(t, s.SetAddrShort(0x0001))
	require.NoError(t, s.SetAddrShort(0x0002))
	assert.Equal(t, uint16(0x0002), s.AddrShort())
	assert.Equal(t, 1, calls)

	assert.ErrorIs(t, s.SetAddrShort(0xffff), sixlowpan.ErrInvalidArgument)
	assert.ErrorIs(t, s.AddrExt(make([]byte, 4)), sixlowpan.ErrInvalidArgument)
}
