package udp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

var (
	euiA = ieee802154.EUI64{0, 0, 0, 0, 0, 0, 0, 0x0a}
	euiB = ieee802154.EUI64{0, 0, 0, 0, 0, 0, 0, 0x0b}
)

func listen(t *testing.T) net.PacketConn {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	return conn
}

func newPair(t *testing.T) (*Radio, *Radio) {
	connA, connB := listen(t), listen(t)
	a := NewPacketRadio(connA, connB.LocalAddr(), Options{EUI64: euiA, PANID: 0x1234, ShortAddr: sixlowpan.ShortAddrUnassigned})
	b := NewPacketRadio(connB, connA.LocalAddr(), Options{EUI64: euiB, PANID: 0x1234, ShortAddr: 0x0002})
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func receive(t *testing.T, r *Radio) ([]byte, error) {
	t.Helper()
	buf := make([]byte, ieee802154.PhyMTU)
	var (
		n   int
		err error
	)
	require.Eventually(t, func() bool {
		n, err = r.Receive(buf)
		return err != nil || n > 0
	}, 2*time.Second, 5*time.Millisecond)
	return buf[:n], err
}

func TestTransmitReceive(t *testing.T) {
	a, b := newPair(t)

	frame := []byte{0x41, 0x88, 0x01, 0x34, 0x12, 0xff, 0xff, 0x02, 0x00, 0xde, 0xad}
	require.NoError(t, a.Transmit(frame))

	got, err := receive(t, b)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	assert.Equal(t, sixlowpan.ShortAddrUnassigned, a.AddrShort())
	assert.Equal(t, uint16(0x0002), b.AddrShort())
	assert.Equal(t, uint16(0x1234), b.PANID())
}

func TestHandleDatagram(t *testing.T) {
	a, _ := newPair(t)
	buf := make([]byte, ieee802154.PhyMTU)

	own := appendFCS(append(euiA[:], 0x01, 0x02), senderLen)
	a.handleDatagram(own, nil)
	a.handleDatagram([]byte{0x01, 0x02}, nil)
	n, err := a.Receive(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	corrupted := appendFCS(append(euiB[:], 0x01, 0x02), senderLen)
	corrupted[senderLen] ^= 0xff
	a.handleDatagram(corrupted, nil)
	_, err = a.Receive(buf)
	assert.ErrorIs(t, err, sixlowpan.ErrRx)

	valid := appendFCS(append(euiB[:], 0x01, 0x02), senderLen)
	a.handleDatagram(valid, nil)
	n, err = a.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, buf[:n])
}

func TestClosed(t *testing.T) {
	a, _ := newPair(t)
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Transmit([]byte{0x01}), sixlowpan.ErrNoConnection)
	_, err := a.Receive(make([]byte, ieee802154.PhyMTU))
	assert.ErrorIs(t, err, sixlowpan.ErrNoConnection)
}

func TestNewRadioRejectsUnicastGroup(t *testing.T) {
	_, err := NewRadio("127.0.0.1:9999", "", Options{})
	assert.ErrorIs(t, err, sixlowpan.ErrInvalidArgument)
}
