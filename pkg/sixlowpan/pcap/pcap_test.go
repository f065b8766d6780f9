package pcap

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/radiotest"
)

var (
	txFrame = []byte{0x41, 0x88, 0x01, 0xcd, 0xab, 0xff, 0xff, 0x01, 0x00, 0xaa}
	rxFrame = []byte{0x41, 0x88, 0x02, 0xcd, 0xab, 0x01, 0x00, 0x02, 0x00, 0xbb}
)

func TestTapRecordsTraffic(t *testing.T) {
	medium := radiotest.NewMedium()
	local := medium.Attach(ieee802154.EUI64{1})
	medium.Attach(ieee802154.EUI64{2})

	var capture bytes.Buffer
	tap, err := NewTap(local, &capture, nil)
	require.NoError(t, err)
	tap.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, tap.Transmit(txFrame))
	local.Inject(rxFrame)
	buf := make([]byte, ieee802154.PhyMTU)
	n, err := tap.Receive(buf)
	require.NoError(t, err)
	require.Equal(t, len(rxFrame), n)

	n, err = tap.Receive(buf)
	require.NoError(t, err)
	require.Zero(t, n)

	reader, err := pcapgo.NewReader(&capture)
	require.NoError(t, err)
	assert.Equal(t, LinkTypeIEEE802154, reader.LinkType())

	for _, want := range [][]byte{txFrame, rxFrame} {
		data, ci, err := reader.ReadPacketData()
		require.NoError(t, err)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), ci.Timestamp.UTC())
		frame, err := ieee802154.CheckFCS(data)
		require.NoError(t, err)
		assert.Equal(t, want, frame)
	}
}

func TestTapSkipsFailedTransmit(t *testing.T) {
	local := radiotest.NewMedium().Attach(ieee802154.EUI64{1})
	local.FailTransmit(sixlowpan.ErrTx)

	var capture bytes.Buffer
	tap, err := NewTap(local, &capture, nil)
	require.NoError(t, err)
	headerLen := capture.Len()

	assert.ErrorIs(t, tap.Transmit(txFrame), sixlowpan.ErrTx)
	assert.Equal(t, headerLen, capture.Len())
}

func TestTapForwardsAssociation(t *testing.T) {
	local := radiotest.NewMedium().Attach(ieee802154.EUI64{1})
	tap, err := NewTap(local, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	device, err := sixlowpan.NewDevice(tap)
	require.NoError(t, err)
	local.Associate(0xabcd, 0x0005)
	assert.Equal(t, sixlowpan.Associated, device.State())
}

func TestReplay(t *testing.T) {
	var capture bytes.Buffer
	local := radiotest.NewMedium().Attach(ieee802154.EUI64{1})
	tap, err := NewTap(local, &capture, nil)
	require.NoError(t, err)
	require.NoError(t, tap.Transmit(txFrame))
	require.NoError(t, tap.Transmit(rxFrame))

	// corrupt the FCS of the last record
	raw := capture.Bytes()
	raw[len(raw)-1] ^= 0xff

	replay, err := NewReplay(bytes.NewReader(raw), ReplayOptions{EUI64: ieee802154.EUI64{9}, PANID: 0xabcd, ShortAddr: 0x0001})
	require.NoError(t, err)
	assert.Equal(t, uint16(0xabcd), replay.PANID())
	assert.Equal(t, uint16(0x0001), replay.AddrShort())

	buf := make([]byte, ieee802154.PhyMTU)
	n, err := replay.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, txFrame, buf[:n])

	_, err = replay.Receive(buf)
	assert.ErrorIs(t, err, sixlowpan.ErrRx)

	_, err = replay.Receive(buf)
	assert.ErrorIs(t, err, sixlowpan.ErrNoConnection)
	assert.NoError(t, replay.Transmit(txFrame))
}

func TestReplayRejectsOtherLinkTypes(t *testing.T) {
	var capture bytes.Buffer
	w := pcapgo.NewWriter(&capture)
	require.NoError(t, w.WriteFileHeader(65535, 1))

	_, err := NewReplay(&capture, ReplayOptions{})
	assert.ErrorIs(t, err, sixlowpan.ErrInvalidArgument)
}
