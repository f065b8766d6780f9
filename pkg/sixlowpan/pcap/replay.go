package pcap

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/internal/linkaddr"
)

// LinkTypeIEEE802154NoFCS is the pcap link type of 802.15.4 frames captured without FCS.
const LinkTypeIEEE802154NoFCS = layers.LinkType(230)

// ReplayOptions sets the addresses the replay radio reports.
type ReplayOptions struct {
	EUI64     ieee802154.EUI64
	PANID     uint16
	ShortAddr uint16
}

var (
	_ sixlowpan.Radio               = &Replay{}
	_ sixlowpan.AssociationNotifier = &Replay{}
)

// Replay is a receive-only radio serving the frames of a capture in order.
// Transmitted frames are discarded. Once the capture is exhausted Receive
// reports ErrNoConnection.
type Replay struct {
	*linkaddr.State

	hasFCS bool

	mu     sync.Mutex
	reader *pcapgo.Reader
	eof    bool
}

// NewReplay reads the pcap file header from r.
func NewReplay(r io.Reader, opts ReplayOptions) (*Replay, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}

	var hasFCS bool
	switch reader.LinkType() {
	case LinkTypeIEEE802154:
		hasFCS = true
	case LinkTypeIEEE802154NoFCS:
	default:
		return nil, fmt.Errorf("%w: capture link type %d is not IEEE 802.15.4", sixlowpan.ErrInvalidArgument, reader.LinkType())
	}

	return &Replay{
		State:  linkaddr.New(opts.EUI64, opts.PANID, opts.ShortAddr),
		hasFCS: hasFCS,
		reader: reader,
	}, nil
}

func (r *Replay) Transmit(frame []byte) error {
	return sixlowpan.CheckTransmit(frame)
}

// Receive returns the next captured frame. A frame with a bad FCS is reported as ErrRx.
func (r *Replay) Receive(buf []byte) (int, error) {
	if err := sixlowpan.CheckReceive(buf); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eof {
		return 0, sixlowpan.ErrNoConnection
	}

	data, _, err := r.reader.ReadPacketData()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		r.eof = true
		return 0, sixlowpan.ErrNoConnection
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", sixlowpan.ErrRx, err)
	}

	frame := data
	if r.hasFCS {
		frame, err = ieee802154.CheckFCS(data)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", sixlowpan.ErrRx, err)
		}
	}
	if len(frame) > len(buf) {
		return 0, fmt.Errorf("%w: captured frame of %d octets", sixlowpan.ErrRx, len(frame))
	}
	return copy(buf, frame), nil
}
