// Package pcap records and replays 802.15.4 traffic in the pcap format
// (link type IEEE 802.15.4 with FCS) so captures open in Wireshark.
package pcap

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

// LinkTypeIEEE802154 is the pcap link type of 802.15.4 frames followed by their FCS.
const LinkTypeIEEE802154 = layers.LinkType(195)

const snapLen = ieee802154.PhyMTU + ieee802154.MacOverhead

var (
	_ sixlowpan.Radio               = &Tap{}
	_ sixlowpan.AssociationNotifier = &Tap{}
)

// Tap decorates a radio and writes every transmitted and received frame to a capture.
type Tap struct {
	sixlowpan.Radio

	logger log.Logger
	now    func() time.Time

	mu     sync.Mutex
	writer *pcapgo.Writer
}

// NewTap writes the pcap file header to w and returns the decorated radio.
func NewTap(radio sixlowpan.Radio, w io.Writer, logger log.Logger) (*Tap, error) {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(snapLen, LinkTypeIEEE802154); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Tap{
		Radio:  radio,
		logger: log.OrNOOP(logger),
		now:    time.Now,
		writer: writer,
	}, nil
}

func (t *Tap) Transmit(frame []byte) error {
	err := t.Radio.Transmit(frame)
	if err == nil {
		t.record(frame)
	}
	return err
}

func (t *Tap) Receive(buf []byte) (int, error) {
	n, err := t.Radio.Receive(buf)
	if err == nil && n > 0 {
		t.record(buf[:n])
	}
	return n, err
}

// OnShortAddrConfigured forwards the subscription when the decorated radio supports it.
func (t *Tap) OnShortAddrConfigured(fn func()) {
	if notifier, ok := t.Radio.(sixlowpan.AssociationNotifier); ok {
		notifier.OnShortAddrConfigured(fn)
	}
}

func (t *Tap) record(frame []byte) {
	data := ieee802154.AppendFCS(append([]byte(nil), frame...))
	ci := gopacket.CaptureInfo{
		Timestamp:     t.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writer.WritePacket(ci, data); err != nil {
		t.logger.Warn("Cannot write frame to capture", "error", err)
	}
}
