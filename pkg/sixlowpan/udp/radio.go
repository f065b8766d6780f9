// Package udp emulates a shared 802.15.4 medium over UDP. Every datagram carries the
// EUI-64 of the sender followed by the frame and its FCS, so radios on the same
// multicast group hear each other like on air.
package udp

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/internal/linkaddr"
)

const (
	// DefaultGroup is the multicast group radios join when no address is given.
	DefaultGroup = "224.0.0.154:17754"
	// DefaultQueueSize bounds the number of received frames waiting for Receive.
	DefaultQueueSize = 64

	senderLen   = 8
	maxDatagram = senderLen + ieee802154.PhyMTU + ieee802154.MacOverhead
)

// Options configures a Radio.
type Options struct {
	EUI64     ieee802154.EUI64
	PANID     uint16
	ShortAddr uint16
	QueueSize int
	Logger    log.Logger
}

type rxItem struct {
	frame []byte
	err   error
}

var (
	_ sixlowpan.Radio               = &Radio{}
	_ sixlowpan.AssociationNotifier = &Radio{}
)

// Radio is a software radio on a UDP medium.
type Radio struct {
	conn   net.PacketConn
	dst    net.Addr
	logger log.Logger
	addr   *linkaddr.State

	closed atomic.Bool
	rx     chan rxItem
	done   chan struct{}
}

// NewRadio joins the multicast group on the named interface. An empty group selects
// DefaultGroup; an empty interface name lets the system choose.
func NewRadio(group, ifaceName string, opts Options) (*Radio, error) {
	if group == "" {
		group = DefaultGroup
	}
	gaddr, err := net.ResolveUDPAddr("udp4", group)
	if err != nil {
		return nil, err
	}
	if !gaddr.IP.IsMulticast() {
		return nil, fmt.Errorf("%w: %s is not a multicast group", sixlowpan.ErrInvalidArgument, group)
	}

	var intf *net.Interface
	if ifaceName != "" {
		intf, err = net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, err
		}
	}

	conn, err := net.ListenMulticastUDP("udp4", intf, gaddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sixlowpan.ErrNoConnection, err)
	}
	log.OrNOOP(opts.Logger).Info("Joined UDP medium", "group", gaddr, "interface", ifaceName)

	return NewPacketRadio(conn, gaddr, opts), nil
}

// NewPacketRadio runs a radio over an existing packet connection, sending every frame to dst.
func NewPacketRadio(conn net.PacketConn, dst net.Addr, opts Options) *Radio {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	r := &Radio{
		conn:   conn,
		dst:    dst,
		logger: log.OrNOOP(opts.Logger),
		addr:   linkaddr.New(opts.EUI64, opts.PANID, opts.ShortAddr),
		rx:     make(chan rxItem, opts.QueueSize),
		done:   make(chan struct{}),
	}
	go r.readLoop()
	return r
}

func (r *Radio) Transmit(frame []byte) error {
	if err := sixlowpan.CheckTransmit(frame); err != nil {
		return err
	}
	if r.closed.Load() {
		return sixlowpan.ErrNoConnection
	}

	eui := r.addr.EUI64()
	datagram := make([]byte, 0, senderLen+len(frame)+ieee802154.MacOverhead)
	datagram = append(datagram, eui[:]...)
	datagram = append(datagram, frame...)
	datagram = appendFCS(datagram, senderLen)

	if _, err := r.conn.WriteTo(datagram, r.dst); err != nil {
		return fmt.Errorf("%w: %v", sixlowpan.ErrTx, err)
	}
	return nil
}

// Receive returns the next queued frame. A frame that arrived with a bad FCS is
// reported once as ErrRx.
func (r *Radio) Receive(buf []byte) (int, error) {
	if err := sixlowpan.CheckReceive(buf); err != nil {
		return 0, err
	}
	select {
	case item := <-r.rx:
		if item.err != nil {
			return 0, item.err
		}
		return copy(buf, item.frame), nil
	default:
	}
	if r.closed.Load() {
		return 0, sixlowpan.ErrNoConnection
	}
	return 0, nil
}

func (r *Radio) AddrExt(dst []byte) error {
	return r.addr.AddrExt(dst)
}

func (r *Radio) PANID() uint16 {
	return r.addr.PANID()
}

func (r *Radio) AddrShort() uint16 {
	return r.addr.AddrShort()
}

func (r *Radio) SetAddrShort(addr uint16) error {
	return r.addr.SetAddrShort(addr)
}

func (r *Radio) OnShortAddrConfigured(fn func()) {
	r.addr.OnShortAddrConfigured(fn)
}

// Close leaves the medium and waits for the reader to stop.
func (r *Radio) Close() error {
	r.closed.Store(true)
	err := r.conn.Close()
	<-r.done
	return err
}

func (r *Radio) readLoop() {
	defer close(r.done)

	buf := make([]byte, maxDatagram+1)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if !r.closed.Load() && !errors.Is(err, net.ErrClosed) {
				r.logger.Error("UDP medium lost", "error", err)
			}
			r.closed.Store(true)
			return
		}
		r.handleDatagram(buf[:n], from)
	}
}

func (r *Radio) handleDatagram(datagram []byte, from net.Addr) {
	if len(datagram) < senderLen+ieee802154.MacOverhead || len(datagram) > maxDatagram {
		r.logger.Debug("Ignoring foreign datagram", "from", from, "len", len(datagram))
		return
	}
	eui := r.addr.EUI64()
	if bytes.Equal(datagram[:senderLen], eui[:]) {
		return
	}

	item := rxItem{}
	frame, err := ieee802154.CheckFCS(datagram[senderLen:])
	if err != nil {
		item.err = fmt.Errorf("%w: %v", sixlowpan.ErrRx, err)
	} else {
		item.frame = append([]byte(nil), frame...)
	}

	select {
	case r.rx <- item:
	default:
		r.logger.Warn("Receive queue full, dropping frame", "from", from)
	}
}

// appendFCS appends the FCS of b[from:] to b.
func appendFCS(b []byte, from int) []byte {
	fcs := ieee802154.FCS(b[from:])
	return append(b, byte(fcs), byte(fcs>>8))
}
