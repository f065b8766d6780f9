package sixlowpan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
)

// State is the association state of a Device.
type State int

const (
	// Unassociated means the radio has no short address yet.
	Unassociated State = iota
	// Associated means the short address is known.
	Associated
)

func (s State) String() string {
	if s == Associated {
		return "associated"
	}
	return "unassociated"
}

// Device binds one Radio to the adaptation layer. It carries the IPv6 prefix of
// the link and tracks whether the radio has been assigned a short address.
type Device struct {
	radio  Radio
	logger log.Logger

	mu         sync.Mutex
	state      State
	shortAddr  uint16
	prefix     netip.Prefix
	addrExt    ieee802154.EUI64
	hasAddrExt bool
	associated chan struct{}
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithLogger sets the logger used by the device.
func WithLogger(logger log.Logger) DeviceOption {
	return func(d *Device) {
		d.logger = logger
	}
}

// NewDevice creates a device bound to radio. The initial state is derived from the
// radio's short address. If the radio implements AssociationNotifier, the device
// subscribes to its late address assignment events.
func NewDevice(radio Radio, opts ...DeviceOption) (*Device, error) {
	if radio == nil {
		return nil, fmt.Errorf("%w: nil radio", ErrInvalidArgument)
	}
	d := &Device{
		radio:      radio,
		logger:     log.NOOPLogger{},
		associated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	if addr := radio.AddrShort(); addr != ShortAddrUnassigned {
		d.state = Associated
		d.shortAddr = addr
		close(d.associated)
	}
	if notifier, ok := radio.(AssociationNotifier); ok {
		notifier.OnShortAddrConfigured(d.NotifyShortAddrConfigured)
	}

	d.logger.Debug("6LoWPAN device created", "state", d.state, "short", fmt.Sprintf("0x%04x", d.shortAddr))
	return d, nil
}

// Radio returns the radio the device is bound to.
func (d *Device) Radio() Radio {
	return d.radio
}

// State returns the current association state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// ShortAddr returns the short address learned on association.
func (d *Device) ShortAddr() (uint16, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shortAddr, d.state == Associated
}

// Associated returns a channel that is closed once the device is associated.
func (d *Device) Associated() <-chan struct{} {
	return d.associated
}

// SetPrefix stores the IPv6 prefix of the link. It does not touch the radio.
func (d *Device) SetPrefix(prefix netip.Prefix) error {
	if !prefix.IsValid() || !prefix.Addr().Is6() || prefix.Addr().Is4In6() {
		return fmt.Errorf("%w: %s is not an IPv6 prefix", ErrInvalidArgument, prefix)
	}
	d.mu.Lock()
	d.prefix = prefix.Masked()
	d.mu.Unlock()
	return nil
}

// Prefix returns the IPv6 prefix, the zero Prefix if none has been set.
func (d *Device) Prefix() netip.Prefix {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prefix
}

// NotifyShortAddrConfigured tells the device that the radio completed association
// out of band. The device re-queries the short address and becomes Associated.
// It is a no-op when the device is already associated, and it is safe to call
// from any goroutine.
func (d *Device) NotifyShortAddrConfigured() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Associated {
		return
	}

	addr := d.radio.AddrShort()
	if addr == ShortAddrUnassigned {
		d.logger.Warn("Association notified but radio reports no short address")
		return
	}
	d.shortAddr = addr
	d.state = Associated
	close(d.associated)
	d.logger.Info("Short address configured", "short", fmt.Sprintf("0x%04x", addr))
}

// AddrExt returns the EUI-64 of the radio. It is queried on first use and cached.
func (d *Device) AddrExt() (ieee802154.EUI64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasAddrExt {
		return d.addrExt, nil
	}
	var e ieee802154.EUI64
	if err := d.radio.AddrExt(e[:]); err != nil {
		return e, err
	}
	d.addrExt, d.hasAddrExt = e, true
	return e, nil
}

// InterfaceID returns the 64-bit IPv6 interface identifier of the device: the
// short-address form 0000:00ff:fe00:XXXX once associated, the modified EUI-64 otherwise.
func (d *Device) InterfaceID() ([8]byte, error) {
	var iid [8]byte
	if short, ok := d.ShortAddr(); ok {
		iid[3], iid[4] = 0xff, 0xfe
		binary.BigEndian.PutUint16(iid[6:], short)
		return iid, nil
	}
	e, err := d.AddrExt()
	if err != nil {
		return iid, err
	}
	iid = e
	iid[0] ^= 0x02
	return iid, nil
}

// Addr returns the IPv6 address formed from the prefix and the interface identifier.
// Without a prefix the link-local prefix fe80::/64 is used.
func (d *Device) Addr() (netip.Addr, error) {
	iid, err := d.InterfaceID()
	if err != nil {
		return netip.Addr{}, err
	}
	prefix := d.Prefix()
	if !prefix.IsValid() {
		prefix = netip.MustParsePrefix("fe80::/64")
	}
	if prefix.Bits() > 64 {
		return netip.Addr{}, fmt.Errorf("%w: prefix %s is longer than 64 bits", ErrInvalidArgument, prefix)
	}
	a := prefix.Addr().As16()
	copy(a[8:], iid[:])
	return netip.AddrFrom16(a), nil
}

// Send encodes f and transmits it. Radio errors are returned unchanged.
func (d *Device) Send(f *ieee802154.Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return d.radio.Transmit(buf)
}

// ErrNoFrame is returned by Receive when the radio has nothing pending.
var ErrNoFrame = errors.New("sixlowpan: no frame pending")

// Receive reads one frame from the radio and decodes it. A decode error means the
// frame should be dropped; radio errors are returned unchanged.
func (d *Device) Receive() (ieee802154.Frame, error) {
	buf := make([]byte, ieee802154.PhyMTU)
	n, err := d.radio.Receive(buf)
	if err != nil {
		return ieee802154.Frame{}, err
	}
	if n == 0 {
		return ieee802154.Frame{}, ErrNoFrame
	}
	f, err := ieee802154.DecodeFrame(buf[:n])
	if err != nil {
		d.logger.Debug("Dropping undecodable frame", "len", n, "error", err)
		return ieee802154.Frame{}, err
	}
	return f, nil
}
