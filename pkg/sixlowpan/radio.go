package sixlowpan

import (
	"fmt"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
)

const (
	// ShortAddrUnassigned is reported by AddrShort before the radio has associated.
	ShortAddrUnassigned = ieee802154.ShortAddrUnassigned
	// PANUnassociated is reported by PANID before the radio has joined a PAN.
	PANUnassociated = ieee802154.BroadcastPAN
)

// Radio is the capability set an IEEE 802.15.4 radio driver provides to the adaptation layer.
// Every call returns a definite result before the caller proceeds; whether it blocks on
// hardware is up to the driver.
type Radio interface {
	// Transmit sends one MAC frame. Frames longer than ieee802154.PhyMTU are rejected
	// with ErrInvalidArgument.
	Transmit(frame []byte) error
	// Receive copies one pending frame into buf, which must be exactly ieee802154.PhyMTU
	// octets long, and returns its length. It returns 0 when nothing is pending.
	Receive(buf []byte) (int, error)
	// AddrExt writes the EUI-64 of the radio into dst, which must be 8 octets long.
	AddrExt(dst []byte) error
	// PANID returns the current PAN identifier, PANUnassociated if none.
	PANID() uint16
	// AddrShort returns the current short address, ShortAddrUnassigned if none.
	AddrShort() uint16
	// SetAddrShort configures the short address of the radio.
	SetAddrShort(addr uint16) error
}

// AssociationNotifier is implemented by radios that learn their short address
// out of band, e.g. after a commissioning handshake. The callback may be invoked
// from any goroutine.
type AssociationNotifier interface {
	OnShortAddrConfigured(fn func())
}

// CheckTransmit validates the frame length of a Transmit call.
func CheckTransmit(frame []byte) error {
	if len(frame) > ieee802154.PhyMTU {
		return fmt.Errorf("%w: frame of %d octets exceeds PHY MTU %d", ErrInvalidArgument, len(frame), ieee802154.PhyMTU)
	}
	return nil
}

// CheckReceive validates the buffer of a Receive call.
func CheckReceive(buf []byte) error {
	if len(buf) != ieee802154.PhyMTU {
		return fmt.Errorf("%w: receive buffer of %d octets, need %d", ErrInvalidArgument, len(buf), ieee802154.PhyMTU)
	}
	return nil
}

// CheckAddrExt validates the destination buffer of an AddrExt call.
func CheckAddrExt(dst []byte) error {
	if len(dst) != len(ieee802154.EUI64{}) {
		return fmt.Errorf("%w: extended address buffer of %d octets, need 8", ErrInvalidArgument, len(dst))
	}
	return nil
}
