// Package linkaddr holds the addressing state of radios that emulate the PHY in software.
package linkaddr

import (
	"fmt"
	"sync"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

// State stores the EUI-64, PAN identifier and short address of a software radio and
// notifies subscribers when a short address gets assigned.
type State struct {
	mu        sync.Mutex
	eui       ieee802154.EUI64
	pan       uint16
	short     uint16
	callbacks []func()
}

// New returns the addressing state of a radio on pan. Pass sixlowpan.ShortAddrUnassigned
// as short to start unassociated.
func New(eui ieee802154.EUI64, pan, short uint16) *State {
	return &State{eui: eui, pan: pan, short: short}
}

func (s *State) EUI64() ieee802154.EUI64 {
	return s.eui
}

func (s *State) AddrExt(dst []byte) error {
	if err := sixlowpan.CheckAddrExt(dst); err != nil {
		return err
	}
	copy(dst, s.eui[:])
	return nil
}

func (s *State) PANID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pan
}

func (s *State) AddrShort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.short
}

// SetAddrShort stores addr and fires the association callbacks on the first assignment.
func (s *State) SetAddrShort(addr uint16) error {
	if addr == sixlowpan.ShortAddrUnassigned {
		return fmt.Errorf("%w: 0x%04x is not assignable", sixlowpan.ErrInvalidArgument, addr)
	}
	s.mu.Lock()
	first := s.short == sixlowpan.ShortAddrUnassigned
	s.short = addr
	callbacks := append([]func(){}, s.callbacks...)
	s.mu.Unlock()

	if first {
		for _, fn := range callbacks {
			fn()
		}
	}
	return nil
}

func (s *State) OnShortAddrConfigured(fn func()) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}
