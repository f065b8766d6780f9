// Package radiotest provides an in-memory 802.15.4 medium for tests.
package radiotest

import (
	"fmt"
	"sync"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

const queueSize = 64

// Medium is a broadcast channel: a frame transmitted by one radio is queued at every other attached radio.
type Medium struct {
	mu     sync.Mutex
	radios []*Radio
}

// NewMedium returns an empty medium.
func NewMedium() *Medium {
	return &Medium{}
}

// Attach creates a radio on the medium. It starts unassociated on the broadcast PAN.
func (m *Medium) Attach(eui ieee802154.EUI64) *Radio {
	r := &Radio{
		medium:    m,
		eui:       eui,
		pan:       sixlowpan.PANUnassociated,
		shortAddr: sixlowpan.ShortAddrUnassigned,
		connected: true,
		queue:     make(chan []byte, queueSize),
	}
	m.mu.Lock()
	m.radios = append(m.radios, r)
	m.mu.Unlock()
	return r
}

func (m *Medium) deliver(from *Radio, frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.radios {
		if r == from {
			continue
		}
		select {
		case r.queue <- append([]byte(nil), frame...):
		default:
			// receiver overrun, the frame is lost like on air
		}
	}
}

var _ sixlowpan.Radio = &Radio{}
var _ sixlowpan.AssociationNotifier = &Radio{}

// Radio is an in-memory radio attached to a Medium.
type Radio struct {
	medium *Medium

	mu        sync.Mutex
	eui       ieee802154.EUI64
	pan       uint16
	shortAddr uint16
	connected bool
	txErr     error
	callbacks []func()
	sent      [][]byte

	queue chan []byte
}

func (r *Radio) Transmit(frame []byte) error {
	if err := sixlowpan.CheckTransmit(frame); err != nil {
		return err
	}
	r.mu.Lock()
	connected, txErr := r.connected, r.txErr
	if connected && txErr == nil {
		r.sent = append(r.sent, append([]byte(nil), frame...))
	}
	r.mu.Unlock()
	if !connected {
		return sixlowpan.ErrNoConnection
	}
	if txErr != nil {
		return txErr
	}
	r.medium.deliver(r, frame)
	return nil
}

func (r *Radio) Receive(buf []byte) (int, error) {
	if err := sixlowpan.CheckReceive(buf); err != nil {
		return 0, err
	}
	if !r.isConnected() {
		return 0, sixlowpan.ErrNoConnection
	}
	select {
	case frame := <-r.queue:
		return copy(buf, frame), nil
	default:
		return 0, nil
	}
}

func (r *Radio) AddrExt(dst []byte) error {
	if err := sixlowpan.CheckAddrExt(dst); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return sixlowpan.ErrNoConnection
	}
	copy(dst, r.eui[:])
	return nil
}

func (r *Radio) PANID() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pan
}

func (r *Radio) AddrShort() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortAddr
}

func (r *Radio) SetAddrShort(addr uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return sixlowpan.ErrNoConnection
	}
	if addr == sixlowpan.ShortAddrUnassigned {
		return fmt.Errorf("%w: 0x%04x is not assignable", sixlowpan.ErrInvalidArgument, addr)
	}
	r.shortAddr = addr
	return nil
}

func (r *Radio) OnShortAddrConfigured(fn func()) {
	r.mu.Lock()
	r.callbacks = append(r.callbacks, fn)
	r.mu.Unlock()
}

// Associate simulates a completed commissioning handshake: the radio joins pan with
// the given short address and notifies its subscribers.
func (r *Radio) Associate(pan, short uint16) {
	r.mu.Lock()
	r.pan, r.shortAddr = pan, short
	callbacks := append([]func(){}, r.callbacks...)
	r.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// SetConnected simulates losing or regaining the radio.
func (r *Radio) SetConnected(connected bool) {
	r.mu.Lock()
	r.connected = connected
	r.mu.Unlock()
}

// FailTransmit makes every following Transmit return err; nil restores normal operation.
func (r *Radio) FailTransmit(err error) {
	r.mu.Lock()
	r.txErr = err
	r.mu.Unlock()
}

// Inject queues a frame at the radio as if it was received from the air.
func (r *Radio) Inject(frame []byte) {
	r.queue <- append([]byte(nil), frame...)
}

// Sent returns copies of the frames transmitted so far.
func (r *Radio) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.sent...)
}

func (r *Radio) isConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}
