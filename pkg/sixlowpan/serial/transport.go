package serial

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

const (
	// DefaultBaudRate is used by NewRadio when no baud rate is given.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds every request to the coprocessor.
	DefaultTimeout = time.Second

	rxQueueSize = 32
)

// NewRadio opens the serial port and returns a radio talking to the coprocessor behind it.
// A zero baud rate selects DefaultBaudRate.
func NewRadio(port string, baudRate int, logger log.Logger) (*StreamRadio, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	return NewStreamRadio(p, logger), nil
}

var (
	_ sixlowpan.Radio               = &StreamRadio{}
	_ sixlowpan.AssociationNotifier = &StreamRadio{}
)

// StreamRadio is a radio coprocessor reached over a stream (e.g. serial port or TCP connection).
// A background reader demultiplexes responses, received frames and association events.
type StreamRadio struct {
	Stream  io.ReadWriteCloser
	Logger  log.Logger
	Timeout time.Duration

	writeLock sync.Mutex
	nextID    atomic.Uint32
	closed    atomic.Bool

	mu        sync.Mutex
	pending   map[uint32]chan *fromRadio
	callbacks []func()

	frames chan []byte
	done   chan struct{}
}

// NewStreamRadio starts reading from stream.
func NewStreamRadio(stream io.ReadWriteCloser, logger log.Logger) *StreamRadio {
	sr := &StreamRadio{
		Stream:  stream,
		Logger:  log.OrNOOP(logger),
		Timeout: DefaultTimeout,
		pending: make(map[uint32]chan *fromRadio),
		frames:  make(chan []byte, rxQueueSize),
		done:    make(chan struct{}),
	}
	go sr.readLoop()
	return sr
}

func (sr *StreamRadio) Transmit(frame []byte) error {
	if err := sixlowpan.CheckTransmit(frame); err != nil {
		return err
	}
	resp, err := sr.request(&toRadio{Op: opTransmit, Frame: frame})
	if err != nil {
		return err
	}
	return resp.Result.Err()
}

func (sr *StreamRadio) Receive(buf []byte) (int, error) {
	if err := sixlowpan.CheckReceive(buf); err != nil {
		return 0, err
	}
	select {
	case frame := <-sr.frames:
		return copy(buf, frame), nil
	default:
	}
	if sr.closed.Load() {
		return 0, sixlowpan.ErrNoConnection
	}
	return 0, nil
}

func (sr *StreamRadio) AddrExt(dst []byte) error {
	if err := sixlowpan.CheckAddrExt(dst); err != nil {
		return err
	}
	resp, err := sr.request(&toRadio{Op: opGetAddrExt})
	if err != nil {
		return err
	}
	if err := resp.Result.Err(); err != nil {
		return err
	}
	if len(resp.AddrExt) != len(dst) {
		return fmt.Errorf("%w: coprocessor returned %d octet extended address", sixlowpan.ErrRx, len(resp.AddrExt))
	}
	copy(dst, resp.AddrExt)
	return nil
}

func (sr *StreamRadio) PANID() uint16 {
	resp, err := sr.request(&toRadio{Op: opGetPANID})
	if err != nil || !resp.HasPANID {
		sr.Logger.Warn("Cannot query PAN identifier", "error", err)
		return sixlowpan.PANUnassociated
	}
	return resp.PANID
}

func (sr *StreamRadio) AddrShort() uint16 {
	resp, err := sr.request(&toRadio{Op: opGetAddrShort})
	if err != nil || !resp.HasAddrShort {
		sr.Logger.Warn("Cannot query short address", "error", err)
		return sixlowpan.ShortAddrUnassigned
	}
	return resp.AddrShort
}

func (sr *StreamRadio) SetAddrShort(addr uint16) error {
	resp, err := sr.request(&toRadio{Op: opSetAddrShort, Addr: addr})
	if err != nil {
		return err
	}
	return resp.Result.Err()
}

func (sr *StreamRadio) OnShortAddrConfigured(fn func()) {
	sr.mu.Lock()
	sr.callbacks = append(sr.callbacks, fn)
	sr.mu.Unlock()
}

// Close stops the reader and closes the stream.
func (sr *StreamRadio) Close() error {
	sr.closed.Store(true)
	err := sr.Stream.Close()
	<-sr.done
	return err
}

func (sr *StreamRadio) request(req *toRadio) (*fromRadio, error) {
	if sr.closed.Load() {
		return nil, sixlowpan.ErrNoConnection
	}
	req.ID = sr.nextID.Add(1)
	if req.ID == 0 {
		req.ID = sr.nextID.Add(1)
	}

	ch := make(chan *fromRadio, 1)
	sr.mu.Lock()
	sr.pending[req.ID] = ch
	sr.mu.Unlock()
	defer func() {
		sr.mu.Lock()
		delete(sr.pending, req.ID)
		sr.mu.Unlock()
	}()

	sr.writeLock.Lock()
	err := writePDU(sr.Stream, req.marshal())
	sr.writeLock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sixlowpan.ErrNoConnection, err)
	}

	timer := time.NewTimer(sr.Timeout)
	defer timer.Stop()
	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, sixlowpan.ErrNoConnection
		}
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no response to request %d within %s", sixlowpan.ErrNoConnection, req.ID, sr.Timeout)
	}
}

func (sr *StreamRadio) readLoop() {
	defer close(sr.done)
	defer sr.failPending()

	for {
		buf, err := readPDU(sr.Stream)
		if err != nil {
			if !sr.closed.Load() {
				sr.Logger.Error("Serial link lost", "error", err)
			}
			sr.closed.Store(true)
			return
		}

		msg := new(fromRadio)
		if err := msg.unmarshal(buf); err != nil {
			sr.Logger.Warn("Dropping malformed coprocessor message", "error", err)
			continue
		}
		sr.dispatch(msg)
	}
}

func (sr *StreamRadio) dispatch(msg *fromRadio) {
	if msg.ID != 0 {
		sr.mu.Lock()
		ch, ok := sr.pending[msg.ID]
		sr.mu.Unlock()
		if !ok {
			sr.Logger.Debug("Late response from coprocessor", "id", msg.ID)
			return
		}
		select {
		case ch <- msg:
		default:
			sr.Logger.Warn("Duplicate response from coprocessor", "id", msg.ID)
		}
		return
	}

	if msg.Frame != nil {
		if len(msg.Frame) > ieee802154.PhyMTU {
			sr.Logger.Warn("Dropping oversized frame", "len", len(msg.Frame))
		} else {
			select {
			case sr.frames <- msg.Frame:
			default:
				sr.Logger.Warn("Receive queue full, dropping frame", "len", len(msg.Frame))
			}
		}
	}

	if msg.HasConfigured {
		sr.Logger.Info("Coprocessor reports short address", "short", fmt.Sprintf("0x%04x", msg.Configured))
		sr.mu.Lock()
		callbacks := append([]func(){}, sr.callbacks...)
		sr.mu.Unlock()
		for _, fn := range callbacks {
			// callbacks query the radio, which needs this goroutine to deliver the answer
			go fn()
		}
	}
}

func (sr *StreamRadio) failPending() {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	for id, ch := range sr.pending {
		close(ch)
		delete(sr.pending, id)
	}
}
