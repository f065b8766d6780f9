package ieee802154

import (
	"fmt"
	"sync"
)

type counterKey struct {
	keyID  [MaxKeyIDLen]byte
	mode   KeyIDMode
	source EUI64
	short  uint16
	sMode  AddrMode
}

// CounterTable remembers the last accepted frame counter per key and source address.
// It is safe for concurrent use.
type CounterTable struct {
	mu   sync.Mutex
	last map[counterKey]uint32
}

// NewCounterTable returns an empty table.
func NewCounterTable() *CounterTable {
	return &CounterTable{last: make(map[counterKey]uint32)}
}

// Accept records the frame counter of a secured frame. A counter lower than the last
// accepted one for the same key and source yields ErrReplay; equal counters are accepted.
func (t *CounterTable) Accept(f *Frame) error {
	if f.Security == nil {
		return nil
	}
	fc := f.Header.FrameControl
	k := counterKey{
		keyID: f.Security.KeyIdentifier,
		mode:  f.Security.Control.KeyIDMode,
		sMode: fc.SrcAddrMode,
	}
	src := f.Header.SrcAddr.canonical(fc.SrcAddrMode)
	k.source, k.short = src.Extended, src.Short

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		t.last = make(map[counterKey]uint32)
	}
	if last, ok := t.last[k]; ok && f.Security.FrameCounter < last {
		return fmt.Errorf("%w: counter %d below %d from %s", ErrReplay, f.Security.FrameCounter, last,
			src.Format(fc.SrcAddrMode))
	}
	t.last[k] = f.Security.FrameCounter
	return nil
}

// Len returns the number of tracked (key, source) pairs.
func (t *CounterTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
