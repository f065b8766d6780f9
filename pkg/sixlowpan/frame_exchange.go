package sixlowpan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
)

// FramePublisher implements part of the pubsub pattern allowing other parts of the system to subscribe and receive
// frames.
type FramePublisher interface {
	Publish(frame *ieee802154.Frame)
}

// FrameSubscriber handles frames received from a publisher.
type FrameSubscriber interface {
	OnFrame(frame *ieee802154.Frame)
}

// FrameSubscriberFunc adapts a function to FrameSubscriber.
type FrameSubscriberFunc func(frame *ieee802154.Frame)

func (fn FrameSubscriberFunc) OnFrame(frame *ieee802154.Frame) {
	fn(frame)
}

// FanOutFramePublisher delivers every published frame to all subscribers concurrently
// and waits for them to finish.
type FanOutFramePublisher struct {
	// PollInterval is the pause between Receive calls while the radio has nothing pending.
	PollInterval time.Duration
	Logger       log.Logger

	mu          sync.RWMutex
	subscribers []FrameSubscriber
}

func (pub *FanOutFramePublisher) Subscribe(subscriber FrameSubscriber) {
	pub.mu.Lock()
	pub.subscribers = append(pub.subscribers, subscriber)
	pub.mu.Unlock()
}

func (pub *FanOutFramePublisher) Publish(frame *ieee802154.Frame) {
	pub.mu.RLock()
	subscribers := pub.subscribers
	pub.mu.RUnlock()

	wg := sync.WaitGroup{}
	wg.Add(len(subscribers))
	for _, sub := range subscribers {
		go func() {
			defer wg.Done()
			sub.OnFrame(frame)
		}()
	}
	wg.Wait()
}

// PublishAll receives frames from the device until ctx is done or the radio is gone.
// Undecodable frames are dropped; receive errors are logged and receiving continues.
func (pub *FanOutFramePublisher) PublishAll(ctx context.Context, device *Device) error {
	logger := pub.Logger
	if logger == nil {
		logger = log.NOOPLogger{}
	}
	interval := pub.PollInterval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := device.Receive()
		switch {
		case err == nil:
			pub.Publish(&frame)
			continue
		case errors.Is(err, ErrNoFrame):
		case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrNoConnection):
			return err
		default:
			logger.Warn("Cannot receive next frame", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
