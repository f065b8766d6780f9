package sixlowpan_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/radiotest"
)

type frameCollector struct {
	mu     sync.Mutex
	frames []ieee802154.Frame
}

func (c *frameCollector) OnFrame(f *ieee802154.Frame) {
	c.mu.Lock()
	c.frames = append(c.frames, *f)
	c.mu.Unlock()
}

func (c *frameCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestPublishAllFansOut(t *testing.T) {
	medium := radiotest.NewMedium()
	radio := medium.Attach(testEUI)
	d, err := sixlowpan.NewDevice(radio)
	require.NoError(t, err)

	var first, second frameCollector
	pub := &sixlowpan.FanOutFramePublisher{PollInterval: time.Millisecond}
	pub.Subscribe(&first)
	pub.Subscribe(&second)

	radio.Inject([]byte{0x41, 0x88, 0x01, 0xcd, 0xab, 0xff, 0xff, 0x01, 0x00, 0xaa})
	radio.Inject([]byte{0x41, 0x88}) // dropped
	radio.Inject([]byte{0x41, 0x88, 0x02, 0xcd, 0xab, 0xff, 0xff, 0x01, 0x00, 0xbb})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.PublishAll(ctx, d) }()

	assert.Eventually(t, func() bool {
		return first.count() == 2 && second.count() == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, uint8(1), first.frames[0].Header.Seq)
	assert.Equal(t, uint8(2), first.frames[1].Header.Seq)
}

func TestPublishAllStopsWhenRadioIsLost(t *testing.T) {
	radio := radiotest.NewMedium().Attach(testEUI)
	d, err := sixlowpan.NewDevice(radio)
	require.NoError(t, err)
	radio.SetConnected(false)

	pub := &sixlowpan.FanOutFramePublisher{PollInterval: time.Millisecond}
	err = pub.PublishAll(context.Background(), d)
	assert.ErrorIs(t, err, sixlowpan.ErrNoConnection)
}

func TestFrameSubscriberFunc(t *testing.T) {
	var got *ieee802154.Frame
	pub := &sixlowpan.FanOutFramePublisher{}
	pub.Subscribe(sixlowpan.FrameSubscriberFunc(func(f *ieee802154.Frame) { got = f }))

	f := &ieee802154.Frame{}
	pub.Publish(f)
	assert.Same(t, f, got)
}
