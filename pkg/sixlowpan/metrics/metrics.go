// Package metrics instruments radios with Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

const namespace = "lowpan"

const (
	directionTx = "tx"
	directionRx = "rx"
)

// Collector holds the radio metrics. One collector can serve several radios,
// distinguished by the radio label.
type Collector struct {
	frames *prometheus.CounterVec
	octets *prometheus.CounterVec
	errors *prometheus.CounterVec
	// FrameSize is exported for callers that observe decoded frames.
	FrameSize *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "radio",
				Name:      "frames_total",
				Help:      "Total frames passed through the radio.",
			},
			[]string{"radio", "direction"},
		),
		octets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "radio",
				Name:      "octets_total",
				Help:      "Total frame octets passed through the radio.",
			},
			[]string{"radio", "direction"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "radio",
				Name:      "errors_total",
				Help:      "Total radio errors by result code.",
			},
			[]string{"radio", "direction", "code"},
		),
		FrameSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "radio",
				Name:      "frame_size_octets",
				Help:      "Size of frames passed through the radio.",
				Buckets:   prometheus.LinearBuckets(16, 16, 8),
			},
			[]string{"radio", "direction"},
		),
	}

	for _, collector := range []prometheus.Collector{c.frames, c.octets, c.errors, c.FrameSize} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Instrument wraps radio so its traffic is counted under the given name.
func (c *Collector) Instrument(name string, radio sixlowpan.Radio) *Radio {
	return &Radio{Radio: radio, name: name, c: c}
}

func (c *Collector) observe(name, direction string, n int) {
	c.frames.WithLabelValues(name, direction).Inc()
	c.octets.WithLabelValues(name, direction).Add(float64(n))
	c.FrameSize.WithLabelValues(name, direction).Observe(float64(n))
}

func (c *Collector) fail(name, direction string, err error) {
	c.errors.WithLabelValues(name, direction, codeLabel(err)).Inc()
}

func codeLabel(err error) string {
	switch {
	case errors.Is(err, sixlowpan.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, sixlowpan.ErrNoMemory):
		return "no_memory"
	case errors.Is(err, sixlowpan.ErrNoConnection):
		return "no_connection"
	case errors.Is(err, sixlowpan.ErrRx):
		return "rx"
	case errors.Is(err, sixlowpan.ErrTx):
		return "tx"
	default:
		return "other"
	}
}

var (
	_ sixlowpan.Radio               = &Radio{}
	_ sixlowpan.AssociationNotifier = &Radio{}
)

// Radio counts the frames, octets and errors of the radio it decorates.
type Radio struct {
	sixlowpan.Radio

	name string
	c    *Collector
}

func (r *Radio) Transmit(frame []byte) error {
	err := r.Radio.Transmit(frame)
	if err != nil {
		r.c.fail(r.name, directionTx, err)
		return err
	}
	r.c.observe(r.name, directionTx, len(frame))
	return nil
}

func (r *Radio) Receive(buf []byte) (int, error) {
	n, err := r.Radio.Receive(buf)
	if err != nil {
		r.c.fail(r.name, directionRx, err)
		return n, err
	}
	if n > 0 {
		r.c.observe(r.name, directionRx, n)
	}
	return n, nil
}

func (r *Radio) OnShortAddrConfigured(fn func()) {
	if notifier, ok := r.Radio.(sixlowpan.AssociationNotifier); ok {
		notifier.OnShortAddrConfigured(fn)
	}
}
