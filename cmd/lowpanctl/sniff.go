package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/metrics"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/pcap"
)

func newSniffCmd(a *app) *cobra.Command {
	var capturePath string

	cmd := &cobra.Command{
		Use:   "sniff",
		Short: "Print every frame the radio receives",
		Long: `Print every frame the radio receives until interrupted. Secured frames
whose frame counter goes backwards are flagged as replays.

Examples:
  lowpanctl sniff -c lowpanctl.yml
  lowpanctl sniff -w capture.pcap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.logger.Sync()
			if capturePath != "" {
				a.cfg.Capture.Path = capturePath
			}
			return a.sniff(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&capturePath, "write", "w", "", "write received frames to a pcap file (overrides capture.path)")
	return cmd
}

func (a *app) sniff(ctx context.Context, out io.Writer) error {
	radio, closeRadio, err := openRadio(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeRadio()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			return err
		}
		scheme, _ := a.cfg.Radio.Scheme()
		radio = collector.Instrument(scheme, radio)

		srv := metrics.NewServer(a.cfg.Metrics.Listen, a.cfg.Metrics.Path, reg, a.logger)
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	if a.cfg.Capture.Path != "" {
		f, err := os.Create(a.cfg.Capture.Path)
		if err != nil {
			return fmt.Errorf("failed to create capture: %w", err)
		}
		defer f.Close()
		if radio, err = pcap.NewTap(radio, f, a.logger); err != nil {
			return err
		}
		a.logger.Info("Recording capture", "path", a.cfg.Capture.Path)
	}

	device, err := sixlowpan.NewDevice(radio, sixlowpan.WithLogger(a.logger))
	if err != nil {
		return err
	}

	pub := &sixlowpan.FanOutFramePublisher{Logger: a.logger}
	pub.Subscribe(newFramePrinter(out))

	g.Go(func() error {
		defer cancel()
		err := pub.PublishAll(ctx, device)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, sixlowpan.ErrNoConnection) && strings.HasPrefix(a.cfg.Radio.URL, "pcap:"):
			a.logger.Info("End of capture")
			return nil
		default:
			return err
		}
	})

	return g.Wait()
}

// framePrinter writes one line per frame and flags replayed frame counters.
type framePrinter struct {
	mu       sync.Mutex
	out      io.Writer
	counters *ieee802154.CounterTable
}

func newFramePrinter(out io.Writer) *framePrinter {
	return &framePrinter{out: out, counters: ieee802154.NewCounterTable()}
}

func (p *framePrinter) OnFrame(f *ieee802154.Frame) {
	line := fmt.Sprintf("%s len=%d", f.Header.String(), len(f.Payload))
	if f.Security != nil {
		line += fmt.Sprintf(" level=%s counter=%d", f.Security.Control.Level, f.Security.FrameCounter)
	}
	if err := p.counters.Accept(f); err != nil {
		line += " REPLAY"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}
