package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

type infoOptions struct {
	wait      time.Duration
	shortAddr uint16
	assign    bool
}

func newInfoCmd(a *app) *cobra.Command {
	opts := infoOptions{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the addresses and association state of the radio",
		Long: `Show the addresses and association state of the radio.

With --wait the command waits for the radio to be assigned a short address.
Software radios (mqtt, udp) can be given one with --short.

Examples:
  lowpanctl info -c lowpanctl.yml
  lowpanctl info --wait 30s
  lowpanctl info --short 0x0002`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.logger.Sync()
			opts.assign = cmd.Flags().Changed("short")
			return a.info(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().DurationVar(&opts.wait, "wait", 0, "wait up to this long for association")
	cmd.Flags().Uint16Var(&opts.shortAddr, "short", 0, "assign this short address to the radio")
	return cmd
}

func (a *app) info(ctx context.Context, out io.Writer, opts infoOptions) error {
	radio, closeRadio, err := openRadio(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeRadio()

	device, err := sixlowpan.NewDevice(radio, sixlowpan.WithLogger(a.logger))
	if err != nil {
		return err
	}
	prefix, err := a.cfg.ParsePrefix()
	if err != nil {
		return err
	}
	if prefix.IsValid() {
		if err := device.SetPrefix(prefix); err != nil {
			return err
		}
	}

	if opts.assign {
		if err := radio.SetAddrShort(opts.shortAddr); err != nil {
			return fmt.Errorf("failed to assign short address: %w", err)
		}
		// radios without association events are polled once
		device.NotifyShortAddrConfigured()
	}

	if opts.wait > 0 && device.State() != sixlowpan.Associated {
		select {
		case <-device.Associated():
		case <-time.After(opts.wait):
			a.logger.Warn("Radio did not associate in time", "wait", opts.wait)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return printDeviceInfo(out, device)
}

func printDeviceInfo(out io.Writer, device *sixlowpan.Device) error {
	eui, err := device.AddrExt()
	if err != nil {
		return fmt.Errorf("failed to query extended address: %w", err)
	}
	addr, err := device.Addr()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "state:  %s\n", device.State())
	fmt.Fprintf(out, "eui64:  %s\n", eui)
	fmt.Fprintf(out, "pan:    0x%04x\n", device.Radio().PANID())
	if short, ok := device.ShortAddr(); ok {
		fmt.Fprintf(out, "short:  0x%04x\n", short)
	} else {
		fmt.Fprintln(out, "short:  unassigned")
	}
	fmt.Fprintf(out, "ipv6:   %s\n", addr)
	return nil
}
