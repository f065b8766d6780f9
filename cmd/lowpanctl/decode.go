package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
)

func newDecodeCmd() *cobra.Command {
	var withFCS bool

	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a MAC frame given in hex",
		Long: `Decode a MAC frame given in hex. Spaces, colons and dashes between octets are ignored.

Examples:
  lowpanctl decode 4188 01 cdab ffff 0100
  lowpanctl decode --fcs 41:88:01:cd:ab:ff:ff:01:00:68:57`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			return decodeFrame(cmd.OutOrStdout(), raw, withFCS)
		},
	}
	cmd.Flags().BoolVar(&withFCS, "fcs", false, "input ends with a frame check sequence")
	return cmd
}

func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "", "0x", "").Replace(s)
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return raw, nil
}

func decodeFrame(out io.Writer, raw []byte, withFCS bool) error {
	if withFCS {
		body, err := ieee802154.CheckFCS(raw)
		if err != nil {
			return err
		}
		raw = body
	}

	frame, err := ieee802154.DecodeFrame(raw)
	if err != nil {
		return err
	}

	h := &frame.Header
	fc := h.FrameControl
	fmt.Fprintf(out, "frame:    %s\n", h.String())
	fmt.Fprintf(out, "fcf:      0x%04x version=%d pending=%t ack=%t intra-pan=%t\n",
		fc.Uint16(), fc.FrameVersion, fc.FramePending, fc.AckRequired, fc.IntraPAN)
	if pan, ok := h.DstPAN(); ok {
		fmt.Fprintf(out, "dst:      0x%04x/%s\n", pan, h.DstAddr.Format(fc.DstAddrMode))
	}
	if pan, ok := h.SourcePAN(); ok {
		fmt.Fprintf(out, "src:      0x%04x/%s\n", pan, h.SrcAddr.Format(fc.SrcAddrMode))
	}
	if sec := frame.Security; sec != nil {
		fmt.Fprintf(out, "security: level=%s counter=%d", sec.Control.Level, sec.FrameCounter)
		if idx, ok := sec.KeyIndex(); ok {
			fmt.Fprintf(out, " key-index=%d", idx)
		}
		if src := sec.KeySource(); len(src) > 0 {
			fmt.Fprintf(out, " key-source=%x", src)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "payload:  %d octets %x\n", len(frame.Payload), frame.Payload)
	return nil
}
