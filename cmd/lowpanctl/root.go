package main

import (
	"github.com/spf13/cobra"

	"github.com/exepirit/sixlowpan-go/internal/config"
	"github.com/exepirit/sixlowpan-go/internal/log"
)

var version = "0.1.0"

// app carries what the subcommands share once the configuration is loaded.
type app struct {
	configFile string

	cfg    *config.Config
	logger *log.ZapLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lowpanctl",
		Short: "Inspect IEEE 802.15.4 frames and 6LoWPAN radios",
		Long: `lowpanctl talks to IEEE 802.15.4 radios through the 6LoWPAN radio boundary.

Radios are selected by URL:
  serial:/dev/ttyACM0          coprocessor on a serial port
  http://192.168.4.1           coprocessor behind an HTTP API
  mqtt://broker:1883           virtual PAN over an MQTT broker
  udp://224.0.0.154:17754      shared medium over UDP multicast
  pcap:capture.pcap            replay of a capture file`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path")

	root.AddCommand(newDecodeCmd())
	root.AddCommand(newSniffCmd(a))
	root.AddCommand(newInfoCmd(a))
	return root
}

// load reads the configuration and builds the logger.
func (a *app) load() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	logger, err := log.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}
