package main

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/exepirit/sixlowpan-go/internal/config"
	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/mqtt"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/pcap"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/serial"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/udp"
)

// openRadio sets up the radio driver selected by the URL scheme. The returned
// function releases the driver.
func openRadio(cfg *config.Config, logger log.Logger) (sixlowpan.Radio, func() error, error) {
	u, err := url.Parse(cfg.Radio.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("radio URL is not valid: %w", err)
	}
	eui, err := cfg.Radio.ParseEUI64()
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Opening radio", "url", cfg.Radio.URL)
	switch u.Scheme {
	case "serial":
		r, err := serial.NewRadio(urlPath(u), cfg.Radio.Baud, logger)
		if err != nil {
			return nil, nil, err
		}
		r.Timeout = cfg.Radio.Timeout
		return r, r.Close, nil

	case "http", "https":
		r := serial.NewHTTPRadio(strings.TrimSuffix(u.String(), "/"), logger)
		r.Timeout = cfg.Radio.Timeout
		return r, func() error { return nil }, nil

	case "mqtt", "mqtts", "tcp", "ssl", "ws", "wss":
		if eui == (ieee802154.EUI64{}) {
			eui = randomEUI64()
		}
		username, password := cfg.MQTT.Username, cfg.MQTT.Password
		if u.User != nil {
			username = u.User.Username()
			if p, ok := u.User.Password(); ok {
				password = p
			}
		}
		r := mqtt.NewRadio(mqtt.Options{
			BrokerURL: brokerURL(u),
			Username:  username,
			Password:  password,
			AppName:   cfg.MQTT.AppName,
			RootTopic: cfg.MQTT.RootTopic,
			EUI64:     eui,
			PANID:     cfg.Radio.PANID,
			ShortAddr: cfg.Radio.ShortAddr,
			Logger:    logger,
		})
		if err := r.Connect(); err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil

	case "udp":
		if eui == (ieee802154.EUI64{}) {
			eui = randomEUI64()
		}
		r, err := udp.NewRadio(u.Host, cfg.Radio.Interface, udp.Options{
			EUI64:     eui,
			PANID:     cfg.Radio.PANID,
			ShortAddr: cfg.Radio.ShortAddr,
			Logger:    logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil

	case "pcap":
		f, err := os.Open(urlPath(u))
		if err != nil {
			return nil, nil, err
		}
		r, err := pcap.NewReplay(f, pcap.ReplayOptions{
			EUI64:     eui,
			PANID:     cfg.Radio.PANID,
			ShortAddr: cfg.Radio.ShortAddr,
		})
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return r, f.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported radio URL scheme %q", u.Scheme)
	}
}

// urlPath returns the path of "scheme:relative" and "scheme:/absolute" URLs alike.
func urlPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Path
}

// brokerURL rewrites mqtt:// and mqtts:// to the schemes paho dials.
func brokerURL(u *url.URL) string {
	b := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	switch u.Scheme {
	case "mqtt":
		b.Scheme = "tcp"
	case "mqtts":
		b.Scheme = "ssl"
	}
	return b.String()
}

// randomEUI64 returns a locally administered unicast EUI-64.
func randomEUI64() ieee802154.EUI64 {
	var e ieee802154.EUI64
	_, _ = rand.Read(e[:])
	e[0] = e[0]&^0x01 | 0x02
	return e
}
