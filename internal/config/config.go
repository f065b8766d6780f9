// Package config loads the lowpanctl configuration using viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
)

// EnvPrefix prefixes every environment override, e.g. LOWPAN_RADIO_URL.
const EnvPrefix = "LOWPAN"

// Config is the complete lowpanctl configuration.
type Config struct {
	Radio   RadioConfig   `mapstructure:"radio"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Prefix  string        `mapstructure:"prefix"`
	Log     log.Config    `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Capture CaptureConfig `mapstructure:"capture"`
}

// RadioConfig selects the radio driver. The URL scheme picks the driver:
// serial:/dev/ttyACM0, http://coprocessor, mqtt://broker:1883, udp://224.0.0.154:17754,
// pcap:file.pcap.
type RadioConfig struct {
	URL       string        `mapstructure:"url"`
	Baud      int           `mapstructure:"baud"`
	PANID     uint16        `mapstructure:"pan_id"`
	EUI64     string        `mapstructure:"eui64"`
	ShortAddr uint16        `mapstructure:"short_addr"`
	Interface string        `mapstructure:"interface"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MQTTConfig struct {
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	AppName   string `mapstructure:"app_name"`
	RootTopic string `mapstructure:"root_topic"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// CaptureConfig enables recording of all radio traffic to a pcap file.
type CaptureConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads the configuration file at path, applies LOWPAN_* environment
// overrides and validates the result. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("radio.url", "udp://224.0.0.154:17754")
	v.SetDefault("radio.baud", 115200)
	v.SetDefault("radio.pan_id", 0xabcd)
	v.SetDefault("radio.eui64", "")
	v.SetDefault("radio.short_addr", ieee802154.ShortAddrUnassigned)
	v.SetDefault("radio.interface", "")
	v.SetDefault("radio.timeout", "1s")

	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.app_name", "lowpanctl")
	v.SetDefault("mqtt.root_topic", "lowpan")

	v.SetDefault("prefix", "fe80::/64")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9154")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("capture.path", "")
}

// Validate checks the fields that cannot be checked by decoding alone.
func (cfg *Config) Validate() error {
	var errs []error

	if _, err := cfg.Radio.Scheme(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Radio.Baud <= 0 {
		errs = append(errs, fmt.Errorf("radio.baud must be positive, got %d", cfg.Radio.Baud))
	}
	if cfg.Radio.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("radio.timeout must be positive, got %s", cfg.Radio.Timeout))
	}
	if _, err := cfg.Radio.ParseEUI64(); err != nil {
		errs = append(errs, fmt.Errorf("radio.eui64: %w", err))
	}
	if _, err := cfg.ParsePrefix(); err != nil {
		errs = append(errs, fmt.Errorf("prefix: %w", err))
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

// Scheme returns the driver scheme of the radio URL.
func (rc *RadioConfig) Scheme() (string, error) {
	u, err := url.Parse(rc.URL)
	if err != nil {
		return "", fmt.Errorf("radio.url: %w", err)
	}
	switch u.Scheme {
	case "serial", "http", "https", "mqtt", "mqtts", "tcp", "ssl", "ws", "wss", "udp", "pcap":
		return u.Scheme, nil
	case "":
		return "", fmt.Errorf("radio.url %q has no scheme", rc.URL)
	default:
		return "", fmt.Errorf("radio.url scheme %q is not supported", u.Scheme)
	}
}

// ParseEUI64 returns the configured extended address, the zero EUI-64 when unset.
func (rc *RadioConfig) ParseEUI64() (ieee802154.EUI64, error) {
	if rc.EUI64 == "" {
		return ieee802154.EUI64{}, nil
	}
	return ieee802154.ParseEUI64(rc.EUI64)
}

// ParsePrefix returns the configured IPv6 prefix, or the zero Prefix when unset.
func (cfg *Config) ParsePrefix() (netip.Prefix, error) {
	if cfg.Prefix == "" {
		return netip.Prefix{}, nil
	}
	prefix, err := netip.ParsePrefix(cfg.Prefix)
	if err != nil {
		return netip.Prefix{}, err
	}
	if !prefix.Addr().Is6() {
		return netip.Prefix{}, fmt.Errorf("%s is not an IPv6 prefix", prefix)
	}
	return prefix, nil
}
