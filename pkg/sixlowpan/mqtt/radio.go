// Package mqtt bridges a virtual 802.15.4 PAN over an MQTT broker. Every radio
// publishes its frames to its own topic and listens to the topics of its PAN.
package mqtt

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan/internal/linkaddr"
)

// ErrNotConnected is returned when attempting to perform an operation on a client that is not connected to the broker.
var ErrNotConnected = fmt.Errorf("%w: client is not connected to broker", sixlowpan.ErrNoConnection)

const (
	DefaultRootTopic = "lowpan"
	DefaultQueueSize = 64

	disconnectQuiesceMs = 1000
)

// Options configures a Radio.
type Options struct {
	// BrokerURL is the URL of the MQTT broker to connect to.
	BrokerURL string
	// Username is the username for MQTT authentication.
	Username string
	// Password is the password for MQTT authentication.
	Password string
	// AppName is used as the prefix of the MQTT client ID.
	AppName string
	// RootTopic is the base topic of all PANs.
	RootTopic string
	// QueueSize bounds the number of received frames waiting for Receive.
	QueueSize int

	EUI64     ieee802154.EUI64
	PANID     uint16
	ShortAddr uint16

	Logger log.Logger
}

var (
	_ sixlowpan.Radio               = &Radio{}
	_ sixlowpan.AssociationNotifier = &Radio{}
)

// Radio is a software radio whose air is an MQTT topic tree.
type Radio struct {
	opts   Options
	logger log.Logger
	addr   *linkaddr.State

	mu     sync.Mutex
	client mqtt.Client
	frames chan []byte
}

// NewRadio creates a disconnected radio. Call Connect before transmitting.
func NewRadio(opts Options) *Radio {
	if opts.RootTopic == "" {
		opts.RootTopic = DefaultRootTopic
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.AppName == "" {
		opts.AppName = "lowpanctl"
	}
	return &Radio{
		opts:   opts,
		logger: log.OrNOOP(opts.Logger),
		addr:   linkaddr.New(opts.EUI64, opts.PANID, opts.ShortAddr),
		frames: make(chan []byte, opts.QueueSize),
	}
}

// Topic is the topic this radio publishes its frames to.
func (r *Radio) Topic() string {
	eui := r.addr.EUI64()
	return fmt.Sprintf("%s/%04x/%s", r.opts.RootTopic, r.addr.PANID(), hex.EncodeToString(eui[:]))
}

// PANTopic is the subscription filter covering every radio of the PAN.
func (r *Radio) PANTopic() string {
	return fmt.Sprintf("%s/%04x/+", r.opts.RootTopic, r.addr.PANID())
}

// Connect establishes an MQTT connection to the broker and subscribes to the PAN.
// It generates a random client ID suffix.
func (r *Radio) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil && r.client.IsConnected() {
		return nil
	}

	randomID := make([]byte, 4)
	_, _ = rand.Read(randomID)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(r.opts.BrokerURL)
	opts.SetUsername(r.opts.Username)
	opts.SetPassword(r.opts.Password)
	opts.SetClientID(fmt.Sprintf("%s-%x", r.opts.AppName, randomID))
	opts.SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	<-token.Done()
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: failed to connect MQTT: %v", sixlowpan.ErrNoConnection, err)
	}

	token = client.Subscribe(r.PANTopic(), 0, r.handleMessage)
	<-token.Done()
	if err := token.Error(); err != nil {
		client.Disconnect(disconnectQuiesceMs)
		return fmt.Errorf("%w: failed to subscribe to topic: %v", sixlowpan.ErrNoConnection, err)
	}

	r.client = client
	r.logger.Info("Joined MQTT PAN", "broker", r.opts.BrokerURL, "topic", r.Topic())
	return nil
}

// Disconnect closes the MQTT connection. Frames already queued can still be received.
func (r *Radio) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil && r.client.IsConnected() {
		r.client.Disconnect(disconnectQuiesceMs)
	}
	r.client = nil
}

func (r *Radio) Close() error {
	r.Disconnect()
	return nil
}

func (r *Radio) Transmit(frame []byte) error {
	if err := sixlowpan.CheckTransmit(frame); err != nil {
		return err
	}
	client, err := r.connected()
	if err != nil {
		return err
	}

	token := client.Publish(r.Topic(), 0, false, append([]byte(nil), frame...))
	<-token.Done()
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", sixlowpan.ErrTx, err)
	}
	return nil
}

func (r *Radio) Receive(buf []byte) (int, error) {
	if err := sixlowpan.CheckReceive(buf); err != nil {
		return 0, err
	}
	select {
	case frame := <-r.frames:
		return copy(buf, frame), nil
	default:
	}
	if _, err := r.connected(); err != nil {
		return 0, err
	}
	return 0, nil
}

func (r *Radio) AddrExt(dst []byte) error {
	return r.addr.AddrExt(dst)
}

func (r *Radio) PANID() uint16 {
	return r.addr.PANID()
}

func (r *Radio) AddrShort() uint16 {
	return r.addr.AddrShort()
}

func (r *Radio) SetAddrShort(addr uint16) error {
	return r.addr.SetAddrShort(addr)
}

func (r *Radio) OnShortAddrConfigured(fn func()) {
	r.addr.OnShortAddrConfigured(fn)
}

func (r *Radio) connected() (mqtt.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil || !r.client.IsConnected() {
		return nil, ErrNotConnected
	}
	return r.client, nil
}

func (r *Radio) handleMessage(_ mqtt.Client, message mqtt.Message) {
	if message.Topic() == r.Topic() {
		return
	}
	if !strings.HasPrefix(message.Topic(), strings.TrimSuffix(r.PANTopic(), "+")) {
		r.logger.Debug("Ignoring message from foreign topic", "topic", message.Topic())
		return
	}

	payload := message.Payload()
	if err := sixlowpan.CheckTransmit(payload); err != nil {
		r.logger.Warn("Dropping oversized frame", "topic", message.Topic(), "error", err)
		return
	}

	select {
	case r.frames <- append([]byte(nil), payload...):
	default:
		r.logger.Warn("Receive queue full, dropping frame", "topic", message.Topic())
	}
}
