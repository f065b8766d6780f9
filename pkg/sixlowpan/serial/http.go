package serial

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/exepirit/sixlowpan-go/internal/log"
	"github.com/exepirit/sixlowpan-go/pkg/ieee802154"
	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

var (
	_ sixlowpan.Radio               = &HTTPRadio{}
	_ sixlowpan.AssociationNotifier = &HTTPRadio{}
)

// HTTPRadio is a coprocessor exposing the link messages over HTTP. Requests are
// PUT to /api/v1/toradio and answered in the response body; received frames and
// events are polled from /api/v1/fromradio, which answers with an empty body when
// nothing is pending.
type HTTPRadio struct {
	// URL is the base URL of the coprocessor API endpoint.
	URL string
	// Client is an HTTP client used to send requests.
	Client  http.Client
	Logger  log.Logger
	Timeout time.Duration

	nextID    atomic.Uint32
	mu        sync.Mutex
	callbacks []func()
}

// NewHTTPRadio returns a radio for the API at baseURL.
func NewHTTPRadio(baseURL string, logger log.Logger) *HTTPRadio {
	return &HTTPRadio{
		URL:     baseURL,
		Logger:  log.OrNOOP(logger),
		Timeout: DefaultTimeout,
	}
}

func (hr *HTTPRadio) Transmit(frame []byte) error {
	if err := sixlowpan.CheckTransmit(frame); err != nil {
		return err
	}
	resp, err := hr.request(&toRadio{Op: opTransmit, Frame: frame})
	if err != nil {
		return err
	}
	return resp.Result.Err()
}

func (hr *HTTPRadio) Receive(buf []byte) (int, error) {
	if err := sixlowpan.CheckReceive(buf); err != nil {
		return 0, err
	}
	ctx, cancel := hr.context()
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hr.URL+"/api/v1/fromradio?all=false", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	body, err := hr.do(req)
	if err != nil {
		return 0, err
	}
	if len(body) == 0 {
		return 0, nil
	}

	msg := new(fromRadio)
	if err := msg.unmarshal(body); err != nil {
		return 0, fmt.Errorf("%w: %v", sixlowpan.ErrRx, err)
	}
	if msg.HasConfigured {
		hr.logger().Info("Coprocessor reports short address", "short", fmt.Sprintf("0x%04x", msg.Configured))
		hr.mu.Lock()
		callbacks := append([]func(){}, hr.callbacks...)
		hr.mu.Unlock()
		for _, fn := range callbacks {
			fn()
		}
	}
	if len(msg.Frame) > ieee802154.PhyMTU {
		return 0, fmt.Errorf("%w: coprocessor returned a frame of %d octets", sixlowpan.ErrRx, len(msg.Frame))
	}
	return copy(buf, msg.Frame), nil
}

func (hr *HTTPRadio) AddrExt(dst []byte) error {
	if err := sixlowpan.CheckAddrExt(dst); err != nil {
		return err
	}
	resp, err := hr.request(&toRadio{Op: opGetAddrExt})
	if err != nil {
		return err
	}
	if err := resp.Result.Err(); err != nil {
		return err
	}
	if len(resp.AddrExt) != len(dst) {
		return fmt.Errorf("%w: coprocessor returned %d octet extended address", sixlowpan.ErrRx, len(resp.AddrExt))
	}
	copy(dst, resp.AddrExt)
	return nil
}

func (hr *HTTPRadio) PANID() uint16 {
	resp, err := hr.request(&toRadio{Op: opGetPANID})
	if err != nil || !resp.HasPANID {
		hr.logger().Warn("Cannot query PAN identifier", "error", err)
		return sixlowpan.PANUnassociated
	}
	return resp.PANID
}

func (hr *HTTPRadio) AddrShort() uint16 {
	resp, err := hr.request(&toRadio{Op: opGetAddrShort})
	if err != nil || !resp.HasAddrShort {
		hr.logger().Warn("Cannot query short address", "error", err)
		return sixlowpan.ShortAddrUnassigned
	}
	return resp.AddrShort
}

func (hr *HTTPRadio) SetAddrShort(addr uint16) error {
	resp, err := hr.request(&toRadio{Op: opSetAddrShort, Addr: addr})
	if err != nil {
		return err
	}
	return resp.Result.Err()
}

// OnShortAddrConfigured registers fn for association events. Events arrive with
// the polled messages, so fn runs inside Receive.
func (hr *HTTPRadio) OnShortAddrConfigured(fn func()) {
	hr.mu.Lock()
	hr.callbacks = append(hr.callbacks, fn)
	hr.mu.Unlock()
}

func (hr *HTTPRadio) request(msg *toRadio) (*fromRadio, error) {
	msg.ID = hr.nextID.Add(1)
	ctx, cancel := hr.context()
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, hr.URL+"/api/v1/toradio", bytes.NewBuffer(msg.marshal()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")

	body, err := hr.do(req)
	if err != nil {
		return nil, err
	}
	resp := new(fromRadio)
	if err := resp.unmarshal(body); err != nil {
		return nil, fmt.Errorf("%w: %v", sixlowpan.ErrRx, err)
	}
	if resp.ID != msg.ID {
		return nil, fmt.Errorf("%w: response to request %d, expected %d", sixlowpan.ErrRx, resp.ID, msg.ID)
	}
	return resp, nil
}

func (hr *HTTPRadio) do(req *http.Request) ([]byte, error) {
	response, err := hr.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sixlowpan.ErrNoConnection, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected response status code %d", sixlowpan.ErrNoConnection, response.StatusCode)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sixlowpan.ErrRx, err)
	}
	return body, nil
}

func (hr *HTTPRadio) context() (context.Context, context.CancelFunc) {
	timeout := hr.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (hr *HTTPRadio) logger() log.Logger {
	return log.OrNOOP(hr.Logger)
}
