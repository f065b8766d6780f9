package sixlowpan

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates caller misuse, e.g. an oversized buffer or a nil radio.
	ErrInvalidArgument = errors.New("sixlowpan: invalid argument")
	// ErrNoMemory is returned by a driver that could not allocate a buffer.
	ErrNoMemory = errors.New("sixlowpan: out of memory")
	// ErrNoConnection is returned when the radio is not reachable.
	ErrNoConnection = errors.New("sixlowpan: no connection to radio")
	// ErrRx indicates a radio receive failure.
	ErrRx = errors.New("sixlowpan: receive error")
	// ErrTx indicates a radio transmit failure.
	ErrTx = errors.New("sixlowpan: transmit error")
)

// ResultCode is the numeric result a radio reports for an operation.
type ResultCode uint8

const (
	ResultOK ResultCode = iota
	ResultInvalidArgument
	ResultNoMemory
	ResultNoConnection
	ResultRxError
	ResultTxError
)

var resultErrors = [...]error{
	ResultOK:              nil,
	ResultInvalidArgument: ErrInvalidArgument,
	ResultNoMemory:        ErrNoMemory,
	ResultNoConnection:    ErrNoConnection,
	ResultRxError:         ErrRx,
	ResultTxError:         ErrTx,
}

// Err converts the code to its sentinel error. Unknown codes are reported as errors too.
func (c ResultCode) Err() error {
	if int(c) < len(resultErrors) {
		return resultErrors[c]
	}
	return fmt.Errorf("sixlowpan: unknown radio result code %d", uint8(c))
}

// ResultCodeOf maps an error back to the code a radio would report for it.
func ResultCodeOf(err error) ResultCode {
	if err == nil {
		return ResultOK
	}
	for code, sentinel := range resultErrors {
		if sentinel != nil && errors.Is(err, sentinel) {
			return ResultCode(code)
		}
	}
	return ResultTxError
}
