package ieee802154

import "errors"

var (
	// ErrMalformedHeader indicates a truncated header or a header whose computed length exceeds the buffer.
	ErrMalformedHeader = errors.New("ieee802154: malformed header")
	// ErrReservedField indicates a frame type or addressing mode carrying a reserved value.
	ErrReservedField = errors.New("ieee802154: reserved field value")
	// ErrInvalidKeyIDMode is returned when a key identifier mode is outside of 0..3.
	ErrInvalidKeyIDMode = errors.New("ieee802154: invalid key identifier mode")
	// ErrInvalidArgument indicates caller misuse, e.g. a frame larger than the MAC MTU.
	ErrInvalidArgument = errors.New("ieee802154: invalid argument")
	// ErrReplay is returned when a frame counter goes backwards for a key and source.
	ErrReplay = errors.New("ieee802154: frame counter replay")
)
