// Package ieee802154 encodes and decodes the IEEE 802.15.4 MAC frame header and
// auxiliary security header as they appear on the air.
//
// Every bit-packed field is produced by explicit shifts and masks over octet
// buffers. Multi-octet fields are little-endian.
package ieee802154
