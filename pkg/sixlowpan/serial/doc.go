// Package serial drives an 802.15.4 radio coprocessor. Requests, responses,
// received frames and association events travel as small protobuf messages,
// either framed on a serial stream (StreamRadio) or carried by HTTP (HTTPRadio).
package serial
