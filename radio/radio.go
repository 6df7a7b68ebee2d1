// Package radio defines the contract that meshclock's core consumes for the
// shared broadcast medium: a single process-wide receive callback, a peer
// table, and best-effort send. It deliberately says nothing about how
// packets actually get on the air; that is the out-of-scope "radio-layer
// send/receive primitive" collaborator from the design. The shape mirrors
// ESP-NOW (this protocol's origin, per the original C++ ESPNowMeshClock):
// one recv callback per process, peers added explicitly with a channel and
// an encryption flag, and a single shared broadcast address.
package radio

import "errors"

// BroadcastAddr is the pre-agreed group-broadcast address: the all-ones MAC
// of the underlying radio protocol.
var BroadcastAddr = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Frame is a single received datagram, handed to whichever receive callback
// is currently installed.
type Frame struct {
	Src   [6]byte // sender address
	Bytes []byte  // raw payload
}

// RecvFunc is the shape of the single receive callback a Radio supports.
type RecvFunc func(Frame)

// ErrInitFailed is returned by Begin when the underlying radio subsystem
// cannot be brought up. Per the design's failure semantics this is meant to
// be treated as fatal by the caller (log and restart).
var ErrInitFailed = errors.New("radio: initialization failed")

// Radio is the external collaborator meshclock.Core drives. A process has
// exactly one live Radio, addressed through whatever process-wide state the
// concrete implementation needs, because the underlying callback mechanism
// typically has no user-data slot.
type Radio interface {
	// Begin brings up the radio subsystem. It is called once, before any
	// other method, and its failure is fatal to the process per §4.7.
	Begin() error

	// RegisterRecvCb installs the single process-wide receive callback.
	// Registering a new callback replaces whatever was registered before.
	RegisterRecvCb(cb RecvFunc)

	// AddPeer registers a peer address for transmission, on the given
	// channel, with or without link-layer encryption. Begin() on the core
	// uses this to register BroadcastAddr as an unencrypted peer on
	// channel 0 before the first send.
	AddPeer(addr [6]byte, channel int, encrypt bool) error

	// Send transmits payload to addr best-effort. A failure here is
	// transient and logged, never retried by the caller: the next
	// scheduled broadcast takes the lost one's place.
	Send(addr [6]byte, payload []byte) error
}
