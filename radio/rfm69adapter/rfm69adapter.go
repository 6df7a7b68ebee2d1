// Package rfm69adapter wraps the tve-devices sx1231 driver (a HopeRF RFM69
// module) behind the radio.Radio contract meshclock.Core drives. The sx1231
// driver is a point-to-multipoint FSK radio with no address filtering or
// peer table of its own -- every node on the same sync/frequency/rate
// configuration hears every packet -- so AddPeer is a no-op here and the
// reported Frame.Src is always the zero address: the clock protocol never
// looks at it, it only matters to a host's own callback.
package rfm69adapter

import (
	"github.com/tve/meshclock/radio"
	"github.com/tve/meshclock/sx1231"
)

var _ radio.Radio = (*Adapter)(nil)

// LogPrintf matches sx1231.LogPrintf so callers don't need to import that
// package just to pass a logger through.
type LogPrintf = sx1231.LogPrintf

// Adapter adapts one sx1231.Radio to radio.Radio. dev and intr must already
// be wired to the physical SPI bus and interrupt pin; Begin performs the
// sx1231 initialization and starts the receive forwarding goroutine.
type Adapter struct {
	newRadio func() (*sx1231.Radio, error)
	radio    *sx1231.Radio

	cb   radio.RecvFunc
	done chan struct{}
}

// New creates an Adapter. newRadio is normally a closure over
// sx1231.New(dev, intr, opts); it is taken as a func rather than dev/intr
// directly so tests can substitute a fake without needing real hw.SPI/hw.GPIO
// implementations.
func New(newRadio func() (*sx1231.Radio, error)) *Adapter {
	return &Adapter{newRadio: newRadio}
}

// Begin brings up the underlying sx1231 radio and starts forwarding
// received packets to whatever callback RegisterRecvCb installs.
func (a *Adapter) Begin() error {
	r, err := a.newRadio()
	if err != nil {
		return err
	}
	a.radio = r
	a.done = make(chan struct{})
	go a.forward()
	return nil
}

func (a *Adapter) forward() {
	for {
		select {
		case pkt, ok := <-a.radio.RxChan:
			if !ok {
				return
			}
			if a.cb != nil {
				a.cb(radio.Frame{Bytes: pkt.Payload})
			}
		case <-a.done:
			return
		}
	}
}

func (a *Adapter) RegisterRecvCb(cb radio.RecvFunc) { a.cb = cb }

// AddPeer is a no-op: the sx1231 driver has no peer table, every node on
// the configured sync/frequency/rate hears every packet.
func (a *Adapter) AddPeer(addr [6]byte, channel int, encrypt bool) error { return nil }

func (a *Adapter) Send(addr [6]byte, payload []byte) error {
	a.radio.TxChan <- payload
	return nil
}

// Close stops the forwarding goroutine. Not part of radio.Radio.
func (a *Adapter) Close() {
	if a.done != nil {
		close(a.done)
	}
}
