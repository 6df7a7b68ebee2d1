// Package loraadapter wraps the tve-devices sx1276 driver (a Semtech LoRa
// radio) behind the radio.Radio contract meshclock.Core drives. Like
// rfm69adapter, the underlying driver has no address filtering or peer
// table: AddPeer is a no-op and the reported Frame.Src is always the zero
// address.
package loraadapter

import (
	"github.com/tve/meshclock/radio"
	"github.com/tve/meshclock/sx1276"
)

var _ radio.Radio = (*Adapter)(nil)

// LogPrintf matches sx1276.LogPrintf so callers don't need to import that
// package just to pass a logger through.
type LogPrintf = sx1276.LogPrintf

// Adapter adapts one sx1276.Radio to radio.Radio.
type Adapter struct {
	newRadio func() (*sx1276.Radio, error)
	radio    *sx1276.Radio

	cb   radio.RecvFunc
	done chan struct{}
}

// New creates an Adapter. newRadio is normally a closure over
// sx1276.New(dev, intr, opts); it is taken as a func rather than dev/intr
// directly so tests can substitute a fake without needing real spi/gpio
// implementations.
func New(newRadio func() (*sx1276.Radio, error)) *Adapter {
	return &Adapter{newRadio: newRadio}
}

// Begin brings up the underlying sx1276 radio and starts forwarding
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

// AddPeer is a no-op: the sx1276 driver has no peer table, every node on
// the configured frequency/config hears every packet.
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
