// Package simradio is an in-memory stand-in for the radio.Radio collaborator,
// used by tests and cmd/meshsim to run several mesh nodes against a single
// shared, optionally lossy and jittery, broadcast medium without any real
// transport. It is the direct analogue of the teacher's mqttradio mq type --
// a small, mutex-protected hub that fans a message out to subscribers -- but
// driven by radio.Radio's peer/callback shape instead of MQTT topics.
package simradio

import (
	"math/rand"
	"sync"
	"time"

	"github.com/tve/meshclock/radio"
)

// Medium is a shared broadcast bus. Radios created with New share one
// Medium to reach each other; a test or cmd/meshsim typically builds one
// Medium per simulated mesh.
type Medium struct {
	mu         sync.Mutex
	nodes      map[[6]byte]*Radio
	lossRate   float64       // probability in [0,1] that a send is dropped before delivery
	jitter     time.Duration // maximum extra delivery delay, uniformly distributed
	rnd        *rand.Rand
}

// NewMedium creates a shared medium. lossRate is the probability, in [0,1],
// that a broadcast is dropped on its way to any one recipient, drawn
// independently for each recipient; jitter is
// the maximum additional delivery delay applied per recipient, modeling a
// half-duplex link shared by several transmitters.
func NewMedium(lossRate float64, jitter time.Duration) *Medium {
	return &Medium{
		nodes:    make(map[[6]byte]*Radio),
		lossRate: lossRate,
		jitter:   jitter,
		rnd:      rand.New(rand.NewSource(1)),
	}
}

func (m *Medium) register(addr [6]byte, r *Radio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[addr] = r
}

func (m *Medium) unregister(addr [6]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, addr)
}

// broadcast fans payload out to every registered node other than src,
// applying loss and jitter independently per recipient so that a lossy
// shared link never delivers a consistent subset to everyone.
func (m *Medium) broadcast(src [6]byte, payload []byte) {
	m.mu.Lock()
	recipients := make([]*Radio, 0, len(m.nodes))
	for addr, r := range m.nodes {
		if addr == src {
			continue
		}
		recipients = append(recipients, r)
	}
	lossRate := m.lossRate
	jitter := m.jitter
	m.mu.Unlock()

	for _, r := range recipients {
		m.mu.Lock()
		drop := lossRate > 0 && m.rnd.Float64() < lossRate
		delay := time.Duration(0)
		if jitter > 0 {
			delay = time.Duration(m.rnd.Int63n(int64(jitter) + 1))
		}
		m.mu.Unlock()
		if drop {
			continue
		}
		r := r
		cp := make([]byte, len(payload))
		copy(cp, payload)
		if delay == 0 {
			r.deliver(src, cp)
			continue
		}
		time.AfterFunc(delay, func() { r.deliver(src, cp) })
	}
}

var _ radio.Radio = (*Radio)(nil)

// Radio is one node's handle onto a shared Medium. It implements
// radio.Radio.
type Radio struct {
	medium *Medium
	addr   [6]byte

	mu    sync.Mutex
	peers map[[6]byte]struct{}
	cb    radio.RecvFunc
}

// New creates a Radio addressed as addr on medium. Begin must be called
// before this Radio receives anything from the medium; Send reaches the
// other registered nodes whether or not Begin was called.
func New(medium *Medium, addr [6]byte) *Radio {
	return &Radio{medium: medium, addr: addr, peers: make(map[[6]byte]struct{})}
}

// Begin registers this node on its medium. It never fails: there is no
// underlying hardware to fail to bring up.
func (r *Radio) Begin() error {
	r.medium.register(r.addr, r)
	return nil
}

// Close unregisters this node. Not part of radio.Radio; exposed so
// cmd/meshsim and tests can tear a node out of a running mesh.
func (r *Radio) Close() {
	r.medium.unregister(r.addr)
}

func (r *Radio) RegisterRecvCb(cb radio.RecvFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cb = cb
}

func (r *Radio) AddPeer(addr [6]byte, channel int, encrypt bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[addr] = struct{}{}
	return nil
}

func (r *Radio) Send(addr [6]byte, payload []byte) error {
	r.medium.broadcast(r.addr, payload)
	return nil
}

func (r *Radio) deliver(src [6]byte, payload []byte) {
	r.mu.Lock()
	cb := r.cb
	r.mu.Unlock()
	if cb != nil {
		cb(radio.Frame{Src: src, Bytes: payload})
	}
}
