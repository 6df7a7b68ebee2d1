package simradio

import (
	"testing"
	"time"

	"github.com/tve/meshclock/radio"
)

func TestBroadcastReachesOtherNodes(t *testing.T) {
	med := NewMedium(0, 0)
	a := New(med, [6]byte{1})
	b := New(med, [6]byte{2})
	if err := a.Begin(); err != nil {
		t.Fatalf("a.Begin() error: %v", err)
	}
	if err := b.Begin(); err != nil {
		t.Fatalf("b.Begin() error: %v", err)
	}

	received := make(chan radio.Frame, 1)
	b.RegisterRecvCb(func(f radio.Frame) { received <- f })

	if err := a.Send(radio.BroadcastAddr, []byte("hello")); err != nil {
		t.Fatalf("a.Send() error: %v", err)
	}

	select {
	case f := <-received:
		if string(f.Bytes) != "hello" {
			t.Errorf("received payload = %q, want %q", f.Bytes, "hello")
		}
		if f.Src != a.addr {
			t.Errorf("received src = %v, want %v", f.Src, a.addr)
		}
	case <-time.After(time.Second):
		t.Fatal("b never received a's broadcast")
	}
}

func TestSenderDoesNotReceiveOwnBroadcast(t *testing.T) {
	med := NewMedium(0, 0)
	a := New(med, [6]byte{1})
	a.Begin()

	received := make(chan radio.Frame, 1)
	a.RegisterRecvCb(func(f radio.Frame) { received <- f })
	a.Send(radio.BroadcastAddr, []byte("hello"))

	select {
	case f := <-received:
		t.Fatalf("sender received its own broadcast: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFullLossDropsEveryBroadcast(t *testing.T) {
	med := NewMedium(1.0, 0)
	a := New(med, [6]byte{1})
	b := New(med, [6]byte{2})
	a.Begin()
	b.Begin()

	received := make(chan radio.Frame, 1)
	b.RegisterRecvCb(func(f radio.Frame) { received <- f })
	a.Send(radio.BroadcastAddr, []byte("hello"))

	select {
	case f := <-received:
		t.Fatalf("received a frame despite lossRate=1.0: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseUnregistersNode(t *testing.T) {
	med := NewMedium(0, 0)
	a := New(med, [6]byte{1})
	b := New(med, [6]byte{2})
	a.Begin()
	b.Begin()
	b.Close()

	received := make(chan radio.Frame, 1)
	b.RegisterRecvCb(func(f radio.Frame) { received <- f })
	a.Send(radio.BroadcastAddr, []byte("hello"))

	select {
	case f := <-received:
		t.Fatalf("closed node still received a broadcast: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}
