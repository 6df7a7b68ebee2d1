package frame

import "testing"

var stamps = map[string]struct {
	stamp uint64
	enc   [Size]byte
}{
	"zero": {0, [Size]byte{0x4D, 0x43, 0x4B, 0, 0, 0, 0, 0, 0, 0}},
	"one":  {1, [Size]byte{0x4D, 0x43, 0x4B, 1, 0, 0, 0, 0, 0, 0}},
	"mixed": {0x0102030405060708 & (1<<56 - 1),
		[Size]byte{0x4D, 0x43, 0x4B, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02}},
	"max56": {1<<56 - 1, [Size]byte{0x4D, 0x43, 0x4B, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
}

func TestEncode(t *testing.T) {
	for n, tc := range stamps {
		got := Encode(tc.stamp)
		if got != tc.enc {
			t.Fatalf("Encode(%s) = %#v, want %#v", n, got, tc.enc)
		}
	}
}

func TestDecode(t *testing.T) {
	for n, tc := range stamps {
		got, err := Decode(tc.enc[:])
		if err != nil {
			t.Fatalf("Decode(%s): unexpected error %v", n, err)
		}
		if got != tc.stamp {
			t.Fatalf("Decode(%s) = %d, want %d", n, got, tc.stamp)
		}
	}
}

// P5: round-trip for any stamp < 2^56.
func TestRoundTrip(t *testing.T) {
	for _, stamp := range []uint64{0, 1, 42, 1 << 20, 1<<56 - 1} {
		enc := Encode(stamp)
		got, err := Decode(enc[:])
		if err != nil {
			t.Fatalf("Decode(Encode(%d)): unexpected error %v", stamp, err)
		}
		if got != stamp {
			t.Fatalf("Decode(Encode(%d)) = %d", stamp, got)
		}
	}
}

// P6: bad magic is rejected regardless of payload.
func TestDecodeBadMagic(t *testing.T) {
	buf := [Size]byte{0x00, 0x43, 0x4B, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Decode(buf[:]); err != ErrNotAFrame {
		t.Fatalf("Decode with bad magic = %v, want ErrNotAFrame", err)
	}
}

// P7: any length other than Size is rejected.
func TestDecodeBadSize(t *testing.T) {
	for _, n := range []int{0, 1, 9, 11, 32} {
		if _, err := Decode(make([]byte, n)); err != ErrNotAFrame {
			t.Fatalf("Decode(len=%d) = %v, want ErrNotAFrame", n, err)
		}
	}
}

func TestTruncation(t *testing.T) {
	// Top 8 bits of a 64-bit stamp must be silently dropped, not sign-extended.
	stamp := uint64(0xFF)<<56 | 0x123456
	enc := Encode(stamp)
	got, err := Decode(enc[:])
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got != 0x123456 {
		t.Fatalf("got %#x, want %#x", got, 0x123456)
	}
}
