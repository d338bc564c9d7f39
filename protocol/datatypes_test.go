package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []VarInt{
		0, 1, 2, 127, 128, 255, 300, 25565, 32767,
		2097151, 2147483647, -1, -2147483648,
	}

	for _, want := range values {
		var buff bytes.Buffer
		err := want.WriteBytesTo(&buff)
		if err != nil {
			t.Fatalf("encode %v: %v", want, err)
		}

		var got VarInt
		err = got.ReadBytesFrom(&buff)
		if err != nil {
			t.Fatalf("decode %v: %v", want, err)
		}

		if got != want {
			t.Errorf("round trip %v: got %v", want, got)
		}
	}
}

func TestVarIntKnownEncodings(t *testing.T) {
	cases := []struct {
		value VarInt
		bytes []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{25565, []byte{0xdd, 0xc7, 0x01}},
		{2147483647, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
		{-1, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}

	for _, c := range cases {
		var buff bytes.Buffer
		err := c.value.WriteBytesTo(&buff)
		if err != nil {
			t.Fatalf("encode %v: %v", c.value, err)
		}

		if !bytes.Equal(buff.Bytes(), c.bytes) {
			t.Errorf("encode %v: got %x want %x", c.value, buff.Bytes(), c.bytes)
		}

		if got := c.value.Len(); got != len(c.bytes) {
			t.Errorf("Len(%v): got %v want %v", c.value, got, len(c.bytes))
		}
	}
}

func TestVarIntOverLong(t *testing.T) {
	var v VarInt
	err := v.ReadBytesFrom(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("over-long VarInt: got %v, want ErrMalformed", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, want := range []String{"", "alice", "☠ sleeping\n§2join"} {
		var buff bytes.Buffer
		err := want.WriteBytesTo(&buff)
		if err != nil {
			t.Fatalf("encode %q: %v", want, err)
		}

		var got String
		err = got.ReadBytesFrom(&buff)
		if err != nil {
			t.Fatalf("decode %q: %v", want, err)
		}

		if got != want {
			t.Errorf("round trip %q: got %q", want, got)
		}
	}
}

func TestStringTooBig(t *testing.T) {
	var buff bytes.Buffer
	size := VarInt(300)
	_ = size.WriteBytesTo(&buff)
	for range 300 {
		buff.WriteByte('a')
	}

	var s String255
	err := s.ReadBytesFrom(&buff)
	if err == nil {
		t.Fatal("expected error reading 300 byte String255")
	}
}

func TestUShortRoundTrip(t *testing.T) {
	var buff bytes.Buffer
	want := UShort(25565)
	err := want.WriteBytesTo(&buff)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(buff.Bytes(), []byte{0x63, 0xdd}) {
		t.Errorf("encode 25565: got %x", buff.Bytes())
	}

	var got UShort
	err = got.ReadBytesFrom(&buff)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip: got %v", got)
	}
}

func TestLongRoundTrip(t *testing.T) {
	for _, want := range []Long{0, 1, -1, 1234567890123456789} {
		var buff bytes.Buffer
		err := want.WriteBytesTo(&buff)
		if err != nil {
			t.Fatal(err)
		}

		var got Long
		err = got.ReadBytesFrom(&buff)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("round trip %v: got %v", want, got)
		}
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	want := UUID{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

	var buff bytes.Buffer
	err := want.WriteBytesTo(&buff)
	if err != nil {
		t.Fatal(err)
	}
	if buff.Len() != 16 {
		t.Fatalf("encoded UUID is %v bytes", buff.Len())
	}

	var got UUID
	err = got.ReadBytesFrom(&buff)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip: got %v want %v", got, want)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	positions := []Position{
		{X: 0, Z: 0, Y: 0},
		{X: 100, Z: -100, Y: 128},
		{X: -30000000, Z: 30000000, Y: -64},
	}

	for _, want := range positions {
		var buff bytes.Buffer
		err := want.WriteBytesTo(&buff)
		if err != nil {
			t.Fatal(err)
		}

		var got Position
		err = got.ReadBytesFrom(&buff)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("round trip %+v: got %+v", want, got)
		}
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	want := ByteArray{1, 2, 3, 4, 5}

	var buff bytes.Buffer
	err := want.WriteBytesTo(&buff)
	if err != nil {
		t.Fatal(err)
	}

	var got ByteArray
	err = got.ReadBytesFrom(&buff)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip: got %v want %v", got, want)
	}
}
