package protocol

import (
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Bool bool

func (a *Bool) ReadBytesFrom(r io.ByteReader) error {
	b, err := r.ReadByte()
	if err == nil {
		*a = b != 0
	}
	return err
}

func (a *Bool) WriteBytesTo(w io.ByteWriter) error {
	b := byte(0)
	if *a {
		b = byte(1)
	}
	return w.WriteByte(b)
}

type Byte int8

func (a *Byte) ReadBytesFrom(r io.ByteReader) error {
	b, err := r.ReadByte()
	if err == nil {
		*a = Byte(b)
	}
	return err
}

func (a *Byte) WriteBytesTo(w io.ByteWriter) error {
	return w.WriteByte(byte(*a))
}

type UByte uint8

func (a *UByte) ReadBytesFrom(r io.ByteReader) error {
	b, err := r.ReadByte()
	if err == nil {
		*a = UByte(b)
	}
	return err
}

func (a *UByte) WriteBytesTo(w io.ByteWriter) error {
	return w.WriteByte(byte(*a))
}

type Short int16

func (a *Short) ReadBytesFrom(r io.ByteReader) error {
	b1, err := r.ReadByte()
	if err != nil {
		return err
	}

	b2, err := r.ReadByte()
	if err != nil {
		return err
	}

	*a = Short(b1)<<8 | Short(b2)
	return nil
}

func (a *Short) WriteBytesTo(w io.ByteWriter) error {
	err := w.WriteByte(byte(*a >> 8))
	if err != nil {
		return err
	}

	return w.WriteByte(byte(*a))
}

type UShort uint16

func (a *UShort) ReadBytesFrom(r io.ByteReader) error {
	b1, err := r.ReadByte()
	if err != nil {
		return err
	}

	b2, err := r.ReadByte()
	if err != nil {
		return err
	}

	*a = UShort(b1)<<8 | UShort(b2)
	return nil
}

func (a *UShort) WriteBytesTo(w io.ByteWriter) error {
	err := w.WriteByte(byte(*a >> 8))
	if err != nil {
		return err
	}

	return w.WriteByte(byte(*a))
}

type Int int32

func (a *Int) ReadBytesFrom(r io.ByteReader) error {
	*a = 0
	for i := range 4 {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}

		*a |= Int(b) << ((3 - i) * 8)
	}
	return nil
}

func (a *Int) WriteBytesTo(w io.ByteWriter) error {
	for i := range 4 {
		err := w.WriteByte(byte(*a >> ((3 - i) * 8)))
		if err != nil {
			return err
		}
	}

	return nil
}

type Long int64

func (a *Long) ReadBytesFrom(r io.ByteReader) error {
	*a = 0
	for i := range 8 {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}

		*a |= Long(b) << ((7 - i) * 8)
	}
	return nil
}

func (a *Long) WriteBytesTo(w io.ByteWriter) error {
	for i := range 8 {
		err := w.WriteByte(byte(*a >> ((7 - i) * 8)))
		if err != nil {
			return err
		}
	}

	return nil
}

type Float float32

func (a *Float) ReadBytesFrom(r io.ByteReader) error {
	var d uint32
	for i := range 4 {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}

		d |= uint32(b) << ((3 - i) * 8)
	}
	*a = Float(math.Float32frombits(d))
	return nil
}

func (a *Float) WriteBytesTo(w io.ByteWriter) error {
	d := math.Float32bits(float32(*a))
	for i := range 4 {
		err := w.WriteByte(byte(d >> ((3 - i) * 8)))
		if err != nil {
			return err
		}
	}

	return nil
}

type Double float64

func (a *Double) ReadBytesFrom(r io.ByteReader) error {
	var d uint64
	for i := range 8 {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}

		d |= uint64(b) << ((7 - i) * 8)
	}
	*a = Double(math.Float64frombits(d))
	return nil
}

func (a *Double) WriteBytesTo(w io.ByteWriter) error {
	d := math.Float64bits(float64(*a))
	for i := range 8 {
		err := w.WriteByte(byte(d >> ((7 - i) * 8)))
		if err != nil {
			return err
		}
	}

	return nil
}

// String255 is a VarInt length-prefixed UTF-8 string limited to 255
// characters. Used for hostnames and usernames.
type String255 string

func (a *String255) ReadBytesFrom(r io.ByteReader) error {
	s, err := readString(r, 255*4)
	if err != nil {
		return err
	}
	if n := utf8.RuneCountInString(s); n > 255 {
		return fmt.Errorf("%w: string of %v characters exceeds maximum 255", ErrTooBig, n)
	}

	*a = String255(s)
	return nil
}

func (a *String255) WriteBytesTo(w io.ByteWriter) error {
	return writeString(w, string(*a))
}

// String is a VarInt length-prefixed UTF-8 string limited to the protocol
// maximum of 32767 characters.
type String string

func (a *String) ReadBytesFrom(r io.ByteReader) error {
	s, err := readString(r, 32767*4)
	if err != nil {
		return err
	}
	if n := utf8.RuneCountInString(s); n > 32767 {
		return fmt.Errorf("%w: string of %v characters exceeds maximum 32767", ErrTooBig, n)
	}

	*a = String(s)
	return nil
}

func (a *String) WriteBytesTo(w io.ByteWriter) error {
	return writeString(w, string(*a))
}

func readString(r io.ByteReader, max VarInt) (string, error) {
	var size VarInt
	err := size.ReadBytesFrom(r)
	if err != nil {
		return "", err
	}

	if size < 0 || size > max {
		return "", fmt.Errorf(
			"%w: string length %v exceeds maximum %v",
			ErrTooBig, size, max,
		)
	}

	buff := make([]byte, 0, size)
	for range size {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}

		buff = append(buff, b)
	}

	return string(buff), nil
}

func writeString(w io.ByteWriter, s string) error {
	size := VarInt(len(s))
	err := size.WriteBytesTo(w)
	if err != nil {
		return err
	}

	for _, b := range []byte(s) {
		err := w.WriteByte(b)
		if err != nil {
			return err
		}
	}

	return nil
}

type Identifier string

func (a *Identifier) ReadBytesFrom(r io.ByteReader) error {
	s, err := readString(r, 32767)
	if err != nil {
		return err
	}

	*a = Identifier(s)
	return nil
}

func (a *Identifier) WriteBytesTo(w io.ByteWriter) error {
	return writeString(w, string(*a))
}

type VarInt int32

func (a *VarInt) ReadBytesFrom(r io.ByteReader) (err error) {
	*a = 0
	b := ^byte(0)
	for i := 0; b&0x80 != 0; i += 7 {
		if i >= 35 {
			return fmt.Errorf("%w: VarInt is over-long", ErrMalformed)
		}

		b, err = r.ReadByte()
		if err != nil {
			return err
		}

		*a |= VarInt(b&0x7F) << i
	}

	return nil
}

func (a *VarInt) WriteBytesTo(w io.ByteWriter) error {
	v := uint32(*a)
	for {
		if (v &^ 0x7F) == 0 {
			return w.WriteByte(byte(v))
		}

		err := w.WriteByte(byte(v&0x7F) | 0x80)
		if err != nil {
			return err
		}

		v = v >> 7
	}
}

// Len returns the encoded size of the VarInt in bytes.
func (a VarInt) Len() int {
	v := uint32(a)
	n := 1
	for (v &^ 0x7F) != 0 {
		v >>= 7
		n++
	}
	return n
}

type VarLong int64

func (a *VarLong) ReadBytesFrom(r io.ByteReader) (err error) {
	*a = 0
	b := ^byte(0)
	for i := 0; b&0x80 != 0; i += 7 {
		if i >= 70 {
			return fmt.Errorf("%w: VarLong is over-long", ErrMalformed)
		}

		b, err = r.ReadByte()
		if err != nil {
			return err
		}

		*a |= VarLong(b&0x7F) << i
	}

	return nil
}

func (a *VarLong) WriteBytesTo(w io.ByteWriter) error {
	v := uint64(*a)
	for {
		if (v &^ 0x7F) == 0 {
			return w.WriteByte(byte(v))
		}

		err := w.WriteByte(byte(v&0x7F) | 0x80)
		if err != nil {
			return err
		}

		v = v >> 7
	}
}

// UUID is a 128-bit UUID encoded as sixteen raw bytes.
type UUID uuid.UUID

func (a *UUID) ReadBytesFrom(r io.ByteReader) error {
	for i := range 16 {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}

		a[i] = b
	}
	return nil
}

func (a *UUID) WriteBytesTo(w io.ByteWriter) error {
	for i := range 16 {
		err := w.WriteByte(a[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func (a UUID) String() string {
	return uuid.UUID(a).String()
}

// ByteArray is a VarInt length-prefixed byte slice.
type ByteArray []byte

func (a *ByteArray) ReadBytesFrom(r io.ByteReader) error {
	var size VarInt
	err := size.ReadBytesFrom(r)
	if err != nil {
		return err
	}

	if size < 0 || size > maxPacketLength {
		return fmt.Errorf("%w: byte array of %v bytes", ErrTooBig, size)
	}

	buff := make([]byte, 0, size)
	for range size {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}

		buff = append(buff, b)
	}

	*a = buff
	return nil
}

func (a *ByteArray) WriteBytesTo(w io.ByteWriter) error {
	size := VarInt(len(*a))
	err := size.WriteBytesTo(w)
	if err != nil {
		return err
	}

	for _, b := range *a {
		err := w.WriteByte(b)
		if err != nil {
			return err
		}
	}

	return nil
}

// RawBytes consumes the remainder of the packet on read and is written
// without a length prefix.
type RawBytes []byte

func (a *RawBytes) ReadBytesFrom(r io.ByteReader) error {
	*a = (*a)[:0]
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		*a = append(*a, b)
	}
}

func (a *RawBytes) WriteBytesTo(w io.ByteWriter) error {
	for _, b := range *a {
		err := w.WriteByte(b)
		if err != nil {
			return err
		}
	}

	return nil
}

// Position is a block position packed into a single long.
type Position struct {
	X int32
	Z int32
	Y int16
}

func (a *Position) ReadBytesFrom(r io.ByteReader) error {
	var l Long
	err := l.ReadBytesFrom(r)
	if err != nil {
		return err
	}

	a.X = int32(int64(l) >> 38)
	a.Z = int32(int64(l) << 26 >> 38)
	a.Y = int16(int64(l) << 52 >> 52)
	return nil
}

func (a *Position) WriteBytesTo(w io.ByteWriter) error {
	l := Long((int64(a.X)&0x3FFFFFF)<<38 | (int64(a.Z)&0x3FFFFFF)<<12 | int64(a.Y)&0xFFF)
	return l.WriteBytesTo(w)
}
