package lobby

import (
	"bytes"
	"encoding/binary"
	"math"
)

// NBT tag types used by the registry codec.
const (
	tagEnd      = 0x00
	tagByte     = 0x01
	tagInt      = 0x03
	tagFloat    = 0x05
	tagDouble   = 0x06
	tagString   = 0x08
	tagList     = 0x09
	tagCompound = 0x0a
)

// nbtWriter builds network NBT: the root compound carries no name, as
// required on the wire since 1.20.2.
type nbtWriter struct {
	buf bytes.Buffer
}

func (w *nbtWriter) beginRoot() {
	w.buf.WriteByte(tagCompound)
}

func (w *nbtWriter) name(name string) {
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(name)))
	w.buf.Write(length[:])
	w.buf.WriteString(name)
}

func (w *nbtWriter) beginCompound(name string) {
	w.buf.WriteByte(tagCompound)
	w.name(name)
}

func (w *nbtWriter) end() {
	w.buf.WriteByte(tagEnd)
}

// beginList starts a named list of compounds.
func (w *nbtWriter) beginList(name string, length int) {
	w.buf.WriteByte(tagList)
	w.name(name)
	w.buf.WriteByte(tagCompound)
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(length))
	w.buf.Write(count[:])
}

func (w *nbtWriter) writeByte(name string, value int8) {
	w.buf.WriteByte(tagByte)
	w.name(name)
	w.buf.WriteByte(byte(value))
}

func (w *nbtWriter) writeInt(name string, value int32) {
	w.buf.WriteByte(tagInt)
	w.name(name)
	var data [4]byte
	binary.BigEndian.PutUint32(data[:], uint32(value))
	w.buf.Write(data[:])
}

func (w *nbtWriter) writeFloat(name string, value float32) {
	w.buf.WriteByte(tagFloat)
	w.name(name)
	var data [4]byte
	binary.BigEndian.PutUint32(data[:], math.Float32bits(value))
	w.buf.Write(data[:])
}

func (w *nbtWriter) writeDouble(name string, value float64) {
	w.buf.WriteByte(tagDouble)
	w.name(name)
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], math.Float64bits(value))
	w.buf.Write(data[:])
}

func (w *nbtWriter) writeString(name, value string) {
	w.buf.WriteByte(tagString)
	w.name(name)
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(value)))
	w.buf.Write(length[:])
	w.buf.WriteString(value)
}

func (w *nbtWriter) bytes() []byte {
	return w.buf.Bytes()
}
