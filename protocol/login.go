package protocol

import (
	"encoding/json"
	"io"
)

// LoginStart is the first packet of the login state. The UUID field added
// in newer protocols is kept as a raw tail so the packet can be replayed
// verbatim for any client version.
type LoginStart struct {
	Name String255
	Tail RawBytes
}

func (h *LoginStart) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *LoginStart) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *LoginStart) ID() VarInt {
	return 0x00
}

// LoginDisconnect kicks a client during login. The reason is a JSON chat
// component.
type LoginDisconnect struct {
	Reason Chat
}

func (h *LoginDisconnect) ReadBytesFrom(r io.ByteReader) error {
	var str String
	err := str.ReadBytesFrom(r)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(str), &h.Reason)
}

func (h *LoginDisconnect) WriteBytesTo(w io.ByteWriter) error {
	data, err := json.Marshal(h.Reason)
	if err != nil {
		return err
	}

	str := String(data)
	return str.WriteBytesTo(w)
}

func (h *LoginDisconnect) ID() VarInt {
	return 0x00
}

type LoginSuccess struct {
	UUID       UUID
	Username   String255
	Properties VarInt
}

func (h *LoginSuccess) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *LoginSuccess) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *LoginSuccess) ID() VarInt {
	return 0x02
}

type LoginAcknowledged struct{}

func (h *LoginAcknowledged) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *LoginAcknowledged) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *LoginAcknowledged) ID() VarInt {
	return 0x03
}

// Configuration state packets, protocol 765+.

// RegistryData carries the registry codec as a raw network NBT blob.
type RegistryData struct {
	Data RawBytes
}

func (h *RegistryData) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *RegistryData) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *RegistryData) ID() VarInt {
	return 0x05
}

type FeatureFlags struct {
	Flags []Identifier
}

func (h *FeatureFlags) ReadBytesFrom(r io.ByteReader) error {
	var count VarInt
	err := count.ReadBytesFrom(r)
	if err != nil {
		return err
	}

	h.Flags = make([]Identifier, count)
	for i := range h.Flags {
		err := h.Flags[i].ReadBytesFrom(r)
		if err != nil {
			return err
		}
	}

	return nil
}

func (h *FeatureFlags) WriteBytesTo(w io.ByteWriter) error {
	count := VarInt(len(h.Flags))
	err := count.WriteBytesTo(w)
	if err != nil {
		return err
	}

	for i := range h.Flags {
		err := h.Flags[i].WriteBytesTo(w)
		if err != nil {
			return err
		}
	}

	return nil
}

func (h *FeatureFlags) ID() VarInt {
	return 0x08
}

type FinishConfiguration struct{}

func (h *FinishConfiguration) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *FinishConfiguration) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *FinishConfiguration) ID() VarInt {
	return 0x02
}

// AckFinishConfiguration is the serverbound acknowledgement, id 0x02 in
// the serverbound configuration registry.
type AckFinishConfiguration struct{}

func (h *AckFinishConfiguration) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *AckFinishConfiguration) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *AckFinishConfiguration) ID() VarInt {
	return 0x02
}

type ConfigKeepAlive struct {
	KeepAliveID Long
}

func (h *ConfigKeepAlive) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *ConfigKeepAlive) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *ConfigKeepAlive) ID() VarInt {
	return 0x03
}
