package protocol

import (
	"io"
)

// Play state packet ids, protocol 765 (1.20.3).
const (
	PlayClientDisconnectID  = 0x1B
	PlayClientGameEventID   = 0x20
	PlayClientKeepAliveID   = 0x24
	PlayClientChunkDataID   = 0x25
	PlayClientLoginID       = 0x29
	PlayClientPositionID    = 0x3E
	PlayClientCenterChunkID = 0x52
	PlayClientSystemChatID  = 0x69
	PlayClientTransferID    = 0x73
	PlayServerKeepAliveID   = 0x15
)

// NBTText is a chat component encoded as a network NBT string tag, the
// wire form for play-state text since 1.20.3.
type NBTText string

func (a *NBTText) ReadBytesFrom(r io.ByteReader) error {
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	if tag != 0x08 {
		return ErrMalformed
	}

	var size UShort
	err = size.ReadBytesFrom(r)
	if err != nil {
		return err
	}

	buff := make([]byte, 0, size)
	for range size {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		buff = append(buff, b)
	}

	*a = NBTText(buff)
	return nil
}

func (a *NBTText) WriteBytesTo(w io.ByteWriter) error {
	err := w.WriteByte(0x08)
	if err != nil {
		return err
	}

	size := UShort(len(*a))
	err = size.WriteBytesTo(w)
	if err != nil {
		return err
	}

	for _, b := range []byte(*a) {
		err := w.WriteByte(b)
		if err != nil {
			return err
		}
	}

	return nil
}

// JoinGame spawns the player into a world.
type JoinGame struct {
	EntityID            Int
	Hardcore            Bool
	DimensionNames      []Identifier
	MaxPlayers          VarInt
	ViewDistance        VarInt
	SimulationDistance  VarInt
	ReducedDebugInfo    Bool
	EnableRespawnScreen Bool
	DoLimitedCrafting   Bool
	DimensionType       Identifier
	DimensionName       Identifier
	HashedSeed          Long
	GameMode            UByte
	PreviousGameMode    Byte
	IsDebug             Bool
	IsFlat              Bool
	HasDeathLocation    Bool
	PortalCooldown      VarInt
}

func (h *JoinGame) ReadBytesFrom(r io.ByteReader) error {
	err := h.EntityID.ReadBytesFrom(r)
	if err != nil {
		return err
	}
	err = h.Hardcore.ReadBytesFrom(r)
	if err != nil {
		return err
	}

	var count VarInt
	err = count.ReadBytesFrom(r)
	if err != nil {
		return err
	}
	h.DimensionNames = make([]Identifier, count)
	for i := range h.DimensionNames {
		err := h.DimensionNames[i].ReadBytesFrom(r)
		if err != nil {
			return err
		}
	}

	for _, f := range h.tailFields() {
		err := f.ReadBytesFrom(r)
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *JoinGame) WriteBytesTo(w io.ByteWriter) error {
	err := h.EntityID.WriteBytesTo(w)
	if err != nil {
		return err
	}
	err = h.Hardcore.WriteBytesTo(w)
	if err != nil {
		return err
	}

	count := VarInt(len(h.DimensionNames))
	err = count.WriteBytesTo(w)
	if err != nil {
		return err
	}
	for i := range h.DimensionNames {
		err := h.DimensionNames[i].WriteBytesTo(w)
		if err != nil {
			return err
		}
	}

	for _, f := range h.tailFields() {
		err := f.WriteBytesTo(w)
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *JoinGame) tailFields() []Encodable {
	return []Encodable{
		&h.MaxPlayers, &h.ViewDistance, &h.SimulationDistance,
		&h.ReducedDebugInfo, &h.EnableRespawnScreen, &h.DoLimitedCrafting,
		&h.DimensionType, &h.DimensionName, &h.HashedSeed,
		&h.GameMode, &h.PreviousGameMode, &h.IsDebug, &h.IsFlat,
		&h.HasDeathLocation, &h.PortalCooldown,
	}
}

func (h *JoinGame) ID() VarInt {
	return PlayClientLoginID
}

// PlayerPosition synchronizes the client position.
type PlayerPosition struct {
	X          Double
	Y          Double
	Z          Double
	Yaw        Float
	Pitch      Float
	Flags      Byte
	TeleportID VarInt
}

func (h *PlayerPosition) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *PlayerPosition) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *PlayerPosition) ID() VarInt {
	return PlayClientPositionID
}

type SetCenterChunk struct {
	ChunkX VarInt
	ChunkZ VarInt
}

func (h *SetCenterChunk) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *SetCenterChunk) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *SetCenterChunk) ID() VarInt {
	return PlayClientCenterChunkID
}

// ChunkData carries pre-serialized chunk sections and light data.
type ChunkData struct {
	ChunkX     Int
	ChunkZ     Int
	Heightmaps RawNBT
	Data       ByteArray
	Tail       RawBytes
}

func (h *ChunkData) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *ChunkData) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *ChunkData) ID() VarInt {
	return PlayClientChunkDataID
}

// RawNBT is a pre-serialized network NBT blob written as-is. Reading is
// unsupported: it consumes nothing and returns ErrMalformed.
type RawNBT []byte

func (a *RawNBT) ReadBytesFrom(r io.ByteReader) error {
	return ErrMalformed
}

func (a *RawNBT) WriteBytesTo(w io.ByteWriter) error {
	for _, b := range *a {
		err := w.WriteByte(b)
		if err != nil {
			return err
		}
	}
	return nil
}

type SystemChat struct {
	Content NBTText
	Overlay Bool
}

func (h *SystemChat) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *SystemChat) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *SystemChat) ID() VarInt {
	return PlayClientSystemChatID
}

type PlayKeepAlive struct {
	KeepAliveID Long
}

func (h *PlayKeepAlive) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *PlayKeepAlive) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *PlayKeepAlive) ID() VarInt {
	return PlayClientKeepAliveID
}

type PlayDisconnect struct {
	Reason NBTText
}

func (h *PlayDisconnect) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *PlayDisconnect) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *PlayDisconnect) ID() VarInt {
	return PlayClientDisconnectID
}

type GameEvent struct {
	Event UByte
	Value Float
}

func (h *GameEvent) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *GameEvent) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *GameEvent) ID() VarInt {
	return PlayClientGameEventID
}

// Transfer asks the client to reconnect to the given host and port.
type Transfer struct {
	Host String255
	Port VarInt
}

func (h *Transfer) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *Transfer) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *Transfer) ID() VarInt {
	return PlayClientTransferID
}
