package lobby

import (
	"bytes"
	"testing"
)

func TestOfflineUUIDDeterministic(t *testing.T) {
	a := OfflineUUID("alice")
	b := OfflineUUID("alice")
	if a != b {
		t.Error("offline UUID is not deterministic")
	}

	if OfflineUUID("bob") == a {
		t.Error("different usernames produced the same UUID")
	}
}

func TestOfflineUUIDVersionAndVariant(t *testing.T) {
	id := OfflineUUID("alice")

	if version := id[6] >> 4; version != 3 {
		t.Errorf("UUID version = %v, want 3", version)
	}
	if variant := id[8] >> 6; variant != 0b10 {
		t.Errorf("UUID variant bits = %b, want 10", variant)
	}
}

func TestRegistryCodecShape(t *testing.T) {
	data := registryCodec()

	if len(data) == 0 || data[0] != tagCompound {
		t.Fatal("registry codec does not start with a compound tag")
	}
	if data[len(data)-1] != tagEnd {
		t.Error("registry codec does not end with an end tag")
	}

	for _, registry := range []string{
		"minecraft:dimension_type",
		"minecraft:worldgen/biome",
		"minecraft:damage_type",
	} {
		if !bytes.Contains(data, []byte(registry)) {
			t.Errorf("registry codec missing %s", registry)
		}
	}

	for _, name := range damageTypes {
		if !bytes.Contains(data, []byte("minecraft:"+name)) {
			t.Errorf("registry codec missing damage type %s", name)
		}
	}
}

func TestEmptyChunk(t *testing.T) {
	chunk := emptyChunk(0, 0)

	if len(chunk.Data) != 24*8 {
		t.Errorf("chunk data length = %v, want %v", len(chunk.Data), 24*8)
	}
	if len(chunk.Heightmaps) != 2 {
		t.Errorf("heightmaps should be an empty compound, got %v bytes", len(chunk.Heightmaps))
	}
}

func TestNBTWriterCompound(t *testing.T) {
	var w nbtWriter
	w.beginRoot()
	w.writeString("name", "value")
	w.end()

	want := []byte{
		tagCompound,
		tagString, 0x00, 0x04, 'n', 'a', 'm', 'e',
		0x00, 0x05, 'v', 'a', 'l', 'u', 'e',
		tagEnd,
	}
	if !bytes.Equal(w.bytes(), want) {
		t.Errorf("nbt encoding:\n got %x\nwant %x", w.bytes(), want)
	}
}
