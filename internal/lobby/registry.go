package lobby

// Damage type names the 1.20.3 client expects to find in the registry.
var damageTypes = []string{
	"arrow", "bad_respawn_point", "cactus", "cramming", "dragon_breath",
	"drown", "dry_out", "explosion", "fall", "falling_anvil",
	"falling_block", "falling_stalactite", "fireball", "fireworks",
	"fly_into_wall", "freeze", "generic", "generic_kill", "hot_floor",
	"in_fire", "in_wall", "indirect_magic", "lava", "lightning_bolt",
	"magic", "mob_attack", "mob_attack_no_aggro", "mob_projectile",
	"on_fire", "out_of_world", "outside_border", "player_attack",
	"player_explosion", "sonic_boom", "spit", "stalagmite", "starve",
	"sting", "sweet_berry_bush", "thorns", "thrown", "trident",
	"unattributed_fireball", "wither", "wither_skull",
}

// registryCodec builds the minimal registry data blob the lobby needs:
// one void-like dimension type, one biome, and the damage type table the
// client validates on login.
func registryCodec() []byte {
	var w nbtWriter
	w.beginRoot()

	writeDimensionTypes(&w)
	writeBiomes(&w)
	writeDamageTypes(&w)

	w.end()
	return w.bytes()
}

func writeDimensionTypes(w *nbtWriter) {
	w.beginCompound("minecraft:dimension_type")
	w.writeString("type", "minecraft:dimension_type")
	w.beginList("value", 1)

	w.writeString("name", "minecraft:overworld")
	w.writeInt("id", 0)
	w.beginCompound("element")
	w.writeByte("piglin_safe", 0)
	w.writeByte("natural", 1)
	w.writeFloat("ambient_light", 0)
	w.writeInt("monster_spawn_block_light_limit", 0)
	w.writeString("infiniburn", "#minecraft:infiniburn_overworld")
	w.writeByte("respawn_anchor_works", 0)
	w.writeByte("has_skylight", 1)
	w.writeByte("bed_works", 1)
	w.writeString("effects", "minecraft:overworld")
	w.writeByte("has_raids", 0)
	w.writeInt("logical_height", 384)
	w.writeDouble("coordinate_scale", 1)
	w.writeInt("monster_spawn_light_level", 0)
	w.writeInt("min_y", -64)
	w.writeByte("ultrawarm", 0)
	w.writeByte("has_ceiling", 0)
	w.writeInt("height", 384)
	w.end()

	w.end() // list element
	w.end() // registry compound
}

func writeBiomes(w *nbtWriter) {
	w.beginCompound("minecraft:worldgen/biome")
	w.writeString("type", "minecraft:worldgen/biome")
	w.beginList("value", 1)

	w.writeString("name", "minecraft:plains")
	w.writeInt("id", 0)
	w.beginCompound("element")
	w.writeByte("has_precipitation", 0)
	w.writeFloat("temperature", 0.5)
	w.writeFloat("downfall", 0.5)
	w.beginCompound("effects")
	w.writeInt("sky_color", 0x78a7ff)
	w.writeInt("water_fog_color", 0x050533)
	w.writeInt("fog_color", 0xc0d8ff)
	w.writeInt("water_color", 0x3f76e4)
	w.end()
	w.end()

	w.end() // list element
	w.end() // registry compound
}

func writeDamageTypes(w *nbtWriter) {
	w.beginCompound("minecraft:damage_type")
	w.writeString("type", "minecraft:damage_type")
	w.beginList("value", len(damageTypes))

	for i, name := range damageTypes {
		w.writeString("name", "minecraft:"+name)
		w.writeInt("id", int32(i))
		w.beginCompound("element")
		w.writeString("message_id", name)
		w.writeString("scaling", "when_caused_by_living_non_player")
		w.writeFloat("exhaustion", 0)
		w.end()
		w.end() // list element
	}

	w.end() // registry compound
}
