package server

import (
	"bytes"
	"testing"

	"github.com/snoozemc/snoozemc/protocol"
)

func statusPayload(t *testing.T, jsonText string) []byte {
	t.Helper()
	var buff bytes.Buffer
	str := protocol.String(jsonText)
	if err := str.WriteBytesTo(&buff); err != nil {
		t.Fatal(err)
	}
	return buff.Bytes()
}

func TestParseStatusPayloadStrict(t *testing.T) {
	payload := statusPayload(t, `{
		"version": {"name": "1.20.4", "protocol": 765},
		"players": {"max": 20, "online": 3},
		"description": "A Minecraft Server"
	}`)

	status, playersKnown, players, err := parseStatusPayload(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !playersKnown || players != 3 {
		t.Errorf("players = %v known = %v", players, playersKnown)
	}
	if status.Version.Name != "1.20.4" {
		t.Errorf("version = %q", status.Version.Name)
	}
	if status.DescriptionText() != "A Minecraft Server" {
		t.Errorf("description = %q", status.DescriptionText())
	}
}

func TestParseStatusPayloadLenientDescriptionObject(t *testing.T) {
	// Modded servers return the description as a chat component and may
	// omit the player count entirely.
	payload := statusPayload(t, `{
		"version": {"name": "Forge 1.20.4", "protocol": 765},
		"players": {"max": 20},
		"description": {"text": "Hi", "extra": [{"text": " there"}]},
		"modinfo": {"type": "FML"}
	}`)

	status, playersKnown, _, err := parseStatusPayload(payload)
	if err != nil {
		t.Fatal(err)
	}
	if playersKnown {
		t.Error("missing players.online should be reported as unknown")
	}
	if status.Version.Name != "Forge 1.20.4" {
		t.Errorf("version = %q", status.Version.Name)
	}
	if status.DescriptionText() != "Hi there" {
		t.Errorf("description = %q", status.DescriptionText())
	}
}

func TestParseStatusPayloadNonConformantTypes(t *testing.T) {
	// players.online with a bogus type falls back to the tolerant pass.
	payload := statusPayload(t, `{
		"version": {"name": "weird", "protocol": 765},
		"players": {"max": 20, "online": "not-a-number"},
		"description": "hello"
	}`)

	status, playersKnown, _, err := parseStatusPayload(payload)
	if err != nil {
		t.Fatal(err)
	}
	if playersKnown {
		t.Error("unparseable players.online should be unknown")
	}
	if status.Version.Name != "weird" {
		t.Errorf("version = %q", status.Version.Name)
	}
}

func TestParseStatusPayloadRejectsGarbage(t *testing.T) {
	payload := statusPayload(t, `this is not json`)
	if _, _, _, err := parseStatusPayload(payload); err == nil {
		t.Error("garbage accepted as status response")
	}
}

func TestUnknownPlayersDoNotTriggerSleepAlone(t *testing.T) {
	cfg := testConfig()
	cfg.Time.SleepAfter = 3600
	srv := New(cfg)
	srv.state.Store(int32(Started))

	// A probe with unknown players must not reset activity nor zero the
	// count into an instant idle decision.
	srv.updateProbe(nil, false, 0)
	if srv.shouldSleep() {
		t.Error("server slept on unknown player count alone")
	}
}
