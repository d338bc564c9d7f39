package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestInferValueBoolean(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "True"} {
		if v := inferValue(s); v != true {
			t.Errorf("inferValue(%q) = %v", s, v)
		}
	}
	if v := inferValue("false"); v != false {
		t.Errorf("inferValue(false) = %v", v)
	}
}

func TestInferValueInteger(t *testing.T) {
	if v := inferValue("42"); v != int64(42) {
		t.Errorf("inferValue(42) = %v (%T)", v, v)
	}
	if v := inferValue("-10"); v != int64(-10) {
		t.Errorf("inferValue(-10) = %v", v)
	}
}

func TestInferValueAddressIsString(t *testing.T) {
	// IP addresses must not parse as floats.
	if v := inferValue("127.0.0.1:25565"); v != "127.0.0.1:25565" {
		t.Errorf("inferValue(address) = %v (%T)", v, v)
	}
}

func TestInferValueCommaArray(t *testing.T) {
	v, ok := inferValue("hold,kick").([]interface{})
	if !ok || len(v) != 2 || v[0] != "hold" || v[1] != "kick" {
		t.Errorf("inferValue(hold,kick) = %v", v)
	}
}

func TestInferValueBracketArray(t *testing.T) {
	v, ok := inferValue("[kick]").([]interface{})
	if !ok || len(v) != 1 || v[0] != "kick" {
		t.Errorf("inferValue([kick]) = %v", v)
	}

	v, ok = inferValue("[]").([]interface{})
	if !ok || len(v) != 0 {
		t.Errorf("inferValue([]) = %v", v)
	}
}

func TestInferValueUnescape(t *testing.T) {
	if v := inferValue(`line one\nline two`); v != "line one\nline two" {
		t.Errorf("unescape: %q", v)
	}
	if v := inferValue(`tab\there`); v != "tab\there" {
		t.Errorf("unescape tab: %q", v)
	}
	if v := inferValue(`back\\slash`); v != `back\slash` {
		t.Errorf("unescape backslash: %q", v)
	}
}

func TestDeepMerge(t *testing.T) {
	base := map[string]interface{}{
		"server": map[string]interface{}{
			"command": "java -jar server.jar",
			"address": "127.0.0.1:25566",
		},
	}
	overlay := map[string]interface{}{
		"server": map[string]interface{}{
			"address": "127.0.0.1:25577",
		},
		"rcon": map[string]interface{}{
			"password": "secret",
		},
	}

	merged := deepMerge(base, overlay)
	server := merged["server"].(map[string]interface{})
	if server["command"] != "java -jar server.jar" {
		t.Errorf("command lost in merge: %v", server["command"])
	}
	if server["address"] != "127.0.0.1:25577" {
		t.Errorf("address not overridden: %v", server["address"])
	}
	if merged["rcon"].(map[string]interface{})["password"] != "secret" {
		t.Errorf("new section not added")
	}
}

func TestDeepMergeScalarIntoArray(t *testing.T) {
	base := map[string]interface{}{
		"join": map[string]interface{}{
			"methods": []interface{}{"hold", "kick"},
		},
	}
	overlay := map[string]interface{}{
		"join": map[string]interface{}{
			"methods": "kick",
		},
	}

	merged := deepMerge(base, overlay)
	methods := merged["join"].(map[string]interface{})["methods"].([]interface{})
	if len(methods) != 1 || methods[0] != "kick" {
		t.Errorf("scalar not wrapped into array: %v", methods)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snoozemc.toml")
	data := `
[server]
command = "java -jar server.jar"

[config]
version = "` + Version + `"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Command != "java -jar server.jar" {
		t.Errorf("command: %q", cfg.Server.Command)
	}
	if cfg.Public.Address != "0.0.0.0:25565" {
		t.Errorf("default public address: %q", cfg.Public.Address)
	}
	if cfg.Time.SleepAfter != 300 {
		t.Errorf("default sleep_after: %v", cfg.Time.SleepAfter)
	}
	if len(cfg.Join.Methods) != 2 || cfg.Join.Methods[0] != MethodHold {
		t.Errorf("default join methods: %v", cfg.Join.Methods)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snoozemc.toml")
	data := `
[server]
command = "java -jar server.jar"
address = "127.0.0.1:25566"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SNOOZEMC_SERVER__ADDRESS", "127.0.0.1:25577")
	t.Setenv("SNOOZEMC_TIME__SLEEP_AFTER", "120")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Address != "127.0.0.1:25577" {
		t.Errorf("env override not applied: %q", cfg.Server.Address)
	}
	if cfg.Time.SleepAfter != 120 {
		t.Errorf("env override not applied: %v", cfg.Time.SleepAfter)
	}
	if cfg.Server.Command != "java -jar server.jar" {
		t.Errorf("file value lost: %q", cfg.Server.Command)
	}
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("SNOOZEMC_SERVER__COMMAND", "java -jar test.jar")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Command != "java -jar test.jar" {
		t.Errorf("command: %q", cfg.Server.Command)
	}
	if cfg.Path != "" {
		t.Errorf("env-only config should have no path, got %q", cfg.Path)
	}
}

func TestValidateRejectsMissingCommand(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestValidateRejectsUnknownMethod(t *testing.T) {
	cfg := Default()
	cfg.Server.Command = "java"
	cfg.Join.Methods = []string{"teleport"}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestGenerateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snoozemc.toml")

	if err := Generate(path, false); err != nil {
		t.Fatal(err)
	}
	if err := Generate(path, false); err == nil {
		t.Fatal("expected error generating over existing file")
	}
	if err := Generate(path, true); err != nil {
		t.Fatalf("force overwrite failed: %v", err)
	}
}

func TestGeneratedConfigLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snoozemc.toml")
	if err := Generate(path, false); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Server.Command == "" {
		t.Error("generated config has no server command")
	}
}
