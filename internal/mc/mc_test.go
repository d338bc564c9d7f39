package mc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseListResponse(t *testing.T) {
	cases := []struct {
		response string
		count    int
		names    []string
		ok       bool
	}{
		{"There are 0 of a max of 20 players online:", 0, nil, true},
		{"There are 3 of a max of 20 players online: alice, bob, carol", 3, []string{"alice", "bob", "carol"}, true},
		{"There are 1 of a max of 10 players online: alice", 1, []string{"alice"}, true},
		{"There are 2/20 players online", 2, nil, true},
		{"no players", 0, nil, false},
	}

	for _, c := range cases {
		count, names, ok := parseListResponse(c.response)
		if ok != c.ok {
			t.Errorf("%q: ok = %v", c.response, ok)
			continue
		}
		if count != c.count {
			t.Errorf("%q: count = %v, want %v", c.response, count, c.count)
		}
		if len(names) != len(c.names) {
			t.Errorf("%q: names = %v, want %v", c.response, names, c.names)
			continue
		}
		for i := range names {
			if names[i] != c.names[i] {
				t.Errorf("%q: names = %v, want %v", c.response, names, c.names)
				break
			}
		}
	}
}

func TestRewriteProperties(t *testing.T) {
	dir := t.TempDir()
	original := `#Minecraft server properties
#Mon Jan 01 00:00:00 UTC 2024
server-port=25565
motd=A Minecraft Server
enable-rcon=false
`
	if err := os.WriteFile(filepath.Join(dir, PropertiesFile), []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	err := RewriteProperties(dir, map[string]string{
		"server-port":   "25566",
		"server-ip":     "127.0.0.1",
		"enable-rcon":   "true",
		"rcon.password": "hunter2",
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, PropertiesFile))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		"server-port=25566",
		"server-ip=127.0.0.1",
		"enable-rcon=true",
		"rcon.password=hunter2",
		"motd=A Minecraft Server",
		"#Minecraft server properties",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rewritten properties missing %q:\n%s", want, text)
		}
	}

	if strings.Contains(text, "server-port=25565") {
		t.Error("old server-port survived the rewrite")
	}

	backup, err := os.ReadFile(filepath.Join(dir, PropertiesFile+propertiesBackupSuffix))
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != original {
		t.Error("backup does not match the original contents")
	}
}

func TestRewritePropertiesMissingFile(t *testing.T) {
	// A missing server.properties is tolerated, not an error.
	if err := RewriteProperties(t.TempDir(), map[string]string{"server-port": "1"}); err != nil {
		t.Fatal(err)
	}
}

func TestReadProperty(t *testing.T) {
	dir := t.TempDir()
	data := "#comment\nserver-port=25566\nlevel-name = world\n"
	if err := os.WriteFile(filepath.Join(dir, PropertiesFile), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if v, ok := ReadProperty(dir, "server-port"); !ok || v != "25566" {
		t.Errorf("server-port = %q, %v", v, ok)
	}
	if v, ok := ReadProperty(dir, "level-name"); !ok || v != "world" {
		t.Errorf("level-name = %q, %v", v, ok)
	}
	if _, ok := ReadProperty(dir, "missing"); ok {
		t.Error("missing key reported present")
	}
}

func TestLoadFavicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icon.png")
	if err := os.WriteFile(path, append(append([]byte(nil), pngMagic...), 0xde, 0xad), 0o644); err != nil {
		t.Fatal(err)
	}

	icon, err := LoadFavicon(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(icon, "data:image/png;base64,") {
		t.Errorf("favicon data URL: %q", icon)
	}

	bad := filepath.Join(dir, "icon.jpg")
	if err := os.WriteFile(bad, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFavicon(bad); err == nil {
		t.Error("non-PNG accepted as favicon")
	}
}
