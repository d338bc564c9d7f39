package mc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

var propLog = log.WithField("subsystem", "server")

// PropertiesFile is the server settings file name.
const PropertiesFile = "server.properties"

// Backup suffix used before rewriting server.properties.
const propertiesBackupSuffix = ".snoozemc.bak"

// RewriteProperties updates keys in the server.properties file in dir,
// keeping a backup of the previous contents. Unrelated lines, comments
// and ordering are preserved; missing keys are appended.
func RewriteProperties(dir string, changes map[string]string) error {
	path := filepath.Join(dir, PropertiesFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			propLog.WithField("path", path).Warn("No server.properties to rewrite")
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", PropertiesFile, err)
	}

	if err := os.WriteFile(path+propertiesBackupSuffix, data, 0o644); err != nil {
		return fmt.Errorf("failed to back up %s: %w", PropertiesFile, err)
	}

	rewritten := rewriteLines(string(data), changes)

	if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", PropertiesFile, err)
	}

	propLog.WithField("path", path).Debug("Rewrote server.properties")
	return nil
}

func rewriteLines(data string, changes map[string]string) string {
	pending := make(map[string]string, len(changes))
	for k, v := range changes {
		pending[k] = v
	}

	lines := strings.Split(data, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			continue
		}

		key, _, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		if value, changed := pending[key]; changed {
			lines[i] = key + "=" + value
			delete(pending, key)
		}
	}

	out := strings.Join(lines, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	for key, value := range changes {
		if _, missing := pending[key]; missing {
			out += key + "=" + value + "\n"
		}
	}
	return out
}

// ReadProperty reads a single key from server.properties in dir.
func ReadProperty(dir, key string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, PropertiesFile))
	if err != nil {
		return "", false
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		k, v, ok := strings.Cut(trimmed, "=")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
