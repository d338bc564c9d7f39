package mc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// LoadFavicon reads a PNG file and returns it as the data URL the status
// response expects. The file should be a 64x64 PNG.
func LoadFavicon(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read favicon: %w", err)
	}

	if !bytes.HasPrefix(data, pngMagic) {
		return "", fmt.Errorf("favicon %s is not a PNG image", path)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
