package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Leading bytes written for each fixture extension so content sniffers and
// ffprobe stubs see a plausible container.
var mediaSignatures = map[string][]byte{
	".png":  {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	".jpg":  {0xff, 0xd8, 0xff, 0xe0},
	".jpeg": {0xff, 0xd8, 0xff, 0xe0},
	".gif":  []byte("GIF89a"),
	".mp4":  {0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'},
	".mov":  {0x00, 0x00, 0x00, 0x14, 'f', 't', 'y', 'p', 'q', 't', ' ', ' '},
	".wav":  []byte("RIFF\x00\x00\x00\x00WAVE"),
}

// WriteMedia writes a size-byte media fixture at path, creating parent
// directories. The file starts with the signature for its extension and is
// padded with filler; a size smaller than the signature still writes the
// whole signature. It returns path.
func WriteMedia(t testing.TB, path string, size int) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := append([]byte(nil), mediaSignatures[strings.ToLower(filepath.Ext(path))]...)
	if pad := size - len(data); pad > 0 {
		data = append(data, bytes.Repeat([]byte{0x42}, pad)...)
	}
	if len(data) == 0 {
		data = []byte{0x42}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
