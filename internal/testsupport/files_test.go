package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileProducesRIFFContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.wav")
	WriteFile(t, path, 4096)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if len(data) != 4096 {
		t.Fatalf("expected 4096 bytes, got %d", len(data))
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("fixture is not a RIFF/WAVE container: % x", data[:12])
	}
	if string(data[36:40]) != "data" {
		t.Fatalf("missing data subchunk: % x", data[36:40])
	}
}

func TestWriteFileTinySizeStillParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.wav")
	WriteFile(t, path, 1)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat fixture: %v", err)
	}
	if info.Size() != 44 {
		t.Fatalf("expected bare 44-byte header, got %d bytes", info.Size())
	}
}
