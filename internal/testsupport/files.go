package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const wavHeaderSize = 44

// WriteFile stages a minimal mono 16 kHz PCM WAVE file of the requested total
// size at path. Sizes below the 44-byte header round up to a bare header so
// the result always parses as a RIFF container.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size < wavHeaderSize {
		size = wavHeaderSize
	}
	dataSize := size - wavHeaderSize

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	header := make([]byte, 0, wavHeaderSize)
	le := binary.LittleEndian

	header = append(header, "RIFF"...)
	header = le.AppendUint32(header, uint32(36+dataSize))
	header = append(header, "WAVE"...)

	header = append(header, "fmt "...)
	header = le.AppendUint32(header, 16)
	header = le.AppendUint16(header, 1)     // PCM
	header = le.AppendUint16(header, 1)     // mono
	header = le.AppendUint32(header, 16000) // sample rate
	header = le.AppendUint32(header, 32000) // byte rate
	header = le.AppendUint16(header, 2)     // block align
	header = le.AppendUint16(header, 16)    // bits per sample

	header = append(header, "data"...)
	header = le.AppendUint32(header, uint32(dataSize))

	if _, err := f.Write(header); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	buf := make([]byte, 32*1024)
	for remaining := dataSize; remaining > 0; {
		toWrite := int64(len(buf))
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}
