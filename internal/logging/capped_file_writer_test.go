package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCappedFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := newCappedFileWriter(path, 1)
	if err != nil {
		t.Fatalf("newCappedFileWriter() error = %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Fatalf("file contents = %q", data)
	}
}

func TestCappedFileWriterTruncatesAtCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := newCappedFileWriter(path, 1)
	if err != nil {
		t.Fatalf("newCappedFileWriter() error = %v", err)
	}
	defer w.Close()

	// Fill right up to the cap, then one more write must start over.
	big := strings.Repeat("x", 1024*1024)
	if _, err := w.Write([]byte(big)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := w.Write([]byte("fresh\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "fresh\n" {
		t.Fatalf("file length after truncate = %d", len(data))
	}
}
