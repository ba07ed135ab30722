package board

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestFlashEraseThenWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	fl, err := OpenFlash(path, 4096)
	if err != nil {
		t.Fatalf("OpenFlash() error = %v", err)
	}
	defer fl.Close()

	if fl.Size() != 4096 {
		t.Fatalf("Size() = %d, want 4096", fl.Size())
	}

	if err := fl.Erase(0, 512); err != nil {
		t.Fatalf("Erase() error = %v", err)
	}
	erased := make([]byte, 512)
	if err := fl.Read(0, erased); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for i, b := range erased {
		if b != Erased {
			t.Fatalf("byte %d = 0x%02X after Erase(), want 0x%02X", i, b, Erased)
		}
	}

	payload := bytes.Repeat([]byte{0xAB}, 128)
	if err := fl.Write(0, payload); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got := make([]byte, len(payload))
	if err := fl.Read(0, got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Read() after Write() = %v, want %v", got, payload)
	}
}

func TestOpenFlashTruncatesToRequestedSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	fl, err := OpenFlash(path, 8192)
	if err != nil {
		t.Fatalf("OpenFlash() error = %v", err)
	}
	fl.Close()

	fl2, err := OpenFlash(path, 8192)
	if err != nil {
		t.Fatalf("reopen OpenFlash() error = %v", err)
	}
	defer fl2.Close()
	if fl2.Size() != 8192 {
		t.Fatalf("Size() after reopen = %d, want 8192", fl2.Size())
	}
}
