package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSlotKey(t *testing.T) {
	at := time.Date(2024, 6, 15, 9, 5, 30, 0, time.UTC)
	date, tod := SlotKey(at)
	if date != "2024-06-15" {
		t.Errorf("Date: got %s, want 2024-06-15", date)
	}
	if tod != "0905" {
		t.Errorf("TimeOfDay: got %s, want 0905", tod)
	}
}

func TestWriteAndExists(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if fs.Exists("2024-06-15", "1200") {
		t.Error("Exists should be false before write")
	}

	if err := fs.Write("2024-06-15", "1200", []byte("jpeg bytes")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !fs.Exists("2024-06-15", "1200") {
		t.Error("Exists should be true after write")
	}

	// Filename contract must be preserved exactly
	data, err := os.ReadFile(filepath.Join(fs.Dir(), "2024-06-15_1200.jpg"))
	if err != nil {
		t.Fatalf("Frame not at contracted path: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("Frame content mismatch: got %q", data)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := fs.Write("2024-06-15", "1200", []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, _ := os.ReadDir(fs.Dir())
	if len(entries) != 1 {
		t.Errorf("Expected exactly the frame file, found %d entries", len(entries))
	}
}

func TestListAllOrderedAndFiltered(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, key := range [][2]string{
		{"2024-06-16", "1200"},
		{"2024-06-15", "1800"},
		{"2024-06-15", "0600"},
	} {
		if err := fs.Write(key[0], key[1], []byte("x")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	// Non-contract files must be ignored
	os.WriteFile(filepath.Join(fs.Dir(), "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(fs.Dir(), "2024-06-15.jpg"), []byte("x"), 0o644)

	frames, err := fs.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}

	want := []string{"2024-06-15_0600", "2024-06-15_1800", "2024-06-16_1200"}
	if len(frames) != len(want) {
		t.Fatalf("Expected %d frames, got %d", len(want), len(frames))
	}
	for i, f := range frames {
		if f.Key() != want[i] {
			t.Errorf("Frame %d: got %s, want %s", i, f.Key(), want[i])
		}
		if f.ModTime.IsZero() {
			t.Errorf("Frame %d has zero mtime", i)
		}
	}
}

func TestLatestCapture(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, ok, err := fs.LatestCapture(time.UTC); err != nil || ok {
		t.Errorf("Empty store: got ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	fs.Write("2024-06-14", "1200", []byte("x"))
	fs.Write("2024-06-15", "0600", []byte("x"))

	at, ok, err := fs.LatestCapture(time.UTC)
	if err != nil {
		t.Fatalf("LatestCapture failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a latest capture")
	}

	want := time.Date(2024, 6, 15, 6, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("LatestCapture: got %v, want %v", at, want)
	}
}
