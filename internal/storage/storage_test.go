package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		username, format string
		want             string
		wantErr          bool
	}{
		{"alice", "png", "registered_face_alice.png", false},
		{"alice", "jpeg", "registered_face_alice.jpg", false},
		{"j.doe", "JPG", "registered_face_j.doe.jpg", false},
		{"..", "png", "registered_face_...png", false},
		{"a/b", "png", "registered_face_a_b.png", false},
		{"alice", "tiff", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.username+"."+tt.format, func(t *testing.T) {
			got, err := Filename(tt.username, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveAndRead(t *testing.T) {
	store := NewFaceStore(filepath.Join(t.TempDir(), "faces"))
	data := bytes.Repeat([]byte{0xAB}, 2048)

	res, err := store.SaveReference("alice", "png", data)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Filename != "registered_face_alice.png" || res.Size != 2048 {
		t.Errorf("unexpected result %+v", res)
	}

	got, err := store.Read(res.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("read back different bytes")
	}

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}

	if !store.Exists(res.Path) {
		t.Error("expected image to exist")
	}
	if err := store.Delete(res.Path); err != nil {
		t.Fatal(err)
	}
	if store.Exists(res.Path) {
		t.Error("expected image to be gone")
	}
	if err := store.Delete(res.Path); err != nil {
		t.Errorf("deleting a missing image should succeed, got %v", err)
	}
	if _, err := store.Read(res.Path); !IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestSaveDoesNotOverwrite(t *testing.T) {
	store := NewFaceStore(t.TempDir())
	first := bytes.Repeat([]byte{1}, 100)

	res, err := store.SaveReference("alice", "png", first)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveReference("alice", "png", []byte{2, 2}); !IsExists(err) {
		t.Fatalf("expected EXISTS, got %v", err)
	}

	got, _ := store.Read(res.Path)
	if !bytes.Equal(got, first) {
		t.Error("existing reference image was overwritten")
	}
	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 1 {
		t.Errorf("expected temp file cleanup, got %d entries", len(entries))
	}
}

func TestSaveTooLarge(t *testing.T) {
	store := NewFaceStore(t.TempDir())
	store.maxSize = 10

	_, err := store.SaveReference("alice", "png", make([]byte, 20))
	se, ok := err.(*Error)
	if !ok || se.Code != "FILE_TOO_LARGE" {
		t.Errorf("expected FILE_TOO_LARGE, got %v", err)
	}
}

func TestPathTraversal(t *testing.T) {
	root := t.TempDir()
	store := NewFaceStore(filepath.Join(root, "faces"))

	secret := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Read(secret); !IsStorageError(err) {
		t.Errorf("expected rejection of a path outside the store, got %v", err)
	}
	if _, err := store.Read(filepath.Join(store.Dir(), "..", "secret.txt")); !IsStorageError(err) {
		t.Errorf("expected rejection of a dot-dot path, got %v", err)
	}

	for _, name := range []string{"", "../secret.txt", "a/b.png", ".hidden"} {
		if _, err := store.Path(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
	p, err := store.Path("registered_face_alice.png")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "registered_face_alice.png" {
		t.Errorf("unexpected path %s", p)
	}
}
