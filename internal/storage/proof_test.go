package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *ProofStore {
	t.Helper()
	store, err := NewProofStore(t.TempDir(), "/uploads/proofs")
	if err != nil {
		t.Fatalf("NewProofStore() error = %v", err)
	}
	return store
}

func TestProofStoreSave(t *testing.T) {
	store := newTestStore(t)

	content := []byte("fake image bytes")
	url, err := store.Save("receipt.PNG", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !strings.HasPrefix(url, "/uploads/proofs/") {
		t.Errorf("Save() url = %q, want /uploads/proofs/ prefix", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("Save() url = %q, want lowercase .png suffix", url)
	}

	name := strings.TrimPrefix(url, "/uploads/proofs/")
	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("reading saved proof: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("saved content = %q, want %q", data, content)
	}
}

func TestProofStoreSaveUniqueNames(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save("a.pdf", 1, strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Save("a.pdf", 1, strings.NewReader("y"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first == second {
		t.Errorf("Save() produced duplicate URL %q for identical filenames", first)
	}
}

func TestProofStoreSaveRejections(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  error
	}{
		{"executable", "virus.exe", 10, ErrProofType},
		{"no extension", "receipt", 10, ErrProofType},
		{"declared too large", "big.jpg", MaxProofSize + 1, ErrProofTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(tt.filename, tt.size, strings.NewReader("x"))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Save(%q) error = %v, want %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestProofStoreSaveOversizedStream(t *testing.T) {
	store := newTestStore(t)

	// Declared size is small but the stream is larger than the cap.
	big := strings.NewReader(strings.Repeat("a", MaxProofSize+10))
	_, err := store.Save("big.jpg", 100, big)
	if !errors.Is(err, ErrProofTooLarge) {
		t.Fatalf("Save() error = %v, want ErrProofTooLarge", err)
	}

	entries, readErr := os.ReadDir(store.Dir())
	if readErr != nil {
		t.Fatalf("reading proof dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("oversized upload left %d files behind", len(entries))
	}
}

func TestNewProofStoreRequiresDir(t *testing.T) {
	if _, err := NewProofStore("", "/uploads/proofs"); err == nil {
		t.Error("NewProofStore(\"\") expected error")
	}
}
