// Package storage provides local persistence for payment proof files.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxProofSize is the largest accepted proof upload, in bytes.
const MaxProofSize = 5 << 20

var (
	// ErrProofTooLarge indicates the upload exceeds MaxProofSize.
	ErrProofTooLarge = errors.New("proof file exceeds maximum size")
	// ErrProofType indicates an unsupported file extension.
	ErrProofType = errors.New("unsupported proof file type")
)

// allowed extensions for proof uploads, lowercase with leading dot
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// ProofStore saves payment proofs on the local filesystem and exposes
// them under a base URL served by the HTTP layer.
type ProofStore struct {
	dir     string
	baseURL string
}

// NewProofStore creates a store rooted at dir. The directory is created
// if it does not exist.
func NewProofStore(dir, baseURL string) (*ProofStore, error) {
	if dir == "" {
		return nil, errors.New("proof directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create proof directory: %w", err)
	}
	return &ProofStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory proofs are written to.
func (s *ProofStore) Dir() string {
	return s.dir
}

// Save writes the proof content to disk under a generated name and
// returns the URL the file will be served at. The original filename is
// only used for its extension.
func (s *ProofStore) Save(filename string, size int64, content io.Reader) (string, error) {
	if size > MaxProofSize {
		return "", fmt.Errorf("%w: %d bytes", ErrProofTooLarge, size)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrProofType, ext)
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.dir, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create proof file: %w", err)
	}
	defer f.Close()

	// Reject streams that lied about their size.
	written, err := io.Copy(f, io.LimitReader(content, MaxProofSize+1))
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write proof file: %w", err)
	}
	if written > MaxProofSize {
		os.Remove(dst)
		return "", fmt.Errorf("%w: %d bytes", ErrProofTooLarge, written)
	}

	return path.Join(s.baseURL, name), nil
}
