// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashChunkSize bounds the read buffer; memory use does not grow with file size.
const hashChunkSize = 64 << 10

// Hasher fingerprints file content.
type Hasher interface {
	Hash(path string) (string, error)
}

// SHA256Hasher hashes files with SHA-256 and returns lowercase hex.
type SHA256Hasher struct{}

// Hash streams the file at path through SHA-256.
func (SHA256Hasher) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
