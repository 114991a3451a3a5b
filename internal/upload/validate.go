// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Validation limits.
const (
	MaxFileSize    = 50 << 20
	imageScanBytes = 10 << 10
)

// ErrEmptyFile marks a zero-byte file. Empty files are skipped, not failed.
var ErrEmptyFile = errors.New("empty file (0 bytes), no content to index")

// ValidationError describes why a file cannot be uploaded.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// Validate checks that path is a regular file worth uploading. Existence is
// always checked; with skip set the size and content checks are bypassed.
func Validate(path string, skip bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ValidationError{Path: path, Reason: "file not found"}
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return &ValidationError{Path: path, Reason: "path is not a file"}
	}
	if skip {
		return nil
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if info.Size() > MaxFileSize {
		return &ValidationError{
			Path: path,
			Reason: fmt.Sprintf("file too large (%s > %s)",
				humanize.IBytes(uint64(info.Size())), humanize.IBytes(MaxFileSize)),
		}
	}

	inline, err := hasInlineImage(path)
	if err != nil {
		// An unreadable head is left for the upload itself to report.
		return nil
	}
	if inline {
		return &ValidationError{
			Path:   path,
			Reason: "file contains base64-encoded images which may cause upload failures; use --skip-validation to bypass",
		}
	}
	return nil
}

// hasInlineImage reports whether the first 10 KiB of a UTF-8 text file
// contain a base64 data URI image. Binary files are not scanned.
func hasInlineImage(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, imageScanBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	head := trimPartialRune(buf[:n])
	if !utf8.Valid(head) {
		return false, nil
	}
	return bytes.Contains(head, []byte("data:image/")) && bytes.Contains(head, []byte(";base64,")), nil
}

// trimPartialRune drops a multi-byte sequence cut off at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(b); i++ {
		c := b[len(b)-i]
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}
