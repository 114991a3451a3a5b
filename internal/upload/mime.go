// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	for ext, typ := range map[string]string{
		".toml": "text/toml",
		".env":  "text/plain",
		".txt":  "text/plain",
		".md":   "text/markdown",
	} {
		_ = mime.AddExtensionType(ext, typ)
	}
}

// DetectMIME returns the media type to declare for path: by extension when
// known, otherwise by sniffing the first 512 bytes. Parameters such as
// charset are dropped.
func DetectMIME(path string) string {
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if typ == "" {
		typ = sniff(path)
	}
	if mt, _, err := mime.ParseMediaType(typ); err == nil {
		return mt
	}
	return typ
}

func sniff(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	return http.DetectContentType(buf[:n])
}
