// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"path/filepath"
	"strings"
)

const unitExt = ".json"

// Escapes applied to store ids to form file names. "_" is escaped first so
// every substitution is reversible.
var unitNamer = strings.NewReplacer("_", "_u", "/", "__", `\`, "_b")

// UnitName maps a store id to its cache file name. Distinct ids always map
// to distinct names.
func UnitName(storeID string) string {
	return unitNamer.Replace(storeID) + unitExt
}

// StoreIDFromUnit inverts UnitName. It reports false for names UnitName
// could not have produced.
func StoreIDFromUnit(name string) (string, bool) {
	base, ok := strings.CutSuffix(filepath.Base(name), unitExt)
	if !ok || base == "" {
		return "", false
	}
	var sb strings.Builder
	for i := 0; i < len(base); i++ {
		if base[i] != '_' {
			sb.WriteByte(base[i])
			continue
		}
		if i+1 >= len(base) {
			return "", false
		}
		i++
		switch base[i] {
		case 'u':
			sb.WriteByte('_')
		case '_':
			sb.WriteByte('/')
		case 'b':
			sb.WriteByte('\\')
		default:
			return "", false
		}
	}
	return sb.String(), true
}
