package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// NodeID derives a stable id from a declaration's file and name. The path hash
// keeps same-named declarations in different files apart, and the same
// (file, name) pair maps to the same id across rebuilds.
func NodeID(filePath, name string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(filepath.Clean(filePath))))
	return name + "_" + hex.EncodeToString(sum[:])[:8]
}
