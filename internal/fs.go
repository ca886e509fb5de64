package internal

import (
	"path/filepath"
	"strings"
)

// JoinMount places an image-namespace path under the live mount point.
func JoinMount(mountPoint, p string) string {
	return filepath.Join(mountPoint, p)
}

// DestinationPath mirrors fullPath under extractRoot: /etc/x with /evidence -> /evidence/etc/x.
func DestinationPath(extractRoot, fullPath string) string {
	return filepath.Join(extractRoot, strings.TrimPrefix(fullPath, string(filepath.Separator)))
}

// relToMount returns fullPath relative to mountPoint, or false when it lies outside.
func relToMount(mountPoint, fullPath string) (string, bool) {
	rel, err := filepath.Rel(mountPoint, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

// topComponent is the first element of a relative slash path.
func topComponent(rel string) string {
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}
