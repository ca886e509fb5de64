package internal

import (
	"path/filepath"
	"strings"
)

// Policy decides whether a discrepancy at an absolute path is expected.
type Policy interface {
	IsWhitelisted(fullPath string) bool
}

// Whitelist is a pure function of the path string; it never touches the filesystem.
// Rules are evaluated relative to the mount point, first match wins:
// the mount root itself, then the ephemeral top-level directories, then extra patterns.
type Whitelist struct {
	mountPoint string
	ignoreEph  bool
	ephemeral  map[string]struct{}
	patterns   []Pattern
}

func NewWhitelist(mountPoint string, cfg WhitelistConfig) (*Whitelist, error) {
	w := &Whitelist{
		mountPoint: filepath.Clean(mountPoint),
		ignoreEph:  cfg.IgnoreEphemeral,
		ephemeral:  make(map[string]struct{}, len(cfg.EphemeralDirs)),
	}
	for _, d := range cfg.EphemeralDirs {
		d = strings.Trim(d, "/")
		if d != "" {
			w.ephemeral[d] = struct{}{}
		}
	}
	for _, line := range cfg.Patterns {
		p, err := ParsePattern(line)
		if err != nil {
			return nil, err
		}
		w.patterns = append(w.patterns, p)
	}
	return w, nil
}

func (w *Whitelist) IsWhitelisted(fullPath string) bool {
	_, ok := w.Rule(fullPath)
	return ok
}

// Rule names the first rule matching fullPath.
func (w *Whitelist) Rule(fullPath string) (string, bool) {
	p := filepath.Clean(fullPath)
	if p == "/" {
		return "root", true
	}
	rel, inside := relToMount(w.mountPoint, p)
	if !inside {
		rel = filepath.ToSlash(strings.TrimPrefix(p, "/"))
	}
	if rel == "" {
		return "root", true
	}
	if w.ignoreEph {
		if _, ok := w.ephemeral[topComponent(rel)]; ok {
			return "ephemeral:" + topComponent(rel), true
		}
	}
	for _, pat := range w.patterns {
		if pat.Match(rel) {
			return pat.Desc(), true
		}
	}
	return "", false
}
