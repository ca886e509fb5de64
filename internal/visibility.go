package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"syscall"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Prober reports whether the OS directory listing of a path's parent shows it.
// On failure it answers true together with a *ProbeError.
type Prober interface {
	IsVisible(path string) (bool, error)
}

// ProbeKind classifies why a parent could not be enumerated.
type ProbeKind int

const (
	ProbeIO ProbeKind = iota
	ProbeNotExist
	ProbePermission
)

func (k ProbeKind) String() string {
	switch k {
	case ProbeNotExist:
		return "not-exist"
	case ProbePermission:
		return "permission"
	default:
		return "io"
	}
}

type ProbeError struct {
	Path   string
	Parent string
	Kind   ProbeKind
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: list %s (%s): %v", e.Path, e.Parent, e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func classifyProbe(err error) ProbeKind {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return ProbeNotExist
	case errors.Is(err, fs.ErrPermission):
		return ProbePermission
	default:
		return ProbeIO
	}
}

type listing struct {
	names map[string]struct{}
	err   error
}

// DirProber enumerates parents with listNames and never opens the target itself.
// Listings, including failed ones, are kept in an LRU keyed by parent directory.
type DirProber struct {
	cache *lru.Cache[string, listing]
	list  func(dir string) ([]string, error)
}

// NewDirProber caches up to cacheSize parent listings; 0 disables caching.
func NewDirProber(cacheSize int) (*DirProber, error) {
	p := &DirProber{list: listNames}
	if cacheSize > 0 {
		c, err := lru.New[string, listing](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("dir cache: %w", err)
		}
		p.cache = c
	}
	return p, nil
}

func (p *DirProber) IsVisible(path string) (bool, error) {
	clean := filepath.Clean(path)
	parent, name := filepath.Dir(clean), filepath.Base(clean)
	if parent == clean {
		// "/" has no parent to hide it from
		return true, nil
	}
	l := p.listing(parent)
	if l.err != nil {
		return true, &ProbeError{Path: clean, Parent: parent, Kind: classifyProbe(l.err), Err: l.err}
	}
	_, ok := l.names[name]
	return ok, nil
}

func (p *DirProber) listing(dir string) listing {
	if p.cache != nil {
		if l, ok := p.cache.Get(dir); ok {
			return l
		}
	}
	var l listing
	names, err := p.list(dir)
	if err != nil {
		l.err = err
	} else {
		l.names = make(map[string]struct{}, len(names))
		for _, n := range names {
			l.names[n] = struct{}{}
		}
	}
	if p.cache != nil {
		p.cache.Add(dir, l)
	}
	return l
}
