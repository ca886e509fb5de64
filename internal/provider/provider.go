package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrFormatNotRecognized means a decoding strategy does not understand the input; try the next one.
	ErrFormatNotRecognized = errors.New("format not recognized")
	// ErrUnsupportedImage means no strategy recognized the input.
	ErrUnsupportedImage = errors.New("not a valid volume/disk or no supported filesystem")
	ErrNoVolumes        = errors.New("no volumes found")
	ErrInvalidSelection = errors.New("invalid volume selection")
)

// Kind of a filesystem entry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// Entry is one filesystem entry as decoded from the image metadata.
type Entry interface {
	// Path is absolute and slash separated, rooted at the image root.
	Path() string
	Name() string
	Inode() uint64
	Kind() Kind
	IsFile() bool
	IsDir() bool
	Size() int64
	// LinkTarget is the symlink target, "" for other kinds or when the decoder keeps none.
	LinkTarget() string
	Open() (io.ReadCloser, error)
}

// WalkFunc is called once per entry. Returning an error stops the walk.
type WalkFunc func(e Entry) error

// DirErrorFunc sees a directory below the walk root that could not be listed.
// Returning nil skips its subtree and the walk goes on; an error stops the walk.
// A nil DirErrorFunc logs and skips.
type DirErrorFunc func(dir string, err error) error

// Handle is an opened, browsable metadata tree. It is exclusively owned by one scan.
type Handle interface {
	Type() string
	Walk(ctx context.Context, root string, fn WalkFunc, onDirErr DirErrorFunc) error
	Close() error
}

// Volume describes one partition offered to a Selector.
type Volume struct {
	Index int
	Name  string
	Start int64
	Size  int64
}

// Selector picks a volume when a container decodes to more than one.
type Selector interface {
	Select(volumes []Volume) (int, error)
}

// OpenError is an unrecoverable failure of a decoding strategy.
type OpenError struct {
	Path     string
	Strategy string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s as %s: %v", e.Path, e.Strategy, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ReadAll returns the full content of a file entry.
func ReadAll(e Entry) ([]byte, error) {
	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// entry is the concrete Entry shared by all decoders.
type entry struct {
	path  string
	name  string
	inode uint64
	kind  Kind
	size  int64
	open  func() (io.ReadCloser, error)

	linkTarget string
}

func (e *entry) Path() string  { return e.path }
func (e *entry) Name() string  { return e.name }
func (e *entry) Inode() uint64 { return e.inode }
func (e *entry) Kind() Kind    { return e.kind }
func (e *entry) IsFile() bool  { return e.kind == KindFile }
func (e *entry) IsDir() bool   { return e.kind == KindDir }
func (e *entry) Size() int64   { return e.size }

func (e *entry) LinkTarget() string { return e.linkTarget }

func (e *entry) Open() (io.ReadCloser, error) {
	if e.kind != KindFile {
		return nil, fmt.Errorf("open %s: not a regular file", e.path)
	}
	return e.open()
}
