package provider

import (
	"context"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// BillyHandle browses a go-billy filesystem. Directory trees (loop mounts,
// previously extracted images) and in-memory trees go through here.
type BillyHandle struct {
	fs       billy.Filesystem
	typeName string
}

// NewBillyHandle wraps fs; typeName is reported by Type.
func NewBillyHandle(fs billy.Filesystem, typeName string) *BillyHandle {
	return &BillyHandle{fs: fs, typeName: typeName}
}

// openDirectory is the directory-tree strategy.
func openDirectory(imagePath string) (Handle, error) {
	st, err := os.Stat(imagePath)
	if err != nil {
		return nil, &OpenError{Path: imagePath, Strategy: "directory", Err: err}
	}
	if !st.IsDir() {
		return nil, ErrFormatNotRecognized
	}
	return NewBillyHandle(osfs.New(imagePath), "directory"), nil
}

func (h *BillyHandle) Type() string { return h.typeName }

func (h *BillyHandle) Walk(ctx context.Context, root string, fn WalkFunc, onDirErr DirErrorFunc) error {
	return walkTree(ctx, h, root, fn, onDirErr)
}

func (h *BillyHandle) Close() error { return nil }

// readDir reports links as links; billy listings are lstat based.
func (h *BillyHandle) readDir(dir string) ([]os.FileInfo, error) {
	return h.fs.ReadDir(dir)
}

func (h *BillyHandle) open(p string) (io.ReadCloser, error) {
	return h.fs.Open(p)
}

func (h *BillyHandle) readlink(p string, _ os.FileInfo) string {
	target, err := h.fs.Readlink(p)
	if err != nil {
		return ""
	}
	return target
}
