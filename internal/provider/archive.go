package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

// archiveHandle browses an evidence bundle (tar, zip, 7z, ...) as an io/fs tree.
type archiveHandle struct {
	fsys     iofs.FS
	typeName string
}

// openArchive is the container strategy.
func openArchive(ctx context.Context, imagePath string) (Handle, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, &OpenError{Path: imagePath, Strategy: "archive", Err: err}
	}
	format, _, err := archives.Identify(ctx, filepath.Base(imagePath), f)
	_ = f.Close()
	if errors.Is(err, archives.NoMatch) {
		return nil, ErrFormatNotRecognized
	}
	if err != nil {
		return nil, &OpenError{Path: imagePath, Strategy: "archive", Err: err}
	}
	// a bare compression stream (e.g. image.raw.gz) is not a browsable tree
	if _, ok := format.(archives.Extractor); !ok {
		return nil, fmt.Errorf("%w: %s is compressed, not archived", ErrFormatNotRecognized, imagePath)
	}
	fsys, err := archives.FileSystem(ctx, imagePath, nil)
	if err != nil {
		return nil, &OpenError{Path: imagePath, Strategy: "archive", Err: err}
	}
	return &archiveHandle{fsys: fsys, typeName: "archive" + format.Extension()}, nil
}

func (h *archiveHandle) Type() string { return h.typeName }

func (h *archiveHandle) Walk(ctx context.Context, root string, fn WalkFunc, onDirErr DirErrorFunc) error {
	return walkTree(ctx, h, root, fn, onDirErr)
}

func (h *archiveHandle) Close() error {
	if c, ok := h.fsys.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (h *archiveHandle) readDir(dir string) ([]os.FileInfo, error) {
	ents, err := iofs.ReadDir(h.fsys, fsPath(dir))
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(ents))
	for _, d := range ents {
		info, err := d.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (h *archiveHandle) open(p string) (io.ReadCloser, error) {
	return h.fsys.Open(fsPath(p))
}

func (h *archiveHandle) readlink(_ string, info os.FileInfo) string {
	if fi, ok := info.(archives.FileInfo); ok {
		return fi.LinkTarget
	}
	return ""
}

// fsPath maps an absolute image path onto io/fs naming.
func fsPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}
