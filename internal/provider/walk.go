package provider

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/sirupsen/logrus"
)

// tree is the minimal listing surface shared by the decoders.
type tree interface {
	readDir(dir string) ([]os.FileInfo, error)
	open(p string) (io.ReadCloser, error)
	// readlink returns the target of a symlink, "" when the decoder does not keep one.
	readlink(p string, info os.FileInfo) string
}

// walkTree does a depth-first walk below root. All children of a directory are
// delivered before any of them is descended into. A directory below root that
// cannot be listed goes to onDirErr and its subtree is skipped; failing to list
// root itself ends the walk.
func walkTree(ctx context.Context, t tree, root string, fn WalkFunc, onDirErr DirErrorFunc) error {
	var ordinal uint64
	var walk func(dir string, infos []os.FileInfo) error
	walk = func(dir string, infos []os.FileInfo) error {
		var subdirs []string
		for _, info := range infos {
			name := info.Name()
			if name == "." || name == ".." || name == "" {
				continue
			}
			ordinal++
			p := path.Join(dir, name)
			e := &entry{
				path: p,
				name: name,
				kind: kindOf(info),
				size: info.Size(),
			}
			if ino, ok := inodeOf(info); ok {
				e.inode = ino
			} else {
				e.inode = ordinal
			}
			if e.kind == KindSymlink {
				e.linkTarget = t.readlink(p, info)
			}
			e.open = func() (io.ReadCloser, error) { return t.open(p) }
			if err := fn(e); err != nil {
				return err
			}
			if e.kind == KindDir {
				subdirs = append(subdirs, p)
			}
		}
		for _, d := range subdirs {
			if err := ctx.Err(); err != nil {
				return err
			}
			children, err := t.readDir(d)
			if err != nil {
				if err := dirFailed(d, err, onDirErr); err != nil {
					return err
				}
				continue
			}
			if err := walk(d, children); err != nil {
				return err
			}
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	start := cleanRoot(root)
	infos, err := t.readDir(start)
	if err != nil {
		return err
	}
	return walk(start, infos)
}

func dirFailed(dir string, err error, onDirErr DirErrorFunc) error {
	if onDirErr != nil {
		return onDirErr(dir, err)
	}
	logrus.WithField("dir", dir).WithError(err).Warn("Skipping unreadable directory")
	return nil
}

// kindOf trusts IsDir over the mode bits: some decoders set only the directory flag.
func kindOf(info os.FileInfo) Kind {
	m := info.Mode()
	switch {
	case info.IsDir():
		return KindDir
	case m&os.ModeSymlink != 0:
		return KindSymlink
	case m&os.ModeType != 0:
		return KindOther
	default:
		return KindFile
	}
}

func cleanRoot(root string) string {
	if root == "" {
		return "/"
	}
	return path.Clean("/" + root)
}
