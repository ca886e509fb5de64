package internal

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"HiddenScan/internal/provider"
)

type stubEntry struct {
	path    string
	inode   uint64
	kind    provider.Kind
	content string
	target  string
	openErr error
}

func (e *stubEntry) Path() string        { return e.path }
func (e *stubEntry) Name() string        { return path.Base(e.path) }
func (e *stubEntry) Inode() uint64       { return e.inode }
func (e *stubEntry) Kind() provider.Kind { return e.kind }
func (e *stubEntry) IsFile() bool        { return e.kind == provider.KindFile }
func (e *stubEntry) IsDir() bool         { return e.kind == provider.KindDir }
func (e *stubEntry) Size() int64         { return int64(len(e.content)) }
func (e *stubEntry) LinkTarget() string  { return e.target }

func (e *stubEntry) Open() (io.ReadCloser, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	return io.NopCloser(strings.NewReader(e.content)), nil
}

func fileEntry(p string, ino uint64, content string) *stubEntry {
	return &stubEntry{path: p, inode: ino, kind: provider.KindFile, content: content}
}

func dirEntry(p string, ino uint64) *stubEntry {
	return &stubEntry{path: p, inode: ino, kind: provider.KindDir}
}

// stubHandle replays a fixed walk. Directories in unlistable are reported
// through the directory error callback before any entry is delivered.
type stubHandle struct {
	entries    []provider.Entry
	unlistable []string
	err        error
}

func (h *stubHandle) Type() string { return "stub" }
func (h *stubHandle) Close() error { return nil }

func (h *stubHandle) Walk(ctx context.Context, _ string, fn provider.WalkFunc, onDirErr provider.DirErrorFunc) error {
	for _, d := range h.unlistable {
		if onDirErr == nil {
			continue
		}
		if err := onDirErr(d, errors.New("corrupt directory block")); err != nil {
			return err
		}
	}
	for _, e := range h.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return h.err
}

// mapProber answers from a fixed set of visible paths; paths in fail error out.
type mapProber struct {
	visible map[string]bool
	fail    map[string]bool
}

func (p *mapProber) IsVisible(full string) (bool, error) {
	if p.fail[full] {
		return true, &ProbeError{Path: full, Parent: path.Dir(full), Kind: ProbePermission, Err: errors.New("permission denied")}
	}
	return p.visible[full], nil
}

func visibleSet(paths ...string) map[string]bool {
	m := make(map[string]bool, len(paths))
	for _, p := range paths {
		m[p] = true
	}
	return m
}

func flaggedPaths(res *ScanResult) map[string]bool {
	m := make(map[string]bool, len(res.Flagged))
	for _, f := range res.Flagged {
		m[f.FullPath] = true
	}
	return m
}
