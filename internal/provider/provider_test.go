package provider

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func memTree(t *testing.T, files map[string]string) *BillyHandle {
	t.Helper()
	fs := memfs.New()
	for p, body := range files {
		if err := util.WriteFile(fs, p, []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return NewBillyHandle(fs, "memfs")
}

func collect(t *testing.T, h Handle) []Entry {
	t.Helper()
	var out []Entry
	if err := h.Walk(context.Background(), "/", func(e Entry) error {
		out = append(out, e)
		return nil
	}, nil); err != nil {
		t.Fatalf("walk: %v", err)
	}
	return out
}

func TestBillyHandle_WalkVisitsEverythingOnce(t *testing.T) {
	h := memTree(t, map[string]string{
		"/etc/passwd":       "root:x:0:0\n",
		"/etc/ssh/sshd.cfg": "Port 22\n",
		"/var/log/syslog":   "boot\n",
	})
	got := map[string]Kind{}
	for _, e := range collect(t, h) {
		if _, dup := got[e.Path()]; dup {
			t.Fatalf("visited twice: %s", e.Path())
		}
		got[e.Path()] = e.Kind()
	}
	want := map[string]Kind{
		"/etc": KindDir, "/etc/passwd": KindFile, "/etc/ssh": KindDir, "/etc/ssh/sshd.cfg": KindFile,
		"/var": KindDir, "/var/log": KindDir, "/var/log/syslog": KindFile,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for p, k := range want {
		if got[p] != k {
			t.Errorf("%s: want %s, got %s", p, k, got[p])
		}
	}
	if _, ok := got["/"]; ok {
		t.Error("root must not be delivered")
	}
}

func TestBillyHandle_SiblingsBeforeDescent(t *testing.T) {
	h := memTree(t, map[string]string{
		"/a/deep/x": "1",
		"/b":        "2",
	})
	pos := map[string]int{}
	for i, e := range collect(t, h) {
		pos[e.Path()] = i
	}
	if pos["/b"] > pos["/a/deep"] {
		t.Fatalf("top-level siblings must come before nested entries: %v", pos)
	}
}

func TestBillyHandle_ReadAllAndInodes(t *testing.T) {
	h := memTree(t, map[string]string{"/etc/motd": "welcome\n", "/etc/issue": "linux\n"})
	seen := map[uint64]string{}
	for _, e := range collect(t, h) {
		if prev, dup := seen[e.Inode()]; dup {
			t.Fatalf("inode %d shared by %s and %s", e.Inode(), prev, e.Path())
		}
		seen[e.Inode()] = e.Path()
		if e.Path() == "/etc/motd" {
			b, err := ReadAll(e)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(b) != "welcome\n" {
				t.Fatalf("unexpected content %q", b)
			}
		}
		if e.IsDir() {
			if _, err := e.Open(); err == nil {
				t.Fatalf("opening a directory must fail")
			}
		}
	}
}

func TestOpen_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "etc"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "etc", "hosts"), []byte("127.0.0.1 localhost\n"), 0644); err != nil {
		t.Fatal(err)
	}
	h, err := Open(context.Background(), dir, OpenOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	if h.Type() != "directory" {
		t.Fatalf("unexpected type %q", h.Type())
	}
	var hosts Entry
	for _, e := range collect(t, h) {
		if e.Path() == "/etc/hosts" {
			hosts = e
		}
	}
	if hosts == nil {
		t.Fatal("expected /etc/hosts")
	}
	if hosts.Inode() == 0 {
		t.Error("expected a real inode number from a directory tree")
	}
	if hosts.Size() != int64(len("127.0.0.1 localhost\n")) {
		t.Errorf("unexpected size %d", hosts.Size())
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.img"), OpenOptions{})
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OpenError, got %v", err)
	}
}

func TestOpen_Unsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.img")
	if err := os.WriteFile(p, bytes.Repeat([]byte("not a disk image\n"), 4096), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(context.Background(), p, OpenOptions{})
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestOpen_TarBundle(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bundle.tar")
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	_ = tw.WriteHeader(&tar.Header{Name: "etc/", Typeflag: tar.TypeDir, Mode: 0755})
	body := "cfg=1\n"
	_ = tw.WriteHeader(&tar.Header{Name: "etc/.rootkit_cfg", Typeflag: tar.TypeReg, Mode: 0644, Size: int64(len(body))})
	_, _ = tw.Write([]byte(body))
	_ = tw.Close()
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	h, err := Open(context.Background(), p, OpenOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	if !strings.HasPrefix(h.Type(), "archive") {
		t.Fatalf("unexpected type %q", h.Type())
	}
	found := false
	for _, e := range collect(t, h) {
		if e.Path() == "/etc/.rootkit_cfg" {
			found = true
			b, err := ReadAll(e)
			if err != nil || string(b) != body {
				t.Fatalf("read %q, %v", b, err)
			}
		}
	}
	if !found {
		t.Fatal("expected /etc/.rootkit_cfg in archive walk")
	}
}

func TestWalk_StopsOnCallbackError(t *testing.T) {
	h := memTree(t, map[string]string{"/a": "1", "/b": "2"})
	stop := errors.New("stop")
	n := 0
	err := h.Walk(context.Background(), "/", func(Entry) error {
		n++
		return stop
	}, nil)
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("expected stop after first entry, got n=%d err=%v", n, err)
	}
}

func TestWalk_Cancelled(t *testing.T) {
	h := memTree(t, map[string]string{"/a": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Walk(ctx, "/", func(Entry) error { return nil }, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInteractiveSelector(t *testing.T) {
	vols := []Volume{{Index: 1, Name: "partition 1", Size: 512}, {Index: 2, Name: "partition 2", Size: 1024}}
	var out bytes.Buffer
	i, err := InteractiveSelector{In: strings.NewReader("1\n"), Out: &out}.Select(vols)
	if err != nil || i != 1 {
		t.Fatalf("expected 1, got %d (%v)", i, err)
	}
	if !strings.Contains(out.String(), "[1] partition 2 (1024 bytes)") {
		t.Fatalf("unexpected prompt: %q", out.String())
	}
	if _, err := (InteractiveSelector{In: strings.NewReader("x\n"), Out: &out}).Select(vols); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
	if _, err := (InteractiveSelector{In: strings.NewReader("7"), Out: &out}).Select(vols); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection for out of range, got %v", err)
	}
}

func TestFixedSelector(t *testing.T) {
	vols := []Volume{{Index: 1}, {Index: 2}}
	if i, err := FixedSelector(1).Select(vols); err != nil || i != 1 {
		t.Fatalf("expected 1, got %d (%v)", i, err)
	}
	if _, err := FixedSelector(2).Select(vols); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
}
