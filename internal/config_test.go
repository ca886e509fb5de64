package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	if err != nil {
		t.Fatal(err)
	}
	if s.LogLevel != "info" || s.Threads != 1 || s.DirCache != defaultDirCache || s.FailClosed {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if !s.Whitelist.IgnoreEphemeral || len(s.Whitelist.Ephemeral) != 1 || s.Whitelist.Ephemeral[0] != "run" {
		t.Fatalf("unexpected whitelist defaults %+v", s.Whitelist)
	}
	o := s.Options()
	if o.Volume != -1 || !o.Whitelist.IgnoreEphemeral {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestLoadSettings_FileAndPatternFile(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "extra.txt")
	if err := os.WriteFile(pf, []byte("# extra\n/var/cache\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "hiddenscan.yaml")
	body := "threads: 4\nskip_links: true\nwhitelist:\n  ignore_ephemeral: false\n  patterns:\n    - glob:tmp/*.sock\n  pattern_file: " + pf + "\n"
	if err := os.WriteFile(cfg, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s.Threads != 4 || !s.SkipLinks || s.Whitelist.IgnoreEphemeral {
		t.Fatalf("file values not applied: %+v", s)
	}
	if len(s.Whitelist.Patterns) != 2 || s.Whitelist.Patterns[1] != "/var/cache" {
		t.Fatalf("pattern file not merged: %v", s.Whitelist.Patterns)
	}
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("HIDDENSCAN_FAIL_CLOSED", "true")
	t.Setenv("HIDDENSCAN_THREADS", "3")
	s, err := LoadSettings("")
	if err != nil {
		t.Fatal(err)
	}
	if !s.FailClosed || s.Threads != 3 {
		t.Fatalf("env not applied: %+v", s)
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}
