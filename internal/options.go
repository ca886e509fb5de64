package internal

import (
	"fmt"
	"path/filepath"
)

// WhitelistConfig drives the Whitelist policy. It is passed by value at construction.
type WhitelistConfig struct {
	// IgnoreEphemeral suppresses discrepancies under EphemeralDirs.
	IgnoreEphemeral bool
	// EphemeralDirs are top-level directory names holding runtime state (default "run").
	EphemeralDirs []string
	// Patterns are extra rules: "re:<regex>", "glob:<pattern>" or a subtree path.
	Patterns []string
}

// ScanOptions - public options from CLI and settings file.
type ScanOptions struct {
	DiskPath    string
	MountPoint  string
	ExtractRoot string
	RootPath    string

	Threads    int
	DirCache   int
	FailClosed bool
	SkipEmpty  bool
	SkipLinks  bool
	// Volume picks a partition without prompting; negative means ask.
	Volume   int
	Manifest string

	Whitelist WhitelistConfig
}

// DefaultEphemeralDirs is the subtree ignored unless configured otherwise.
var DefaultEphemeralDirs = []string{"run"}

const defaultDirCache = 4096

// Validate checks required arguments and option ranges.
func (o *ScanOptions) Validate() error {
	if o.DiskPath == "" || o.MountPoint == "" || o.ExtractRoot == "" {
		return ErrMissingArgs
	}
	if o.Threads < 0 {
		return fmt.Errorf("%w: threads must be >= 0, got %d", ErrInvalidOption, o.Threads)
	}
	if o.DirCache < 0 {
		return fmt.Errorf("%w: dir-cache must be >= 0, got %d", ErrInvalidOption, o.DirCache)
	}
	for _, p := range o.Whitelist.Patterns {
		if _, err := ParsePattern(p); err != nil {
			return fmt.Errorf("%w: whitelist: %v", ErrInvalidOption, err)
		}
	}
	return nil
}

// Prepare normalises paths and fills defaults.
func (o *ScanOptions) Prepare() error {
	var err error
	if o.MountPoint, err = filepath.Abs(o.MountPoint); err != nil {
		return fmt.Errorf("mount point: %w", err)
	}
	if o.ExtractRoot, err = filepath.Abs(o.ExtractRoot); err != nil {
		return fmt.Errorf("extract path: %w", err)
	}
	if o.Manifest != "" {
		if o.Manifest, err = filepath.Abs(o.Manifest); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
	}
	if o.RootPath == "" {
		o.RootPath = "/"
	}
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if len(o.Whitelist.EphemeralDirs) == 0 {
		o.Whitelist.EphemeralDirs = DefaultEphemeralDirs
	}
	return nil
}
