package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// ManifestRecord is one JSON line of the evidence manifest.
type ManifestRecord struct {
	Path        string `json:"path"`
	Inode       uint64 `json:"inode"`
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
	Bytes       int64  `json:"bytes,omitempty"`
	MD5         string `json:"md5,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
	LinkTarget  string `json:"link_target,omitempty"`
	Error       string `json:"error,omitempty"`
}

func recordOf(o Outcome) ManifestRecord {
	r := ManifestRecord{
		Path:        o.Flagged.FullPath,
		Inode:       o.Flagged.Entry.Inode(),
		Kind:        o.Flagged.Entry.Kind().String(),
		Destination: o.Flagged.Destination,
		Status:      string(o.Status),
		Bytes:       o.Bytes,
		MD5:         o.Digests.MD5,
		SHA256:      o.Digests.SHA256,
		LinkTarget:  o.LinkTarget,
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

// WriteManifest replaces file with one record per outcome.
func WriteManifest(sink billy.Filesystem, file string, outcomes []Outcome) error {
	if err := sink.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	f, err := sink.Create(file)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, o := range outcomes {
		if err := enc.Encode(recordOf(o)); err != nil {
			f.Close()
			return fmt.Errorf("manifest: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("manifest: %w", err)
	}
	return f.Close()
}
