package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"HiddenScan/internal/provider"
)

const (
	dirPerm  os.FileMode = 0755
	filePerm os.FileMode = 0644
)

type OutcomeStatus string

const (
	OutcomeCreated   OutcomeStatus = "created"
	OutcomeExtracted OutcomeStatus = "extracted"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome of preserving one flagged entry. LinkTarget is kept for symlinks,
// whose content is not copied.
type Outcome struct {
	Flagged    FlaggedEntry
	Status     OutcomeStatus
	Digests    Digests
	Bytes      int64
	LinkTarget string
	Err        error
}

// Extractor copies flagged entries into the quarantine tree held by sink.
type Extractor struct {
	sink      billy.Filesystem
	stats     *ScanStats
	onOutcome func(Outcome)
}

// NewExtractor writes through sink; onOutcome, if set, sees every outcome as it happens.
func NewExtractor(sink billy.Filesystem, stats *ScanStats, onOutcome func(Outcome)) *Extractor {
	if stats == nil {
		stats = &ScanStats{}
	}
	return &Extractor{sink: sink, stats: stats, onOutcome: onOutcome}
}

// Extract processes entries in order. A failing entry is logged and skipped; the
// returned error aggregates every failure and is nil when all entries succeeded.
func (x *Extractor) Extract(ctx context.Context, entries []FlaggedEntry) ([]Outcome, error) {
	var merr *multierror.Error
	outcomes := make([]Outcome, 0, len(entries))
	for _, fe := range entries {
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, err)
			break
		}
		o := x.extractOne(fe)
		if o.Status == OutcomeFailed {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", fe.Destination, o.Err))
		}
		outcomes = append(outcomes, o)
		if x.onOutcome != nil {
			x.onOutcome(o)
		}
	}
	return outcomes, merr.ErrorOrNil()
}

func (x *Extractor) extractOne(fe FlaggedEntry) Outcome {
	o := Outcome{Flagged: fe}
	log := logrus.WithFields(logrus.Fields{"path": fe.FullPath, "dest": fe.Destination})
	switch fe.Entry.Kind() {
	case provider.KindDir:
		if err := x.sink.MkdirAll(fe.Destination, dirPerm); err != nil {
			return x.failed(o, log, err)
		}
		o.Status = OutcomeCreated
		x.stats.Created.Add(1)
		log.Info("Created")
	case provider.KindFile:
		if err := x.sink.MkdirAll(filepath.Dir(fe.Destination), dirPerm); err != nil {
			return x.failed(o, log, err)
		}
		d, n, err := x.copyFile(fe)
		if err != nil {
			return x.failed(o, log, err)
		}
		o.Status, o.Digests, o.Bytes = OutcomeExtracted, d, n
		x.stats.Extracted.Add(1)
		log.WithFields(logrus.Fields{"md5": d.MD5, "sha256": d.SHA256, "bytes": n}).Info("Extracted")
	default:
		if err := x.sink.MkdirAll(filepath.Dir(fe.Destination), dirPerm); err != nil {
			return x.failed(o, log, err)
		}
		o.Status = OutcomeSkipped
		o.LinkTarget = fe.Entry.LinkTarget()
		log.WithFields(logrus.Fields{"kind": fe.Entry.Kind().String(), "target": o.LinkTarget}).Info("Not extracted")
	}
	return o
}

// copyFile streams source bytes to the destination and hashes the source side.
func (x *Extractor) copyFile(fe FlaggedEntry) (Digests, int64, error) {
	src, err := fe.Entry.Open()
	if err != nil {
		return Digests{}, 0, fmt.Errorf("read source: %w", err)
	}
	defer src.Close()

	dst, err := x.sink.OpenFile(fe.Destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return Digests{}, 0, fmt.Errorf("create: %w", err)
	}
	d := newDigester()
	n, err := io.Copy(dst, io.TeeReader(src, d))
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	if err != nil {
		return Digests{}, n, fmt.Errorf("copy: %w", err)
	}
	return d.Sum(), n, nil
}

func (x *Extractor) failed(o Outcome, log *logrus.Entry, err error) Outcome {
	o.Status, o.Err = OutcomeFailed, err
	x.stats.Failed.Add(1)
	log.WithError(err).Error("Failed to extract")
	return o
}
