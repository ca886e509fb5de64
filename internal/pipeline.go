package internal

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"

	"HiddenScan/internal/provider"
)

// Pipeline runs open -> scan -> extract for one image. Zero-valued fields get
// production defaults: raw-dirent prober, OS sink rooted at "/", no selector.
type Pipeline struct {
	Opts      ScanOptions
	Selector  provider.Selector
	Prober    Prober
	Sink      billy.Filesystem
	Stats     *ScanStats
	OnOutcome func(Outcome)
	// BeforeExtract sees the flagged list once the walk phase is complete.
	BeforeExtract func(res *ScanResult)
}

// Summary of one run. ExtractErr aggregates per-entry extraction failures.
type Summary struct {
	FilesystemType string
	Result         *ScanResult
	Outcomes       []Outcome
	ExtractErr     error
}

func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if p.Stats == nil {
		p.Stats = &ScanStats{}
	}
	p.Stats.Start()
	if p.Sink == nil {
		p.Sink = osfs.New("/")
	}
	if p.Prober == nil {
		dp, err := NewDirProber(p.Opts.DirCache)
		if err != nil {
			return nil, err
		}
		p.Prober = dp
	}
	wl, err := NewWhitelist(p.Opts.MountPoint, p.Opts.Whitelist)
	if err != nil {
		return nil, fmt.Errorf("%w: whitelist: %v", ErrInvalidOption, err)
	}

	h, err := provider.Open(ctx, p.Opts.DiskPath, provider.OpenOptions{Selector: p.Selector})
	if err != nil {
		return nil, err
	}
	defer h.Close()
	logrus.WithFields(logrus.Fields{"image": p.Opts.DiskPath, "mount": p.Opts.MountPoint}).Infof("Filesystem: %s", h.Type())

	scanner := NewCrossViewScanner(p.Prober, wl, p.Opts, p.Stats)
	res, err := scanner.Scan(ctx, h, p.Opts.RootPath, p.Opts.MountPoint, p.Opts.ExtractRoot)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Stats: entries=%d skipped=%d probe_failures=%d walk_failures=%d hidden=%d",
		p.Stats.Entries.Load(), p.Stats.Skipped.Load(), p.Stats.ProbeFailures.Load(), p.Stats.WalkFailures.Load(), res.Count)
	if p.BeforeExtract != nil {
		p.BeforeExtract(res)
	}

	sum := &Summary{FilesystemType: h.Type(), Result: res}
	sum.Outcomes, sum.ExtractErr = NewExtractor(p.Sink, p.Stats, p.OnOutcome).Extract(ctx, res.Flagged)
	if p.Opts.Manifest != "" {
		if err := WriteManifest(p.Sink, p.Opts.Manifest, sum.Outcomes); err != nil {
			logrus.WithError(err).Error("Failed to write manifest")
		}
	}
	return sum, nil
}

// SummaryLine is the closing report line.
func SummaryLine(hidden int) string {
	if hidden > 0 {
		return fmt.Sprintf("%d hidden file(s) found", hidden)
	}
	return "No hidden files found"
}
