package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"HiddenScan/internal/provider"
)

// FlaggedEntry is a hidden entry and where it will be preserved. Destination is
// computed once when the entry is flagged.
type FlaggedEntry struct {
	Entry       provider.Entry
	FullPath    string
	Destination string
}

// ScanResult is produced once per scan and not modified afterwards.
type ScanResult struct {
	Count   int
	Flagged []FlaggedEntry
}

// CrossViewScanner compares the metadata walk against the OS view.
type CrossViewScanner struct {
	prober Prober
	policy Policy
	opts   ScanOptions
	stats  *ScanStats
}

func NewCrossViewScanner(prober Prober, policy Policy, opts ScanOptions, stats *ScanStats) *CrossViewScanner {
	if stats == nil {
		stats = &ScanStats{}
	}
	return &CrossViewScanner{prober: prober, policy: policy, opts: opts, stats: stats}
}

type flagged struct {
	ord int
	fe  FlaggedEntry
}

// Scan walks h from rootPath. An entry is flagged iff its mount path is not
// whitelisted and the OS listing of its parent does not show it.
func (s *CrossViewScanner) Scan(ctx context.Context, h provider.Handle, rootPath, mountPoint, extractRoot string) (*ScanResult, error) {
	var (
		mu    sync.Mutex
		found []flagged
		wg    sync.WaitGroup
		ord   int
	)
	collect := func(i int, e provider.Entry) {
		if fe, ok := s.check(e, mountPoint, extractRoot); ok {
			mu.Lock()
			found = append(found, flagged{ord: i, fe: fe})
			mu.Unlock()
		}
	}

	submit := func(i int, e provider.Entry) error {
		collect(i, e)
		return nil
	}
	if s.opts.Threads > 1 {
		type job struct {
			ord int
			e   provider.Entry
		}
		pool, err := ants.NewPoolWithFunc(s.opts.Threads, func(arg interface{}) {
			defer wg.Done()
			j := arg.(job)
			collect(j.ord, j.e)
		})
		if err != nil {
			return nil, fmt.Errorf("pool: %w", err)
		}
		defer pool.Release()
		submit = func(i int, e provider.Entry) error {
			wg.Add(1)
			if err := pool.Invoke(job{ord: i, e: e}); err != nil {
				wg.Done()
				return fmt.Errorf("submit probe: %w", err)
			}
			return nil
		}
	}

	walkErr := h.Walk(ctx, rootPath, func(e provider.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.skip(e) {
			s.stats.Skipped.Add(1)
			return nil
		}
		s.stats.Entries.Add(1)
		ord++
		return submit(ord, e)
	}, func(dir string, err error) error {
		s.stats.WalkFailures.Add(1)
		logrus.WithField("dir", JoinMount(mountPoint, dir)).WithError(err).Warn("Failed to walk")
		return nil
	})
	wg.Wait()
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		return nil, fmt.Errorf("walk %s: %w", rootPath, walkErr)
	}

	// single aggregation point: restore walk order, drop duplicate paths
	sort.Slice(found, func(i, j int) bool { return found[i].ord < found[j].ord })
	res := &ScanResult{Flagged: make([]FlaggedEntry, 0, len(found))}
	seen := make(map[string]struct{}, len(found))
	for _, f := range found {
		if _, dup := seen[f.fe.FullPath]; dup {
			continue
		}
		seen[f.fe.FullPath] = struct{}{}
		res.Flagged = append(res.Flagged, f.fe)
	}
	res.Count = len(res.Flagged)
	s.stats.Hidden.Store(int64(res.Count))
	return res, nil
}

func (s *CrossViewScanner) skip(e provider.Entry) bool {
	if s.opts.SkipLinks && e.Kind() == provider.KindSymlink {
		return true
	}
	if s.opts.SkipEmpty && e.IsFile() && e.Size() <= 0 {
		return true
	}
	return false
}

func (s *CrossViewScanner) check(e provider.Entry, mountPoint, extractRoot string) (FlaggedEntry, bool) {
	full := JoinMount(mountPoint, e.Path())
	if s.policy.IsWhitelisted(full) {
		return FlaggedEntry{}, false
	}
	visible, err := s.prober.IsVisible(full)
	if err != nil {
		s.stats.ProbeFailures.Add(1)
		fields := logrus.Fields{"path": full}
		var pe *ProbeError
		if errors.As(err, &pe) {
			fields["parent"] = pe.Parent
			fields["kind"] = pe.Kind.String()
		}
		logrus.WithFields(fields).WithError(err).Warn("Failed to open")
		visible = !s.opts.FailClosed
	}
	if visible {
		return FlaggedEntry{}, false
	}
	logrus.WithFields(logrus.Fields{"path": full, "inode": e.Inode(), "kind": e.Kind().String()}).Warn("Hidden")
	return FlaggedEntry{Entry: e, FullPath: full, Destination: DestinationPath(extractRoot, full)}, true
}
