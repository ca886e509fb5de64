package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"HiddenScan/internal"
	"HiddenScan/internal/provider"
)

// exit statuses above 255 wrap around, so a large count must not read as "clean"
const maxExitStatus = 255

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "HiddenScan",
		Usage:     "Find entries a disk image contains but the live OS does not list",
		ArgsUsage: "<disk/volume/filesystem> <mount point> <extract path>",
		Description: "Example: HiddenScan /dev/sda1 / /evidence\n" +
			"Exit status is the number of hidden entries found (0 = none, capped at 255).\n" +
			"Usage and fatal errors also exit with 1; only the summary line on stdout\n" +
			"(\"1 hidden file(s) found\") marks a single hidden entry.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Settings file (yaml, toml or json); HIDDENSCAN_* env vars also apply",
			},
			&cli.StringFlag{
				Name:  "logfile",
				Usage: "Write logs into a rotating file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
			&cli.IntFlag{
				Name:  "threads",
				Usage: "Concurrent visibility probes (1 - sequential)",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "volume",
				Usage: "Partition index to scan when the image has several (-1 - ask)",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "fail-closed",
				Usage: "Treat entries whose parent cannot be listed as hidden",
			},
			&cli.BoolFlag{
				Name:  "ignore-run",
				Usage: "Ignore ephemeral top-level directories (see --ephemeral), taken relative to the mount point: with mount /mnt/img, /mnt/img/run is ignored",
				Value: true,
			},
			&cli.StringSliceFlag{
				Name:  "ephemeral",
				Usage: "Top-level directories holding runtime state (default: run)",
			},
			&cli.StringSliceFlag{
				Name:  "whitelist",
				Usage: "Extra whitelist rules: subtree path, 'glob:<pattern>' or 're:<regex>'",
			},
			&cli.StringFlag{
				Name:  "whitelist-file",
				Usage: "File with whitelist rules, one per line",
			},
			&cli.BoolFlag{
				Name:  "skip-empty",
				Usage: "Do not report empty regular files",
			},
			&cli.BoolFlag{
				Name:  "skip-links",
				Usage: "Do not report symbolic links",
			},
			&cli.IntFlag{
				Name:  "dir-cache",
				Usage: "Parent directory listings to keep cached (0 - off)",
				Value: 4096,
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "Write a JSON-lines record of every extracted entry to this file",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar while extracting",
			},
			&cli.BoolFlag{
				Name:  "no-root-check",
				Usage: "Skip the root privilege check (unprivileged directory trees)",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 3 {
		_ = cli.ShowAppHelp(c)
		return cli.Exit(internal.ErrMissingArgs.Error(), 1)
	}

	settings, err := internal.LoadSettings(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logfile, level := settings.LogFile, settings.LogLevel
	if c.IsSet("logfile") {
		logfile = c.String("logfile")
	}
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	internal.InitLogger(logfile, level)

	if !c.Bool("no-root-check") {
		if err := internal.CheckPrivileges(); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	opts := settings.Options()
	opts.DiskPath = c.Args().Get(0)
	opts.MountPoint = c.Args().Get(1)
	opts.ExtractRoot = c.Args().Get(2)
	applyFlags(c, &opts)
	if c.IsSet("whitelist-file") {
		extra, err := internal.LoadPatterns(c.String("whitelist-file"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("whitelist file: %v", err), 1)
		}
		opts.Whitelist.Patterns = append(opts.Whitelist.Patterns, extra...)
	}
	if err := opts.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := opts.Prepare(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stats internal.ScanStats
	p := &internal.Pipeline{Opts: opts, Stats: &stats}
	if opts.Volume >= 0 {
		p.Selector = provider.FixedSelector(opts.Volume)
	} else {
		p.Selector = provider.InteractiveSelector{In: os.Stdin, Out: os.Stdout}
	}
	if c.Bool("progress") {
		var bar *progressbar.ProgressBar
		p.BeforeExtract = func(res *internal.ScanResult) {
			bar = progressbar.NewOptions(res.Count,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("Extracting"),
				progressbar.OptionShowCount(),
			)
		}
		p.OnOutcome = func(internal.Outcome) { _ = bar.Add(1) }
		defer func() {
			if bar != nil {
				_ = bar.Finish()
			}
		}()
	}

	logrus.Info("HiddenScan started")
	sum, err := p.Run(ctx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			logrus.Warn("Scan cancelled")
		case errors.Is(err, provider.ErrUnsupportedImage):
			return cli.Exit(fmt.Sprintf("%s is not a valid volume/disk OR does not contain a supported filesystem", opts.DiskPath), 1)
		}
		return cli.Exit(err.Error(), 1)
	}
	if sum.ExtractErr != nil {
		logrus.WithError(sum.ExtractErr).Warnf("%d entries could not be extracted", stats.Failed.Load())
	}

	hidden := sum.Result.Count
	fmt.Println(internal.SummaryLine(hidden))
	if hidden > 0 {
		fmt.Println("Extracted to:", opts.ExtractRoot)
	}
	logrus.Infof("HiddenScan finished in %s", stats.Elapsed())
	if hidden == 0 {
		return nil
	}
	return cli.Exit("", min(hidden, maxExitStatus))
}

func applyFlags(c *cli.Context, o *internal.ScanOptions) {
	if c.IsSet("threads") {
		o.Threads = c.Int("threads")
	}
	if c.IsSet("volume") {
		o.Volume = c.Int("volume")
	}
	if c.IsSet("fail-closed") {
		o.FailClosed = c.Bool("fail-closed")
	}
	if c.IsSet("ignore-run") {
		o.Whitelist.IgnoreEphemeral = c.Bool("ignore-run")
	}
	if c.IsSet("ephemeral") {
		o.Whitelist.EphemeralDirs = c.StringSlice("ephemeral")
	}
	if c.IsSet("whitelist") {
		o.Whitelist.Patterns = append(o.Whitelist.Patterns, c.StringSlice("whitelist")...)
	}
	if c.IsSet("skip-empty") {
		o.SkipEmpty = c.Bool("skip-empty")
	}
	if c.IsSet("skip-links") {
		o.SkipLinks = c.Bool("skip-links")
	}
	if c.IsSet("dir-cache") {
		o.DirCache = c.Int("dir-cache")
	}
	if c.IsSet("manifest") {
		o.Manifest = c.String("manifest")
	}
}
