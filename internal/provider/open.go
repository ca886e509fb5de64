package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// OpenOptions tune the decoding chain.
type OpenOptions struct {
	// Selector chooses among partitions; nil fails on multi-volume images.
	Selector Selector
}

type strategy struct {
	name string
	open func(ctx context.Context, imagePath string, opts OpenOptions) (Handle, error)
}

var strategies = []strategy{
	{"directory", func(_ context.Context, p string, _ OpenOptions) (Handle, error) { return openDirectory(p) }},
	{"filesystem", func(_ context.Context, p string, _ OpenOptions) (Handle, error) { return openBareFilesystem(p) }},
	{"volume", func(_ context.Context, p string, o OpenOptions) (Handle, error) { return openPartitioned(p, o.Selector) }},
	{"archive", func(ctx context.Context, p string, _ OpenOptions) (Handle, error) { return openArchive(ctx, p) }},
}

// Open resolves imagePath to a browsable tree, trying each decoding strategy in
// turn. Only ErrFormatNotRecognized moves on to the next strategy.
func Open(ctx context.Context, imagePath string, opts OpenOptions) (Handle, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return nil, &OpenError{Path: imagePath, Strategy: "stat", Err: err}
	}
	for _, s := range strategies {
		h, err := s.open(ctx, imagePath, opts)
		if err == nil {
			logrus.WithFields(logrus.Fields{"image": imagePath, "strategy": s.name, "type": h.Type()}).Debug("Image decoded")
			return h, nil
		}
		if !errors.Is(err, ErrFormatNotRecognized) {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{"image": imagePath, "strategy": s.name}).WithError(err).Debug("Strategy declined")
	}
	return nil, fmt.Errorf("%s: %w", imagePath, ErrUnsupportedImage)
}
