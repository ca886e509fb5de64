package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
)

// diskHandle browses a filesystem decoded by go-diskfs.
type diskHandle struct {
	disk     *disk.Disk
	fs       filesystem.FileSystem
	typeName string
}

func (h *diskHandle) Type() string { return h.typeName }

func (h *diskHandle) Walk(ctx context.Context, root string, fn WalkFunc, onDirErr DirErrorFunc) error {
	return walkTree(ctx, h, root, fn, onDirErr)
}

func (h *diskHandle) Close() error {
	if c, ok := h.fs.(io.Closer); ok {
		_ = c.Close()
	}
	return closeDisk(h.disk)
}

func (h *diskHandle) readDir(dir string) ([]os.FileInfo, error) {
	return h.fs.ReadDir(dir)
}

func (h *diskHandle) open(p string) (io.ReadCloser, error) {
	return h.fs.OpenFile(p, os.O_RDONLY)
}

// go-diskfs does not expose link targets.
func (h *diskHandle) readlink(string, os.FileInfo) string { return "" }

func openDisk(imagePath string) (*disk.Disk, error) {
	d, err := diskfs.Open(imagePath, diskfs.WithOpenMode(diskfs.ReadOnly))
	if errors.Is(err, os.ErrPermission) {
		return nil, &OpenError{Path: imagePath, Strategy: "disk", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatNotRecognized, err)
	}
	return d, nil
}

// openBareFilesystem is the strategy for an image holding a filesystem with no partition table.
func openBareFilesystem(imagePath string) (Handle, error) {
	d, err := openDisk(imagePath)
	if err != nil {
		return nil, err
	}
	fs, err := d.GetFilesystem(0)
	if err != nil {
		_ = closeDisk(d)
		return nil, fmt.Errorf("%w: %v", ErrFormatNotRecognized, err)
	}
	return &diskHandle{disk: d, fs: fs, typeName: fsTypeName(fs.Type())}, nil
}

// openPartitioned is the strategy for an image carrying an MBR or GPT table.
func openPartitioned(imagePath string, sel Selector) (Handle, error) {
	d, err := openDisk(imagePath)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (Handle, error) {
		_ = closeDisk(d)
		return nil, err
	}
	table, err := d.GetPartitionTable()
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrFormatNotRecognized, err))
	}
	var volumes []Volume
	for i, p := range table.GetPartitions() {
		if p.GetSize() <= 0 {
			continue
		}
		volumes = append(volumes, Volume{
			Index: i + 1,
			Name:  fmt.Sprintf("partition %d", i+1),
			Start: p.GetStart(),
			Size:  p.GetSize(),
		})
	}
	if len(volumes) == 0 {
		return fail(fmt.Errorf("%w: %w", ErrFormatNotRecognized, ErrNoVolumes))
	}
	chosen := 0
	if len(volumes) > 1 {
		if sel == nil {
			return fail(&OpenError{Path: imagePath, Strategy: "volume", Err: ErrInvalidSelection})
		}
		chosen, err = sel.Select(volumes)
		if err != nil {
			return fail(&OpenError{Path: imagePath, Strategy: "volume", Err: err})
		}
		if chosen < 0 || chosen >= len(volumes) {
			return fail(&OpenError{Path: imagePath, Strategy: "volume",
				Err: fmt.Errorf("%w: %d", ErrInvalidSelection, chosen)})
		}
	}
	fs, err := d.GetFilesystem(volumes[chosen].Index)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %v", ErrFormatNotRecognized, volumes[chosen].Name, err))
	}
	return &diskHandle{disk: d, fs: fs, typeName: fsTypeName(fs.Type())}, nil
}

func closeDisk(d *disk.Disk) error {
	if d == nil || d.File == nil {
		return nil
	}
	return d.Close()
}

func fsTypeName(t filesystem.Type) string {
	switch t {
	case filesystem.TypeFat32:
		return "fat32"
	case filesystem.TypeISO9660:
		return "iso9660"
	case filesystem.TypeSquashfs:
		return "squashfs"
	case filesystem.TypeExt4:
		return "ext4"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}
