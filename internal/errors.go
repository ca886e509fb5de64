package internal

import "errors"

var (
	ErrMissingArgs   = errors.New("disk, mount point and extract path are required")
	ErrInvalidOption = errors.New("invalid option")
	ErrNotPrivileged = errors.New("root privileges required to parse disk")
	ErrConfigInvalid = errors.New("invalid config")
)
