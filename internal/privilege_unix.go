//go:build unix

package internal

import "golang.org/x/sys/unix"

// CheckPrivileges fails unless running as root; raw devices are unreadable otherwise.
func CheckPrivileges() error {
	if unix.Geteuid() != 0 {
		return ErrNotPrivileged
	}
	return nil
}
