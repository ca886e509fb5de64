//go:build !unix

package internal

// CheckPrivileges has no effective-uid notion here; opening the device reports access errors instead.
func CheckPrivileges() error { return nil }
