// File: internal/devmem/host_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !unix

package devmem

func mapRegion(size, _ int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapRegion([]byte) error { return nil }
