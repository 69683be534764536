// File: internal/devmem/host_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build unix

package devmem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-sched/api"
)

func mapRegion(size, node int) ([]byte, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: %v: %w", err, api.ErrResourceExhausted)
	}
	if node >= 0 {
		// best effort: containers commonly forbid memory policies
		_ = preferNode(buf, node)
	}
	return buf, nil
}

func unmapRegion(buf []byte) error {
	return unix.Munmap(buf)
}
