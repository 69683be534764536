// File: internal/devmem/numa_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package devmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const mpolPreferred = 1

// preferNode sets MPOL_PREFERRED for buf via mbind(2). Pages are not
// faulted yet, so the policy applies to first touch.
func preferNode(buf []byte, node int) error {
	mask := make([]uint64, node/64+1)
	mask[node/64] |= 1 << (uint(node) % 64)
	// the kernel reads maxnode-1 bits
	_, _, errno := unix.Syscall6(unix.SYS_MBIND,
		uintptr(unsafe.Pointer(unsafe.SliceData(buf))), uintptr(len(buf)),
		mpolPreferred,
		uintptr(unsafe.Pointer(unsafe.SliceData(mask))), uintptr(len(mask)*64+1),
		0)
	if errno != 0 {
		return errno
	}
	return nil
}
