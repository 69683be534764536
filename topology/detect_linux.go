//go:build linux
// +build linux

// File: topology/detect_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux discovery: process CPU mask from sched_getaffinity, NUMA
// membership and L3 ids from sysfs.

package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

var sysfsRoot = "/sys/devices/system"

func platformDescription() (Description, error) {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return Description{}, fmt.Errorf("topology: sched_getaffinity: %w", err)
	}
	nodeOf := readNodeMembership()

	d := Description{}
	limit := len(mask) * int(unsafe.Sizeof(mask[0])) * 8
	for sys := 0; sys < limit; sys++ {
		if !mask.IsSet(sys) {
			continue
		}
		node := nodeOf[sys]
		caches := []int{node}
		if id, ok := readL3ID(sys); ok {
			caches = []int{id}
		}
		d.CPUs = append(d.CPUs, CPUDescription{System: sys, NUMANode: node, Caches: caches})
	}
	return compactNodes(d), nil
}

// compactNodes renumbers node ids densely, dropping nodes left empty by
// the process mask. The OS ids are kept in SystemNodes.
func compactNodes(d Description) Description {
	used := make(map[int]bool)
	for _, c := range d.CPUs {
		used[c.NUMANode] = true
	}
	var ids []int
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	remap := make(map[int]int, len(ids))
	for i, id := range ids {
		remap[id] = i
	}
	for i := range d.CPUs {
		d.CPUs[i].NUMANode = remap[d.CPUs[i].NUMANode]
	}
	d.SystemNodes = ids
	return d
}

func readNodeMembership() map[int]int {
	out := make(map[int]int)
	dirs, _ := filepath.Glob(filepath.Join(sysfsRoot, "node", "node[0-9]*"))
	for _, dir := range dirs {
		id, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(dir), "node"))
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, "cpulist"))
		if err != nil {
			continue
		}
		cpus, err := ParseCPUList(string(raw))
		if err != nil {
			continue
		}
		for _, c := range cpus {
			out[c] = id
		}
	}
	return out
}

func readL3ID(sys int) (int, bool) {
	raw, err := os.ReadFile(filepath.Join(sysfsRoot, "cpu", fmt.Sprintf("cpu%d", sys), "cache", "index3", "id"))
	if err != nil {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	return id, err == nil
}
