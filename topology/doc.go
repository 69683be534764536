// File: topology/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package topology holds the hardware table the scheduling core consumes:
// processing units (CPUs) with their NUMA node and cache domains, memory
// nodes, and accelerator devices. The table is built once, before any
// scheduler call, either from an explicit Description or by Detect.
// Only the enabled flag and the bound-worker slot of a CPU change later.
package topology
