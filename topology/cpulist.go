// File: topology/cpulist.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCPUList parses the kernel list format, e.g. "0-3,8,10-11".
func ParseCPUList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("cpulist %q: %w", s, err)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("cpulist %q: %w", s, err)
			}
		}
		if first < 0 || last < first {
			return nil, fmt.Errorf("cpulist %q: bad range %q", s, part)
		}
		for c := first; c <= last; c++ {
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}
