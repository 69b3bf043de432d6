package system

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// lowMemoryBytes is the threshold under which parallel rendering is discouraged.
const lowMemoryBytes = 4 << 30

// RecommendedWorkers sizes a worker pool from the physical core count, capped at limit.
func RecommendedWorkers(limit int) int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		n, err = cpu.Counts(true)
		if err != nil || n <= 0 {
			n = 1
		}
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// LowMemory reports whether less than 4GiB of memory is available right now.
// The engine renders profiles one by one when this is true.
func LowMemory() bool {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return false
	}
	return vm.Available < lowMemoryBytes
}
