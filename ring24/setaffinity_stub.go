// setaffinity_stub.go - no-op CPU affinity where sched_setaffinity(2) is unavailable

//go:build !linux || tinygo

package ring24

import "runtime"

//go:nosplit
//go:inline
func setAffinity(cpu int) {}

// Affinity reports every CPU as usable.
func Affinity() ([]int, error) {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus, nil
}
