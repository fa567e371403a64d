// relax_arm64.go - cpuRelax via the ARM64 YIELD instruction

//go:build arm64 && cgo && !noasm

package ring24

/*
static inline void cpu_yield() {
    __asm__ __volatile__("yield" ::: "memory");
}
*/
import "C"

//go:nosplit
func cpuRelax() {
	C.cpu_yield()
}
