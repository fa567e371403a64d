// relax_amd64.go - cpuRelax via the x86-64 PAUSE instruction
//
// Spin loops in PushWait and the pinned consumer call cpuRelax between empty
// polls so a hyperthread sibling gets the pipeline.

//go:build amd64 && cgo && !noasm

package ring24

/*
static inline void cpu_pause() {
    __asm__ __volatile__("pause" ::: "memory");
}
*/
import "C"

//go:nosplit
func cpuRelax() {
	C.cpu_pause()
}
