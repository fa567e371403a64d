// relax_stub.go - no-op cpuRelax where no PAUSE/YIELD helper is built
//
// Covers architectures other than amd64/arm64, builds without cgo and builds
// tagged noasm. Spin loops keep working, just without the pipeline hint.

//go:build (!amd64 && !arm64) || !cgo || noasm

package ring24

//go:nosplit
//go:inline
func cpuRelax() {}
