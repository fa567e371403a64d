// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go - Cold-path diagnostic logging helper
//
// Purpose:
//   - Logs lifecycle events (engine init, final stats, snapshot save/load).
//   - Logs the rare fail-closed paths (retirement without a successor).
//
// Notes:
//   - Avoids fmt.Sprintf to minimize footprint and latency.
//   - Lines are "PREFIX: message\n" so they grep cleanly per subsystem.
//
// ⚠️ Never invoke in the per-access hot path - use only in failure diagnostics.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "rlpf/utils"

// DropError logs an error with its prefix tag.
// A nil error prints just the prefix (used as a cheap trace tag).
//
//go:nosplit
//go:inline
//go:registerparams
func DropError(prefix string, err error) {
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
		return
	}
	utils.PrintWarning(prefix + "\n")
}

// DropMessage logs a tagged diagnostic line.
//
//go:nosplit
//go:inline
//go:registerparams
func DropMessage(prefix, message string) {
	utils.PrintInfo(prefix + ": " + message + "\n")
}
