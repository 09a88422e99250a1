// Package constants centralizes the engine's limits and defaults.
//
// Port caps, probe timeouts, upload limits and history page sizes live here
// so cmd/ and internal/ agree on the same values without import cycles.
package constants
