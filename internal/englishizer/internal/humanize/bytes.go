// Package humanize formats byte counts the way the handshake renderer
// describes negotiated MTU sizes (KB/MB/bytes), matching spec.md §4.13's
// "MTU formatted as KB/MB/bytes" renderer contract.
package humanize

import "fmt"

// Bytes formats n bytes as a short human string: plain bytes under 1KB,
// "NKB" under 1MB, otherwise "N.NMB".
func Bytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%dKB", n/(1<<10))
	default:
		return fmt.Sprintf("%dbytes", n)
	}
}
