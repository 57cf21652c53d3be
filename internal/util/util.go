// Package util holds small formatting helpers shared by logging and
// progress-reporting call sites across the pipeline.
package util

import "github.com/dustin/go-humanize"

// FormatBytes renders a byte count as a human-readable size, e.g. "1.2 GB".
func FormatBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}
