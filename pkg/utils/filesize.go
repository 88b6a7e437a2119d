package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count in SI units ("1.2 GB")
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(bytes))
}

// ParseSize converts a human-readable size to bytes. Decimal units
// ("500MB") are powers of 1000, IEC units ("500MiB") powers of 1024;
// a bare number is bytes.
func ParseSize(size string) (int64, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, fmt.Errorf("invalid size format: empty")
	}

	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s", size)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size out of range: %s", size)
	}
	return int64(n), nil
}

// FormatAge renders how long ago t was ("3 days ago")
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// SumSizes adds up a slice of sizes
func SumSizes(sizes []int64) int64 {
	var total int64
	for _, size := range sizes {
		total += size
	}
	return total
}
