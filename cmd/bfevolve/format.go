// ABOUTME: Minimal precision formatting for the generations-per-second rate
// ABOUTME: Formats a float64 pair with just enough digits to show the difference

package main

import (
	"fmt"
	"math"
)

// FormatWithMinimalPrecision returns curr formatted with the minimum
// precision needed to distinguish it from prev, plus one extra digit for
// clarity. Used for the generations/sec rate in the progress line, since
// (unlike fitness, an integer score) it's a float that can shrink toward
// a limit across many close updates.
func FormatWithMinimalPrecision(prev, curr float64) string {
	if math.IsNaN(prev) || math.IsNaN(curr) || math.IsInf(prev, 0) || math.IsInf(curr, 0) {
		return fmt.Sprintf("%.2f", curr)
	}

	if prev == curr {
		return fmt.Sprintf("%.2f", curr)
	}

	const maxPrecision = 10
	for precision := 1; precision <= maxPrecision; precision++ {
		format := fmt.Sprintf("%%.%df", precision)
		prevStr := fmt.Sprintf(format, prev)
		currStr := fmt.Sprintf(format, curr)

		if prevStr != currStr {
			clarityPrecision := precision + 1
			if clarityPrecision > maxPrecision {
				clarityPrecision = maxPrecision
			}
			return fmt.Sprintf(fmt.Sprintf("%%.%df", clarityPrecision), curr)
		}
	}

	return fmt.Sprintf(fmt.Sprintf("%%.%df", maxPrecision), curr)
}
