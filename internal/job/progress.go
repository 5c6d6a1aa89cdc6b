package job

import "math"

// ProgressPercent derives a whole percentage from attempt counts. An empty
// job is fully complete by definition.
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 100
	}
	percent := int(math.Round(float64(completed) / float64(total) * 100))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
