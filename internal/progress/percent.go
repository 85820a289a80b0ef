package progress

import "math"

// Percent returns completed/total as a whole percentage in [0, 100]. A zero total yields 0.
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
