package engine

// Stability returns the fraction of adjacent equal decisions in window.
// A window shorter than two entries is maximally stable (1.0).
func Stability(window []int) float64 {
	if len(window) < 2 {
		return 1.0
	}
	stable := 0
	for i := 1; i < len(window); i++ {
		if window[i] == window[i-1] {
			stable++
		}
	}
	return float64(stable) / float64(len(window)-1)
}

// Mean returns the arithmetic mean of window, or 0 when it is empty.
func Mean(window []int) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0
	for _, d := range window {
		sum += d
	}
	return float64(sum) / float64(len(window))
}
