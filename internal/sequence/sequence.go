// Package sequence produces the finite input sequences fed to the feedback
// simulator. Every generator is pure: the only state it touches is the
// injected random Source.
package sequence

import "errors"

// DefaultBinarizeThreshold is the score at or above which Binarize emits 1.
const DefaultBinarizeThreshold = 0.8

// FirstIndicatorValue is the integer represented by the first element of a
// prime-indicator sequence.
const FirstIndicatorValue = 2

// ErrEmptyPattern is returned by Repeat when the pattern has no elements.
var ErrEmptyPattern = errors.New("pattern must not be empty")

// PrimeSet answers primality by membership. Implementations are expected to
// be precomputed; generators never test primality themselves.
type PrimeSet interface {
	Contains(n int) bool
}

// Source supplies uniform integers in [0, n). *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// PrimeIndicator returns n signals where element i is 1 when 2+i is in
// primes and 0 otherwise.
func PrimeIndicator(n int, primes PrimeSet) []float64 {
	out := make([]float64, 0, max(n, 0))
	for k := FirstIndicatorValue; k < FirstIndicatorValue+n; k++ {
		out = append(out, indicator(primes.Contains(k)))
	}
	return out
}

// Binarize maps each stability score to 1 when it is at least threshold and
// to 0 otherwise. The output has the same length as scores.
func Binarize(scores []float64, threshold float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = indicator(s >= threshold)
	}
	return out
}

// RandomBinary returns n independent draws from {0, 1}.
func RandomBinary(n int, src Source) []float64 {
	out := make([]float64, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, float64(src.Intn(2)))
	}
	return out
}

// Repeat returns n signals cycling through pattern.
func Repeat(n int, pattern []float64) ([]float64, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	out := make([]float64, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, pattern[i%len(pattern)])
	}
	return out, nil
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
