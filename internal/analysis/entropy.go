package analysis

import (
	"math"
	"slices"
)

// Entropy returns the Shannon entropy of s in bits per symbol, counting runes
// as symbols. The empty string has entropy 0.
//
// Terms are summed in rune order so repeated calls are bit-identical.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	symbols := make([]rune, 0, len(freq))
	for r := range freq {
		symbols = append(symbols, r)
	}
	slices.Sort(symbols)

	total := float64(n)
	entropy := 0.0
	for _, r := range symbols {
		p := float64(freq[r]) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
