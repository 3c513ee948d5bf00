package dedup

import (
	"math/bits"
	"strings"

	"go-kuensel-scraper/internal/textnorm"
)

// Similar reports whether a and b are the same post text. Both are folded
// (case, Latin diacritics, punctuation, whitespace). If either folded text is
// shorter than MinSimilarityLength runes they must be equal. Otherwise the
// words of the shorter text are matched in order against the longer text
// (longest common subsequence) and the matched fraction must reach
// Threshold. Only the first SimilarityWindow runes of each text count.
func Similar(a, b string, opts Options) bool {
	opts = opts.withDefaults()

	fa, fb := textnorm.Fold(a), textnorm.Fold(b)
	if fa == "" || fb == "" {
		return false
	}
	if textnorm.RuneLen(fa) < opts.MinSimilarityLength || textnorm.RuneLen(fb) < opts.MinSimilarityLength {
		return fa == fb
	}

	wa := strings.Fields(textnorm.Truncate(fa, opts.SimilarityWindow))
	wb := strings.Fields(textnorm.Truncate(fb, opts.SimilarityWindow))
	shorter, longer := wa, wb
	if len(wb) < len(wa) {
		shorter, longer = wb, wa
	}
	if len(shorter) == 0 {
		return false
	}

	ratio := float64(lcsLength(shorter, longer)) / float64(len(shorter))
	return ratio >= opts.Threshold
}

// lcsLength computes the longest common subsequence of a and b with the
// bit-vector recurrence V' = (V + (V & M)) | (V &^ M), where M is the match
// mask of the current element of b over the positions of a. The LCS length
// is the number of zero bits among the low len(a) bits of V.
func lcsLength[T comparable](a, b []T) int {
	m := len(a)
	if m == 0 || len(b) == 0 {
		return 0
	}
	words := (m + 63) / 64

	masks := make(map[T][]uint64)
	for i, x := range a {
		mask, ok := masks[x]
		if !ok {
			mask = make([]uint64, words)
			masks[x] = mask
		}
		mask[i/64] |= 1 << (uint(i) % 64)
	}

	v := make([]uint64, words)
	for i := range v {
		v[i] = ^uint64(0)
	}

	for _, x := range b {
		mask, ok := masks[x]
		if !ok {
			continue
		}
		var carry uint64
		for i := 0; i < words; i++ {
			u := v[i] & mask[i]
			sum, c := bits.Add64(v[i], u, carry)
			carry = c
			v[i] = sum | (v[i] &^ mask[i])
		}
	}

	zeros := 0
	for i := 0; i < words; i++ {
		w := v[i]
		if i == words-1 && m%64 != 0 {
			w |= ^uint64(0) << (uint(m) % 64)
		}
		zeros += bits.OnesCount64(^w)
	}
	return zeros
}
