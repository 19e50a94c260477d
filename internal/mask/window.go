package mask

import "iter"

// Windows yields every run of n consecutive elements of seq, in order.
// A sequence of length N yields N-n+1 windows, none when N < n or n < 1.
// Each yielded window aliases seq and must not be retained past the step.
func Windows[T any](seq []T, n int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		if n < 1 {
			return
		}
		for i := 0; i+n <= len(seq); i++ {
			if !yield(seq[i : i+n : i+n]) {
				return
			}
		}
	}
}

// Pairs yields each consecutive (current, next) pair of seq.
func Pairs[T any](seq []T) iter.Seq2[T, T] {
	return func(yield func(T, T) bool) {
		for w := range Windows(seq, 2) {
			if !yield(w[0], w[1]) {
				return
			}
		}
	}
}
