package kv

// Bounds converts redis-style LRANGE offsets for a list of length n into a
// half-open slice range [lo, hi). ok is false when the range is empty.
func Bounds(n, start, stop int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop + 1, true
}
