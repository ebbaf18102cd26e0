package slices

// Map each element in sli with mapper.
//
// The returned slice has the same length as sli;
// the element at index N is mapper(sli[N]).
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		ret[nth] = mapper(v)
	}
	return ret
}

// Filter returns elements of sli satisfying pred, keeping their order.
func Filter[T any](sli []T, pred func(v T) bool) []T {
	ret := []T{}
	for _, v := range sli {
		if pred(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// Contains returns true when at least one element of sli satisfies pred.
func Contains[T any](sli []T, pred func(v T) bool) bool {
	for _, v := range sli {
		if pred(v) {
			return true
		}
	}
	return false
}

// First returns the first element satisfying pred, and whether one was found.
func First[T any](sli []T, pred func(v T) bool) (T, bool) {
	for _, v := range sli {
		if pred(v) {
			return v, true
		}
	}
	return *new(T), false
}
