package cmp

// SliceEq checks two slices have the same elements in the same order.
func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if a[nth] != b[nth] {
			return false
		}
	}
	return true
}

// SliceContentEq checks two slices have the same elements, ignoring order.
//
// Repeated elements are counted: [x, x, y] != [x, y, y].
func SliceContentEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	counts := map[T]int{}
	for _, v := range a {
		counts[v] += 1
	}
	for _, v := range b {
		counts[v] -= 1
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

// MapEq checks a == b.
func MapEq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	if len(a) != len(b) {
		return false
	}
	return MapLeq(a, b)
}

// MapLeq checks a ⊆ b.
func MapLeq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	for ka, va := range a {
		vb, ok := b[ka]
		if !ok || vb != va {
			return false
		}
	}
	return true
}
