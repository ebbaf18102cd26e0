package slices_test

import (
	"strconv"
	"testing"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/cmp"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/slices"
)

func TestMap(t *testing.T) {
	actual := slices.Map([]int{1, 2, 3}, strconv.Itoa)
	expected := []string{"1", "2", "3"}
	if !cmp.SliceEq(actual, expected) {
		t.Errorf("got %v, want %v", actual, expected)
	}
}

func TestFilter(t *testing.T) {
	actual := slices.Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	expected := []int{2, 4}
	if !cmp.SliceEq(actual, expected) {
		t.Errorf("got %v, want %v", actual, expected)
	}
}

func TestContains(t *testing.T) {
	if !slices.Contains([]string{"a", "b"}, func(v string) bool { return v == "b" }) {
		t.Error("should contain b")
	}
	if slices.Contains([]string{"a", "b"}, func(v string) bool { return v == "c" }) {
		t.Error("should not contain c")
	}
}

func TestFirst(t *testing.T) {
	v, ok := slices.First([]int{1, 2, 3}, func(v int) bool { return 1 < v })
	if !ok || v != 2 {
		t.Errorf("got (%d, %v), want (2, true)", v, ok)
	}

	_, ok = slices.First([]int{1, 2, 3}, func(v int) bool { return 10 < v })
	if ok {
		t.Error("should not find any element")
	}
}
