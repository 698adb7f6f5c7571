package containers

import (
	"cmp"
	"fmt"
	"slices"
)

func MapFn[S interface{ ~[]E }, E any, T any](set S, fn func(E) T) []T {
	res := make([]T, 0, len(set))
	for _, item := range set {
		res = append(res, fn(item))
	}
	return res
}

func StringerStr[T fmt.Stringer](i T) string { return i.String() }

func StrMapper[S interface{ ~[]E }, E fmt.Stringer](set S) []string {
	return MapFn(set, StringerStr[E])
}

// Keys returns the keys of m in no particular order.
func Keys[K comparable, V any](m map[K]V) []K {
	res := make([]K, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	return res
}

// Values returns the values of m in no particular order.
func Values[K comparable, V any](m map[K]V) []V {
	res := make([]V, 0, len(m))
	for _, v := range m {
		res = append(res, v)
	}
	return res
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	res := Keys(m)
	slices.Sort(res)
	return res
}
