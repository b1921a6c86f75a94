// Package set is a tiny generic set on top of a map.
package set

type (
	Empty             struct{}
	Set[R comparable] map[R]Empty
)

func New[R comparable]() Set[R] {
	return make(Set[R])
}

func (s Set[R]) Add(elem R) {
	s[elem] = Empty{}
}

func (s Set[R]) Has(elem R) bool {
	_, ok := s[elem]
	return ok
}
