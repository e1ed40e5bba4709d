// Package excitation enumerates excitations of occupied modes into unoccupied ones,
// and builds the operator pools of unitary coupled cluster ansatzes from them.
//
// References:
//   - Quantum computational chemistry, Sam McArdle et al., Section 5.2.1 Unitary coupled cluster.
package excitation

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidParticleCount   = errors.New("invalid particle count")
	ErrInvalidExcitationOrder = errors.New("invalid excitation order")
)

// Excitation moves particles out of the Occupied modes into the Unoccupied modes.
// Indices are positions in the register, so that spin-down modes of a blocked register come after the spin-up ones.
type Excitation struct {
	Occupied   []int
	Unoccupied []int
}

// Order returns the number of particles moved.
func (e Excitation) Order() int { return len(e.Occupied) }

// Label returns the label of the forward term, creations on the occupied modes followed by annihilations on the unoccupied modes.
func (e Excitation) Label() string {
	tokens := make([]string, 0, len(e.Occupied)+len(e.Unoccupied))
	for _, i := range e.Occupied {
		tokens = append(tokens, fmt.Sprintf("+_%d", i))
	}
	for _, i := range e.Unoccupied {
		tokens = append(tokens, fmt.Sprintf("-_%d", i))
	}
	return strings.Join(tokens, " ")
}

func (e Excitation) String() string {
	return fmt.Sprintf("%v->%v", e.Occupied, e.Unoccupied)
}

// ParseOrders parses shorthands of excitation orders such as "sd" for singles and doubles.
// The returned orders are sorted and unique.
func ParseOrders(s string) ([]int, error) {
	orders := make([]int, 0, len(s))
	for _, r := range s {
		switch r {
		case 's':
			orders = append(orders, 1)
		case 'd':
			orders = append(orders, 2)
		case 't':
			orders = append(orders, 3)
		case 'q':
			orders = append(orders, 4)
		default:
			return nil, errors.Wrapf(ErrInvalidExcitationOrder, "%q in %q", r, s)
		}
	}
	if len(orders) == 0 {
		return nil, errors.Wrapf(ErrInvalidExcitationOrder, "%q", s)
	}
	return normalizeOrders(orders)
}

// UpTo returns the orders 1, 2, ..., k.
func UpTo(k int) []int {
	orders := make([]int, 0, k)
	for i := 1; i <= k; i++ {
		orders = append(orders, i)
	}
	return orders
}

func normalizeOrders(orders []int) ([]int, error) {
	orders = slices.Clone(orders)
	slices.Sort(orders)
	orders = slices.Compact(orders)
	for _, o := range orders {
		if o < 1 {
			return nil, errors.Wrapf(ErrInvalidExcitationOrder, "%#v", orders)
		}
	}
	return orders, nil
}

// combinations iterates over the k-combinations of 0, 1, ... n-1 in lexicographic order.
// The yielded slice is reused between iterations.
func combinations(n, k int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if k < 0 || k > n {
			return
		}
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for {
			if !yield(idx) {
				return
			}

			i := k - 1
			for i >= 0 && idx[i] == i+n-k {
				i--
			}
			if i < 0 {
				return
			}
			idx[i]++
			for j := i + 1; j < k; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
}

// product iterates over the cartesian product of ranges with the given sizes, the last position varying fastest.
// The yielded slice is reused between iterations.
func product(sizes []int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		for _, s := range sizes {
			if s <= 0 {
				return
			}
		}
		digits := make([]int, len(sizes))
		for {
			if !yield(digits) {
				return
			}

			i := len(digits) - 1
			for ; i >= 0; i-- {
				digits[i]++
				if digits[i] < sizes[i] {
					break
				}
				digits[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}
