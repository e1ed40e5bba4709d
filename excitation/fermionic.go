package excitation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/sparse"
)

// Options are options for generating fermionic excitations.
type Options struct {
	generalized       bool
	preserveSpin      bool
	alphaSpin         bool
	betaSpin          bool
	maxSpinExcitation int
	concurrency       int
}

// NewOptions returns the default options, spin preserving excitations from occupied to virtual orbitals of both spins.
func NewOptions() Options {
	opt := Options{}
	opt.preserveSpin = true
	opt.alphaSpin = true
	opt.betaSpin = true
	opt.maxSpinExcitation = -1
	opt.concurrency = 8
	return opt
}

// Generalized sets whether to ignore the occupied and virtual partition, allowing excitations between any two orbitals.
func (opt Options) Generalized(g bool) Options {
	opt.generalized = g
	return opt
}

// PreserveSpin sets whether excitations keep the spin of each particle.
func (opt Options) PreserveSpin(p bool) Options {
	opt.preserveSpin = p
	return opt
}

// AlphaSpin sets whether to include excitations of spin-up particles.
func (opt Options) AlphaSpin(a bool) Options {
	opt.alphaSpin = a
	return opt
}

// BetaSpin sets whether to include excitations of spin-down particles.
func (opt Options) BetaSpin(b bool) Options {
	opt.betaSpin = b
	return opt
}

// MaxSpinExcitation limits how many particles of the same spin an excitation moves.
// A negative value means no limit.
func (opt Options) MaxSpinExcitation(m int) Options {
	opt.maxSpinExcitation = m
	return opt
}

// Concurrency sets the number of goroutines building operators.
func (opt Options) Concurrency(c int) Options {
	opt.concurrency = max(c, 1)
	return opt
}

// single is a single excitation from s[0] to s[1].
type single [2]int

// spinSingles returns the single excitations of one spin block starting at offset.
func spinSingles(numSpatial, numOccupied, offset int, generalized bool) []single {
	singles := make([]single, 0)
	if generalized {
		for occ := range combinations(numSpatial, 2) {
			singles = append(singles, single{occ[0] + offset, occ[1] + offset})
		}
		return singles
	}
	for i := range numOccupied {
		for a := numOccupied; a < numSpatial; a++ {
			singles = append(singles, single{i + offset, a + offset})
		}
	}
	return singles
}

// interleavedToBlocked maps an index of the interleaved ordering α0 β0 α1 β1... to the blocked ordering α0 α1... β0 β1....
func interleavedToBlocked(index, total int) int {
	if index%2 == 0 {
		return index / 2
	}
	return (index - 1 + total) / 2
}

func singles(numSpatial int, numParticles [2]int, opt Options) ([]single, []single) {
	alpha, beta := make([]single, 0), make([]single, 0)
	if opt.preserveSpin {
		if opt.alphaSpin {
			alpha = spinSingles(numSpatial, numParticles[0], 0, opt.generalized)
		}
		if opt.betaSpin {
			beta = spinSingles(numSpatial, numParticles[1], numSpatial, opt.generalized)
		}
		return alpha, beta
	}

	// Spin flips are the single excitations of the interleaved register, sorted by the spin of the occupied orbital.
	total := 2 * numSpatial
	for _, s := range spinSingles(total, numParticles[0]+numParticles[1], 0, opt.generalized) {
		s = single{interleavedToBlocked(s[0], total), interleavedToBlocked(s[1], total)}
		if s[0] < numSpatial {
			alpha = append(alpha, s)
		} else {
			beta = append(beta, s)
		}
	}
	// Order by register position rather than by interleaved position.
	slices.SortFunc(alpha, compareSingles)
	slices.SortFunc(beta, compareSingles)
	return alpha, beta
}

func compareSingles(a, b single) int {
	if a[0] != b[0] {
		return a[0] - b[0]
	}
	return a[1] - b[1]
}

func validateParticles(numSpatial int, numParticles [2]int) error {
	if numSpatial < 0 {
		return errors.Wrapf(ErrInvalidParticleCount, "%d spatial orbitals", numSpatial)
	}
	for _, n := range numParticles {
		if n < 0 || n > numSpatial {
			return errors.Wrapf(ErrInvalidParticleCount, "%#v particles in %d spatial orbitals", numParticles, numSpatial)
		}
	}
	return nil
}

// Fermionic returns the excitations of the given order in a blocked spin register of 2*numSpatial orbitals.
// numParticles holds the number of spin-up and spin-down particles, which occupy the lowest orbitals of each block.
//
// The excitations are the combinations of single excitations, spin-up ones first, in which no orbital repeats.
// Combinations over the same set of orbitals are emitted once.
func Fermionic(order, numSpatial int, numParticles [2]int, options ...Options) ([]Excitation, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if order < 1 {
		return nil, errors.Wrapf(ErrInvalidExcitationOrder, "%d", order)
	}
	if err := validateParticles(numSpatial, numParticles); err != nil {
		return nil, err
	}

	alpha, beta := singles(numSpatial, numParticles, opt)
	pool := append(alpha, beta...)

	excitations := make([]Excitation, 0)
	visited := make(map[string]struct{})
	for comb := range combinations(len(pool), order) {
		if opt.maxSpinExcitation >= 0 {
			var numAlpha int
			for _, c := range comb {
				if c < len(alpha) {
					numAlpha++
				}
			}
			if numAlpha > opt.maxSpinExcitation || order-numAlpha > opt.maxSpinExcitation {
				continue
			}
		}

		orbitals := make(map[int]struct{}, 2*order)
		for _, c := range comb {
			orbitals[pool[c][0]] = struct{}{}
			orbitals[pool[c][1]] = struct{}{}
		}
		if len(orbitals) != 2*order {
			continue
		}
		key := setKey(orbitals, 2*numSpatial)
		if _, ok := visited[key]; ok {
			continue
		}
		visited[key] = struct{}{}

		e := Excitation{Occupied: make([]int, 0, order), Unoccupied: make([]int, 0, order)}
		for _, c := range comb {
			e.Occupied = append(e.Occupied, pool[c][0])
			e.Unoccupied = append(e.Unoccupied, pool[c][1])
		}
		excitations = append(excitations, e)
	}
	return excitations, nil
}

func setKey(set map[int]struct{}, n int) string {
	var b strings.Builder
	for i := range n {
		if _, ok := set[i]; ok {
			b.WriteString(strconv.Itoa(i))
			b.WriteByte(',')
		}
	}
	return b.String()
}

// Excitations returns the excitations of all orders of a register of numSpinOrbitals, lower orders first.
func Excitations(numSpinOrbitals int, numParticles [2]int, orders []int, options ...Options) ([]Excitation, error) {
	if numSpinOrbitals < 0 || numSpinOrbitals%2 != 0 {
		return nil, errors.Wrapf(ErrInvalidParticleCount, "%d spin orbitals", numSpinOrbitals)
	}
	orders, err := normalizeOrders(orders)
	if err != nil {
		return nil, err
	}

	excitations := make([]Excitation, 0)
	for _, o := range orders {
		excs, err := Fermionic(o, numSpinOrbitals/2, numParticles, options...)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("order %d", o))
		}
		excitations = append(excitations, excs...)
	}
	return excitations, nil
}

// Generator returns i(T - T^†), where T is the forward term of e with unit coefficient.
// The operator is i times the anti-Hermitian T - T^†, thus Hermitian.
func Generator(e Excitation, registerLength int) (*fermion.Op, error) {
	label := e.Label()
	terms := []sparse.Term{
		{Label: label, Coeff: 1i},
		{Label: fermion.Flavor{}.Adjoint(label), Coeff: -1i},
	}
	op, err := fermion.New(terms, registerLength)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%s", e))
	}
	return op, nil
}

// Generators builds the generators of excitations concurrently.
// The i-th operator corresponds to the i-th excitation.
func Generators(excitations []Excitation, registerLength int, options ...Options) ([]*fermion.Op, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	ops := make([]*fermion.Op, len(excitations))
	var g errgroup.Group
	g.SetLimit(opt.concurrency)
	for i, e := range excitations {
		g.Go(func() error {
			op, err := Generator(e, registerLength)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("%d", i))
			}
			ops[i] = op
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ops, nil
}

// Pool returns the generators of the unitary coupled cluster ansatz with the given excitation orders.
// Generators are ordered by excitation order, and then by the order of Fermionic.
// An empty pool is not an error.
func Pool(numSpinOrbitals int, numParticles [2]int, orders []int, options ...Options) ([]*fermion.Op, error) {
	excitations, err := Excitations(numSpinOrbitals, numParticles, orders, options...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	ops, err := Generators(excitations, numSpinOrbitals, options...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return ops, nil
}
