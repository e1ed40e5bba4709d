// Package secondq builds lattice Hamiltonians in second quantization and solves them exactly in the occupation number basis.
//
// Registers are spin blocked: on a lattice of N sites, mode s is the spin-up orbital of site s and mode s+N is its spin-down orbital.
package secondq

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/fock"
	"github.com/fumin/secondq/property"
	"github.com/fumin/secondq/sparse"
)

var (
	ErrEmptySector = errors.New("empty sector")
)

// Hubbard returns the Fermi-Hubbard Hamiltonian on an n[0] by n[1] grid,
//
//	H = -t sum_<ij>,σ (+_iσ -_jσ + h.c.) + u sum_i n_i↑ n_i↓
//
// where <ij> are the bonds between nearest neighbours.
func Hubbard(n [2]int, t, u complex128) (*fermion.Op, error) {
	numSites := n[0] * n[1]
	if n[0] < 1 || n[1] < 1 {
		return nil, errors.Errorf("%#v", n)
	}
	terms := make([]sparse.Term, 0)
	for y := range n[0] {
		for x := range n[1] {
			up := y - 1
			if up >= 0 {
				terms = hopping(terms, n, [2]int{up, x}, [2]int{y, x}, t)
			}

			left := x - 1
			if left >= 0 {
				terms = hopping(terms, n, [2]int{y, left}, [2]int{y, x}, t)
			}

			terms = interaction(terms, n, [2]int{y, x}, u)
		}
	}
	h, err := fermion.New(terms, 2*numSites)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return h, nil
}

func site(n [2]int, yx [2]int) int {
	return yx[0]*n[1] + yx[1]
}

func hopping(terms []sparse.Term, n [2]int, i, j [2]int, t complex128) []sparse.Term {
	numSites := n[0] * n[1]
	a, b := site(n, i), site(n, j)
	for _, s := range [2]int{0, numSites} {
		terms = append(terms, sparse.Term{Label: fmt.Sprintf("+_%d -_%d", a+s, b+s), Coeff: -t})
		terms = append(terms, sparse.Term{Label: fmt.Sprintf("+_%d -_%d", b+s, a+s), Coeff: -cmplx.Conj(t)})
	}
	return terms
}

func interaction(terms []sparse.Term, n [2]int, i [2]int, u complex128) []sparse.Term {
	if u == 0 {
		return terms
	}
	numSites := n[0] * n[1]
	a := site(n, i)
	label := fmt.Sprintf("+_%d -_%d +_%d -_%d", a, a, a+numSites, a+numSites)
	return append(terms, sparse.Term{Label: label, Coeff: u})
}

// Statistics are the observables of a ground state.
type Statistics struct {
	EigenValue      []float64
	ParticleNumber  float64
	Magnetization   float64
	DoubleOccupancy float64
}

// GetStatistics diagonalizes h in sector, and evaluates the observables of its ground state.
// Double occupancy is the fraction of sites occupied by both spins.
// A sector without states fails with ErrEmptySector.
func GetStatistics(h *fermion.Op, sector *fock.Sector) (Statistics, error) {
	hm, err := fock.Build(h, sector)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "")
	}
	vvs, err := hm.Eigen()
	if err != nil {
		return Statistics{}, errors.Wrap(err, "")
	}
	if len(vvs) == 0 {
		return Statistics{}, errors.Wrapf(ErrEmptySector, "%s", sector)
	}

	var stats Statistics
	for _, vv := range vvs {
		stats.EigenValue = append(stats.EigenValue, real(vv.Val))
	}
	ground := vvs[0].Vec

	props := []property.Property{
		property.ParticleNumber{NumSpinOrbitals: h.RegisterLength()},
		property.Magnetization{NumSpinOrbitals: h.RegisterLength()},
	}
	values := make(map[string]float64)
	for _, p := range props {
		ops, err := p.SecondQOps()
		if err != nil {
			return Statistics{}, errors.Wrap(err, "")
		}
		for name, op := range ops {
			m, err := fock.Build(op, sector)
			if err != nil {
				return Statistics{}, errors.Wrap(err, name)
			}
			values[name] = real(m.Expectation(ground))
		}
	}
	stats.ParticleNumber = values[property.ParticleNumber{}.Name()]
	stats.Magnetization = values[property.Magnetization{}.Name()]

	numSites := h.RegisterLength() / 2
	occ := make([]byte, h.RegisterLength())
	var totalProb float64
	for i, state := range sector.All() {
		amplitude := ground[i]
		probability := real(amplitude)*real(amplitude) + imag(amplitude)*imag(amplitude)

		fock.Occupations(occ, state)
		var doubles int
		for s := range numSites {
			if occ[s] == 1 && occ[s+numSites] == 1 {
				doubles++
			}
		}

		totalProb += probability
		stats.DoubleOccupancy += probability * float64(doubles)
	}
	if math.Abs(totalProb-1) > 1e-3 {
		return Statistics{}, errors.Errorf("%f", totalProb)
	}
	if numSites > 0 {
		stats.DoubleOccupancy /= float64(numSites)
	}
	return stats, nil
}
