// Package property implements observables of electronic systems in a blocked spin register,
// where spin-up orbitals come before spin-down ones.
package property

import (
	"fmt"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/polynomial"
	"github.com/fumin/secondq/sparse"
)

// Property is an observable that is represented by second quantized operators.
type Property interface {
	Name() string
	SecondQOps() (map[string]*fermion.Op, error)
}

// Magnetization is the z component of the total spin.
type Magnetization struct {
	NumSpinOrbitals int
}

func (Magnetization) Name() string { return "Magnetization" }

func (m Magnetization) String() string {
	return fmt.Sprintf("%s: %d SOs", m.Name(), m.NumSpinOrbitals)
}

// SecondQOps returns sum_o ±0.5 +_o -_o, with the positive sign on the spin-up half of the register.
func (m Magnetization) SecondQOps() (map[string]*fermion.Op, error) {
	terms := make([]sparse.Term, 0, m.NumSpinOrbitals)
	for o := range m.NumSpinOrbitals {
		var c complex128 = 0.5
		if o >= m.NumSpinOrbitals/2 {
			c = -0.5
		}
		terms = append(terms, sparse.Term{Label: number(o), Coeff: c})
	}
	op, err := fermion.New(terms, m.NumSpinOrbitals)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return map[string]*fermion.Op{m.Name(): op}, nil
}

// ParticleNumber counts the particles in the register.
type ParticleNumber struct {
	NumSpinOrbitals int
}

func (ParticleNumber) Name() string { return "ParticleNumber" }

func (p ParticleNumber) String() string {
	return fmt.Sprintf("%s: %d SOs", p.Name(), p.NumSpinOrbitals)
}

func (p ParticleNumber) SecondQOps() (map[string]*fermion.Op, error) {
	terms := make([]sparse.Term, 0, p.NumSpinOrbitals)
	for o := range p.NumSpinOrbitals {
		terms = append(terms, sparse.Term{Label: number(o), Coeff: 1})
	}
	op, err := fermion.New(terms, p.NumSpinOrbitals)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return map[string]*fermion.Op{p.Name(): op}, nil
}

func number(o int) string {
	return fmt.Sprintf("+_%d -_%d", o, o)
}

// ElectronicEnergy is the electronic Hamiltonian.
type ElectronicEnergy struct {
	Polynomial polynomial.Tensor
}

func (ElectronicEnergy) Name() string { return "ElectronicEnergy" }

func (e ElectronicEnergy) SecondQOps() (map[string]*fermion.Op, error) {
	op, err := e.Polynomial.Fermionic()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return map[string]*fermion.Op{e.Name(): op}, nil
}

// FromSpatialIntegrals returns the electronic energy of a system with nuclear repulsion constant,
// one-body integrals h1[p, q] and two-body integrals h2[p, q, r, s] over spatial orbitals.
// h2 is in chemists' order (pq|rs), so that the Hamiltonian is
//
//	constant + sum h1[p, q] +_p -_q + 1/2 sum h2[p, q, r, s] +_p +_r -_s -_q
//
// summed over spin orbitals where each integral conserves spin.
// h2 may be nil.
func FromSpatialIntegrals(constant complex128, h1, h2 *tensor.Dense) (ElectronicEnergy, error) {
	shape := h1.Shape()
	if len(shape) != 2 || shape[0] != shape[1] {
		return ElectronicEnergy{}, errors.Wrapf(polynomial.ErrInvalidShape, "h1 %#v", shape)
	}
	n := shape[0]
	p := polynomial.Tensor{RegisterLength: 2 * n, Constant: constant, Bodies: make(map[int]*tensor.Dense)}

	one := tensor.Zeros(2*n, 2*n)
	for pq, v := range h1.All() {
		for _, s := range [2]int{0, n} {
			one.SetAt([]int{pq[0] + s, pq[1] + s}, v)
		}
	}
	p.Bodies[1] = one

	if h2 != nil {
		shape := h2.Shape()
		if len(shape) != 4 || shape[0] != n || shape[1] != n || shape[2] != n || shape[3] != n {
			return ElectronicEnergy{}, errors.Wrapf(polynomial.ErrInvalidShape, "h2 %#v", shape)
		}
		two := tensor.Zeros(2*n, 2*n, 2*n, 2*n)
		for pqrs, v := range h2.All() {
			if v == 0 {
				continue
			}
			for _, s := range [2]int{0, n} {
				for _, t := range [2]int{0, n} {
					idx := []int{pqrs[0] + s, pqrs[2] + t, pqrs[3] + t, pqrs[1] + s}
					two.SetAt(idx, two.At(idx...)+v/2)
				}
			}
		}
		p.Bodies[2] = two
	}

	if err := p.Validate(); err != nil {
		return ElectronicEnergy{}, errors.Wrap(err, "")
	}
	return ElectronicEnergy{Polynomial: p}, nil
}
