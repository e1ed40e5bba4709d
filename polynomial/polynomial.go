// Package polynomial converts dense coefficient tensors into fermionic operators.
//
// A body of order k is a rank 2k tensor T, that contributes T[i1..ik, j1..jk] * ( +_i1 ... +_ik -_j1 ... -_jk ).
// Tensors hold complex64 values, so body coefficients carry single precision, a relative error of about 6e-8.
// Only the constant term is kept in double precision.
package polynomial

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/sparse"
)

var (
	ErrInvalidShape = errors.New("invalid shape")
)

// Tensor is a polynomial in creation and annihilation operators, with coefficients given by one dense tensor per body order.
type Tensor struct {
	RegisterLength int
	Constant       complex128
	Bodies         map[int]*tensor.Dense
}

// Options are options for converting tensors.
type Options struct {
	dense bool
}

// NewOptions returns the default options, which skip zero coefficients.
func NewOptions() Options {
	return Options{}
}

// Dense sets whether zero coefficients are kept as explicit terms.
func (opt Options) Dense(d bool) Options {
	opt.dense = d
	return opt
}

// Orders returns the body orders in ascending order.
func (p Tensor) Orders() []int {
	orders := make([]int, 0, len(p.Bodies))
	for k := range p.Bodies {
		orders = append(orders, k)
	}
	slices.Sort(orders)
	return orders
}

// Validate checks that every body of order k has rank 2k, with every dimension equal to the register length.
func (p Tensor) Validate() error {
	if p.RegisterLength < 0 {
		return errors.Wrapf(ErrInvalidShape, "register length %d", p.RegisterLength)
	}
	for k, t := range p.Bodies {
		if k < 1 {
			return errors.Wrapf(ErrInvalidShape, "order %d", k)
		}
		shape := t.Shape()
		if len(shape) != 2*k {
			return errors.Wrapf(ErrInvalidShape, "order %d shape %#v", k, shape)
		}
		for _, d := range shape {
			if d != p.RegisterLength {
				return errors.Wrapf(ErrInvalidShape, "order %d shape %#v register length %d", k, shape, p.RegisterLength)
			}
		}
	}
	return nil
}

// Fermionic returns the operator of p.
// Bodies are converted in ascending order and added up, so that lower order labels come first.
func (p Tensor) Fermionic(options ...Options) (*fermion.Op, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	op := fermion.Zero(p.RegisterLength)
	if p.Constant != 0 || opt.dense {
		op = fermion.One(p.RegisterLength).Scale(p.Constant)
	}
	for _, k := range p.Orders() {
		body, err := bodyOp(p.Bodies[k], p.RegisterLength, opt)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("order %d", k))
		}
		op, err = op.Add(body)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return op, nil
}

func bodyOp(t *tensor.Dense, registerLength int, opt Options) (*fermion.Op, error) {
	terms := make([]sparse.Term, 0)
	for ijk, v := range t.All() {
		if v == 0 && !opt.dense {
			continue
		}
		terms = append(terms, sparse.Term{Label: label(ijk), Coeff: complex128(v)})
	}
	// Indices are already bounded by the validated shape.
	op, err := fermion.New(terms, registerLength, sparse.NewOptions().Validate(false))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return op, nil
}

func label(ijk []int) string {
	k := len(ijk) / 2
	tokens := make([]string, 0, len(ijk))
	for i, idx := range ijk {
		action := fermion.Create
		if i >= k {
			action = fermion.Annihilate
		}
		tokens = append(tokens, fmt.Sprintf("%c_%d", action, idx))
	}
	return strings.Join(tokens, " ")
}

// FromMatrix copies a real matrix into a rank 2 tensor.
// Entries are rounded to float32, the precision of tensor.Dense.
func FromMatrix(m mat.Matrix) *tensor.Dense {
	rows, cols := m.Dims()
	t := tensor.Zeros(rows, cols)
	for i := range rows {
		for j := range cols {
			t.SetAt([]int{i, j}, complex(float32(m.At(i, j)), 0))
		}
	}
	return t
}
