package excitation

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fumin/secondq/sparse"
	"github.com/fumin/secondq/vibration"
)

// Vibrational returns the excitations of the given order of vibrational modes with numModals modals each.
// The ground modal 0 of each mode is occupied, and an excitation moves order distinct modes out of their ground modals.
// Indices are register positions, as returned by vibration.Flavor.Index.
func Vibrational(order int, numModals []int) ([]Excitation, error) {
	if order < 1 {
		return nil, errors.Wrapf(ErrInvalidExcitationOrder, "%d", order)
	}
	f := vibration.Flavor{NumModals: numModals}

	// singles[m] holds the excitations of mode m.
	singles := make([][]single, 0, len(numModals))
	for mode, count := range numModals {
		if count < 0 {
			return nil, errors.Wrapf(ErrInvalidParticleCount, "%#v", numModals)
		}
		s := make([]single, 0, max(count-1, 0))
		for modal := 1; modal < count; modal++ {
			s = append(s, single{f.Index(mode, 0), f.Index(mode, modal)})
		}
		singles = append(singles, s)
	}

	excitations := make([]Excitation, 0)
	for modes := range combinations(len(singles), order) {
		sizes := make([]int, 0, len(modes))
		for _, m := range modes {
			sizes = append(sizes, len(singles[m]))
		}
		for digits := range product(sizes) {
			e := Excitation{Occupied: make([]int, 0, order), Unoccupied: make([]int, 0, order)}
			for i, m := range modes {
				s := singles[m][digits[i]]
				e.Occupied = append(e.Occupied, s[0])
				e.Unoccupied = append(e.Unoccupied, s[1])
			}
			excitations = append(excitations, e)
		}
	}
	return excitations, nil
}

// VibrationalGenerator returns i(T - T^†) of a vibrational excitation.
func VibrationalGenerator(e Excitation, numModals []int) (*vibration.Op, error) {
	f := vibration.Flavor{NumModals: numModals}
	tokens := make([]vibration.Token, 0, 2*e.Order())
	for _, i := range e.Occupied {
		mode, modal := f.Modal(i)
		tokens = append(tokens, vibration.Token{Action: '+', Mode: mode, Modal: modal})
	}
	for _, i := range e.Unoccupied {
		mode, modal := f.Modal(i)
		tokens = append(tokens, vibration.Token{Action: '-', Mode: mode, Modal: modal})
	}
	label := vibration.Format(tokens)

	terms := []sparse.Term{
		{Label: label, Coeff: 1i},
		{Label: f.Adjoint(label), Coeff: -1i},
	}
	op, err := vibration.New(terms, numModals)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%s", e))
	}
	return op, nil
}

// VibrationalPool returns the generators of the unitary vibrational coupled cluster ansatz with the given excitation orders.
func VibrationalPool(numModals []int, orders []int, options ...Options) ([]*vibration.Op, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	orders, err := normalizeOrders(orders)
	if err != nil {
		return nil, err
	}

	excitations := make([]Excitation, 0)
	for _, o := range orders {
		excs, err := Vibrational(o, numModals)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("order %d", o))
		}
		excitations = append(excitations, excs...)
	}

	ops := make([]*vibration.Op, len(excitations))
	var g errgroup.Group
	g.SetLimit(opt.concurrency)
	for i, e := range excitations {
		g.Go(func() error {
			op, err := VibrationalGenerator(e, numModals)
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
