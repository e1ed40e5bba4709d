package fock

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/pkg/errors"

	"github.com/fumin/secondq/fermion"
)

// Apply applies the operators of tokens, rightmost first, to state.
// It returns the resulting state and its sign, or false if the state vanishes.
func Apply(tokens []fermion.Token, state uint32) (uint32, int, bool) {
	sign := 1
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		mask := uint32(1) << t.Index
		occupied := state&mask != 0
		switch t.Action {
		case fermion.Create:
			if occupied {
				return 0, 0, false
			}
		default:
			if !occupied {
				return 0, 0, false
			}
		}
		if bits.OnesCount32(state&(mask-1))%2 == 1 {
			sign = -sign
		}
		state ^= mask
	}
	return state, sign, true
}

// Build returns the matrix of op restricted to sector, whose entry at (i, j) is <i|op|j>.
// It fails with ErrLeavesSector if op maps a state of the sector to one outside of it.
func Build(op *fermion.Op, sector *Sector) (*COO, error) {
	if op.RegisterLength() != sector.RegisterLength() {
		return nil, errors.Errorf("register length %d, sector %s", op.RegisterLength(), sector)
	}
	type term struct {
		tokens []fermion.Token
		c      complex128
	}
	terms := make([]term, 0, op.Len())
	for label, c := range op.All() {
		if c == 0 {
			continue
		}
		tokens, err := fermion.Parse(label)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		terms = append(terms, term{tokens: tokens, c: c})
	}

	n := sector.Len()
	m := COOZeros(n, n)
	column := make(map[int]complex128)
	for col, state := range sector.All() {
		clear(column)
		for _, t := range terms {
			s, sign, ok := Apply(t.tokens, state)
			if !ok {
				continue
			}
			row, ok := sector.Index(s)
			if !ok {
				return nil, errors.Wrapf(ErrLeavesSector, "%b to %b by %s", state, s, fermion.Format(t.tokens))
			}
			column[row] += complex(float64(sign), 0) * t.c
		}
		for row, v := range column {
			if v == 0 {
				continue
			}
			m.Data = append(m.Data, vRowCol{v: v, row: row, col: col})
		}
	}
	slices.SortFunc(m.Data, rowMajor)
	return m, nil
}

// MustBuild panics on error.
func MustBuild(op *fermion.Op, sector *Sector) *COO {
	m, err := Build(op, sector)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return m
}
