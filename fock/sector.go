// Package fock represents operators as sparse matrices in the occupation number basis.
//
// A basis state is a bit mask, where bit i is set if mode i is occupied.
// Modes are ordered by index in the Jordan-Wigner sense, so that moving an operator past occupied modes of lower index flips its sign.
package fock

import (
	"fmt"
	"iter"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
)

// MaxRegisterLength is the largest register whose states fit in a sector.
const MaxRegisterLength = 30

var (
	ErrRegisterLength = errors.New("register too long")
)

// Sector is an ordered set of basis states, such as the states with a fixed number of particles.
// States are ordered by their bit masks.
type Sector struct {
	registerLength int
	states         *roaring.Bitmap
}

func newSector(registerLength int, keep func(uint32) bool) (*Sector, error) {
	if registerLength < 0 || registerLength > MaxRegisterLength {
		return nil, errors.Wrapf(ErrRegisterLength, "%d", registerLength)
	}
	s := &Sector{registerLength: registerLength, states: roaring.New()}
	for state := range states(registerLength) {
		if keep(state) {
			s.states.Add(state)
		}
	}
	s.states.RunOptimize()
	return s, nil
}

// Full returns all states of a register.
func Full(registerLength int) (*Sector, error) {
	if registerLength < 0 || registerLength > MaxRegisterLength {
		return nil, errors.Wrapf(ErrRegisterLength, "%d", registerLength)
	}
	s := &Sector{registerLength: registerLength, states: roaring.New()}
	s.states.AddRange(0, uint64(1)<<registerLength)
	return s, nil
}

// Particles returns the states with n particles.
func Particles(registerLength, n int) (*Sector, error) {
	return newSector(registerLength, func(state uint32) bool {
		return bits.OnesCount32(state) == n
	})
}

// Spin returns the states of a blocked spin register of 2*numSpatial modes, with alpha particles in the first half and beta particles in the second half.
func Spin(numSpatial, alpha, beta int) (*Sector, error) {
	lower := uint32(1)<<numSpatial - 1
	return newSector(2*numSpatial, func(state uint32) bool {
		return bits.OnesCount32(state&lower) == alpha && bits.OnesCount32(state>>numSpatial) == beta
	})
}

// MustSector panics if err is not nil.
func MustSector(s *Sector, err error) *Sector {
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return s
}

func (s *Sector) RegisterLength() int { return s.registerLength }

// Len returns the number of states.
func (s *Sector) Len() int { return int(s.states.GetCardinality()) }

// Index returns the position of state in the sector.
func (s *Sector) Index(state uint32) (int, bool) {
	if !s.states.Contains(state) {
		return -1, false
	}
	return int(s.states.Rank(state)) - 1, true
}

// State returns the i-th state.
func (s *Sector) State(i int) (uint32, error) {
	state, err := s.states.Select(uint32(i))
	if err != nil {
		return 0, errors.Wrap(err, fmt.Sprintf("%d", i))
	}
	return state, nil
}

// All iterates over the positions and states of the sector.
func (s *Sector) All() iter.Seq2[int, uint32] {
	return func(yield func(int, uint32) bool) {
		it := s.states.Iterator()
		for i := 0; it.HasNext(); i++ {
			if !yield(i, it.Next()) {
				return
			}
		}
	}
}

func (s *Sector) String() string {
	return fmt.Sprintf("sector of %d states in %d modes", s.Len(), s.registerLength)
}

// Occupations writes the occupation of each mode of state into occ.
func Occupations(occ []byte, state uint32) {
	for i := range occ {
		occ[i] = byte(state >> i & 1)
	}
}

func states(n int) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		numStates := uint32(1) << n
		for i := range numStates {
			if !yield(i) {
				return
			}
		}
	}
}
