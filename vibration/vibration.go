// Package vibration implements vibrational operators acting on the modals of vibrational modes.
//
// A label token +_m_k (-_m_k) creates (annihilates) modal k of mode m.
// Operators on different modals commute.
package vibration

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/secondq/sparse"
)

// Op is a vibrational operator.
type Op = sparse.Op[Flavor]

// Token is a single creation or annihilation operator on a modal.
type Token struct {
	Action byte
	Mode   int
	Modal  int
}

func (t Token) String() string {
	return fmt.Sprintf("%c_%d_%d", t.Action, t.Mode, t.Modal)
}

// Flavor carries the number of modals of each mode.
type Flavor struct {
	NumModals []int
}

func registerLength(numModals []int) int {
	var n int
	for _, m := range numModals {
		n += m
	}
	return n
}

// New creates a vibrational operator, whose register length is the total number of modals.
func New(terms []sparse.Term, numModals []int, options ...sparse.Options) (*Op, error) {
	for _, m := range numModals {
		if m < 0 {
			return nil, errors.Wrapf(sparse.ErrInvalidLabel, "%#v", numModals)
		}
	}
	return sparse.New(Flavor{NumModals: slices.Clone(numModals)}, terms, registerLength(numModals), options...)
}

func Zero(numModals []int) *Op {
	return sparse.Zero(Flavor{NumModals: slices.Clone(numModals)}, registerLength(numModals))
}

func One(numModals []int) *Op {
	return sparse.One(Flavor{NumModals: slices.Clone(numModals)}, registerLength(numModals))
}

// Parse splits a label into tokens.
func Parse(label string) ([]Token, error) {
	fields := sparse.Tokens(label)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		parts := strings.Split(f, "_")
		if len(parts) != 3 || (parts[0] != "+" && parts[0] != "-") {
			return nil, errors.Wrapf(sparse.ErrInvalidLabel, "%q in %q", f, label)
		}
		mode, err := parseIndex(parts[1])
		if err != nil {
			return nil, errors.Wrapf(sparse.ErrInvalidLabel, "%q in %q", f, label)
		}
		modal, err := parseIndex(parts[2])
		if err != nil {
			return nil, errors.Wrapf(sparse.ErrInvalidLabel, "%q in %q", f, label)
		}
		tokens = append(tokens, Token{Action: parts[0][0], Mode: mode, Modal: modal})
	}
	return tokens, nil
}

func parseIndex(s string) (int, error) {
	if s == "" || s[0] == '+' || s[0] == '-' || (s[0] == '0' && len(s) > 1) {
		return -1, errors.Errorf("%q", s)
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	return i, nil
}

// Format joins tokens into a label.
func Format(tokens []Token) string {
	fields := make([]string, 0, len(tokens))
	for _, t := range tokens {
		fields = append(fields, t.String())
	}
	return strings.Join(fields, " ")
}

func mustParse(label string) []Token {
	tokens, err := Parse(label)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return tokens
}

func (Flavor) Name() string { return "Vibrational" }

func (f Flavor) Validate(label string, n int) error {
	if n != registerLength(f.NumModals) {
		return errors.Wrapf(sparse.ErrInvalidLabel, "register length %d, modals %#v", n, f.NumModals)
	}
	tokens, err := Parse(label)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if t.Mode >= len(f.NumModals) || t.Modal >= f.NumModals[t.Mode] {
			return errors.Wrapf(sparse.ErrInvalidLabel, "%s of %q, modals %#v", t, label, f.NumModals)
		}
	}
	return nil
}

// Index returns the position of a modal in the register.
func (f Flavor) Index(mode, modal int) int {
	return registerLength(f.NumModals[:mode]) + modal
}

// Modal is the inverse of Index.
func (f Flavor) Modal(index int) (int, int) {
	for mode, m := range f.NumModals {
		if index < m {
			return mode, index
		}
		index -= m
	}
	panic(fmt.Sprintf("%d %#v", index, f.NumModals))
}

func (Flavor) Adjoint(label string) string {
	tokens := mustParse(label)
	slices.Reverse(tokens)
	for i, t := range tokens {
		switch t.Action {
		case '+':
			tokens[i].Action = '-'
		default:
			tokens[i].Action = '+'
		}
	}
	return Format(tokens)
}

func (Flavor) Transpose(label string) string {
	tokens := mustParse(label)
	slices.Reverse(tokens)
	return Format(tokens)
}

func (Flavor) Concat(a, b string) string { return sparse.ConcatLabels(a, b) }

// Shift moves the modes of label past the modes of left.
func (Flavor) Shift(label string, left Flavor, _ int) string {
	tokens := mustParse(label)
	for i := range tokens {
		tokens[i].Mode += len(left.NumModals)
	}
	return Format(tokens)
}

func (f Flavor) Join(other Flavor) Flavor {
	return Flavor{NumModals: slices.Concat(f.NumModals, other.NumModals)}
}

func (f Flavor) Equal(other Flavor) bool {
	return slices.Equal(f.NumModals, other.NumModals)
}

// Simplify sorts the label by mode and modal without any sign.
// Runs on the same modal are reduced as for hard-core bosons, where two consecutive creations or annihilations vanish.
func (Flavor) Simplify(label string) (string, complex128) {
	tokens := mustParse(label)
	slices.SortStableFunc(tokens, func(a, b Token) int {
		if a.Mode != b.Mode {
			return a.Mode - b.Mode
		}
		return a.Modal - b.Modal
	})

	simplified := make([]Token, 0, len(tokens))
	for start := 0; start < len(tokens); {
		end := start + 1
		for end < len(tokens) && tokens[end].Mode == tokens[start].Mode && tokens[end].Modal == tokens[start].Modal {
			if tokens[end].Action == tokens[end-1].Action {
				return "", 0
			}
			end++
		}
		first, last := tokens[start], tokens[end-1]
		simplified = append(simplified, first)
		if end-start > 1 && last.Action != first.Action {
			simplified = append(simplified, last)
		}
		start = end
	}
	return Format(simplified), 1
}
