// Package fermion implements fermionic operators, sums of products of creation (+_i) and annihilation (-_i) operators on modes i.
package fermion

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/secondq/sparse"
)

const (
	Create     = '+'
	Annihilate = '-'
)

// Op is a fermionic operator.
type Op = sparse.Op[Flavor]

// Token is a single creation or annihilation operator.
type Token struct {
	Action byte
	Index  int
}

func (t Token) String() string {
	return fmt.Sprintf("%c_%d", t.Action, t.Index)
}

// Flavor implements fermionic label semantics with canonical anticommutation relations.
type Flavor struct{}

// New creates a fermionic operator.
func New(terms []sparse.Term, registerLength int, options ...sparse.Options) (*Op, error) {
	return sparse.New(Flavor{}, terms, registerLength, options...)
}

// FromMap creates a fermionic operator from a label map.
func FromMap(data map[string]complex128, registerLength int, options ...sparse.Options) (*Op, error) {
	return sparse.FromMap(Flavor{}, data, registerLength, options...)
}

// M creates a fermionic operator and panics on invalid input.
func M(terms []sparse.Term, registerLength int) *Op {
	return sparse.Must(New(terms, registerLength))
}

// Zero returns the fermionic operator with no terms.
func Zero(registerLength int) *Op { return sparse.Zero(Flavor{}, registerLength) }

// One returns the fermionic identity, the empty label with coefficient 1.
func One(registerLength int) *Op { return sparse.One(Flavor{}, registerLength) }

// Parse splits a label into tokens.
func Parse(label string) ([]Token, error) {
	fields := sparse.Tokens(label)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || (f[0] != Create && f[0] != Annihilate) || f[1] != '_' {
			return nil, errors.Wrapf(sparse.ErrInvalidLabel, "%q in %q", f, label)
		}
		i, err := strconv.Atoi(f[2:])
		if err != nil || i < 0 || f[2] == '+' || (f[2] == '0' && len(f) > 3) {
			return nil, errors.Wrapf(sparse.ErrInvalidLabel, "%q in %q", f, label)
		}
		tokens = append(tokens, Token{Action: f[0], Index: i})
	}
	return tokens, nil
}

// Format joins tokens into a label.
func Format(tokens []Token) string {
	fields := make([]string, 0, len(tokens))
	for _, t := range tokens {
		fields = append(fields, t.String())
	}
	return strings.Join(fields, " ")
}

// mustParse is used on labels that have already been validated.
func mustParse(label string) []Token {
	tokens, err := Parse(label)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return tokens
}

func (Flavor) Name() string { return "Fermionic" }

func (Flavor) Validate(label string, registerLength int) error {
	tokens, err := Parse(label)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if t.Index >= registerLength {
			return errors.Wrapf(sparse.ErrInvalidLabel, "index %d of %q, register length %d", t.Index, label, registerLength)
		}
	}
	return nil
}

// Adjoint reverses the label and swaps creation with annihilation.
func (Flavor) Adjoint(label string) string {
	tokens := mustParse(label)
	slices.Reverse(tokens)
	for i, t := range tokens {
		switch t.Action {
		case Create:
			tokens[i].Action = Annihilate
		default:
			tokens[i].Action = Create
		}
	}
	return Format(tokens)
}

// Transpose reverses the label.
func (Flavor) Transpose(label string) string {
	tokens := mustParse(label)
	slices.Reverse(tokens)
	return Format(tokens)
}

func (Flavor) Concat(a, b string) string { return sparse.ConcatLabels(a, b) }

func (Flavor) Shift(label string, _ Flavor, leftLength int) string {
	tokens := mustParse(label)
	for i := range tokens {
		tokens[i].Index += leftLength
	}
	return Format(tokens)
}

func (Flavor) Join(Flavor) Flavor { return Flavor{} }
func (Flavor) Equal(Flavor) bool { return true }

// Simplify sorts the label by mode index.
// Each exchange of operators on different modes flips the sign.
// Operators on the same mode keep their relative order, and the resulting run is reduced using a_i^2 = 0 and a_i a_i^† a_i = a_i.
func (Flavor) Simplify(label string) (string, complex128) {
	tokens := mustParse(label)

	// Stable bubble sort, counting exchanges.
	var sign complex128 = 1
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0 && tokens[j-1].Index > tokens[j].Index; j-- {
			tokens[j-1], tokens[j] = tokens[j], tokens[j-1]
			sign = -sign
		}
	}

	simplified := make([]Token, 0, len(tokens))
	for start := 0; start < len(tokens); {
		end := start + 1
		for end < len(tokens) && tokens[end].Index == tokens[start].Index {
			if tokens[end].Action == tokens[end-1].Action {
				return "", 0
			}
			end++
		}

		// An alternating run is determined by its first and last actions.
		first, last := tokens[start], tokens[end-1]
		simplified = append(simplified, first)
		if end-start > 1 && last.Action != first.Action {
			simplified = append(simplified, last)
		}
		start = end
	}
	return Format(simplified), sign
}
