package fermion

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/fumin/secondq/sparse"
)

// NormalOrder rewrites op so that in every label creation operators precede annihilation operators,
// and within each group indices are descending.
// Exchanging a_i and a_j^† produces the extra term δ_ij from the anticommutator.
func NormalOrder(op *Op) (*Op, error) {
	terms := make([]sparse.Term, 0, op.Len())
	for l, c := range op.All() {
		tokens, err := Parse(l)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		terms = normalOrderTerm(terms, tokens, c)
	}

	ordered, err := sparse.New(Flavor{}, terms, op.RegisterLength(), sparse.NewOptions().Validate(false))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return ordered.Chop(), nil
}

func normalOrderTerm(terms []sparse.Term, tokens []Token, c complex128) []sparse.Term {
	tokens = slices.Clone(tokens)
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0; j-- {
			left, right := tokens[j-1], tokens[j]
			switch {
			case left.Action == Annihilate && right.Action == Create:
				tokens[j-1], tokens[j] = right, left
				if left.Index == right.Index {
					rest := slices.Concat(tokens[:j-1], tokens[j+1:])
					terms = normalOrderTerm(terms, rest, c)
				}
				c = -c
			case left.Action == right.Action:
				if left.Index == right.Index {
					return terms
				}
				if right.Index > left.Index {
					tokens[j-1], tokens[j] = right, left
					c = -c
				}
			}
		}
	}
	return append(terms, sparse.Term{Label: Format(tokens), Coeff: c})
}
