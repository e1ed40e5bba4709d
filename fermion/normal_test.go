package fermion_test

import (
	"fmt"
	"testing"

	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/fock"
	"github.com/fumin/secondq/sparse"
)

func TestNormalOrder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		op     []sparse.Term
		normal []sparse.Term
	}{
		{
			op:     []sparse.Term{{Label: "-_0 +_0", Coeff: 1}},
			normal: []sparse.Term{{Label: "", Coeff: 1}, {Label: "+_0 -_0", Coeff: -1}},
		},
		{
			op:     []sparse.Term{{Label: "-_1 +_0", Coeff: 2}},
			normal: []sparse.Term{{Label: "+_0 -_1", Coeff: -2}},
		},
		{
			op:     []sparse.Term{{Label: "+_0 +_1 -_0 -_1", Coeff: 1}},
			normal: []sparse.Term{{Label: "+_1 +_0 -_1 -_0", Coeff: 1}},
		},
		{
			op:     []sparse.Term{{Label: "+_2 +_2", Coeff: 1}, {Label: "-_2 +_2 -_2", Coeff: 1i}},
			normal: []sparse.Term{{Label: "-_2", Coeff: 1i}},
		},
		{
			op:     []sparse.Term{{Label: "", Coeff: 3}},
			normal: []sparse.Term{{Label: "", Coeff: 3}},
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.op), func(t *testing.T) {
			t.Parallel()
			const n = 3
			op := fermion.M(test.op, n)
			normal, err := fermion.NormalOrder(op)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			expected := fermion.M(test.normal, n)
			if !normal.Equal(expected) {
				t.Fatalf("%s, expected %s", normal, expected)
			}

			sector := fock.MustSector(fock.Full(n))
			m, mn := fock.MustBuild(op, sector), fock.MustBuild(normal, sector)
			if !m.Equiv(mn, 1e-12) {
				t.Fatalf("%s, expected %s", mn, m)
			}
		})
	}
}
