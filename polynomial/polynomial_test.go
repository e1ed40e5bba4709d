package polynomial

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/sparse"
)

func TestFermionic(t *testing.T) {
	t.Parallel()
	twoBody := tensor.Zeros(2, 2, 2, 2)
	twoBody.SetAt([]int{0, 1, 1, 0}, 3)

	tests := []struct {
		p       Tensor
		options Options
		op      []sparse.Term
	}{
		{
			p: Tensor{
				RegisterLength: 2,
				Bodies: map[int]*tensor.Dense{1: tensor.T2([][]complex64{
					{1, 0},
					{0, 2i},
				})},
			},
			options: NewOptions(),
			op: []sparse.Term{
				{Label: "+_0 -_0", Coeff: 1},
				{Label: "+_1 -_1", Coeff: 2i},
			},
		},
		{
			p: Tensor{
				RegisterLength: 2,
				Constant:       0.5,
				Bodies: map[int]*tensor.Dense{
					2: twoBody,
					1: tensor.T2([][]complex64{
						{0, 1},
						{1, 0},
					}),
				},
			},
			options: NewOptions(),
			op: []sparse.Term{
				{Label: "", Coeff: 0.5},
				{Label: "+_0 -_1", Coeff: 1},
				{Label: "+_1 -_0", Coeff: 1},
				{Label: "+_0 +_1 -_1 -_0", Coeff: 3},
			},
		},
		{
			p: Tensor{
				RegisterLength: 2,
				Bodies: map[int]*tensor.Dense{1: tensor.T2([][]complex64{
					{1, 0},
					{0, 0},
				})},
			},
			options: NewOptions().Dense(true),
			op: []sparse.Term{
				{Label: "", Coeff: 0},
				{Label: "+_0 -_0", Coeff: 1},
				{Label: "+_0 -_1", Coeff: 0},
				{Label: "+_1 -_0", Coeff: 0},
				{Label: "+_1 -_1", Coeff: 0},
			},
		},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			op, err := test.p.Fermionic(test.options)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			expected := fermion.M(test.op, test.p.RegisterLength)
			if !op.Equal(expected) {
				t.Fatalf("%s, expected %s", op, expected)
			}
			if !slices.Equal(op.Labels(), expected.Labels()) {
				t.Fatalf("%#v, expected %#v", op.Labels(), expected.Labels())
			}
		})
	}
}

func TestInvalidShape(t *testing.T) {
	t.Parallel()
	tests := []struct {
		p Tensor
	}{
		{p: Tensor{RegisterLength: 2, Bodies: map[int]*tensor.Dense{1: tensor.Zeros(2, 3)}}},
		{p: Tensor{RegisterLength: 2, Bodies: map[int]*tensor.Dense{2: tensor.Zeros(2, 2)}}},
		{p: Tensor{RegisterLength: 3, Bodies: map[int]*tensor.Dense{1: tensor.Zeros(2, 2)}}},
		{p: Tensor{RegisterLength: 2, Bodies: map[int]*tensor.Dense{0: tensor.Zeros(2, 2)}}},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			_, err := test.p.Fermionic()
			if !errors.Is(err, ErrInvalidShape) {
				t.Fatalf("%+v, expected %+v", err, ErrInvalidShape)
			}
		})
	}
}

func TestFromMatrix(t *testing.T) {
	t.Parallel()
	m := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	d := FromMatrix(m)
	if !slices.Equal(d.Shape(), []int{2, 3}) {
		t.Fatalf("%#v", d.Shape())
	}
	for i := range 2 {
		for j := range 3 {
			if d.At(i, j) != complex(float32(m.At(i, j)), 0) {
				t.Fatalf("%d %d %v, expected %v", i, j, d.At(i, j), m.At(i, j))
			}
		}
	}
}

func TestFromMatrixPrecision(t *testing.T) {
	t.Parallel()
	const v = -1.2524635735
	d := FromMatrix(mat.NewDense(1, 1, []float64{v}))
	got := float64(real(d.At(0, 0)))
	if got == v {
		t.Fatalf("%v is not rounded to float32", got)
	}
	if math.Abs(got-v) > 1e-7*math.Abs(v) {
		t.Fatalf("%v, expected %v", got, v)
	}
}
