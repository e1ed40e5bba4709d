package sparse

import (
	"fmt"
	"slices"
	"testing"

	"github.com/pkg/errors"
)

// dummy leaves labels untouched, so that only the vector space part is exercised.
type dummy struct{}

func (dummy) Name() string { return "Dummy" }
func (dummy) Validate(string, int) error { return nil }
func (dummy) Adjoint(label string) string { return label }
func (dummy) Transpose(label string) string { return label }
func (dummy) Concat(a, b string) string { return ConcatLabels(a, b) }
func (dummy) Shift(label string, _ dummy, _ int) string { return label }
func (dummy) Join(dummy) dummy { return dummy{} }
func (dummy) Equal(dummy) bool { return true }
func (dummy) Simplify(label string) (string, complex128) { return label, 1 }

var (
	op1 = []Term{
		{Label: "+_0 -_1", Coeff: 0},
		{Label: "+_0 -_2", Coeff: 1},
	}
	op2 = []Term{
		{Label: "+_0 -_1", Coeff: 0.5},
		{Label: "+_0 -_2", Coeff: 1},
	}
	op3 = []Term{
		{Label: "+_0 -_1", Coeff: 0.5},
		{Label: "+_0 -_3", Coeff: 3},
	}
	opComplex = []Term{
		{Label: "+_0 -_1", Coeff: 0.5 + 1i},
		{Label: "+_0 -_2", Coeff: 1},
	}
)

func newDummy(terms []Term, n int) *Op[dummy] {
	return Must(New(dummy{}, terms, n))
}

func TestAdd(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a    []Term
		b    []Term
		c    []Term
	}{
		{
			name: "real + real",
			a:    op1,
			b:    op2,
			c:    []Term{{Label: "+_0 -_1", Coeff: 0.5}, {Label: "+_0 -_2", Coeff: 2}},
		},
		{
			name: "complex + real",
			a:    op2,
			b:    opComplex,
			c:    []Term{{Label: "+_0 -_1", Coeff: 1 + 1i}, {Label: "+_0 -_2", Coeff: 2}},
		},
		{
			name: "complex + complex",
			a:    opComplex,
			b:    opComplex,
			c:    []Term{{Label: "+_0 -_1", Coeff: 1 + 2i}, {Label: "+_0 -_2", Coeff: 2}},
		},
		{
			name: "new key",
			a:    op1,
			b:    op3,
			c:    []Term{{Label: "+_0 -_1", Coeff: 0.5}, {Label: "+_0 -_2", Coeff: 1}, {Label: "+_0 -_3", Coeff: 3}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			a, b, c := newDummy(test.a, 2), newDummy(test.b, 2), newDummy(test.c, 2)
			s, err := a.Add(b)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if !s.Equal(c) {
				t.Fatalf("%s, expected %s", s, c)
			}
			ba, err := b.Add(a)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if !ba.Equal(s) {
				t.Fatalf("%s, expected %s", ba, s)
			}
		})
	}
}

func TestAddOrder(t *testing.T) {
	t.Parallel()
	s, err := newDummy(op1, 2).Add(newDummy(op3, 2))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := []string{"+_0 -_1", "+_0 -_2", "+_0 -_3"}
	if !slices.Equal(s.Labels(), expected) {
		t.Fatalf("%#v, expected %#v", s.Labels(), expected)
	}
}

func TestAddZero(t *testing.T) {
	t.Parallel()
	a := newDummy(opComplex, 2)
	s, err := a.Add(Zero(dummy{}, 2))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !s.Equal(a) {
		t.Fatalf("%s, expected %s", s, a)
	}
}

func TestAddMismatchedRegisterLength(t *testing.T) {
	t.Parallel()
	_, err := newDummy(op1, 2).Add(newDummy(op1, 3))
	if !errors.Is(err, ErrMismatchedRegisterLength) {
		t.Fatalf("%+v", err)
	}
	_, err = newDummy(op1, 2).Compose(newDummy(op1, 3), false)
	if !errors.Is(err, ErrMismatchedRegisterLength) {
		t.Fatalf("%+v", err)
	}
}

func TestMul(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a    []Term
		c    any
		b    []Term
	}{
		{
			name: "real * real",
			a:    op1,
			c:    2,
			b:    []Term{{Label: "+_0 -_1", Coeff: 0}, {Label: "+_0 -_2", Coeff: 2}},
		},
		{
			name: "complex * real",
			a:    opComplex,
			c:    2.0,
			b:    []Term{{Label: "+_0 -_1", Coeff: 1 + 2i}, {Label: "+_0 -_2", Coeff: 2}},
		},
		{
			name: "real * complex",
			a:    op2,
			c:    0.5 + 1i,
			b:    []Term{{Label: "+_0 -_1", Coeff: 0.25 + 0.5i}, {Label: "+_0 -_2", Coeff: 0.5 + 1i}},
		},
		{
			name: "complex * complex",
			a:    opComplex,
			c:    complex64(0.5 + 1i),
			b:    []Term{{Label: "+_0 -_1", Coeff: -0.75 + 1i}, {Label: "+_0 -_2", Coeff: 0.5 + 1i}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			a, b := newDummy(test.a, 2), newDummy(test.b, 2)
			m, err := a.Mul(test.c)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if !m.Equal(b) {
				t.Fatalf("%s, expected %s", m, b)
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()
		_, err := newDummy(op1, 2).Mul("something")
		if !errors.Is(err, ErrUnsupportedOperandType) {
			t.Fatalf("%+v", err)
		}
	})
}

func TestScaleAssociative(t *testing.T) {
	t.Parallel()
	a := newDummy(opComplex, 2)
	var c, d complex128 = 0.5 - 2i, -3 + 0.25i
	x := a.Scale(c).Scale(d)
	y := a.Scale(c * d)
	if !x.Equiv(y, 1e-12) {
		t.Fatalf("%s, expected %s", x, y)
	}
}

func TestAdjoint(t *testing.T) {
	t.Parallel()
	expected := newDummy([]Term{{Label: "+_0 -_1", Coeff: 0.5 - 1i}, {Label: "+_0 -_2", Coeff: 1}}, 2)
	if a := newDummy(opComplex, 2).Adjoint(); !a.Equal(expected) {
		t.Fatalf("%s, expected %s", a, expected)
	}
	if a := newDummy(opComplex, 2).Conjugate(); !a.Equal(expected) {
		t.Fatalf("%s, expected %s", a, expected)
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		b     []Term
		equal bool
	}{
		{name: "equal", b: op1, equal: true},
		{name: "not equal - keys", b: []Term{{Label: "+_0 -_1", Coeff: 0}, {Label: "+_0 -_3", Coeff: 1}}},
		{name: "not equal - values", b: op2},
		{name: "not equal - tolerance", b: []Term{{Label: "+_0 -_1", Coeff: 1e-9}, {Label: "+_0 -_2", Coeff: 1}}},
		{name: "explicit zero", b: []Term{{Label: "+_0 -_2", Coeff: 1}}, equal: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			a, b := newDummy(op1, 2), newDummy(test.b, 2)
			if a.Equal(b) != test.equal {
				t.Fatalf("%s %s, expected %v", a, b, test.equal)
			}
			if a.Equiv(b, 0) != test.equal {
				t.Fatalf("%s %s, expected %v", a, b, test.equal)
			}
		})
	}

	if newDummy(op1, 2).Equal(newDummy(op1, 3)) {
		t.Fatalf("register lengths 2 and 3 are equal")
	}
}

func TestEquiv(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		b     []Term
		equiv bool
	}{
		{name: "not equivalent - tolerances", b: []Term{{Label: "+_0 -_1", Coeff: 1e-6}, {Label: "+_0 -_2", Coeff: 1}}},
		{name: "not equivalent - keys", b: []Term{{Label: "+_0 -_1", Coeff: 0}, {Label: "+_0 -_3", Coeff: 1}}},
		{name: "equivalent", b: []Term{{Label: "+_0 -_1", Coeff: 1e-9}, {Label: "+_0 -_2", Coeff: 1}}, equiv: true},
		{name: "implicit zero", b: []Term{{Label: "+_0 -_2", Coeff: 1}, {Label: "+_0 -_3", Coeff: 1e-10}}, equiv: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			a, b := newDummy(op1, 2), newDummy(test.b, 2)
			if a.Equiv(b) != test.equiv {
				t.Fatalf("%s %s, expected %v", a, b, test.equiv)
			}
			if b.Equiv(a) != test.equiv {
				t.Fatalf("%s %s, expected %v", b, a, test.equiv)
			}
		})
	}
}

func TestEquivMonotonic(t *testing.T) {
	t.Parallel()
	a := newDummy(op1, 2)
	b := newDummy([]Term{{Label: "+_0 -_1", Coeff: 1e-3}, {Label: "+_0 -_2", Coeff: 1}}, 2)
	tols := []float64{0, 1e-6, 1e-3, 1e-2, 1}
	var equiv bool
	for _, tol := range tols {
		e := a.Equiv(b, tol)
		if equiv && !e {
			t.Fatalf("not equivalent at %g", tol)
		}
		equiv = e
	}
	if !equiv {
		t.Fatalf("not equivalent at %g", tols[len(tols)-1])
	}
}

func TestIter(t *testing.T) {
	t.Parallel()
	labels := make([]string, 0)
	for l := range newDummy(op1, 2).All() {
		labels = append(labels, l)
	}
	expected := []string{"+_0 -_1", "+_0 -_2"}
	if !slices.Equal(labels, expected) {
		t.Fatalf("%#v, expected %#v", labels, expected)
	}
}

func TestAt(t *testing.T) {
	t.Parallel()
	op := newDummy(op1, 2)
	c, err := op.At("+_0 -_1")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if c != 0 {
		t.Fatalf("%v", c)
	}
	if _, err := op.At("+_1 -_0"); !errors.Is(err, ErrLabelNotFound) {
		t.Fatalf("%+v", err)
	}
	if op.Len() != 2 {
		t.Fatalf("%d", op.Len())
	}
	if op.RegisterLength() != 2 {
		t.Fatalf("%d", op.RegisterLength())
	}
}

func TestNewSumsDuplicates(t *testing.T) {
	t.Parallel()
	op := newDummy([]Term{{Label: "+_0", Coeff: 1}, {Label: "-_1", Coeff: 2}, {Label: "+_0", Coeff: 0.5i}}, 2)
	expected := []Term{{Label: "+_0", Coeff: 1 + 0.5i}, {Label: "-_1", Coeff: 2}}
	if op.Len() != len(expected) {
		t.Fatalf("%s", op)
	}
	for _, e := range expected {
		c, err := op.At(e.Label)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if c != e.Coeff {
			t.Fatalf("%v, expected %v", c, e.Coeff)
		}
	}
}

func TestCopy(t *testing.T) {
	t.Parallel()
	data := map[string]complex128{"+_0 -_1": 0, "+_0 -_3": 1}
	copied, err := FromMap(dummy{}, data, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	aliased, err := FromMap(dummy{}, data, 2, NewOptions().Copy(false))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	data["+_0 -_1"] = 0.2

	if c, _ := copied.At("+_0 -_1"); c != 0 {
		t.Fatalf("%v", c)
	}
	if c, _ := aliased.At("+_0 -_1"); c != 0.2 {
		t.Fatalf("%v", c)
	}
}

func TestCanonicalLabel(t *testing.T) {
	t.Parallel()
	data := map[string]complex128{"+_0 -_1": 1, "+_0  -_1": 1, " +_0 -_1\t": 1}
	op, err := FromMap(dummy{}, data, 2, NewOptions().Copy(false))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !slices.Equal(op.Labels(), []string{"+_0 -_1"}) {
		t.Fatalf("%#v", op.Labels())
	}
	if c, _ := op.At("+_0 -_1"); c != 3 {
		t.Fatalf("%v, expected %v", c, 3)
	}
	if len(data) != 3 {
		t.Fatalf("%#v", data)
	}
	if l := CanonicalLabel("  "); l != "" {
		t.Fatalf("%q", l)
	}
}

func TestZeroOne(t *testing.T) {
	t.Parallel()
	zero := Zero(dummy{}, 1)
	if zero.Len() != 0 || zero.RegisterLength() != 1 {
		t.Fatalf("%s", zero)
	}
	one := One(dummy{}, 1)
	if one.Len() != 1 || one.RegisterLength() != 1 {
		t.Fatalf("%s", one)
	}
	c, err := one.At("")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if c != 1 {
		t.Fatalf("%v", c)
	}
}

func TestSimplifyDropsSmall(t *testing.T) {
	t.Parallel()
	tests := []struct {
		atol []float64
		len  int
	}{
		{atol: nil, len: 2},
		{atol: []float64{1e-3}, len: 1},
		{atol: []float64{0}, len: 3},
	}
	op := newDummy([]Term{{Label: "+_0", Coeff: 1}, {Label: "-_0", Coeff: 1e-4}, {Label: "-_1", Coeff: 1e-10}, {Label: "+_1", Coeff: 0}}, 2)
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.atol), func(t *testing.T) {
			t.Parallel()
			s := op.Simplify(test.atol...)
			if s.Len() != test.len {
				t.Fatalf("%s, expected %d terms", s, test.len)
			}
		})
	}
}

func TestComposeTensor(t *testing.T) {
	t.Parallel()
	a := newDummy([]Term{{Label: "+_0", Coeff: 2}}, 2)
	b := newDummy([]Term{{Label: "-_1", Coeff: 1i}, {Label: "", Coeff: 1}}, 2)

	c, err := a.Compose(b, false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := newDummy([]Term{{Label: "+_0 -_1", Coeff: 2i}, {Label: "+_0", Coeff: 2}}, 2)
	if !c.Equal(expected) {
		t.Fatalf("%s, expected %s", c, expected)
	}

	c, err = a.Compose(b, true)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected = newDummy([]Term{{Label: "-_1 +_0", Coeff: 2i}, {Label: "+_0", Coeff: 2}}, 2)
	if !c.Equal(expected) {
		t.Fatalf("%s, expected %s", c, expected)
	}

	if r := a.Tensor(b).RegisterLength(); r != 4 {
		t.Fatalf("%d", r)
	}
}

func TestSum(t *testing.T) {
	t.Parallel()
	s, err := Sum(newDummy(op1, 2), newDummy(op2, 2), newDummy(op3, 2))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := newDummy([]Term{{Label: "+_0 -_1", Coeff: 1}, {Label: "+_0 -_2", Coeff: 2}, {Label: "+_0 -_3", Coeff: 3}}, 2)
	if !s.Equal(expected) {
		t.Fatalf("%s, expected %s", s, expected)
	}
}
