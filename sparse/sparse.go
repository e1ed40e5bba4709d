// Package sparse implements sparse label operators, complex linear combinations of labels acting on a register of modes.
//
// The vector space part (addition, scaling, comparison) is shared by every operator flavor.
// Label semantics such as composition, adjoints and simplification are supplied by the Flavor type parameter.
package sparse

import (
	"fmt"
	"iter"
	"maps"
	"math/cmplx"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Atol is the default absolute tolerance of Simplify and Equiv.
	Atol = 1e-8
)

var (
	ErrInvalidLabel             = errors.New("invalid label")
	ErrMismatchedRegisterLength = errors.New("mismatched register length")
	ErrUnsupportedOperandType   = errors.New("unsupported operand type")
	ErrLabelNotFound            = errors.New("label not found")
)

// Flavor defines the label semantics of an operator type.
// F is the implementing type itself, so that flavors carrying register metadata can be combined.
type Flavor[F any] interface {
	Name() string
	// Validate checks that label is well formed and fits in a register of the given length.
	Validate(label string, registerLength int) error
	Adjoint(label string) string
	Transpose(label string) string
	// Concat returns the label of a followed by b.
	Concat(a, b string) string
	// Shift re-indexes label so that it acts on the register placed after left, which has leftLength modes.
	Shift(label string, left F, leftLength int) string
	// Join returns the flavor of the register formed by the receiver followed by other.
	Join(other F) F
	Equal(other F) bool
	// Simplify returns an equivalent canonical label and the factor picked up while reaching it.
	// A zero factor means the label vanishes.
	Simplify(label string) (string, complex128)
}

// Term is a label and its coefficient.
type Term struct {
	Label string
	Coeff complex128
}

func (t Term) String() string {
	return fmt.Sprintf("%v * ( %s )", t.Coeff, t.Label)
}

// Op is an immutable sparse label operator.
type Op[F Flavor[F]] struct {
	flavor         F
	registerLength int

	labels []string
	coeffs map[string]complex128
}

// Options are options for constructing operators.
type Options struct {
	copy     bool
	validate bool
}

// NewOptions returns the default construction options, which copy and validate the input.
func NewOptions() Options {
	return Options{copy: true, validate: true}
}

// Copy sets whether FromMap copies its input.
// Without a copy, the operator aliases the map and the caller must never mutate it again.
// A map with labels that are not single space separated is always copied.
func (opt Options) Copy(c bool) Options {
	opt.copy = c
	return opt
}

// Validate sets whether labels are validated against the flavor.
func (opt Options) Validate(v bool) Options {
	opt.validate = v
	return opt
}

// New creates an operator from terms.
// Labels are stored with single spaces between tokens.
// Terms sharing a label are summed, and labels keep the order of their first appearance.
func New[F Flavor[F]](f F, terms []Term, registerLength int, options ...Options) (*Op[F], error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if registerLength < 0 {
		return nil, errors.Wrapf(ErrInvalidLabel, "register length %d", registerLength)
	}

	op := newOp(f, registerLength, len(terms))
	for _, t := range terms {
		if opt.validate {
			if err := f.Validate(t.Label, registerLength); err != nil {
				return nil, errors.Wrap(err, "")
			}
		}
		op.add(t.Label, t.Coeff)
	}
	return op, nil
}

// FromMap creates an operator from a label map.
// Go maps are unordered, so labels are kept in sorted order.
func FromMap[F Flavor[F]](f F, data map[string]complex128, registerLength int, options ...Options) (*Op[F], error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if registerLength < 0 {
		return nil, errors.Wrapf(ErrInvalidLabel, "register length %d", registerLength)
	}

	canonical := true
	for l := range data {
		if opt.validate {
			if err := f.Validate(l, registerLength); err != nil {
				return nil, errors.Wrap(err, "")
			}
		}
		if l != CanonicalLabel(l) {
			canonical = false
		}
	}

	// Labels differing only in whitespace are summed, which needs a fresh map.
	coeffs := data
	if opt.copy || !canonical {
		coeffs = make(map[string]complex128, len(data))
		for l, c := range data {
			coeffs[CanonicalLabel(l)] += c
		}
	}
	labels := slices.Sorted(maps.Keys(coeffs))
	return &Op[F]{flavor: f, registerLength: registerLength, labels: labels, coeffs: coeffs}, nil
}

// Must panics if err is not nil.
func Must[F Flavor[F]](op *Op[F], err error) *Op[F] {
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return op
}

// Zero returns the operator with no terms.
func Zero[F Flavor[F]](f F, registerLength int) *Op[F] {
	return newOp(f, registerLength, 0)
}

// One returns the identity operator.
func One[F Flavor[F]](f F, registerLength int) *Op[F] {
	op := newOp(f, registerLength, 1)
	op.add("", 1)
	return op
}

// Sum adds up ops, which must all have the same register.
func Sum[F Flavor[F]](ops ...*Op[F]) (*Op[F], error) {
	if len(ops) == 0 {
		return nil, errors.Errorf("no operators")
	}
	s := ops[0]
	for i, op := range ops[1:] {
		var err error
		s, err = s.Add(op)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", i+1))
		}
	}
	return s, nil
}

func newOp[F Flavor[F]](f F, registerLength, capacity int) *Op[F] {
	return &Op[F]{
		flavor:         f,
		registerLength: registerLength,
		labels:         make([]string, 0, capacity),
		coeffs:         make(map[string]complex128, capacity),
	}
}

// add accumulates c on the canonical form of label during construction.
func (op *Op[F]) add(label string, c complex128) {
	label = CanonicalLabel(label)
	if v, ok := op.coeffs[label]; ok {
		op.coeffs[label] = v + c
		return
	}
	op.labels = append(op.labels, label)
	op.coeffs[label] = c
}

// RegisterLength returns the number of modes the operator acts on.
func (op *Op[F]) RegisterLength() int { return op.registerLength }

// Flavor returns the label semantics of the operator.
func (op *Op[F]) Flavor() F { return op.flavor }

// Len returns the number of stored labels, including those with zero coefficients.
func (op *Op[F]) Len() int { return len(op.labels) }

// Labels returns the labels in insertion order.
func (op *Op[F]) Labels() []string {
	return slices.Clone(op.labels)
}

// All iterates over labels and coefficients in insertion order.
func (op *Op[F]) All() iter.Seq2[string, complex128] {
	return func(yield func(string, complex128) bool) {
		for _, l := range op.labels {
			if !yield(l, op.coeffs[l]) {
				return
			}
		}
	}
}

// At returns the coefficient of label.
func (op *Op[F]) At(label string) (complex128, error) {
	c, ok := op.coeffs[label]
	if !ok {
		return 0, errors.Wrapf(ErrLabelNotFound, "%q", label)
	}
	return c, nil
}

func (a *Op[F]) compatible(b *Op[F]) error {
	if a.registerLength != b.registerLength || !a.flavor.Equal(b.flavor) {
		return errors.Wrapf(ErrMismatchedRegisterLength, "%d %d", a.registerLength, b.registerLength)
	}
	return nil
}

// Add returns a+b.
func (a *Op[F]) Add(b *Op[F]) (*Op[F], error) {
	if err := a.compatible(b); err != nil {
		return nil, err
	}
	s := newOp(a.flavor, a.registerLength, len(a.labels)+len(b.labels))
	for l, c := range a.All() {
		s.add(l, c)
	}
	for l, c := range b.All() {
		s.add(l, c)
	}
	return s, nil
}

// Scale returns c*a.
func (a *Op[F]) Scale(c complex128) *Op[F] {
	s := newOp(a.flavor, a.registerLength, len(a.labels))
	for l, v := range a.All() {
		s.add(l, c*v)
	}
	return s
}

// Mul scales a by a scalar of any Go numeric type.
func (a *Op[F]) Mul(v any) (*Op[F], error) {
	var c complex128
	switch x := v.(type) {
	case complex128:
		c = x
	case complex64:
		c = complex128(x)
	case float64:
		c = complex(x, 0)
	case float32:
		c = complex(float64(x), 0)
	case int:
		c = complex(float64(x), 0)
	case int8:
		c = complex(float64(x), 0)
	case int16:
		c = complex(float64(x), 0)
	case int32:
		c = complex(float64(x), 0)
	case int64:
		c = complex(float64(x), 0)
	case uint:
		c = complex(float64(x), 0)
	case uint8:
		c = complex(float64(x), 0)
	case uint16:
		c = complex(float64(x), 0)
	case uint32:
		c = complex(float64(x), 0)
	case uint64:
		c = complex(float64(x), 0)
	default:
		return nil, errors.Wrapf(ErrUnsupportedOperandType, "%T", v)
	}
	return a.Scale(c), nil
}

// Compose returns the operator product.
// Labels of a come first, unless front is set, in which case labels of b come first.
// Labels are concatenated as is, reordering is left to Simplify.
func (a *Op[F]) Compose(b *Op[F], front bool) (*Op[F], error) {
	if err := a.compatible(b); err != nil {
		return nil, err
	}
	p := newOp(a.flavor, a.registerLength, len(a.labels)*len(b.labels))
	for la, ca := range a.All() {
		for lb, cb := range b.All() {
			l := a.flavor.Concat(la, lb)
			if front {
				l = a.flavor.Concat(lb, la)
			}
			p.add(l, ca*cb)
		}
	}
	return p, nil
}

// Tensor returns a⊗b, where b acts on the register placed after the register of a.
func (a *Op[F]) Tensor(b *Op[F]) *Op[F] {
	p := newOp(a.flavor.Join(b.flavor), a.registerLength+b.registerLength, len(a.labels)*len(b.labels))
	for la, ca := range a.All() {
		for lb, cb := range b.All() {
			l := a.flavor.Concat(la, b.flavor.Shift(lb, a.flavor, a.registerLength))
			p.add(l, ca*cb)
		}
	}
	return p
}

// Expand returns b⊗a.
func (a *Op[F]) Expand(b *Op[F]) *Op[F] {
	return b.Tensor(a)
}

// Adjoint returns the Hermitian conjugate.
func (a *Op[F]) Adjoint() *Op[F] {
	s := newOp(a.flavor, a.registerLength, len(a.labels))
	for l, c := range a.All() {
		s.add(a.flavor.Adjoint(l), cmplx.Conj(c))
	}
	return s
}

// Transpose reverses labels and keeps coefficients.
func (a *Op[F]) Transpose() *Op[F] {
	s := newOp(a.flavor, a.registerLength, len(a.labels))
	for l, c := range a.All() {
		s.add(a.flavor.Transpose(l), c)
	}
	return s
}

// Conjugate conjugates coefficients and keeps labels.
func (a *Op[F]) Conjugate() *Op[F] {
	s := newOp(a.flavor, a.registerLength, len(a.labels))
	for l, c := range a.All() {
		s.add(l, cmplx.Conj(c))
	}
	return s
}

// Simplify canonicalizes labels, collects equal labels, and drops terms whose magnitude is at most atol.
// The default atol is Atol.
func (a *Op[F]) Simplify(atol ...float64) *Op[F] {
	tol := Atol
	if len(atol) > 0 {
		tol = atol[0]
	}

	collected := newOp(a.flavor, a.registerLength, len(a.labels))
	for l, c := range a.All() {
		sl, factor := a.flavor.Simplify(l)
		if factor == 0 {
			continue
		}
		collected.add(sl, factor*c)
	}

	return collected.Chop(tol)
}

// Chop drops terms whose magnitude is at most atol, Atol by default, leaving labels as they are.
func (a *Op[F]) Chop(atol ...float64) *Op[F] {
	tol := Atol
	if len(atol) > 0 {
		tol = atol[0]
	}
	s := newOp(a.flavor, a.registerLength, len(a.labels))
	for l, c := range a.All() {
		if cmplx.Abs(c) <= tol {
			continue
		}
		s.add(l, c)
	}
	return s
}

// Equal reports whether a and b have exactly the same coefficients.
// An absent label counts as a zero coefficient.
func (a *Op[F]) Equal(b *Op[F]) bool {
	return a.Equiv(b, 0)
}

// Equiv reports whether coefficients of a and b differ by at most tol, 1e-8 by default.
// An absent label counts as a zero coefficient.
func (a *Op[F]) Equiv(b *Op[F], tol ...float64) bool {
	t := Atol
	if len(tol) > 0 {
		t = tol[0]
	}
	if a.compatible(b) != nil {
		return false
	}

	for l, ca := range a.coeffs {
		if cmplx.Abs(ca-b.coeffs[l]) > t {
			return false
		}
	}
	for l, cb := range b.coeffs {
		if _, ok := a.coeffs[l]; ok {
			continue
		}
		if cmplx.Abs(cb) > t {
			return false
		}
	}
	return true
}

// IsHermitian reports whether a equals its adjoint up to atol after simplification.
func (a *Op[F]) IsHermitian(atol ...float64) bool {
	return a.Simplify(atol...).Equiv(a.Adjoint().Simplify(atol...), atol...)
}

func (op *Op[F]) String() string {
	lines := []string{fmt.Sprintf("%s Op, register length=%d, number terms=%d", op.flavor.Name(), op.registerLength, len(op.labels))}
	for l, c := range op.All() {
		lines = append(lines, "  "+Term{Label: l, Coeff: c}.String())
	}
	return strings.Join(lines, "\n")
}
