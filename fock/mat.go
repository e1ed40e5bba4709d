package fock

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"math/cmplx"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	FnameShape = "shape.csv"
	FnameCOO   = "coo.csv"
)

var (
	ErrNotReal      = errors.New("not real")
	ErrDimension    = errors.New("wrong dimensions")
	ErrFactorize    = errors.New("factorization failed")
	ErrLeavesSector = errors.New("leaves sector")
)

type vRowCol struct {
	v   complex128
	row int
	col int
}

// COO is a sparse matrix in coordinate format, with entries kept in row major order.
type COO struct {
	rows int
	cols int
	Data []vRowCol
}

func M(dense [][]complex128) *COO {
	m := &COO{rows: len(dense), Data: make([]vRowCol, 0)}
	if len(dense) > 0 {
		m.cols = len(dense[0])
	}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.Data = append(m.Data, vRowCol{v: v, row: i, col: j})
		}
	}
	return m
}

func COOZeros(rows, cols int) *COO {
	return &COO{rows: rows, cols: cols, Data: make([]vRowCol, 0)}
}

func COOIdentity(rows int) *COO {
	m := COOZeros(rows, rows)
	for i := range rows {
		m.Data = append(m.Data, vRowCol{v: 1, row: i, col: i})
	}
	return m
}

func (m *COO) Rows() int { return m.rows }
func (m *COO) Cols() int { return m.cols }
func (m *COO) NumNonZero() int { return len(m.Data) }

// At returns the entry at row i and column j.
func (m *COO) At(i, j int) complex128 {
	k, ok := slices.BinarySearchFunc(m.Data, vRowCol{row: i, col: j}, rowMajor)
	if !ok {
		return 0
	}
	return m.Data[k].v
}

// Equal reports whether a and b have the same shape and entries.
func (a *COO) Equal(b *COO) bool {
	return a.Equiv(b, 0)
}

// Equiv reports whether entries of a and b differ by at most tol.
func (a *COO) Equiv(b *COO, tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	d := a.Clone()
	d.Add(-1, b)
	for _, v := range d.Data {
		if cmplx.Abs(v.v) > tol {
			return false
		}
	}
	return true
}

func (m *COO) Clone() *COO {
	return &COO{rows: m.rows, cols: m.cols, Data: slices.Clone(m.Data)}
}

// Add sets a to a + c*b.
func (a *COO) Add(c complex128, b *COO) {
	if a.rows != b.rows || a.cols != b.cols {
		panic(fmt.Sprintf("%+v", errors.Wrapf(ErrDimension, "%dx%d %dx%d", a.rows, a.cols, b.rows, b.cols)))
	}
	bm := make(map[[2]int]complex128, len(b.Data))
	for _, v := range b.Data {
		bm[[2]int{v.row, v.col}] = v.v
	}

	for i, av := range a.Data {
		byx := [2]int{av.row, av.col}
		bv := bm[byx]
		delete(bm, byx)
		a.Data[i].v = av.v + c*bv
	}
	for yx, bv := range bm {
		a.Data = append(a.Data, vRowCol{v: c * bv, row: yx[0], col: yx[1]})
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	slices.SortFunc(a.Data, rowMajor)
}

// MatMul returns the matrix product a*b.
func (a *COO) MatMul(b *COO) *COO {
	if a.cols != b.rows {
		panic(fmt.Sprintf("%+v", errors.Wrapf(ErrDimension, "%dx%d %dx%d", a.rows, a.cols, b.rows, b.cols)))
	}
	byRow := make(map[int][]vRowCol)
	for _, v := range b.Data {
		byRow[v.row] = append(byRow[v.row], v)
	}

	cm := make(map[[2]int]complex128)
	for _, av := range a.Data {
		for _, bv := range byRow[av.col] {
			cm[[2]int{av.row, bv.col}] += av.v * bv.v
		}
	}
	c := COOZeros(a.rows, b.cols)
	for yx, v := range cm {
		if v == 0 {
			continue
		}
		c.Data = append(c.Data, vRowCol{v: v, row: yx[0], col: yx[1]})
	}
	slices.SortFunc(c.Data, rowMajor)
	return c
}

// MulVec returns m*x.
func (m *COO) MulVec(x []complex128) []complex128 {
	if len(x) != m.cols {
		panic(fmt.Sprintf("%+v", errors.Wrapf(ErrDimension, "%dx%d %d", m.rows, m.cols, len(x))))
	}
	y := make([]complex128, m.rows)
	for _, v := range m.Data {
		y[v.row] += v.v * x[v.col]
	}
	return y
}

// Expectation returns <x|m|x>.
func (m *COO) Expectation(x []complex128) complex128 {
	mx := m.MulVec(x)
	var e complex128
	for i, v := range x {
		e += cmplx.Conj(v) * mx[i]
	}
	return e
}

// ConjTranspose returns the Hermitian conjugate.
func (m *COO) ConjTranspose() *COO {
	t := COOZeros(m.cols, m.rows)
	for _, v := range m.Data {
		t.Data = append(t.Data, vRowCol{v: cmplx.Conj(v.v), row: v.col, col: v.row})
	}
	slices.SortFunc(t.Data, rowMajor)
	return t
}

func (m *COO) Dense() [][]complex128 {
	dense := make([][]complex128, m.rows)
	for i := range dense {
		dense[i] = make([]complex128, m.cols)
	}

	for _, v := range m.Data {
		dense[v.row][v.col] = v.v
	}

	return dense
}

func (m *COO) WriteCOO(dir string) error {
	shapePath := filepath.Join(dir, FnameShape)
	if err := os.WriteFile(shapePath, []byte(fmt.Sprintf("%d,%d", m.rows, m.cols)), 0644); err != nil {
		return errors.Wrap(err, "")
	}

	cooPath := filepath.Join(dir, FnameCOO)
	cooF, err := os.Create(cooPath)
	if err != nil {
		return errors.Wrap(err, "")
	}

	// Values and rows equal to the previous entry are left empty.
	prev := vRowCol{v: cmplx.NaN(), row: -1, col: -1}
	w := csv.NewWriter(cooF)
	for _, v := range m.Data {
		var vStr string
		if v.v != prev.v {
			vStr = FormatNumpy(v.v)
		}
		var rowStr string
		if v.row != prev.row {
			rowStr = strconv.Itoa(v.row)
		}
		if err1 := w.Write([]string{vStr, rowStr, strconv.Itoa(v.col)}); err1 != nil && err == nil {
			err = errors.Wrap(err1, "")
			break
		}
		prev = v
	}
	w.Flush()
	if err1 := w.Error(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}

	if err1 := cooF.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

type COOReader struct {
	f *os.File
	r *csv.Reader
	i int

	prev vRowCol
}

func NewCOOReader(dir string) (*COOReader, error) {
	r := &COOReader{i: -1}

	cooPath := filepath.Join(dir, FnameCOO)
	var err error
	r.f, err = os.Open(cooPath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	r.r = csv.NewReader(r.f)
	return r, nil
}

func (r *COOReader) Close() error {
	return r.f.Close()
}

func (r *COOReader) Read() (vRowCol, error) {
	r.i++
	record, err := r.r.Read()
	if err == io.EOF {
		return vRowCol{}, io.EOF
	}
	if err != nil {
		return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d", r.i))
	}
	if len(record) != 3 {
		return vRowCol{}, errors.Errorf("%d %#v", r.i, record)
	}

	var vrc vRowCol
	switch {
	case record[0] == "":
		vrc.v = r.prev.v
	default:
		s := strings.ReplaceAll(record[0], "j", "i")
		vrc.v, err = strconv.ParseComplex(s, 128)
		if err != nil {
			return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d %#v", r.i, record))
		}
	}

	switch {
	case record[1] == "":
		vrc.row = r.prev.row
	default:
		vrc.row, err = strconv.Atoi(record[1])
		if err != nil {
			return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d %#v", r.i, record))
		}
	}

	vrc.col, err = strconv.Atoi(record[2])
	if err != nil {
		return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d %#v", r.i, record))
	}

	r.prev = vrc
	return vrc, nil
}

func ReadCOO(dir string) (*COO, error) {
	rows, cols, err := readShape(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	m := COOZeros(rows, cols)

	r, err := NewCOOReader(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer r.Close()
	for {
		v, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "")
		}

		m.Data = append(m.Data, v)
	}

	return m, nil
}

func readShape(dir string) (int, int, error) {
	f, err := os.Open(filepath.Join(dir, FnameShape))
	if err != nil {
		return -1, -1, errors.Wrap(err, "")
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return -1, -1, errors.Wrap(err, "")
	}
	if len(records) == 0 {
		return -1, -1, errors.Errorf("empty")
	}
	row := records[0]

	if len(row) != 2 {
		return -1, -1, errors.Errorf("%#v", row)
	}
	i, err := strconv.Atoi(row[0])
	if err != nil {
		return -1, -1, errors.Wrap(err, fmt.Sprintf("%#v", row))
	}
	j, err := strconv.Atoi(row[1])
	if err != nil {
		return -1, -1, errors.Wrap(err, fmt.Sprintf("%#v", row))
	}

	return i, j, nil
}

func (m *COO) String() string {
	lines := []string{}
	k := 0
	for i := range m.rows {
		cs := []string{}
		for j := range m.cols {
			var v complex128
			if k < len(m.Data) && m.Data[k].row == i && m.Data[k].col == j {
				v = m.Data[k].v
				k++
			}
			switch {
			case imag(v) == 0:
				cs = append(cs, format(real(v)))
			case real(v) == 0:
				cs = append(cs, format(imag(v))+"i")
			default:
				cs = append(cs, format(real(v))+"+"+format(imag(v))+"i")
			}
		}
		lines = append(lines, strings.Join(cs, "\t"))
	}
	return strings.Join(lines, "\n")
}

type ValVec struct {
	Val complex128
	Vec []complex128
}

// Eigen returns the eigenpairs of a real matrix sorted by ascending eigenvalue.
// An empty matrix has no eigenpairs.
// Symmetric matrices are decomposed with the symmetric solver, whose eigenvectors are orthonormal.
func (m *COO) Eigen() ([]ValVec, error) {
	if m.rows != m.cols {
		return nil, errors.Wrapf(ErrDimension, "%dx%d", m.rows, m.cols)
	}
	if m.rows == 0 {
		return []ValVec{}, nil
	}
	symmetric := true
	for _, v := range m.Data {
		if imag(v.v) != 0 {
			return nil, errors.Wrapf(ErrNotReal, "%d %d %v", v.row, v.col, v.v)
		}
		if cmplx.Abs(m.At(v.col, v.row)-v.v) > 1e-12 {
			symmetric = false
		}
	}

	var vvs []ValVec
	switch {
	case symmetric:
		sym := mat.NewSymDense(m.rows, nil)
		for _, v := range m.Data {
			sym.SetSym(v.row, v.col, real(v.v))
		}
		var eig mat.EigenSym
		if ok := eig.Factorize(sym, true); !ok {
			return nil, errors.Wrapf(ErrFactorize, "%dx%d", m.rows, m.cols)
		}
		vals := eig.Values(nil)
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		vvs = make([]ValVec, 0, len(vals))
		for i, v := range vals {
			vec := make([]complex128, 0, m.rows)
			for j := range m.rows {
				vec = append(vec, complex(vecs.At(j, i), 0))
			}
			vvs = append(vvs, ValVec{Val: complex(v, 0), Vec: vec})
		}
	default:
		gnm := mat.NewDense(m.rows, m.cols, nil)
		for _, v := range m.Data {
			gnm.Set(v.row, v.col, real(v.v))
		}
		var eig mat.Eigen
		if ok := eig.Factorize(gnm, mat.EigenRight); !ok {
			return nil, errors.Wrapf(ErrFactorize, "%dx%d", m.rows, m.cols)
		}
		vals := eig.Values(nil)
		vecs := mat.NewCDense(m.rows, m.cols, nil)
		eig.VectorsTo(vecs)
		vvs = make([]ValVec, 0, len(vals))
		for i, v := range vals {
			vec := make([]complex128, 0, m.rows)
			for j := range m.rows {
				vec = append(vec, vecs.At(j, i))
			}
			vvs = append(vvs, ValVec{Val: v, Vec: vec})
		}
	}
	slices.SortStableFunc(vvs, func(a, b ValVec) int { return cmp.Compare(real(a.Val), real(b.Val)) })

	return vvs, nil
}

func rowMajor(a, b vRowCol) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := strconv.FormatFloat(v, 'g', 6, 64)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 {
		s = " " + s
	}

	return s
}

// FormatNumpy formats v the way numpy parses complex numbers.
func FormatNumpy(v complex128) string {
	switch {
	case imag(v) == 0:
		return strconv.FormatFloat(real(v), 'g', -1, 64)
	default:
		s := strconv.FormatComplex(v, 'g', -1, 128)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		s = strings.ReplaceAll(s, "i", "j")
		return s
	}
}
