package statevec

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// vRowCol is one nonzero entry of a sparse matrix.
type vRowCol struct {
	v   complex128
	row int
	col int
}

// coo is a sparse matrix in coordinate format.
type coo struct {
	rows int
	cols int
	data []vRowCol
}

func newCOO(dense [][]complex128) *coo {
	m := &coo{rows: len(dense), cols: len(dense[0]), data: make([]vRowCol, 0)}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.data = append(m.data, vRowCol{v: v, row: i, col: j})
		}
	}
	return m
}

// kron replaces a with the Kronecker product of a and b.
func (a *coo) kron(b *coo) {
	a.rows, a.cols = a.rows*b.rows, a.cols*b.cols

	prevElemNum := len(a.data)
	for i := prevElemNum - 1; i >= 0; i-- {
		av := a.data[i]
		a.data[i].v = 0
		for _, bv := range b.data {
			ky := av.row*b.rows + bv.row
			kx := av.col*b.cols + bv.col
			a.data = append(a.data, vRowCol{v: av.v * bv.v, row: ky, col: kx})
		}
	}

	a.data = slices.DeleteFunc(a.data, func(v vRowCol) bool {
		return v.v == 0
	})
	slices.SortFunc(a.data, rowMajor)
}

// apply computes dst = a @ src.
func (a *coo) apply(dst, src []complex128) {
	if a.rows != len(dst) || a.cols != len(src) {
		panic(fmt.Sprintf("%d %d %d %d", a.rows, a.cols, len(dst), len(src)))
	}
	clear(dst)
	for _, e := range a.data {
		dst[e.row] += e.v * src[e.col]
	}
}

func (a *coo) equal(b *coo) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	if len(a.data) != len(b.data) {
		return false
	}
	for i, av := range a.data {
		if av != b.data[i] {
			return false
		}
	}
	return true
}

func (m *coo) String() string {
	dense := make(map[[2]int]complex128, len(m.data))
	for _, v := range m.data {
		dense[[2]int{v.row, v.col}] = v.v
	}

	lines := make([]string, 0, m.rows)
	for i := range m.rows {
		cs := make([]string, 0, m.cols)
		for j := range m.cols {
			cs = append(cs, fmt.Sprintf("%v", dense[[2]int{i, j}]))
		}
		lines = append(lines, strings.Join(cs, "\t"))
	}
	return strings.Join(lines, "\n")
}

func rowMajor(a, b vRowCol) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}
