// Package mps simulates quantum circuits on matrix product states.
//
// A circuit runs against a chain of rank 3 site tensors linked by diagonal
// singular value matrices. Single qubit gates contract locally; two qubit
// gates merge the two sites and split them back with a truncated singular
// value decomposition, so memory stays bounded by the entanglement the
// circuit actually builds instead of by 2^n.
//
// References:
//   - Efficient classical simulation of slightly entangled quantum computations, Guifre Vidal
//   - The density-matrix renormalization group in the age of matrix product states, Ulrich Schollwock
package mps

import (
	"fmt"
	"log"
	"maps"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/fumin/tensor"
)

const (
	// Axes of a site tensor.
	mpsLeftAxis  = 0
	mpsUpAxis    = 1
	mpsRightAxis = 2

	// imagEps bounds the imaginary residual tolerated in quantities that
	// are real up to rounding.
	imagEps = 1e-5
)

// Options are options of a simulation.
type Options struct {
	verbose         bool
	singleQubitTime float64
	twoQubitTime    float64
	svdCutoff       float64
	rng             *rand.Rand
	initBySVD       bool
}

// NewOptions returns the default simulation options.
func NewOptions() Options {
	opt := Options{}
	opt.singleQubitTime = 1e-8
	opt.twoQubitTime = 1e-7
	opt.svdCutoff = 1e-4
	return opt
}

// Verbose enables logging of every applied instruction.
func (opt Options) Verbose(v bool) Options {
	opt.verbose = v
	return opt
}

// SingleQubitGateTime sets the simulated duration in seconds of a single qubit gate.
func (opt Options) SingleQubitGateTime(t float64) Options {
	opt.singleQubitTime = t
	return opt
}

// TwoQubitGateTime sets the simulated duration in seconds of a two qubit gate.
func (opt Options) TwoQubitGateTime(t float64) Options {
	opt.twoQubitTime = t
	return opt
}

// SVDCutoff sets the truncation error of two qubit gates.
// Singular values are discarded smallest first for as long as the sum of
// their squares stays within cutoff times the total.
func (opt Options) SVDCutoff(cutoff float64) Options {
	opt.svdCutoff = cutoff
	return opt
}

// Rand sets the random number generator that draws measurement outcomes.
func (opt Options) Rand(rng *rand.Rand) Options {
	opt.rng = rng
	return opt
}

// InitBySVD builds the initial state by reducing the full 2^n tensor with
// singular value decompositions, instead of writing down the trivial chain
// directly. Both paths produce the same state.
func (opt Options) InitBySVD(b bool) Options {
	opt.initBySVD = b
	return opt
}

// State is the matrix product state of a register of qubits.
//
// The chain consists of n site tensors (legs) of shape
// {left bond, physical, right bond}, and n-1 diagonal singular value
// matrices (bonds) between neighboring sites. The chain ends carry bond
// dimension one. Qubit i's physical axis is always the middle axis of
// legs[i], and every contraction transposes its result back to that layout.
//
// Gates and measurement collapses update the chain in place without
// renormalizing, so the stored norm drifts with truncation and collapse.
// Norm2 recomputes it on demand. A State is not safe for concurrent use.
type State struct {
	n     int
	legs  []*tensor.Dense
	bonds []*tensor.Dense

	snapped   bool
	snapLegs  []*tensor.Dense
	snapBonds []*tensor.Dense
	measured  map[int]bool
	cbits     map[int]int
	expZ      float64

	elapsed float64
	opt     Options
}

// New returns the state |0...0> of n qubits.
func New(n int, options ...Options) *State {
	if n <= 0 {
		panic(fmt.Sprintf("%d", n))
	}
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if opt.rng == nil {
		opt.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	s := &State{n: n, opt: opt}
	s.measured = make(map[int]bool)
	s.cbits = make(map[int]int)
	if opt.initBySVD {
		s.initBySVD()
	} else {
		s.init()
	}
	return s
}

func (s *State) init() {
	s.legs = make([]*tensor.Dense, s.n)
	s.bonds = make([]*tensor.Dense, s.n-1)
	for i := range s.legs {
		leg := tensor.Zeros(1, 2, 1)
		leg.SetAt([]int{0, 0, 0}, 1)
		s.legs[i] = leg
	}
	for i := range s.bonds {
		bond := tensor.Zeros(1, 1)
		bond.SetAt([]int{0, 0}, 1)
		s.bonds[i] = bond
	}
}

// initBySVD builds the full 2^n tensor of |0...0> and rewrites it as a
// chain, splitting off one site at a time with a truncated singular value
// decomposition.
func (s *State) initBySVD() {
	shape := make([]int, s.n)
	for i := range shape {
		shape[i] = 2
	}
	full := tensor.Zeros(shape...)
	full.SetAt(make([]int, s.n), 1)

	s.legs = make([]*tensor.Dense, 0, s.n)
	s.bonds = make([]*tensor.Dense, 0, s.n-1)
	rest := full
	leftD := 1
	for range s.n - 1 {
		u, bond, v := svdTrunc(rest.Reshape(leftD*2, -1), s.opt.svdCutoff)
		k := bond.Shape()[0]
		s.legs = append(s.legs, u.Reshape(leftD, 2, k))
		s.bonds = append(s.bonds, bond)

		rest = v
		leftD = k
	}
	s.legs = append(s.legs, rest.Reshape(leftD, 2, 1))
}

// physAxis returns the axis carrying qubit q's physical index: the middle
// axis of legs[q] once the site exists, or axis q of the not yet reduced
// full tensor during initialization by singular value decomposition.
func (s *State) physAxis(q int) int {
	if q < len(s.legs) {
		return mpsUpAxis
	}
	return q
}

// Norm2 returns <psi|psi>.
func (s *State) Norm2() float64 {
	return realOf(chainInner(s.legs, s.bonds, nil), "norm")
}

// Bits returns the classical measurement record, keyed by qubit.
func (s *State) Bits() map[int]int {
	return maps.Clone(s.cbits)
}

// Bit returns the classical bit of qubit q, which is zero when unmeasured.
func (s *State) Bit(q int) int {
	return s.cbits[q]
}

// ExpZ returns the latest joint Z expectation value over the measured
// qubits, evaluated on the wavefunction frozen at the first measurement.
func (s *State) ExpZ() float64 {
	return s.expZ
}

// Elapsed returns the accumulated simulated gate time in seconds.
func (s *State) Elapsed() float64 {
	return s.elapsed
}

// Amplitudes contracts the chain and returns the normalized dense amplitude
// vector. The amplitude of |b0 b1 ... b_{n-1}> is at index
// b0*2^{n-1} + b1*2^{n-2} + ... + b_{n-1}, that is, qubit 0 is the most
// significant bit. Components below 1e-12 in either part are snapped to zero
// to suppress truncation noise. The chain itself is left untouched.
//
// The cost is exponential in the number of qubits.
func (s *State) Amplitudes() []complex128 {
	chain := make([]*tensor.Dense, 0, 2*s.n-1)
	for i, leg := range s.legs {
		if i > 0 {
			chain = append(chain, s.bonds[i-1])
		}
		chain = append(chain, leg)
	}
	// full is of shape {1, 2, ..., 2, 1}.
	full := chainProduct(tensor.Zeros(1), chain, tensor.Zeros(1))

	var norm float64
	for _, v := range full.All() {
		norm += float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
	}
	norm = math.Sqrt(norm)

	amps := make([]complex128, 1<<s.n)
	digits := make([]int, s.n+2)
	for i := range amps {
		for q := range s.n {
			digits[1+q] = (i >> (s.n - 1 - q)) & 1
		}
		v := full.At(digits...)

		re, im := float64(real(v))/norm, float64(imag(v))/norm
		if math.Abs(re) < 1e-12 {
			re = 0
		}
		if math.Abs(im) < 1e-12 {
			im = 0
		}
		amps[i] = complex(re, im)
	}
	return amps
}

/*
chainInner carries out the sweep

	f--L        f--
	|  |   ->   |
	f--L        f--

folding one site at a time into the rank 2 environment f. The bra side on
top is conjugated. The ket absorbs the bond to its left, the bra the bond to
its right, so that every bond enters exactly once per side. For sites
present in ops, the operator is spliced onto the bra's physical axis.
See Section 4.2.1 Efficient evaluation of contractions, Ulrich Schollwock.
*/
func chainInner(legs, bonds []*tensor.Dense, ops map[int]*tensor.Dense) complex64 {
	n := len(legs)
	const fTopAxis, fBottomAxis = 0, 1
	f := ones(tensor.Zeros(1), 1, 1)
	bufKet := tensor.Zeros(1)
	bufBra := tensor.Zeros(1)
	bufOp := tensor.Zeros(1)
	bufOpT := tensor.Zeros(1)
	bufF := tensor.Zeros(1)
	for i, leg := range legs {
		ket := leg
		if i > 0 {
			ket = tensor.Product(bufKet, bonds[i-1], leg, [][2]int{{1, mpsLeftAxis}})
		}
		bra := leg
		if i < n-1 {
			bra = tensor.Product(bufBra, leg, bonds[i], [][2]int{{mpsRightAxis, 0}})
		}
		if op, ok := ops[i]; ok {
			braOp := tensor.Product(bufOp, op, bra, [][2]int{{1, mpsUpAxis}})
			bra = resetCopy(bufOpT, braOp.Transpose(1, 0, 2))
		}

		fket := tensor.Product(bufF, f, ket, [][2]int{{fBottomAxis, mpsLeftAxis}})
		f = tensor.Product(f, bra.Conj(), fket, [][2]int{{mpsLeftAxis, fTopAxis}, {mpsUpAxis, mpsUpAxis}})
	}

	if !slices.Equal(f.Shape(), []int{1, 1}) {
		panic(fmt.Sprintf("%#v", f.Shape()))
	}
	return f.At(0, 0)
}

// average returns <psi|op|psi> for a single site operator at qubit q.
func (s *State) average(q int, op *tensor.Dense) float64 {
	return float64(real(chainInner(s.legs, s.bonds, map[int]*tensor.Dense{q: op})))
}

// snapshot freezes the chain before the first measurement, so that
// expectation values refer to the wavefunction prior to any collapse.
func (s *State) snapshot() {
	if s.snapped {
		return
	}
	s.snapLegs = cloneChain(s.legs)
	s.snapBonds = cloneChain(s.bonds)
	s.snapped = true
}

func cloneChain(ts []*tensor.Dense) []*tensor.Dense {
	out := make([]*tensor.Dense, len(ts))
	for i, t := range ts {
		out[i] = resetCopy(tensor.Zeros(1), t)
	}
	return out
}

// chainProduct contracts the tensors in sequence, joining the last axis of
// the running product with the first axis of the next tensor.
func chainProduct(p *tensor.Dense, ts []*tensor.Dense, buf *tensor.Dense) *tensor.Dense {
	prev := buf
	resetCopy(prev, ts[0])
	for _, t := range ts[1:] {
		var cur *tensor.Dense
		if prev == buf {
			cur = p
		} else {
			cur = buf
		}
		axes := [][2]int{{len(prev.Shape()) - 1, 0}}
		tensor.Product(cur, prev, t, axes)

		prev = cur
	}

	if prev != p {
		resetCopy(p, prev)
	}
	return p
}

// realOf returns the real part of v.
// A non negligible imaginary part indicates index bookkeeping gone wrong
// upstream, and is logged as a warning.
func realOf(v complex64, what string) float64 {
	re, im := math.Abs(float64(real(v))), math.Abs(float64(imag(v)))
	if im > imagEps*max(re, 1) {
		log.Printf("warning: %s has imaginary part %g", what, imag(v))
	}
	return float64(real(v))
}

func resetCopy(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}

func ones(t *tensor.Dense, shape ...int) *tensor.Dense {
	t.Reset(shape...)
	for ijk := range t.All() {
		t.SetAt(ijk, 1)
	}
	return t
}

func abs(x complex64) float32 {
	return float32(cmplx.Abs(complex128(x)))
}
