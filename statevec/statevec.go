// Package statevec simulates quantum circuits on dense state vectors.
//
// Gates act on the full 2^n amplitude vector in complex128 without any
// approximation, which makes the package the exact reference for small
// registers. Operators are assembled in sparse coordinate format, one
// Kronecker factor per qubit, so applying a gate costs O(2^n).
package statevec

import (
	"fmt"
	"log"
	"maps"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/qsim/circuit"
)

// halfSqrt2 is 1/sqrt(2).
const halfSqrt2 = 0.7071067811865476

var identity = [][]complex128{
	{1, 0},
	{0, 1},
}

// Options are options of a simulation.
type Options struct {
	verbose bool
	rng     *rand.Rand
}

// NewOptions returns the default simulation options.
func NewOptions() Options {
	return Options{}
}

// Verbose enables logging of every applied instruction.
func (opt Options) Verbose(v bool) Options {
	opt.verbose = v
	return opt
}

// Rand sets the random number generator that draws measurement outcomes.
func (opt Options) Rand(rng *rand.Rand) Options {
	opt.rng = rng
	return opt
}

// State is the dense state vector of a register of qubits.
// The amplitude of |b0 b1 ... b_{n-1}> lives at index
// b0*2^{n-1} + ... + b_{n-1}, that is, qubit 0 is the most significant bit.
//
// Like its matrix product state counterpart, a collapse does not
// renormalize, and the first measurement freezes a snapshot of the
// wavefunction on which the joint Z expectation value is evaluated.
// A State is not safe for concurrent use.
type State struct {
	n   int
	amp []complex128
	buf []complex128

	snapped  bool
	snap     []complex128
	measured map[int]bool
	cbits    map[int]int
	expZ     float64

	opt Options
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
	s.amp = make([]complex128, 1<<n)
	s.amp[0] = 1
	s.buf = make([]complex128, 1<<n)
	s.measured = make(map[int]bool)
	s.cbits = make(map[int]int)
	return s
}

func gate1(g circuit.Gate) ([][]complex128, bool) {
	switch g.Kind {
	case circuit.KindH:
		return [][]complex128{
			{halfSqrt2, halfSqrt2},
			{halfSqrt2, -halfSqrt2},
		}, true
	case circuit.KindX:
		return [][]complex128{
			{0, 1},
			{1, 0},
		}, true
	case circuit.KindY:
		return [][]complex128{
			{0, -1i},
			{1i, 0},
		}, true
	case circuit.KindZ:
		return [][]complex128{
			{1, 0},
			{0, -1},
		}, true
	case circuit.KindRX:
		c := complex(math.Cos(g.Params[0]/2), 0)
		s := complex(0, -math.Sin(g.Params[0]/2))
		return [][]complex128{
			{c, s},
			{s, c},
		}, true
	case circuit.KindRY:
		c := complex(math.Cos(g.Params[0]/2), 0)
		s := complex(math.Sin(g.Params[0]/2), 0)
		return [][]complex128{
			{c, -s},
			{s, c},
		}, true
	case circuit.KindRZ:
		return [][]complex128{
			{expi(-g.Params[0] / 2), 0},
			{0, expi(g.Params[0] / 2)},
		}, true
	case circuit.KindU:
		theta, phi, lambda := g.Params[0], g.Params[1], g.Params[2]
		c := complex(math.Cos(theta/2), 0)
		s := complex(math.Sin(theta/2), 0)
		return [][]complex128{
			{c, -s * expi(lambda)},
			{s * expi(phi), c * expi(phi + lambda)},
		}, true
	}
	return nil, false
}

func expi(theta float64) complex128 {
	return cmplx.Exp(complex(0, theta))
}

// Apply applies one gate to the state. Disabled gates are skipped.
func (s *State) Apply(g circuit.Gate) error {
	if g.Disabled {
		return nil
	}
	if len(g.Qubits) != g.Kind.NumQubits() || len(g.Params) != g.Kind.NumParams() {
		return errors.Errorf("%#v", g)
	}
	for _, q := range g.Qubits {
		if q < 0 || q >= s.n {
			return errors.Errorf("%v n=%d", g, s.n)
		}
	}
	if s.opt.verbose && g.Kind != circuit.KindMeasure {
		log.Printf("applying %v", g)
	}

	if g.Kind == circuit.KindMeasure {
		s.Measure(g.Qubits[0])
		return nil
	}

	var op *coo
	if dense, ok := gate1(g); ok {
		op = s.operator1(g.Qubits[0], dense)
	} else {
		switch g.Kind {
		case circuit.KindCX, circuit.KindCZ, circuit.KindCP, circuit.KindSwap:
			op = s.operator2(g)
		default:
			return errors.Errorf("%#v", g)
		}
	}
	op.apply(s.buf, s.amp)
	s.amp, s.buf = s.buf, s.amp
	return nil
}

// operator1 lifts a single qubit gate to the full register, with qubit 0 as
// the most significant Kronecker factor.
func (s *State) operator1(q int, dense [][]complex128) *coo {
	op := newCOO([][]complex128{{1}})
	for i := range s.n {
		var factor [][]complex128
		switch i {
		case q:
			factor = dense
		default:
			factor = identity
		}
		op.kron(newCOO(factor))
	}
	return op
}

// operator2 builds the full register operator of a two qubit gate directly,
// one column per basis state.
func (s *State) operator2(g circuit.Gate) *coo {
	m0, m1 := s.mask(g.Qubits[0]), s.mask(g.Qubits[1])
	dim := 1 << s.n
	op := &coo{rows: dim, cols: dim, data: make([]vRowCol, 0, dim)}
	for c := range dim {
		v, r := complex128(1), c
		switch g.Kind {
		case circuit.KindCX:
			if c&m0 != 0 {
				r = c ^ m1
			}
		case circuit.KindCZ:
			if c&m0 != 0 && c&m1 != 0 {
				v = -1
			}
		case circuit.KindCP:
			if c&m0 != 0 && c&m1 != 0 {
				v = expi(g.Params[0])
			}
		case circuit.KindSwap:
			if (c&m0 != 0) != (c&m1 != 0) {
				r = c ^ m0 ^ m1
			}
		default:
			panic(fmt.Sprintf("%#v", g))
		}
		op.data = append(op.data, vRowCol{v: v, row: r, col: c})
	}
	return op
}

// mask returns the index bit of qubit q.
func (s *State) mask(q int) int {
	return 1 << (s.n - 1 - q)
}

// Measure measures qubit q in the computational basis and collapses the
// state onto the drawn outcome, without renormalizing.
func (s *State) Measure(q int) int {
	if q < 0 || q >= s.n {
		panic(fmt.Sprintf("%d %d", q, s.n))
	}
	s.snapshot()
	s.measured[q] = true
	s.expZ = s.measuredZ()
	if s.opt.verbose {
		log.Printf("applying measure @ %d, %f", q, s.expZ)
	}

	mask := s.mask(q)
	var p0, norm float64
	for i, a := range s.amp {
		p := real(a)*real(a) + imag(a)*imag(a)
		norm += p
		if i&mask == 0 {
			p0 += p
		}
	}
	p0 /= norm

	bit := 0
	keep := 0
	if s.opt.rng.Float64() >= p0 {
		bit = 1
		keep = mask
	}
	for i := range s.amp {
		if i&mask != keep {
			s.amp[i] = 0
		}
	}
	s.cbits[q] = bit
	return bit
}

// measuredZ returns the expectation value of the joint Z observable over the
// measured qubits, taken on the snapshot frozen at the first measurement.
func (s *State) measuredZ() float64 {
	var exp float64
	for i, a := range s.snap {
		z := 1.0
		for q := range s.measured {
			if i&s.mask(q) != 0 {
				z = -z
			}
		}
		exp += z * (real(a)*real(a) + imag(a)*imag(a))
	}
	return exp
}

func (s *State) snapshot() {
	if s.snapped {
		return
	}
	s.snap = slices.Clone(s.amp)
	s.snapped = true
}

// ExpectationZ runs a measurement subcircuit against the current state and
// returns the Z basis expectation value it defines. The state is restored
// afterwards.
func (s *State) ExpectationZ(gates []circuit.Gate) (float64, error) {
	entry := slices.Clone(s.amp)

	var walkErr error
	for _, g := range gates {
		if g.Disabled {
			continue
		}
		if err := s.Apply(g); err != nil {
			walkErr = errors.Wrap(err, "")
			break
		}
	}
	expZ := s.expZ

	s.amp = entry
	s.snapped = false
	s.snap = nil
	clear(s.measured)
	clear(s.cbits)

	if walkErr != nil {
		return 0, walkErr
	}
	return expZ, nil
}

// Norm2 returns <psi|psi>.
func (s *State) Norm2() float64 {
	var norm float64
	for _, a := range s.amp {
		norm += real(a)*real(a) + imag(a)*imag(a)
	}
	return norm
}

// Amplitudes returns the normalized amplitude vector.
func (s *State) Amplitudes() []complex128 {
	amps := slices.Clone(s.amp)
	cmplxs.Scale(complex(1/math.Sqrt(s.Norm2()), 0), amps)
	return amps
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
