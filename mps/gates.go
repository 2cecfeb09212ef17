package mps

import (
	"fmt"
	"log"
	"math"
	"math/cmplx"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/fumin/qsim/circuit"
)

// halfSqrt2 is 1/sqrt(2).
const halfSqrt2 = 0.7071067811865476

var (
	hadamard = [][]complex64{
		{halfSqrt2, halfSqrt2},
		{halfSqrt2, -halfSqrt2},
	}
	pauliX = [][]complex64{
		{0, 1},
		{1, 0},
	}
	pauliY = [][]complex64{
		{0, -1i},
		{1i, 0},
	}
	pauliZ = [][]complex64{
		{1, 0},
		{0, -1},
	}
	projector0 = [][]complex64{
		{1, 0},
		{0, 0},
	}
	projector1 = [][]complex64{
		{0, 0},
		{0, 1},
	}
)

func expi(theta float64) complex64 {
	return complex64(cmplx.Exp(complex(0, theta)))
}

func rotationX(theta float64) *tensor.Dense {
	c := complex64(complex(math.Cos(theta/2), 0))
	s := complex64(complex(0, -math.Sin(theta/2)))
	return tensor.T2([][]complex64{
		{c, s},
		{s, c},
	})
}

func rotationY(theta float64) *tensor.Dense {
	c := complex64(complex(math.Cos(theta/2), 0))
	s := complex64(complex(math.Sin(theta/2), 0))
	return tensor.T2([][]complex64{
		{c, -s},
		{s, c},
	})
}

func rotationZ(theta float64) *tensor.Dense {
	return tensor.T2([][]complex64{
		{expi(-theta / 2), 0},
		{0, expi(theta / 2)},
	})
}

// unitary is the generic single qubit rotation U(theta, phi, lambda).
func unitary(theta, phi, lambda float64) *tensor.Dense {
	c := complex64(complex(math.Cos(theta/2), 0))
	s := complex64(complex(math.Sin(theta/2), 0))
	return tensor.T2([][]complex64{
		{c, -s * expi(lambda)},
		{s * expi(phi), c * expi(phi + lambda)},
	})
}

// cnotTensor returns the CNOT gate as a rank 4 tensor of axes
// {control out, target out, control in, target in}.
func cnotTensor() *tensor.Dense {
	g := tensor.Zeros(2, 2, 2, 2)
	for c := range 2 {
		for t := range 2 {
			out := t
			if c == 1 {
				out = 1 - t
			}
			g.SetAt([]int{c, out, c, t}, 1)
		}
	}
	return g
}

// swapTensor returns the SWAP gate as a rank 4 tensor.
func swapTensor() *tensor.Dense {
	g := tensor.Zeros(2, 2, 2, 2)
	for a := range 2 {
		for b := range 2 {
			g.SetAt([]int{b, a, a, b}, 1)
		}
	}
	return g
}

// Apply applies one gate to the state.
// Disabled gates are skipped. CZ and CPhase have no two site tensor
// implementation here and are reported as unsupported.
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

	switch g.Kind {
	case circuit.KindH:
		s.apply1(g.Qubits[0], tensor.T2(hadamard))
	case circuit.KindX:
		s.apply1(g.Qubits[0], tensor.T2(pauliX))
	case circuit.KindY:
		s.apply1(g.Qubits[0], tensor.T2(pauliY))
	case circuit.KindZ:
		s.apply1(g.Qubits[0], tensor.T2(pauliZ))
	case circuit.KindRX:
		s.apply1(g.Qubits[0], rotationX(g.Params[0]))
	case circuit.KindRY:
		s.apply1(g.Qubits[0], rotationY(g.Params[0]))
	case circuit.KindRZ:
		s.apply1(g.Qubits[0], rotationZ(g.Params[0]))
	case circuit.KindU:
		s.apply1(g.Qubits[0], unitary(g.Params[0], g.Params[1], g.Params[2]))
	case circuit.KindCX:
		s.apply2(g.Qubits[0], g.Qubits[1], cnotTensor())
	case circuit.KindSwap:
		s.apply2(g.Qubits[0], g.Qubits[1], swapTensor())
	case circuit.KindMeasure:
		s.Measure(g.Qubits[0])
	case circuit.KindCZ, circuit.KindCP:
		return errors.Errorf("%v not supported", g.Kind)
	default:
		return errors.Errorf("%#v", g)
	}
	return nil
}

func (s *State) apply1(q int, tG *tensor.Dense) {
	s.contract1(q, tG)
	s.elapsed += s.opt.singleQubitTime
}

// contract1 contracts a {out, in} matrix against qubit q's physical axis.
func (s *State) contract1(q int, tG *tensor.Dense) {
	prod := tensor.Product(tensor.Zeros(1), tG, s.legs[q], [][2]int{{1, s.physAxis(q)}})
	s.legs[q] = resetCopy(tensor.Zeros(1), prod.Transpose(1, 0, 2))
}

// apply2 applies a two qubit gate whose in0 axis acts on q0.
// Non neighboring qubits are first brought next to each other by swapping,
// and the swaps are undone afterwards.
func (s *State) apply2(q0, q1 int, tG *tensor.Dense) {
	in0, in1 := q0, q1
	switch {
	case q0 < q1-1:
		s.permute(q0, q1-1)
		in0, in1 = q1-1, q1
	case q1 < q0-1:
		s.permute(q1, q0-1)
		in0, in1 = q0, q0-1
	}

	s.contract2(in0, in1, tG)

	switch {
	case q0 < q1-1:
		s.permute(q1-1, q0)
	case q1 < q0-1:
		s.permute(q0-1, q1)
	}
}

// permute moves the qubit at site from to site to by swapping neighbors.
func (s *State) permute(from, to int) {
	if s.opt.verbose {
		log.Printf("permute %d to %d", from, to)
	}
	delta := 1
	if from > to {
		delta = -1
	}
	for i := from; i != to; i += delta {
		s.contract2(i, i+delta, swapTensor())
	}
}

// contract2 applies a rank 4 gate tensor {out0, out1, in0, in1} to the
// neighboring sites q0 and q1, where in0 acts on q0. The merged two site
// tensor is split back into (leg, bond, leg) by a truncated singular value
// decomposition, which is where bond dimensions grow and get cut.
func (s *State) contract2(q0, q1 int, tG *tensor.Dense) {
	lo, hi := min(q0, q1), max(q0, q1)
	if hi-lo != 1 {
		panic(fmt.Sprintf("%d %d", q0, q1))
	}

	bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	lb := tensor.Product(bufs[0], s.legs[lo], s.bonds[lo], [][2]int{{mpsRightAxis, 0}})
	lbl := tensor.Product(bufs[1], lb, s.legs[hi], [][2]int{{2, mpsLeftAxis}})

	// Contract the gate inputs against the physical axes, and restore the
	// {left, phys, phys, right} axis order.
	var merged *tensor.Dense
	if q0 == lo {
		merged = tensor.Product(bufs[0], tG, lbl, [][2]int{{2, 1}, {3, 2}}).Transpose(2, 0, 1, 3)
	} else {
		merged = tensor.Product(bufs[0], tG, lbl, [][2]int{{2, 2}, {3, 1}}).Transpose(2, 1, 0, 3)
	}
	m := resetCopy(tensor.Zeros(1), merged)
	shape := m.Shape()
	leftD, rightD := shape[0], shape[3]

	u, bond, v := svdTrunc(m.Reshape(leftD*2, 2*rightD), s.opt.svdCutoff)
	s.legs[lo] = u.Reshape(leftD, 2, -1)
	s.bonds[lo] = bond
	s.legs[hi] = v.Reshape(-1, 2, rightD)

	s.elapsed += s.opt.twoQubitTime
}
