package mps

import (
	"fmt"
	"log"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/fumin/qsim/circuit"
)

// Measure measures qubit q in the computational basis and collapses the
// state onto the drawn outcome. The first measurement freezes a snapshot of
// the wavefunction; the joint Z expectation value over all measured qubits
// is reevaluated on that snapshot after every measurement, see ExpZ.
//
// The collapsed chain is left unnormalized.
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

	p0 := s.average(q, tensor.T2(projector0)) / s.Norm2()
	var bit int
	if s.opt.rng.Float64() < p0 {
		s.contract1(q, tensor.T2(projector0))
	} else {
		bit = 1
		s.contract1(q, tensor.T2(projector1))
	}
	s.cbits[q] = bit

	s.elapsed += s.opt.twoQubitTime
	return bit
}

// measuredZ returns the expectation value of the joint Z observable over the
// measured qubits, taken on the snapshot frozen at the first measurement.
func (s *State) measuredZ() float64 {
	ops := make(map[int]*tensor.Dense, len(s.measured))
	for q := range s.measured {
		ops[q] = tensor.T2(pauliZ)
	}
	return realOf(chainInner(s.snapLegs, s.snapBonds, ops), "expectation value")
}

// ExpectationZ runs a measurement subcircuit against the current state and
// returns the Z basis expectation value it defines. The state is restored
// afterwards, so several subcircuits can be evaluated against the same
// wavefunction. Simulated gate time keeps accumulating across calls.
func (s *State) ExpectationZ(gates []circuit.Gate) (float64, error) {
	entryLegs := cloneChain(s.legs)
	entryBonds := cloneChain(s.bonds)

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

	s.legs, s.bonds = entryLegs, entryBonds
	s.snapped = false
	s.snapLegs, s.snapBonds = nil, nil
	clear(s.measured)
	clear(s.cbits)

	if walkErr != nil {
		return 0, walkErr
	}
	return expZ, nil
}
