package qsim

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/fumin/qsim/circuit"
	"github.com/fumin/qsim/mps"
	"github.com/fumin/qsim/statevec"
)

func init() {
	Register("mps", newMPSBackend)
	Register("statevec", newStatevecBackend)
}

// mpsBackend simulates circuits on matrix product states.
type mpsBackend struct {
	cfg Config
	rng *rand.Rand
}

func newMPSBackend(cfg Config) Backend {
	return &mpsBackend{cfg: cfg, rng: cfg.newRand()}
}

func (b *mpsBackend) Name() string {
	return "mps"
}

func (b *mpsBackend) Run(c *circuit.Circuit) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	opt := mps.NewOptions().
		Verbose(b.cfg.Verbose).
		SingleQubitGateTime(b.cfg.SingleQubitGateTime).
		TwoQubitGateTime(b.cfg.TwoQubitGateTime).
		SVDCutoff(b.cfg.SVDCutoff).
		Rand(b.rng)
	s := mps.New(c.NumQubits, opt)
	for _, g := range c.Gates {
		if err := s.Apply(g); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%v", g))
		}
	}
	return &Result{Bits: s.Bits(), ExpZ: s.ExpZ(), Elapsed: s.Elapsed()}, nil
}

// statevecBackend simulates circuits on dense state vectors.
// It has no timing model and reports zero elapsed time.
type statevecBackend struct {
	cfg Config
	rng *rand.Rand
}

func newStatevecBackend(cfg Config) Backend {
	return &statevecBackend{cfg: cfg, rng: cfg.newRand()}
}

func (b *statevecBackend) Name() string {
	return "statevec"
}

func (b *statevecBackend) Run(c *circuit.Circuit) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	opt := statevec.NewOptions().
		Verbose(b.cfg.Verbose).
		Rand(b.rng)
	s := statevec.New(c.NumQubits, opt)
	for _, g := range c.Gates {
		if err := s.Apply(g); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%v", g))
		}
	}
	return &Result{Bits: s.Bits(), ExpZ: s.ExpZ()}, nil
}
