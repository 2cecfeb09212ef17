// Package qsim runs quantum circuits against interchangeable simulation
// backends.
//
// A backend walks a circuit's instruction stream once from |0...0> and
// reports the classical measurement record. Sampling repeats runs to tally
// outcome frequencies, from which the joint Z expectation value of the
// measured qubits is estimated.
package qsim

import (
	"fmt"
	"log"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/fumin/qsim/circuit"
)

// Backend simulates quantum circuits.
type Backend interface {
	// Name returns the registered name of the backend.
	Name() string
	// Run walks the circuit once from |0...0> and returns its outcome.
	// Runs on the same backend share one random number stream, so a
	// sequence of runs is reproducible from the configured seed.
	Run(c *circuit.Circuit) (*Result, error)
}

// Result is the outcome of one run of a circuit.
type Result struct {
	// Bits is the classical measurement record, keyed by qubit.
	Bits map[int]int
	// ExpZ is the joint Z expectation value over the measured qubits,
	// evaluated on the wavefunction frozen at the first measurement.
	ExpZ float64
	// Elapsed is the simulated gate time in seconds.
	// Backends without a timing model report zero.
	Elapsed float64
}

// Config is the run configuration shared by all backends.
// Fields irrelevant to a backend are ignored by it.
type Config struct {
	// Verbose enables logging of every applied instruction.
	Verbose bool
	// SingleQubitGateTime is the simulated duration in seconds of a
	// single qubit gate.
	SingleQubitGateTime float64
	// TwoQubitGateTime is the simulated duration in seconds of a two
	// qubit gate. Measurements are charged at this rate, too.
	TwoQubitGateTime float64
	// SVDCutoff is the truncation error of two qubit gates.
	SVDCutoff float64
	// Seed seeds the random number generator drawing measurement
	// outcomes. Zero seeds from the wall clock.
	Seed uint64
}

// NewConfig returns the default run configuration.
func NewConfig() Config {
	cfg := Config{}
	cfg.SingleQubitGateTime = 1e-8
	cfg.TwoQubitGateTime = 1e-7
	cfg.SVDCutoff = 1e-4
	return cfg
}

func (cfg Config) newRand() *rand.Rand {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, 0))
}

var backends = make(map[string]func(cfg Config) Backend)

// Register makes a backend constructor available to New.
// It panics if the name is already taken.
func Register(name string, factory func(cfg Config) Backend) {
	if _, ok := backends[name]; ok {
		panic(name)
	}
	backends[name] = factory
}

// New returns a newly configured backend.
func New(name string, cfg Config) (Backend, error) {
	factory, ok := backends[name]
	if !ok {
		return nil, errors.Errorf("unknown backend %q, have %v", name, Backends())
	}
	return factory(cfg), nil
}

// Backends returns the registered backend names in ascending order.
func Backends() []string {
	return slices.Sorted(maps.Keys(backends))
}

// Counts tallies measured bitstrings over repeated runs.
// A bitstring lists the bits of the measured qubits in ascending qubit
// order.
type Counts map[string]int

// Sample runs the circuit shots times and tallies the measured bitstrings.
func Sample(b Backend, c *circuit.Circuit, shots int) (Counts, error) {
	measured := c.Measured()
	counts := make(Counts)
	throttler := newSkipThrottler(10 * time.Second)
	for i := range shots {
		res, err := b.Run(c)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("shot %d", i))
		}
		counts[bitstring(measured, res.Bits)]++

		if throttler.ok() {
			log.Printf("%d/%d %.2f", i, shots, float64(i)/float64(shots))
		}
	}
	return counts, nil
}

// bitstring formats the classical bits of the given qubits, in order.
func bitstring(qubits []int, bits map[int]int) string {
	b := make([]byte, len(qubits))
	for i, q := range qubits {
		b[i] = byte('0' + bits[q])
	}
	return string(b)
}

// Statistics summarizes sampled counts.
type Statistics struct {
	// Shots is the total number of tallied runs.
	Shots int
	// ExpZ estimates the joint Z expectation value over the measured
	// qubits as the mean bitstring parity.
	ExpZ float64
	// StdDev is the sample standard deviation of the per shot parity.
	StdDev float64
	// StdErr is the standard error of the ExpZ estimate.
	StdErr float64
}

// GetStatistics estimates the joint Z expectation value of the measured
// qubits from sampled counts. Each shot contributes the parity
// (-1)^popcount of its bitstring.
func GetStatistics(counts Counts) Statistics {
	parities := make([]float64, 0, len(counts))
	weights := make([]float64, 0, len(counts))
	stats := Statistics{}
	for bs, cnt := range counts {
		parities = append(parities, parity(bs))
		weights = append(weights, float64(cnt))
		stats.Shots += cnt
	}
	stats.ExpZ = stat.Mean(parities, weights)
	stats.StdDev = stat.StdDev(parities, weights)
	stats.StdErr = stat.StdErr(stats.StdDev, float64(stats.Shots))
	return stats
}

// parity returns (-1)^popcount of a bitstring.
func parity(bits string) float64 {
	p := 1.0
	for _, b := range bits {
		if b == '1' {
			p = -p
		}
	}
	return p
}

// skipThrottler rate limits progress logging.
type skipThrottler struct {
	d    time.Duration
	last time.Time
}

func newSkipThrottler(d time.Duration) *skipThrottler {
	return &skipThrottler{d: d, last: time.Date(0, 0, 0, 0, 0, 0, 0, time.UTC)}
}

func (tt *skipThrottler) ok() bool {
	now := time.Now()
	if now.Before(tt.last.Add(tt.d)) {
		return false
	}

	tt.last = time.Now()
	return true
}
