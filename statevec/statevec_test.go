package statevec

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/qsim/circuit"
)

func TestOneQubitGates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		gates []circuit.Gate
		amps  []complex128
	}{
		{
			gates: []circuit.Gate{circuit.H(0)},
			amps:  []complex128{halfSqrt2, halfSqrt2},
		},
		{
			gates: []circuit.Gate{circuit.X(0)},
			amps:  []complex128{0, 1},
		},
		{
			gates: []circuit.Gate{circuit.Y(0)},
			amps:  []complex128{0, 1i},
		},
		{
			gates: []circuit.Gate{circuit.X(0), circuit.Z(0)},
			amps:  []complex128{0, -1},
		},
		{
			gates: []circuit.Gate{circuit.RX(0, math.Pi)},
			amps:  []complex128{0, -1i},
		},
		{
			gates: []circuit.Gate{circuit.RY(0, math.Pi / 2)},
			amps:  []complex128{halfSqrt2, halfSqrt2},
		},
		{
			gates: []circuit.Gate{circuit.H(0), circuit.RZ(0, math.Pi / 2)},
			amps:  []complex128{complex(0.5, -0.5), complex(0.5, 0.5)},
		},
		{
			gates: []circuit.Gate{circuit.X(0), circuit.U(0, math.Pi/2, 0, math.Pi)},
			amps:  []complex128{halfSqrt2, -halfSqrt2},
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.gates), func(t *testing.T) {
			t.Parallel()
			s := New(1)
			applyAll(t, s, test.gates)
			if got := s.Amplitudes(); !cmplxs.EqualApprox(got, test.amps, 1e-12) {
				t.Fatalf("%v, expected %v", got, test.amps)
			}
		})
	}
}

func TestTwoQubitGates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		gates []circuit.Gate
		amps  []complex128
	}{
		{
			gates: []circuit.Gate{circuit.H(0), circuit.CX(0, 1)},
			amps:  []complex128{halfSqrt2, 0, 0, halfSqrt2},
		},
		// Control on the least significant qubit.
		{
			gates: []circuit.Gate{circuit.X(1), circuit.CX(1, 0)},
			amps:  []complex128{0, 0, 0, 1},
		},
		{
			gates: []circuit.Gate{circuit.H(0), circuit.H(1), circuit.CZ(0, 1)},
			amps:  []complex128{0.5, 0.5, 0.5, -0.5},
		},
		{
			gates: []circuit.Gate{circuit.H(0), circuit.H(1), circuit.CP(0, 1, math.Pi/2)},
			amps:  []complex128{0.5, 0.5, 0.5, 0.5i},
		},
		{
			gates: []circuit.Gate{circuit.X(0), circuit.Swap(0, 1)},
			amps:  []complex128{0, 1, 0, 0},
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.gates), func(t *testing.T) {
			t.Parallel()
			s := New(2)
			applyAll(t, s, test.gates)
			if got := s.Amplitudes(); !cmplxs.EqualApprox(got, test.amps, 1e-12) {
				t.Fatalf("%v, expected %v", got, test.amps)
			}
		})
	}
}

func TestAmplitudesOrdering(t *testing.T) {
	t.Parallel()
	tests := []struct {
		gates []circuit.Gate
		basis int
	}{
		{gates: []circuit.Gate{circuit.X(0)}, basis: 0b100},
		{gates: []circuit.Gate{circuit.X(2)}, basis: 0b001},
		{gates: []circuit.Gate{circuit.X(0), circuit.X(1)}, basis: 0b110},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.gates), func(t *testing.T) {
			t.Parallel()
			s := New(3)
			applyAll(t, s, test.gates)
			amps := make([]complex128, 1<<3)
			amps[test.basis] = 1
			if got := s.Amplitudes(); !cmplxs.EqualApprox(got, amps, 1e-12) {
				t.Fatalf("%v, expected %v", got, amps)
			}
		})
	}
}

func TestUnitarity(t *testing.T) {
	t.Parallel()
	s := New(3)
	applyAll(t, s, []circuit.Gate{
		circuit.H(0),
		circuit.RX(1, 0.3),
		circuit.U(2, 1.0, 0.5, -0.2),
		circuit.CX(0, 1),
		circuit.CZ(1, 2),
		circuit.CP(0, 2, 0.9),
		circuit.Swap(0, 2),
		circuit.RY(0, -1.1),
		circuit.RZ(2, 2.2),
		circuit.Y(1),
		circuit.Z(0),
		circuit.X(2),
	})
	if got := s.Norm2(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("%f", got)
	}
}

func TestDeterministicCollapse(t *testing.T) {
	t.Parallel()
	for seed := 1; seed <= 5; seed++ {
		t.Run(fmt.Sprintf("%d", seed), func(t *testing.T) {
			t.Parallel()
			rng := rand.New(rand.NewPCG(uint64(seed), 0))
			s := New(1, NewOptions().Rand(rng))
			applyAll(t, s, []circuit.Gate{circuit.X(0)})
			if bit := s.Measure(0); bit != 1 {
				t.Fatalf("%d", bit)
			}
			if bit := s.Bit(0); bit != 1 {
				t.Fatalf("%d", bit)
			}
			if got := s.ExpZ(); got != -1 {
				t.Fatalf("%f", got)
			}
			if got := s.Norm2(); got != 1 {
				t.Fatalf("%f", got)
			}
		})
	}
}

func TestMeasureCollapse(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 0))
	s := New(2, NewOptions().Rand(rng))
	applyAll(t, s, []circuit.Gate{circuit.H(0), circuit.CX(0, 1)})

	b0 := s.Measure(0)
	b1 := s.Measure(1)
	if b0 != b1 {
		t.Fatalf("%d %d", b0, b1)
	}
	if got := s.Norm2(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("%f", got)
	}
	if got := s.ExpZ(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("%f", got)
	}
	amps := make([]complex128, 1<<2)
	amps[b0<<1|b1] = 1
	if got := s.Amplitudes(); !cmplxs.EqualApprox(got, amps, 1e-12) {
		t.Fatalf("%v, expected %v", got, amps)
	}

	// Remeasuring a collapsed qubit changes nothing.
	if again := s.Measure(0); again != b0 {
		t.Fatalf("%d, expected %d", again, b0)
	}
	if got := s.Norm2(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("%f", got)
	}
}

func TestMeasureStatistics(t *testing.T) {
	t.Parallel()
	counts := make(map[int]int)
	for i := range 200 {
		rng := rand.New(rand.NewPCG(uint64(i+1), 0))
		s := New(2, NewOptions().Rand(rng))
		applyAll(t, s, []circuit.Gate{circuit.H(0), circuit.CX(0, 1)})
		b0 := s.Measure(0)
		b1 := s.Measure(1)
		if b0 != b1 {
			t.Fatalf("%d: %d %d", i, b0, b1)
		}
		counts[b0]++
	}
	if counts[0] < 40 || counts[1] < 40 {
		t.Fatalf("%v", counts)
	}
}

func TestExpectationZ(t *testing.T) {
	t.Parallel()
	s := New(1)
	applyAll(t, s, []circuit.Gate{circuit.RY(0, 0.7)})
	entry := slices.Clone(s.amp)

	for range 2 {
		got, err := s.ExpectationZ([]circuit.Gate{circuit.Measure(0)})
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if want := math.Cos(0.7); math.Abs(got-want) > 1e-12 {
			t.Fatalf("%f, expected %f", got, want)
		}
	}
	if !slices.Equal(s.amp, entry) {
		t.Fatalf("%v, expected %v", s.amp, entry)
	}
	if len(s.measured) != 0 || len(s.cbits) != 0 || s.snapped || s.snap != nil {
		t.Fatalf("%#v", s)
	}
}

func TestExpectationZBell(t *testing.T) {
	t.Parallel()
	s := New(2)
	got, err := s.ExpectationZ(circuit.Bell().Gates)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(got-1) > 1e-12 {
		t.Fatalf("%f", got)
	}
	amps := []complex128{1, 0, 0, 0}
	if !cmplxs.EqualApprox(s.Amplitudes(), amps, 1e-12) {
		t.Fatalf("%v", s.Amplitudes())
	}
}

func TestExpectationZError(t *testing.T) {
	t.Parallel()
	s := New(2)
	applyAll(t, s, []circuit.Gate{circuit.H(0)})
	entry := slices.Clone(s.amp)

	if _, err := s.ExpectationZ([]circuit.Gate{circuit.H(9)}); err == nil {
		t.Fatalf("no error")
	}
	if !slices.Equal(s.amp, entry) {
		t.Fatalf("%v, expected %v", s.amp, entry)
	}
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()
	tests := []circuit.Gate{
		circuit.H(5),
		circuit.CX(0, 5),
		{Kind: circuit.KindRX, Qubits: []int{0}},
		{Kind: circuit.Kind(99)},
	}
	for _, g := range tests {
		t.Run(g.String(), func(t *testing.T) {
			t.Parallel()
			s := New(2)
			if err := s.Apply(g); err == nil {
				t.Fatalf("no error")
			}
			amps := []complex128{1, 0, 0, 0}
			if got := s.Amplitudes(); !cmplxs.EqualApprox(got, amps, 1e-12) {
				t.Fatalf("%v", got)
			}
		})
	}
}

func TestDisabledGate(t *testing.T) {
	t.Parallel()
	s := New(1)
	g := circuit.X(0)
	g.Disabled = true
	if err := s.Apply(g); err != nil {
		t.Fatalf("%+v", err)
	}
	m := circuit.Measure(0)
	m.Disabled = true
	if err := s.Apply(m); err != nil {
		t.Fatalf("%+v", err)
	}
	amps := []complex128{1, 0}
	if got := s.Amplitudes(); !cmplxs.EqualApprox(got, amps, 1e-12) {
		t.Fatalf("%v", got)
	}
	if bits := s.Bits(); len(bits) != 0 {
		t.Fatalf("%v", bits)
	}
}

func applyAll(t *testing.T, s *State, gates []circuit.Gate) {
	t.Helper()
	for _, g := range gates {
		if err := s.Apply(g); err != nil {
			t.Fatalf("%+v", err)
		}
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)
	m.Run()
}
