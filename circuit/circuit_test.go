package circuit

import (
	"flag"
	"fmt"
	"log"
	"math"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		circuit *Circuit
		ok      bool
	}{
		{circuit: New(2, H(0), CX(0, 1), Measure(0)), ok: true},
		{circuit: New(3, U(2, math.Pi, 0, math.Pi), Swap(0, 2)), ok: true},
		{circuit: New(0), ok: false},
		{circuit: New(2, H(5)), ok: false},
		{circuit: New(2, CX(1, 1)), ok: false},
		{circuit: New(2, Gate{Kind: KindRX, Qubits: []int{0}}), ok: false},
		{circuit: New(2, Gate{Kind: Kind(99), Qubits: []int{0}}), ok: false},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			err := test.circuit.Validate()
			if (err == nil) != test.ok {
				t.Fatalf("%+v", err)
			}
		})
	}
}

func TestGateString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		gate Gate
		s    string
	}{
		{gate: H(0), s: "h q[0]"},
		{gate: RZ(3, 0.5), s: "rz(0.5) q[3]"},
		{gate: U(1, 0.5, 0.25, 0.125), s: "u3(0.5, 0.25, 0.125) q[1]"},
		{gate: CX(0, 2), s: "cx q[0], q[2]"},
		{gate: Measure(1), s: "measure q[1] -> c[1]"},
	}
	for _, test := range tests {
		t.Run(test.s, func(t *testing.T) {
			t.Parallel()
			if got := test.gate.String(); got != test.s {
				t.Fatalf("%q, expected %q", got, test.s)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	src := `
OPENQASM 2.0;
include "qelib1.inc";

qreg q[3];
creg c[3];

h q[0];
cx q[0], q[1];
rx(pi/2) q[2]; // comment after a statement
u3(pi, 0, pi) q[2];
swap q[1], q[2];
cp(-pi/4) q[0], q[1];
// a full line comment
measure q[0] -> c[0];
measure q[2] -> c[2];
`
	c, err := Parse(src)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if c.NumQubits != 3 {
		t.Fatalf("%d", c.NumQubits)
	}
	want := []Gate{
		H(0),
		CX(0, 1),
		RX(2, math.Pi/2),
		U(2, math.Pi, 0, math.Pi),
		Swap(1, 2),
		CP(0, 1, -math.Pi/4),
		Measure(0),
		Measure(2),
	}
	if !reflect.DeepEqual(c.Gates, want) {
		t.Fatalf("%#v, expected %#v", c.Gates, want)
	}
	if got := c.Measured(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Fatalf("%#v", got)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tests := []string{
		"qreg q[2];\nfoo q[0];",
		"qreg q[2];\nh q[0], q[1];",
		"qreg q[2];\nrx(bad) q[0];",
		"qreg q[2];\nrx(pi/0) q[0];",
		"h q[0];",
		"qreg q[1];\ncx q[0], q[1];",
	}
	for i, src := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			if _, err := Parse(src); err == nil {
				t.Fatalf("%q", src)
			}
		})
	}
}

func TestParseParam(t *testing.T) {
	t.Parallel()
	tests := []struct {
		s string
		v float64
	}{
		{s: "1.5707", v: 1.5707},
		{s: "-0.5", v: -0.5},
		{s: "pi", v: math.Pi},
		{s: "-pi", v: -math.Pi},
		{s: "pi/2", v: math.Pi / 2},
		{s: "3*pi/4", v: 3 * math.Pi / 4},
		{s: "2pi", v: 2 * math.Pi},
		{s: "2*pi/3", v: 2 * math.Pi / 3},
	}
	for _, test := range tests {
		t.Run(test.s, func(t *testing.T) {
			t.Parallel()
			v, err := parseParam(test.s)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if math.Abs(v-test.v) > 1e-12 {
				t.Fatalf("%f, expected %f", v, test.v)
			}
		})
	}
}

func TestGHZ(t *testing.T) {
	t.Parallel()
	c := GHZ(4)
	if err := c.Validate(); err != nil {
		t.Fatalf("%+v", err)
	}
	want := []Gate{
		H(0),
		CX(0, 1), CX(1, 2), CX(2, 3),
		Measure(0), Measure(1), Measure(2), Measure(3),
	}
	if !reflect.DeepEqual(c.Gates, want) {
		t.Fatalf("%#v", c.Gates)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
