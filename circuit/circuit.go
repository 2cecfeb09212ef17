// Package circuit represents quantum circuits as streams of gate instructions.
//
// A circuit is a qubit count plus an ordered list of gates.
// Gates are tagged values, not an interface hierarchy, so that executors can
// dispatch on Gate.Kind with a single switch.
package circuit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies a gate instruction.
type Kind uint8

const (
	KindH Kind = iota + 1
	KindX
	KindY
	KindZ
	KindRX
	KindRY
	KindRZ
	KindU
	KindCX
	KindCZ
	KindCP
	KindSwap
	KindMeasure
)

type kindInfo struct {
	name   string
	qubits int
	params int
}

var kindInfos = map[Kind]kindInfo{
	KindH:       {name: "h", qubits: 1},
	KindX:       {name: "x", qubits: 1},
	KindY:       {name: "y", qubits: 1},
	KindZ:       {name: "z", qubits: 1},
	KindRX:      {name: "rx", qubits: 1, params: 1},
	KindRY:      {name: "ry", qubits: 1, params: 1},
	KindRZ:      {name: "rz", qubits: 1, params: 1},
	KindU:       {name: "u3", qubits: 1, params: 3},
	KindCX:      {name: "cx", qubits: 2},
	KindCZ:      {name: "cz", qubits: 2},
	KindCP:      {name: "cp", qubits: 2, params: 1},
	KindSwap:    {name: "swap", qubits: 2},
	KindMeasure: {name: "measure", qubits: 1},
}

// String returns the OpenQASM name of the gate kind.
func (k Kind) String() string {
	info, ok := kindInfos[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return info.name
}

// NumQubits returns the number of qubit operands of the gate kind.
func (k Kind) NumQubits() int {
	return kindInfos[k].qubits
}

// NumParams returns the number of parameters of the gate kind.
func (k Kind) NumParams() int {
	return kindInfos[k].params
}

// Gate is a single circuit instruction.
// Qubits holds the operands in gate order; for controlled gates the control
// comes first. Disabled gates are kept in the stream but skipped by executors.
type Gate struct {
	Kind     Kind
	Qubits   []int
	Params   []float64
	Disabled bool
}

// H is the Hadamard gate.
func H(q int) Gate { return Gate{Kind: KindH, Qubits: []int{q}} }

// X is the Pauli X gate.
func X(q int) Gate { return Gate{Kind: KindX, Qubits: []int{q}} }

// Y is the Pauli Y gate.
func Y(q int) Gate { return Gate{Kind: KindY, Qubits: []int{q}} }

// Z is the Pauli Z gate.
func Z(q int) Gate { return Gate{Kind: KindZ, Qubits: []int{q}} }

// RX rotates the qubit by theta around the X axis.
func RX(q int, theta float64) Gate {
	return Gate{Kind: KindRX, Qubits: []int{q}, Params: []float64{theta}}
}

// RY rotates the qubit by theta around the Y axis.
func RY(q int, theta float64) Gate {
	return Gate{Kind: KindRY, Qubits: []int{q}, Params: []float64{theta}}
}

// RZ rotates the qubit by theta around the Z axis.
func RZ(q int, theta float64) Gate {
	return Gate{Kind: KindRZ, Qubits: []int{q}, Params: []float64{theta}}
}

// U is the generic single qubit rotation with Euler angles theta, phi, lambda.
func U(q int, theta, phi, lambda float64) Gate {
	return Gate{Kind: KindU, Qubits: []int{q}, Params: []float64{theta, phi, lambda}}
}

// CX is the controlled-X gate.
func CX(control, target int) Gate {
	return Gate{Kind: KindCX, Qubits: []int{control, target}}
}

// CZ is the controlled-Z gate.
func CZ(control, target int) Gate {
	return Gate{Kind: KindCZ, Qubits: []int{control, target}}
}

// CP is the controlled phase gate with angle theta.
func CP(control, target int, theta float64) Gate {
	return Gate{Kind: KindCP, Qubits: []int{control, target}, Params: []float64{theta}}
}

// Swap exchanges two qubits.
func Swap(q0, q1 int) Gate { return Gate{Kind: KindSwap, Qubits: []int{q0, q1}} }

// Measure measures a qubit in the computational basis.
// The classical bit is the qubit's own index.
func Measure(q int) Gate { return Gate{Kind: KindMeasure, Qubits: []int{q}} }

// String formats the gate as an OpenQASM statement without the semicolon.
func (g Gate) String() string {
	b := strings.Builder{}
	b.WriteString(g.Kind.String())
	if len(g.Params) > 0 {
		b.WriteString("(")
		for i, p := range g.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
		}
		b.WriteString(")")
	}
	for i, q := range g.Qubits {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "q[%d]", q)
	}
	if g.Kind == KindMeasure {
		fmt.Fprintf(&b, " -> c[%d]", g.Qubits[0])
	}
	return b.String()
}

// Circuit is a gate stream over a fixed qubit register.
type Circuit struct {
	NumQubits int
	Gates     []Gate
}

// New returns a circuit over numQubits qubits.
func New(numQubits int, gates ...Gate) *Circuit {
	return &Circuit{NumQubits: numQubits, Gates: gates}
}

// Add appends gates to the circuit.
func (c *Circuit) Add(gates ...Gate) *Circuit {
	c.Gates = append(c.Gates, gates...)
	return c
}

// Measured returns the qubits measured by the circuit, in ascending order.
func (c *Circuit) Measured() []int {
	seen := make(map[int]bool)
	for _, g := range c.Gates {
		if g.Kind == KindMeasure && !g.Disabled {
			seen[g.Qubits[0]] = true
		}
	}
	qubits := make([]int, 0, len(seen))
	for q := 0; q < c.NumQubits; q++ {
		if seen[q] {
			qubits = append(qubits, q)
		}
	}
	return qubits
}

// Validate checks gate arities, parameter counts, and qubit ranges.
func (c *Circuit) Validate() error {
	if c.NumQubits <= 0 {
		return errors.Errorf("%d", c.NumQubits)
	}
	for i, g := range c.Gates {
		info, ok := kindInfos[g.Kind]
		if !ok {
			return errors.Errorf("%d %#v", i, g)
		}
		if len(g.Qubits) != info.qubits || len(g.Params) != info.params {
			return errors.Errorf("%d %s %d %d", i, info.name, len(g.Qubits), len(g.Params))
		}
		for _, q := range g.Qubits {
			if q < 0 || q >= c.NumQubits {
				return errors.Errorf("%d %s q[%d] n=%d", i, info.name, q, c.NumQubits)
			}
		}
		if info.qubits == 2 && g.Qubits[0] == g.Qubits[1] {
			return errors.Errorf("%d %s q[%d]", i, info.name, g.Qubits[0])
		}
	}
	return nil
}

// Bell prepares and measures the two qubit state (|00> + |11>)/sqrt(2).
func Bell() *Circuit {
	return New(2, H(0), CX(0, 1), Measure(0), Measure(1))
}

// GHZ prepares and measures the n qubit state (|0...0> + |1...1>)/sqrt(2).
func GHZ(n int) *Circuit {
	c := New(n, H(0))
	for i := 0; i+1 < n; i++ {
		c.Add(CX(i, i+1))
	}
	for i := 0; i < n; i++ {
		c.Add(Measure(i))
	}
	return c
}
