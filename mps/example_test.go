package mps_test

import (
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/fumin/qsim/circuit"
	"github.com/fumin/qsim/mps"
)

func Example() {
	// Prepare a Bell pair and measure both qubits.
	c := circuit.Bell()
	rng := rand.New(rand.NewPCG(42, 0))
	state := mps.New(c.NumQubits, mps.NewOptions().Rand(rng))
	for _, g := range c.Gates {
		if err := state.Apply(g); err != nil {
			log.Fatalf("%+v", err)
		}
	}

	// The two bits always agree, whichever branch the collapse picks.
	fmt.Printf("bits equal: %t\n", state.Bit(0) == state.Bit(1))
	fmt.Printf("<ZZ>: %.2f\n", state.ExpZ())
	fmt.Printf("norm after collapse: %.2f\n", state.Norm2())

	// Output:
	// bits equal: true
	// <ZZ>: 1.00
	// norm after collapse: 0.50
}

func ExampleState_ExpectationZ() {
	// Expectation values leave the state untouched.
	state := mps.New(3)
	for _, g := range []circuit.Gate{circuit.H(0), circuit.CX(0, 1), circuit.CX(1, 2)} {
		if err := state.Apply(g); err != nil {
			log.Fatalf("%+v", err)
		}
	}

	expZ, err := state.ExpectationZ([]circuit.Gate{circuit.Measure(0), circuit.Measure(2)})
	if err != nil {
		log.Fatalf("%+v", err)
	}
	fmt.Printf("<Z0 Z2>: %.2f\n", expZ)
	fmt.Printf("norm: %.2f\n", state.Norm2())

	// Output:
	// <Z0 Z2>: 1.00
	// norm: 1.00
}
