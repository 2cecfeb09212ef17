package circuit

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Regexps for the OPENQASM 2.0 subset.
var (
	qregRe       = regexp.MustCompile(`^qreg\s+\w+\[(\d+)\]$`)
	cregRe       = regexp.MustCompile(`^creg\s+\w+\[(\d+)\]$`)
	measureRe    = regexp.MustCompile(`^measure\s+\w+\[(\d+)\]\s*->\s*\w+\[(\d+)\]$`)
	gate1Re      = regexp.MustCompile(`^(\w+)\s+\w+\[(\d+)\]$`)
	gate1ParamRe = regexp.MustCompile(`^(\w+)\s*\(([^)]*)\)\s+\w+\[(\d+)\]$`)
	gate2Re      = regexp.MustCompile(`^(\w+)\s+\w+\[(\d+)\]\s*,\s*\w+\[(\d+)\]$`)
	gate2ParamRe = regexp.MustCompile(`^(\w+)\s*\(([^)]*)\)\s+\w+\[(\d+)\]\s*,\s*\w+\[(\d+)\]$`)

	// piExprRe matches pi, 2*pi, pi/2, 3*pi/4, -pi/2 and so on.
	piExprRe = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)
)

var kindsByName = map[string]Kind{
	"h":    KindH,
	"x":    KindX,
	"y":    KindY,
	"z":    KindZ,
	"rx":   KindRX,
	"ry":   KindRY,
	"rz":   KindRZ,
	"u":    KindU,
	"u3":   KindU,
	"cx":   KindCX,
	"cnot": KindCX,
	"cz":   KindCZ,
	"cp":   KindCP,
	"cu1":  KindCP,
	"swap": KindSwap,
}

// Parse parses an OPENQASM 2.0 subset into a circuit.
//
// Supported statements: the OPENQASM and include headers, qreg, creg,
// the gates named in kindsByName with numeric or pi expression parameters,
// and measure. Measurement results always land on the classical bit with the
// measured qubit's index; the creg operand is accepted but not interpreted.
func Parse(src string) (*Circuit, error) {
	c := &Circuit{}
	for i, raw := range strings.Split(src, "\n") {
		line := raw
		if j := strings.Index(line, "//"); j >= 0 {
			line = line[:j]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") {
			continue
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, ";"))

		g, ok, err := parseStatement(c, line)
		if err != nil {
			return nil, errors.Wrap(err, strconv.Itoa(i+1))
		}
		if ok {
			c.Gates = append(c.Gates, g)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return c, nil
}

// parseStatement parses one statement.
// Register declarations update c directly and return ok false.
func parseStatement(c *Circuit, line string) (Gate, bool, error) {
	if m := qregRe.FindStringSubmatch(line); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Gate{}, false, errors.Wrap(err, "")
		}
		c.NumQubits = n
		return Gate{}, false, nil
	}
	if cregRe.MatchString(line) {
		return Gate{}, false, nil
	}
	if m := measureRe.FindStringSubmatch(line); m != nil {
		q, err := strconv.Atoi(m[1])
		if err != nil {
			return Gate{}, false, errors.Wrap(err, "")
		}
		return Measure(q), true, nil
	}
	if m := gate2ParamRe.FindStringSubmatch(line); m != nil {
		return newGate(m[1], m[2], m[3], m[4])
	}
	if m := gate2Re.FindStringSubmatch(line); m != nil {
		return newGate(m[1], "", m[2], m[3])
	}
	if m := gate1ParamRe.FindStringSubmatch(line); m != nil {
		return newGate(m[1], m[2], m[3])
	}
	if m := gate1Re.FindStringSubmatch(line); m != nil {
		return newGate(m[1], "", m[2])
	}
	return Gate{}, false, errors.Errorf("%q", line)
}

func newGate(name, paramStr string, qubitStrs ...string) (Gate, bool, error) {
	kind, ok := kindsByName[strings.ToLower(name)]
	if !ok {
		return Gate{}, false, errors.Errorf("unknown gate %q", name)
	}
	g := Gate{Kind: kind}
	for _, s := range qubitStrs {
		q, err := strconv.Atoi(s)
		if err != nil {
			return Gate{}, false, errors.Wrap(err, "")
		}
		g.Qubits = append(g.Qubits, q)
	}
	if strings.TrimSpace(paramStr) != "" {
		for _, s := range strings.Split(paramStr, ",") {
			p, err := parseParam(s)
			if err != nil {
				return Gate{}, false, errors.Wrap(err, "")
			}
			g.Params = append(g.Params, p)
		}
	}
	return g, true, nil
}

// parseParam parses a numeric literal or a pi expression such as
// "pi", "-pi/2", "3*pi/4", "2pi".
func parseParam(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	m := piExprRe.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Errorf("%q", s)
	}
	coeff := 1.0
	if m[2] != "" {
		var err error
		if coeff, err = strconv.ParseFloat(m[2], 64); err != nil {
			return 0, errors.Wrap(err, s)
		}
	}
	v := coeff * math.Pi
	if m[3] != "" {
		denom, err := strconv.ParseFloat(m[3], 64)
		if err != nil || denom == 0 {
			return 0, errors.Errorf("%q", s)
		}
		v /= denom
	}
	if m[1] == "-" {
		v = -v
	}
	return v, nil
}
