// Command run samples a quantum circuit on a simulation backend.
//
// Results are written under the run directory: per shot tallies in
// counts.csv, the estimated expectation value in statistics.json, and a
// record of every finished run in runs.db. A finished run is marked with
// done.txt and skipped on rerun.
//
// Examples:
//
//	run -d runs/demo -circuit bell -shots 1024
//	run -d runs/demo -circuit ghz -n 5 -backend statevec
//	run -d runs/demo -circuit @adder.qasm -cutoff 1e-6 -seed 1
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/qsim"
	"github.com/fumin/qsim/circuit"
	"github.com/fumin/qsim/store"
)

const (
	fnameCounts     = "counts.csv"
	fnameStatistics = "statistics.json"
	fnameDone       = "done.txt"
	fnameDB         = "runs.db"
)

var (
	runDir      = flag.String("d", filepath.Join("runs", "qsim"), "run directory")
	circuitFlag = flag.String("circuit", "bell", "circuit to run: bell, ghz, or @file.qasm")
	numQubits   = flag.Int("n", 3, "number of qubits of parametric circuits")
	backendFlag = flag.String("backend", "mps", "simulation backend")
	shots       = flag.Int("shots", 1024, "number of sampled shots")
	cutoff      = flag.Float64("cutoff", 1e-4, "truncation error of two qubit gates")
	seed        = flag.Uint64("seed", 0, "random seed, 0 seeds from the clock")
	verbose     = flag.Bool("v", false, "log every applied instruction")
)

// loadCircuit resolves the -circuit flag into an instruction stream and a
// short name for artifact paths.
func loadCircuit(arg string, n int) (*circuit.Circuit, string, error) {
	switch {
	case arg == "bell":
		return circuit.Bell(), "bell", nil
	case arg == "ghz":
		return circuit.GHZ(n), fmt.Sprintf("ghz%d", n), nil
	case strings.HasPrefix(arg, "@"):
		fpath := arg[1:]
		b, err := os.ReadFile(fpath)
		if err != nil {
			return nil, "", errors.Wrap(err, "")
		}
		c, err := circuit.Parse(string(b))
		if err != nil {
			return nil, "", errors.Wrap(err, fpath)
		}
		name := strings.TrimSuffix(filepath.Base(fpath), filepath.Ext(fpath))
		return c, name, nil
	}
	return nil, "", errors.Errorf("unknown circuit %q", arg)
}

// sample runs the circuit and writes the run's artifacts under dir.
// Runs whose done marker exists are skipped.
func sample(dir, runName string, b qsim.Backend, c *circuit.Circuit) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		log.Printf("%s: done", runName)
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	// One traced shot for the classical record and the time model.
	res, err := b.Run(c)
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("%s: bits %v, <Z..Z> %f, elapsed %gs", runName, res.Bits, res.ExpZ, res.Elapsed)

	counts, err := qsim.Sample(b, c, *shots)
	if err != nil {
		return errors.Wrap(err, "")
	}
	stats := qsim.GetStatistics(counts)
	log.Printf("%s: %d shots, <Z..Z> %f +- %f", runName, stats.Shots, stats.ExpZ, stats.StdErr)

	if err := writeCounts(dir, counts); err != nil {
		return errors.Wrap(err, "")
	}
	sb, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameStatistics), sb, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	if err := record(runName, b.Name(), c, res, counts); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func writeCounts(dir string, counts qsim.Counts) error {
	f, err := os.Create(filepath.Join(dir, fnameCounts))
	if err != nil {
		return errors.Wrap(err, "")
	}
	w := csv.NewWriter(f)

	if err1 := w.Write([]string{"bits", "count"}); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	for _, bits := range slices.Sorted(maps.Keys(counts)) {
		if err1 := w.Write([]string{bits, strconv.Itoa(counts[bits])}); err1 != nil && err == nil {
			err = errors.Wrap(err1, "")
			break
		}
	}

	w.Flush()
	if err1 := w.Error(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

func record(runName, backend string, c *circuit.Circuit, res *qsim.Result, counts qsim.Counts) error {
	s, err := store.Open(filepath.Join(*runDir, fnameDB))
	if err != nil {
		return errors.Wrap(err, "")
	}

	run := store.Run{
		Name:    runName,
		Backend: backend,
		Qubits:  c.NumQubits,
		Shots:   *shots,
		Elapsed: res.Elapsed,
		Counts:  counts,
	}
	err = s.SetRun(run)
	if err1 := s.Close(); err1 != nil && err == nil {
		err = err1
	}
	return err
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	c, name, err := loadCircuit(*circuitFlag, *numQubits)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, name)
	}

	cfg := qsim.NewConfig()
	cfg.Verbose = *verbose
	cfg.SVDCutoff = *cutoff
	cfg.Seed = *seed
	b, err := qsim.New(*backendFlag, cfg)
	if err != nil {
		return errors.Wrap(err, "")
	}

	runName := fmt.Sprintf("%s-%s", name, b.Name())
	dir := filepath.Join(*runDir, runName)
	if err := sample(dir, runName, b, c); err != nil {
		return errors.Wrap(err, runName)
	}

	// Gather the recorded runs and print them.
	s, err := store.Open(filepath.Join(*runDir, fnameDB))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer s.Close()
	runs, err := s.Runs()
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("name,backend,qubits,shots,elapsed,created\n")
	for _, r := range runs {
		fmt.Printf("%s,%s,%d,%d,%g,%d\n", r.Name, r.Backend, r.Qubits, r.Shots, r.Elapsed, r.Created)
	}
	return nil
}
