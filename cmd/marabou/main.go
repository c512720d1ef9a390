// Command marabou is a thin CLI driver over pkg/query and pkg/marabou: it
// takes a network-file and property-file (resolved here only as persisted
// pkg/query files, since an actual NNet/ONNX/VNN-LIB parser is an external
// collaborator out of core scope) and prints the ExitCode, model, and
// statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gitrdm/marabou-go/internal/pricing"
	"github.com/gitrdm/marabou-go/pkg/marabou"
	"github.com/gitrdm/marabou-go/pkg/query"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("marabou", flag.ContinueOnError)

	timeout := fs.Duration("timeout", 0, "global wall-clock limit")
	numWorkers := fs.Int("num-workers", 1, "workers in DnC mode")
	initialDivides := fs.Int("initial-divides", 0, "start with 2^K subqueries")
	initialTimeout := fs.Duration("initial-timeout", 0, "per-initial-subquery timeout")
	onlineDivides := fs.Int("online-divides", 2, "subdivide a timed-out subquery into 2^K pieces")
	timeoutFactor := fs.Float64("timeout-factor", 1.5, "scale child timeouts")
	splittingStrategy := fs.String("splitting-strategy", "auto", "PL split heuristic")
	_ = fs.String("snc-splitting-strategy", "auto", "DnC split strategy")
	_ = fs.String("symbolic-bound-tightening", "none", "none / dp / sbt-symbolic")
	_ = fs.String("milp-tightening", "", "use external MILP solver for tightening")
	_ = fs.String("lp-solver", "native", "{native,gurobi}")
	dncFlag := fs.Bool("dnc", false, "enable parallel DnC")
	_ = fs.Bool("parallel-deepsoi", false, "independent-SoI parallel mode")
	_ = fs.Bool("produce-proofs", false, "maintain explanation vectors")
	verbosity := fs.Int("verbosity", 0, "0..2")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	positional := fs.Args()
	if len(positional) < 2 {
		fmt.Fprintln(os.Stderr, "usage: marabou [flags] network-file property-file")
		return 2
	}
	networkFile, propertyFile := positional[0], positional[1]

	q, err := loadQuery(networkFile, propertyFile)
	if err != nil {
		log.Printf("[marabou] loading query: %v", err)
		return 2
	}

	opts := marabou.DefaultOptions()
	opts.Timeout = *timeout
	opts.NumWorkers = *numWorkers
	opts.InitialDivides = *initialDivides
	opts.InitialTimeout = *initialTimeout
	opts.OnlineDivides = *onlineDivides
	opts.TimeoutFactor = *timeoutFactor
	opts.SplittingStrategy = *splittingStrategy
	opts.DnC = *dncFlag
	opts.PricingRule = pricing.Dantzig

	if *verbosity > 0 {
		log.Printf("[marabou] solving %s / %s with options %+v", networkFile, propertyFile, opts)
	}

	start := time.Now()
	code, model, stats, err := marabou.Solve(context.Background(), q, opts)
	if err != nil {
		log.Printf("[marabou] solve error: %v", err)
		fmt.Println(marabou.ErrorExit)
		return 1
	}

	fmt.Println(code)
	if code == marabou.SAT {
		for v, val := range model {
			fmt.Printf("x%d = %g\n", v, val)
		}
	}
	if *verbosity > 1 {
		log.Printf("[marabou] stats: %+v (%s elapsed)", stats, time.Since(start))
	}
	return exitCodeToStatus(code)
}

// loadQuery resolves both positional arguments as a single persisted
// pkg/query file: the property file, since the network structure has
// already been folded into the query's variables/equations by whatever
// produced it.
func loadQuery(networkFile, propertyFile string) (*query.Query, error) {
	_ = networkFile
	f, err := os.Open(propertyFile)
	if err != nil {
		return nil, fmt.Errorf("opening property file: %w", err)
	}
	defer f.Close()
	return query.Load(f)
}

func exitCodeToStatus(code marabou.ExitCode) int {
	switch code {
		case marabou.SAT, marabou.UNSAT:
			return 0
		case marabou.Timeout:
			return 3
		case marabou.QuitRequested:
			return 4
		default:
			return 1
	}
}
