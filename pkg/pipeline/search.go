package pipeline

import (
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Best is the winning phase order of a search.
type Best struct {
	Signal int64
	Phases []int64
}

// Permutations returns every ordering of set in lexicographic order of
// index positions.
func Permutations(set []int64) [][]int64 {
	if len(set) == 0 {
		return [][]int64{{}}
	}
	var out [][]int64
	for i, v := range set {
		rest := make([]int64, 0, len(set)-1)
		rest = append(rest, set[:i]...)
		rest = append(rest, set[i+1:]...)
		for _, p := range Permutations(rest) {
			out = append(out, append([]int64{v}, p...))
		}
	}
	return out
}

// MaxSignal runs the pipeline once per ordering of phaseSet and returns the
// ordering with the highest signal. Ties go to the ordering that sorts
// first. Orderings are tried concurrently, at most GOMAXPROCS at a time.
func MaxSignal(program []int64, phaseSet []int64, cfg Config) (*Best, error) {
	var (
		mu   sync.Mutex
		best *Best
	)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, phases := range Permutations(phaseSet) {
		phases := phases
		g.Go(func() error {
			report, err := Run(program, phases, cfg)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if best == nil || report.Signal > best.Signal ||
				(report.Signal == best.Signal && slices.Compare(phases, best.Phases) < 0) {
				best = &Best{Signal: report.Signal, Phases: phases}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Infof("best %s signal %d with phases %v", cfg.Topology, best.Signal, best.Phases)
	return best, nil
}
