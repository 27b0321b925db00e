// Package pipeline runs several Intcode machines concurrently, each on its
// own goroutine, connected output-to-input by Links.
//
// A serial pipeline feeds the initial signal into the first stage and reads
// the answer off the last. A feedback pipeline also connects the last stage
// back to the first, so the signal circulates until every stage halts.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/intcode/pkg/intcode"
)

var log = commonlog.GetLogger("intcode.pipeline")

// ErrNoSignal is returned when the last stage halts without output.
var ErrNoSignal = errors.New("pipeline: last stage produced no output")

// Topology selects how stages are wired.
type Topology int

const (
	Serial   Topology = iota // stage i feeds stage i+1; the last stage's output is a sink
	Feedback                 // as Serial, plus the last stage feeds the first
)

func (t Topology) String() string {
	switch t {
	case Serial:
		return "serial"
	case Feedback:
		return "feedback"
	default:
		return fmt.Sprintf("Topology(%d)", int(t))
	}
}

// Config describes a pipeline run.
type Config struct {
	Topology Topology
	Initial  int64            // Signal delivered to the first stage after its phase
	Buffer   int              // Link capacity, DefaultBuffer if zero
	Options  []intcode.Option // Passed to every machine
}

// Report is the outcome of a pipeline run.
type Report struct {
	Signal  int64     // Last value emitted by the last stage
	Outputs [][]int64 // Per stage, every value emitted
	Dropped [][]int64 // Per stage, values discarded because the consumer had halted
}

// Run starts one machine per phase, all running program, and waits until
// every one of them has halted.
//
// Each stage receives its phase as its first input. When a stage stops it
// closes its outbound link and abandons its inbound one, so a fault in one
// stage reaches the others as input exhaustion instead of a hang. A stage
// that waits on input while its producer is still running blocks until
// that producer sends or stops.
func Run(program []int64, phases []int64, cfg Config) (*Report, error) {
	n := len(phases)
	if n == 0 {
		return nil, errors.New("pipeline: no phases")
	}

	links := make([]*Link, n+1)
	for i := 0; i < n; i++ {
		capacity := cfg.Buffer
		if i == 0 && capacity > 0 && capacity < 2 {
			// Holds the phase and the initial signal before anyone reads.
			capacity = 2
		}
		links[i] = NewLink(capacity)
		links[i].Send(phases[i])
	}
	links[0].Send(cfg.Initial)

	switch cfg.Topology {
	case Feedback:
		links[n] = links[0]
	default:
		// Nobody reads the sink: the last stage's output is only recorded.
		links[n] = NewLink(1)
		links[n].CloseRecv()
		links[0].CloseSend()
	}

	devices := make([]*Channel, n)
	for i := range devices {
		devices[i] = NewChannel(links[i], links[i+1])
	}

	errs := make([]error, n)
	var g errgroup.Group
	for i := range devices {
		i := i
		g.Go(func() error {
			dev := devices[i]
			defer dev.close()
			res, err := intcode.Run(program, dev, cfg.Options...)
			if err != nil {
				errs[i] = fmt.Errorf("pipeline: stage %d: %w", i, err)
				return errs[i]
			}
			log.Debugf("stage %d halted after %d steps with %d outputs", i, res.Steps, len(res.Output))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, rootCause(errs, err)
	}

	report := &Report{
		Outputs: make([][]int64, n),
		Dropped: make([][]int64, n),
	}
	for i, dev := range devices {
		report.Outputs[i] = dev.Outputs()
		report.Dropped[i] = dev.Dropped()
	}
	last := report.Outputs[n-1]
	if len(last) == 0 {
		return report, ErrNoSignal
	}
	report.Signal = last[len(last)-1]
	return report, nil
}

// rootCause prefers a stage error that is not merely the exhaustion caused
// by a neighbour stopping.
func rootCause(errs []error, fallback error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, intcode.ErrInputExhausted) {
			return err
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return fallback
}
