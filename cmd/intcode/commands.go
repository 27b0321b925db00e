package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/chazu/intcode/manifest"
	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/pkg/pipeline"
	"github.com/chazu/intcode/server"
	"github.com/chazu/intcode/store"
)

func cmdRun(args []string, e *env) error {
	fs := newFlagSet("run", "[-i inputs] [-trace] [-record] [-remote url] [program]")
	var inputs intList
	fs.Var(&inputs, "i", "Comma-separated inputs, may be repeated (default [run].inputs)")
	trace := fs.Bool("trace", false, "Log every instruction at debug level")
	memory := fs.Bool("memory", false, "Print final memory instead of output")
	record := fs.Bool("record", false, "Record the run in the store, serving a cached result if present")
	remote := fs.String("remote", "", "Run on the server at this URL instead of locally")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(inputs) == 0 {
		inputs = e.m.Run.Inputs
	}
	program, _, err := loadProgram(fs, e)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var res *intcode.Result
	switch {
	case *remote != "":
		resp, err := server.NewClient(nil, *remote).Run(ctx, &server.RunRequest{Program: program, Inputs: inputs})
		if err != nil {
			return err
		}
		if resp.Cached {
			log.Infof("served from cache (%s)", resp.Hash)
		}
		res = &intcode.Result{Memory: resp.Memory, Output: resp.Output, Steps: resp.Steps}

	case *record:
		st, err := store.Open(e.m.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()
		if res, err = recordedRun(ctx, st, program, inputs, runOptions(e.m, *trace)); err != nil {
			return err
		}

	default:
		if res, err = intcode.Run(program, intcode.NewBuffered(inputs...), runOptions(e.m, *trace)...); err != nil {
			return err
		}
	}

	values := res.Output
	if *memory {
		values = res.Memory
	}
	fmt.Fprintln(e.out, intcode.FormatProgram(values))
	log.Infof("halted after %d steps", res.Steps)
	return nil
}

// recordedRun serves a stored result when one exists and records a fresh
// run otherwise.
func recordedRun(ctx context.Context, st *store.Store, program, inputs []int64, opts []intcode.Option) (*intcode.Result, error) {
	h, err := st.PutProgram(ctx, program)
	if err != nil {
		return nil, err
	}
	res, err := st.LookupRun(ctx, h, inputs)
	if err == nil {
		log.Infof("served from cache (%s)", h.Short())
		return res, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if res, err = intcode.Run(program, intcode.NewBuffered(inputs...), opts...); err != nil {
		return nil, err
	}
	if _, err := st.RecordRun(ctx, h, inputs, res); err != nil {
		return nil, err
	}
	return res, nil
}

func cmdAmp(args []string, e *env) error {
	cfg := e.m.Amplifier
	fs := newFlagSet("amp", "[-phases list] [-feedback] [-buffer n] [program]")
	var phases intList
	fs.Var(&phases, "phases", "Phase settings to permute (default [amplifier].phases)")
	feedback := fs.Bool("feedback", cfg.Feedback, "Wire the last amplifier back to the first")
	buffer := fs.Int("buffer", cfg.Buffer, "Link capacity between amplifiers")
	initial := fs.Int64("initial", cfg.Initial, "Signal fed to the first amplifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(phases) == 0 {
		phases = cfg.Phases
		if *feedback && !cfg.Feedback && isDefaultSerial(phases) {
			phases = []int64{5, 6, 7, 8, 9}
		}
	}
	program, _, err := loadProgram(fs, e)
	if err != nil {
		return err
	}

	pcfg := pipeline.Config{
		Topology: pipeline.Serial,
		Initial:  *initial,
		Buffer:   *buffer,
		Options:  runOptions(e.m, false),
	}
	if *feedback {
		pcfg.Topology = pipeline.Feedback
	}
	best, err := pipeline.MaxSignal(program, phases, pcfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d\n", best.Signal)
	log.Noticef("best phases %v (%s)", best.Phases, pcfg.Topology)
	return nil
}

// isDefaultSerial reports whether phases are the serial defaults, which a
// -feedback flag should swap for the feedback defaults.
func isDefaultSerial(phases []int64) bool {
	if len(phases) != 5 {
		return false
	}
	for i, p := range phases {
		if p != int64(i) {
			return false
		}
	}
	return true
}

func cmdDisasm(args []string, e *env) error {
	fs := newFlagSet("disasm", "[program]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	program, name, err := loadProgram(fs, e)
	if err != nil {
		return err
	}
	fmt.Fprint(e.out, intcode.DisassembleWithName(program, name))
	return nil
}

func cmdServe(args []string, e *env) error {
	cfg := e.m.Server
	fs := newFlagSet("serve", "[-addr host:port] [-workers n] [-steps n] [-no-store]")
	addr := fs.String("addr", cfg.Addr, "Listen address")
	workers := fs.Int64("workers", cfg.Workers, "Programs run concurrently")
	steps := fs.Int64("steps", cfg.StepLimit, "Instructions a served run may execute")
	noStore := fs.Bool("no-store", false, "Disable the result cache and run history")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := []server.Option{
		server.WithWorkers(*workers),
		server.WithRunOptions(append(runOptions(e.m, false), intcode.WithStepLimit(*steps))...),
	}
	if !*noStore {
		st, err := store.Open(e.m.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, server.WithStore(st))
	}
	srv := server.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(*addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Notice("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cmdHistory(args []string, e *env) error {
	fs := newFlagSet("history", "[hash]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := store.Open(e.m.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if fs.NArg() == 0 {
		progs, err := st.Programs(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "HASH\tWORDS\tRUNS")
		for _, p := range progs {
			fmt.Fprintf(w, "%s\t%d\t%d\n", p.Hash, p.Size, p.Runs)
		}
		return nil
	}

	h, err := store.ParseHash(fs.Arg(0))
	if err != nil {
		return err
	}
	runs, err := st.Runs(ctx, h)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tWHEN\tSTEPS\tINPUTS\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			r.ID, r.Created.Format(time.DateTime), r.Result.Steps,
			intcode.FormatProgram(r.Inputs), intcode.FormatProgram(r.Result.Output))
	}
	return nil
}

func cmdInit(args []string, e *env) error {
	fs := newFlagSet("init", "[program]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m := manifest.Default()
	if fs.NArg() > 0 {
		m.Program.Path = fs.Arg(0)
	}
	if err := manifest.Write(".", m); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "wrote %s\n", manifest.FileName)
	return nil
}
