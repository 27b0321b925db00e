package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/store"
)

// Procedure paths served by RunService.
const (
	RunServiceName       = "intcode.v1.RunService"
	RunProcedure         = "/" + RunServiceName + "/Run"
	DisassembleProcedure = "/" + RunServiceName + "/Disassemble"
	HistoryProcedure     = "/" + RunServiceName + "/History"
)

// RunRequest asks for a program to be run. Exactly one of Program and Hash
// names the program; Hash refers to a program already in the store.
type RunRequest struct {
	Program Program `json:"program,omitempty"`
	Hash    string  `json:"hash,omitempty"`
	Inputs  []int64 `json:"inputs,omitempty"`
	// NoCache forces a fresh run even if the store has a result.
	NoCache bool `json:"noCache,omitempty"`
}

// RunResponse is the outcome of a successful run.
type RunResponse struct {
	Output []int64 `json:"output"`
	Memory []int64 `json:"memory"`
	Steps  int64   `json:"steps"`
	Hash   string  `json:"hash,omitempty"`
	Cached bool    `json:"cached"`
}

type DisassembleRequest struct {
	Program Program `json:"program,omitempty"`
	Hash    string  `json:"hash,omitempty"`
	Name    string  `json:"name,omitempty"`
}

type DisassembleResponse struct {
	Listing string `json:"listing"`
}

type HistoryRequest struct {
	Hash string `json:"hash"`
}

// RunRecord is one stored run in a HistoryResponse.
type RunRecord struct {
	ID      int64   `json:"id"`
	Inputs  []int64 `json:"inputs"`
	Output  []int64 `json:"output"`
	Steps   int64   `json:"steps"`
	Created string  `json:"created"`
}

type HistoryResponse struct {
	Runs []RunRecord `json:"runs"`
}

// RunService implements the intcode.v1.RunService Connect handlers.
type RunService struct {
	pool  *Pool
	store *store.Store // optional
	opts  []intcode.Option
}

// NewRunService creates a RunService. st may be nil, which disables result
// caching and history.
func NewRunService(pool *Pool, st *store.Store, opts ...intcode.Option) *RunService {
	return &RunService{pool: pool, store: st, opts: opts}
}

// program resolves the program named by a request.
func (s *RunService) program(ctx context.Context, words Program, hash string) ([]int64, error) {
	switch {
	case len(words) > 0 && hash != "":
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program and hash are mutually exclusive"))
	case len(words) > 0:
		return words, nil
	case hash == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program or hash is required"))
	}

	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no store configured"))
	}
	h, err := store.ParseHash(hash)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	p, err := s.store.Program(ctx, h)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// Run executes a program against its inputs.
func (s *RunService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	program, err := s.program(ctx, req.Msg.Program, req.Msg.Hash)
	if err != nil {
		return nil, err
	}
	inputs := req.Msg.Inputs

	var hash store.Hash
	if s.store != nil {
		if hash, err = s.store.PutProgram(ctx, program); err != nil {
			return nil, storeError(err)
		}
		if !req.Msg.NoCache {
			cached, err := s.store.LookupRun(ctx, hash, inputs)
			switch {
			case err == nil && s.withinLimits(cached, len(program)):
				log.Debugf("serving cached run of %s", hash.Short())
				return connect.NewResponse(newRunResponse(cached, hash, true)), nil
			case err == nil:
				log.Debugf("cached run of %s exceeds the run limits, running again", hash.Short())
			case !errors.Is(err, store.ErrNotFound):
				return nil, storeError(err)
			}
		}
	}

	opts := append([]intcode.Option{}, s.opts...)
	opts = append(opts, intcode.WithContext(ctx))
	var res *intcode.Result
	err = s.pool.Do(ctx, func() error {
		var runErr error
		res, runErr = intcode.Run(program, intcode.NewBuffered(inputs...), opts...)
		return runErr
	})
	if err != nil {
		return nil, runError(err)
	}

	if s.store != nil {
		if _, err := s.store.RecordRun(ctx, hash, inputs, res); err != nil {
			log.Warningf("recording run of %s: %v", hash.Short(), err)
		}
	}
	return connect.NewResponse(newRunResponse(res, hash, false)), nil
}

// withinLimits reports whether a fresh run under the service's options
// would have completed the way res did. Only growth past the loaded
// program counts against the memory limit.
func (s *RunService) withinLimits(res *intcode.Result, programLen int) bool {
	cells, steps := intcode.Limits(s.opts...)
	if steps > 0 && res.Steps > steps {
		return false
	}
	return len(res.Memory) <= programLen || int64(len(res.Memory)) <= cells
}

func newRunResponse(res *intcode.Result, hash store.Hash, cached bool) *RunResponse {
	resp := &RunResponse{
		Output: res.Output,
		Memory: res.Memory,
		Steps:  res.Steps,
		Cached: cached,
	}
	if hash != (store.Hash{}) {
		resp.Hash = hash.String()
	}
	return resp
}

// Disassemble renders a program listing.
func (s *RunService) Disassemble(
	ctx context.Context,
	req *connect.Request[DisassembleRequest],
) (*connect.Response[DisassembleResponse], error) {
	program, err := s.program(ctx, req.Msg.Program, req.Msg.Hash)
	if err != nil {
		return nil, err
	}
	name := req.Msg.Name
	if name == "" {
		name = "program"
	}
	return connect.NewResponse(&DisassembleResponse{
		Listing: intcode.DisassembleWithName(program, name),
	}), nil
}

// History lists the recorded runs of a stored program.
func (s *RunService) History(
	ctx context.Context,
	req *connect.Request[HistoryRequest],
) (*connect.Response[HistoryResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no store configured"))
	}
	h, err := store.ParseHash(req.Msg.Hash)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	runs, err := s.store.Runs(ctx, h)
	if err != nil {
		return nil, storeError(err)
	}

	resp := &HistoryResponse{Runs: make([]RunRecord, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, RunRecord{
			ID:      r.ID,
			Inputs:  r.Inputs,
			Output:  r.Result.Output,
			Steps:   r.Result.Steps,
			Created: r.Created.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return connect.NewResponse(resp), nil
}

// runError maps a failed run onto a Connect error code.
func runError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, intcode.ErrStepLimit), errors.Is(err, intcode.ErrMemoryLimit):
		return connect.NewError(connect.CodeResourceExhausted, err)
	}
	if _, ok := intcode.IsFault(err); ok {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func storeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
