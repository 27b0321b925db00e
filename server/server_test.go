package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/goccy/go-json"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/store"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// echo reads one value and outputs it.
var echo = []int64{3, 0, 4, 0, 99}

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// startTestServer serves s over httptest and returns a client for it.
func startTestServer(t *testing.T, s *Server) *Client {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.Client(), ts.URL)
}

func codeOf(err error) connect.Code {
	return connect.CodeOf(err)
}

// ---------------------------------------------------------------------------
// RunService: direct calls
// ---------------------------------------------------------------------------

func TestRun_Echo(t *testing.T) {
	svc := NewRunService(NewPool(1), nil)

	resp, err := svc.Run(bg(), connectReq(&RunRequest{Program: echo, Inputs: []int64{42}}))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !reflect.DeepEqual(resp.Msg.Output, []int64{42}) {
		t.Errorf("Output = %v, want [42]", resp.Msg.Output)
	}
	if !reflect.DeepEqual(resp.Msg.Memory, []int64{42, 0, 4, 0, 99}) {
		t.Errorf("Memory = %v", resp.Msg.Memory)
	}
	if resp.Msg.Steps != 3 {
		t.Errorf("Steps = %d, want 3", resp.Msg.Steps)
	}
	if resp.Msg.Cached || resp.Msg.Hash != "" {
		t.Errorf("storeless run reported cached=%v hash=%q", resp.Msg.Cached, resp.Msg.Hash)
	}
}

func TestRun_Errors(t *testing.T) {
	svc := NewRunService(NewPool(1), nil, intcode.WithStepLimit(100))

	tests := []struct {
		name string
		req  *RunRequest
		want connect.Code
	}{
		{"missing program", &RunRequest{}, connect.CodeInvalidArgument},
		{"program and hash", &RunRequest{Program: echo, Hash: "00"}, connect.CodeInvalidArgument},
		{"hash without store", &RunRequest{Hash: strings.Repeat("0", 64)}, connect.CodeFailedPrecondition},
		{"input exhausted", &RunRequest{Program: echo}, connect.CodeInvalidArgument},
		{"invalid opcode", &RunRequest{Program: Program{42}}, connect.CodeInvalidArgument},
		{"step limit", &RunRequest{Program: Program{1105, 1, 0}}, connect.CodeResourceExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(bg(), connectReq(tt.req))
			if err == nil {
				t.Fatal("Run succeeded, want error")
			}
			if got := codeOf(err); got != tt.want {
				t.Errorf("code = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestRun_FaultMessage(t *testing.T) {
	svc := NewRunService(NewPool(1), nil)
	_, err := svc.Run(bg(), connectReq(&RunRequest{Program: echo}))
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error %v is not a connect error", err)
	}
	if cerr.Message() != "intcode: pc=0 IN: input exhausted" {
		t.Errorf("message = %q", cerr.Message())
	}
	if !errors.Is(err, intcode.ErrInputExhausted) {
		t.Error("connect error does not wrap ErrInputExhausted")
	}
}

func TestRun_CachesThroughStore(t *testing.T) {
	st := newTestStore(t)
	svc := NewRunService(NewPool(2), st)

	first, err := svc.Run(bg(), connectReq(&RunRequest{Program: echo, Inputs: []int64{7}}))
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Msg.Cached {
		t.Error("first run reported cached")
	}
	if first.Msg.Hash == "" {
		t.Fatal("first run reported no hash")
	}

	second, err := svc.Run(bg(), connectReq(&RunRequest{Hash: first.Msg.Hash, Inputs: []int64{7}}))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.Msg.Cached {
		t.Error("second run was not served from the store")
	}
	if !reflect.DeepEqual(second.Msg.Output, first.Msg.Output) {
		t.Errorf("cached Output = %v, want %v", second.Msg.Output, first.Msg.Output)
	}

	fresh, err := svc.Run(bg(), connectReq(&RunRequest{Program: echo, Inputs: []int64{7}, NoCache: true}))
	if err != nil {
		t.Fatalf("NoCache Run: %v", err)
	}
	if fresh.Msg.Cached {
		t.Error("NoCache run reported cached")
	}

	hist, err := svc.History(bg(), connectReq(&HistoryRequest{Hash: first.Msg.Hash}))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Msg.Runs) != 2 {
		t.Errorf("len(History) = %d, want 2 (cached run is not recorded)", len(hist.Msg.Runs))
	}
}

func TestRun_CacheHonoursLimits(t *testing.T) {
	st := newTestStore(t)
	grow := Program{1101, 1, 1, 50, 99}
	unlimited := NewRunService(NewPool(1), st)
	for _, p := range []Program{echo, grow} {
		if _, err := unlimited.Run(bg(), connectReq(&RunRequest{Program: p, Inputs: []int64{7}})); err != nil {
			t.Fatalf("Run(%v): %v", p, err)
		}
	}

	tests := []struct {
		name    string
		opts    []intcode.Option
		program Program
		cached  bool
		want    connect.Code
	}{
		{"steps within limit", []intcode.Option{intcode.WithStepLimit(3)}, echo, true, 0},
		{"steps over limit", []intcode.Option{intcode.WithStepLimit(2)}, echo, false, connect.CodeResourceExhausted},
		{"memory within limit", []intcode.Option{intcode.WithMemoryLimit(51)}, grow, true, 0},
		{"memory over limit", []intcode.Option{intcode.WithMemoryLimit(20)}, grow, false, connect.CodeResourceExhausted},
		{"program larger than memory limit", []intcode.Option{intcode.WithMemoryLimit(2)}, echo, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRunService(NewPool(1), st, tt.opts...)
			resp, err := svc.Run(bg(), connectReq(&RunRequest{Program: tt.program, Inputs: []int64{7}}))
			if tt.want != 0 {
				if got := codeOf(err); got != tt.want {
					t.Errorf("code = %v, want %v (%v)", got, tt.want, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if resp.Msg.Cached != tt.cached {
				t.Errorf("Cached = %v, want %v", resp.Msg.Cached, tt.cached)
			}
		})
	}
}

func TestRun_LoopStopsAtDeadline(t *testing.T) {
	pool := NewPool(1)
	svc := NewRunService(pool, nil)

	ctx, cancel := context.WithTimeout(bg(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := svc.Run(ctx, connectReq(&RunRequest{Program: Program{1105, 1, 0}}))
	if got := codeOf(err); got != connect.CodeDeadlineExceeded {
		t.Fatalf("code = %v, want DeadlineExceeded (%v)", got, err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run returned %v after a 100ms deadline", elapsed)
	}
	if pool.Running() != 0 {
		t.Errorf("Running() = %d after the deadline, want 0", pool.Running())
	}

	drainCtx, drainCancel := context.WithTimeout(bg(), time.Second)
	defer drainCancel()
	if err := pool.Drain(drainCtx); err != nil {
		t.Errorf("Drain: %v", err)
	}
}

func TestShutdown_AfterAbandonedLoop(t *testing.T) {
	s := New(WithWorkers(1))
	client := startTestServer(t, s)

	ctx, cancel := context.WithTimeout(bg(), 100*time.Millisecond)
	defer cancel()
	if _, err := client.Run(ctx, &RunRequest{Program: Program{1105, 1, 0}}); err == nil {
		t.Fatal("looping program returned without error")
	}

	shutCtx, shutCancel := context.WithTimeout(bg(), 2*time.Second)
	defer shutCancel()
	if err := s.Shutdown(shutCtx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestRun_UnknownHash(t *testing.T) {
	svc := NewRunService(NewPool(1), newTestStore(t))
	_, err := svc.Run(bg(), connectReq(&RunRequest{Hash: strings.Repeat("ab", 32)}))
	if codeOf(err) != connect.CodeNotFound {
		t.Errorf("code = %v, want NotFound (%v)", codeOf(err), err)
	}
}

func TestDisassemble(t *testing.T) {
	svc := NewRunService(NewPool(1), nil)
	resp, err := svc.Disassemble(bg(), connectReq(&DisassembleRequest{Program: Program{1002, 4, 3, 4, 33}, Name: "day5"}))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.HasPrefix(resp.Msg.Listing, "; === day5 ===") {
		t.Errorf("listing header = %q", resp.Msg.Listing)
	}
	if !strings.Contains(resp.Msg.Listing, "MUL") {
		t.Errorf("listing lacks MUL:\n%s", resp.Msg.Listing)
	}
}

func TestHistory_RequiresStore(t *testing.T) {
	svc := NewRunService(NewPool(1), nil)
	_, err := svc.History(bg(), connectReq(&HistoryRequest{Hash: strings.Repeat("0", 64)}))
	if codeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("code = %v, want FailedPrecondition", codeOf(err))
	}
}

// ---------------------------------------------------------------------------
// Program decoding
// ---------------------------------------------------------------------------

func TestProgramUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Program
		wantErr bool
	}{
		{`{"program":[1,0,0,0,99]}`, Program{1, 0, 0, 0, 99}, false},
		{`{"program":"1,0,0,0,99\n"}`, Program{1, 0, 0, 0, 99}, false},
		{`{"program":"1,x"}`, nil, true},
		{`{"program":{"a":1}}`, nil, true},
		{`{}`, nil, false},
	}
	for _, tt := range tests {
		var req RunRequest
		err := json.Unmarshal([]byte(tt.in), &req)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(req.Program, tt.want) {
			t.Errorf("Unmarshal(%s) program = %v, want %v", tt.in, req.Program, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// End to end over HTTP
// ---------------------------------------------------------------------------

func TestEndToEnd_RunOverHTTP(t *testing.T) {
	quine := []int64{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}
	client := startTestServer(t, New(WithWorkers(2), WithStore(newTestStore(t))))

	resp, err := client.Run(bg(), &RunRequest{Program: quine})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(resp.Output, quine) {
		t.Errorf("Output = %v, want the program itself", resp.Output)
	}

	again, err := client.Run(bg(), &RunRequest{Hash: resp.Hash})
	if err != nil {
		t.Fatalf("Run by hash: %v", err)
	}
	if !again.Cached {
		t.Error("run by hash was not cached")
	}

	hist, err := client.History(bg(), resp.Hash)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Runs) != 1 || !reflect.DeepEqual(hist.Runs[0].Output, quine) {
		t.Errorf("History = %+v", hist.Runs)
	}

	listing, err := client.Disassemble(bg(), &DisassembleRequest{Hash: resp.Hash})
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(listing.Listing, "ARB") {
		t.Errorf("listing lacks ARB:\n%s", listing.Listing)
	}
}

func TestEndToEnd_FaultOverHTTP(t *testing.T) {
	client := startTestServer(t, New())
	_, err := client.Run(bg(), &RunRequest{Program: Program{3, 0, 99}})
	if codeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument (%v)", codeOf(err), err)
	}
	if !strings.Contains(err.Error(), "input exhausted") {
		t.Errorf("error = %q, want it to mention input exhausted", err)
	}
}

// ---------------------------------------------------------------------------
// Pool
// ---------------------------------------------------------------------------

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 2)

	for i := 0; i < 2; i++ {
		go func() {
			done <- p.Do(bg(), func() error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-started
	<-started
	if p.Running() != 2 {
		t.Errorf("Running() = %d, want 2", p.Running())
	}

	ctx, cancel := context.WithTimeout(bg(), 20*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func() error {
		t.Error("third run started while the pool was full")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do on full pool = %v, want DeadlineExceeded", err)
	}

	close(release)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("Do returned %v", err)
		}
	}
	if p.Served() != 2 {
		t.Errorf("Served() = %d, want 2", p.Served())
	}
	if err := p.Drain(bg()); err != nil {
		t.Errorf("Drain: %v", err)
	}
}

func TestPool_RecoversPanic(t *testing.T) {
	p := NewPool(1)
	err := p.Do(bg(), func() error { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Do = %v, want panic error", err)
	}
	// The slot is released after a panic.
	if err := p.Do(bg(), func() error { return nil }); err != nil {
		t.Errorf("Do after panic = %v", err)
	}
}
