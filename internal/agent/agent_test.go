package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/llm"
)

// fakeLLM records requests and returns a canned completion.
type fakeLLM struct {
	response string
	err      error
	requests []llm.Request
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// stubAgent lets tests script arbitrary Execute behavior.
type stubAgent struct {
	name string
	fn   func(ctx context.Context, c Context) (Result, error)
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Execute(ctx context.Context, c Context) (Result, error) {
	return s.fn(ctx, c)
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	a := &stubAgent{name: "stub", fn: func(context.Context, Context) (Result, error) {
		return Result{Success: true, Output: map[string]any{"answer": 42}}, nil
	}}
	res := Run(context.Background(), a, Context{SessionID: "s1"})

	if !res.Success {
		t.Fatalf("Success = false, error %q", res.Error)
	}
	if res.AgentName != "stub" {
		t.Fatalf("AgentName = %q", res.AgentName)
	}
	if res.TraceID == "" {
		t.Fatal("TraceID not assigned")
	}
	if res.Output["answer"] != 42 {
		t.Fatalf("Output = %v", res.Output)
	}
}

func TestRun_AbsorbsError(t *testing.T) {
	t.Parallel()

	a := &stubAgent{name: "stub", fn: func(context.Context, Context) (Result, error) {
		return Result{}, errors.New("backend unavailable")
	}}
	res := Run(context.Background(), a, Context{})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "backend unavailable" {
		t.Fatalf("Error = %q", res.Error)
	}
	if res.AgentName != "stub" || res.TraceID == "" {
		t.Fatalf("result not normalized: %+v", res)
	}
}

func TestRun_AbsorbsPanic(t *testing.T) {
	t.Parallel()

	a := &stubAgent{name: "stub", fn: func(context.Context, Context) (Result, error) {
		panic("nil map write")
	}}
	res := Run(context.Background(), a, Context{})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "agent panic: nil map write" {
		t.Fatalf("Error = %q", res.Error)
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	a := &stubAgent{name: "stub", fn: func(ctx context.Context, _ Context) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}}
	res := Run(context.Background(), a, Context{Timeout: 20 * time.Millisecond})

	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Error != context.DeadlineExceeded.Error() {
		t.Fatalf("Error = %q", res.Error)
	}
}

func TestResult_ToState(t *testing.T) {
	t.Parallel()

	ok := Result{AgentName: "research", Success: true, Output: map[string]any{"k": "v"}, TraceID: "t1"}
	st := ok.ToState()
	if st.AgentName != "research" || !st.Success || st.Error != nil {
		t.Fatalf("unexpected state: %+v", st)
	}
	if st.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not set")
	}

	failed := Result{AgentName: "research", Success: false, Error: "boom"}
	st = failed.ToState()
	if st.Error == nil || *st.Error != "boom" {
		t.Fatalf("Error = %v", st.Error)
	}
}

func TestResult_ToModel(t *testing.T) {
	t.Parallel()

	res := Result{AgentName: "companion", Success: true, ExecutionTimeMS: 12, TraceID: "t9"}
	m := res.ToModel()
	if m.AgentName != "companion" || !m.Success || m.ExecutionTimeMS != 12 || m.TraceID != "t9" {
		t.Fatalf("unexpected model: %+v", m)
	}
}

func TestRun_ConcurrentAgents(t *testing.T) {
	t.Parallel()

	a := &stubAgent{name: "stub", fn: func(_ context.Context, c Context) (Result, error) {
		return Result{Success: true, Output: map[string]any{"session": c.SessionID}}, nil
	}}

	errc := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			id := fmt.Sprintf("s%d", i)
			res := Run(context.Background(), a, Context{SessionID: id})
			if !res.Success || res.Output["session"] != id {
				errc <- fmt.Errorf("run %d: %+v", i, res)
				return
			}
			errc <- nil
		}(i)
	}
	for i := 0; i < 10; i++ {
		if err := <-errc; err != nil {
			t.Fatal(err)
		}
	}
}
