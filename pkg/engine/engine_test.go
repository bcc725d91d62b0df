package engine

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := newEngine(t)
	res := run(t, eng, "   \n\t ")
	if len(res.Created) != 0 {
		t.Errorf("expected nothing created, got %v", res.Created)
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	eng := newEngine(t)
	res := run(t, eng, "(+ 1 2)")
	if res.Value != "3" {
		t.Errorf("value = %q, want 3", res.Value)
	}
	if eng.Scene().Len() != 0 {
		t.Errorf("scene len = %d, want 0", eng.Scene().Len())
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := newEngine(t)

	res, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := newEngine(t)

	res, evalErrs, err := eng.Evaluate("(extrude-x 1)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on undefined symbol")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if strings.Contains(e2.Error(), "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", e2.Error())
	}
}

func TestEvaluationsShareScene(t *testing.T) {
	eng := newEngine(t)
	run(t, eng, `(place "D14")`)
	res := run(t, eng, `(extrude-c "D14" "A.D14.A")`)
	if len(res.Created) != 1 || res.Created[0] != "D14.001" {
		t.Errorf("created = %v, want [D14.001]", res.Created)
	}
	if eng.Scene().Len() != 2 {
		t.Errorf("scene len = %d, want 2", eng.Scene().Len())
	}
}

func TestCreatedOmitsDestroyedModules(t *testing.T) {
	eng := newEngine(t)
	res := run(t, eng, `
(def a (place "D14"))
(deselect-all)
(def b (extrude-c a "A.D79.A"))
(destroy b)
`)
	if len(res.Created) != 1 || res.Created[0] != "D14" {
		t.Errorf("created = %v, want [D14]", res.Created)
	}
}

func TestConcurrentEvaluationsAreSerialized(t *testing.T) {
	eng := newEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Superseded results are expected here; only the scene matters.
			eng.Evaluate(`(deselect-all) (place "D14")`)
		}()
	}
	wg.Wait()

	if eng.Scene().Len() != 4 {
		t.Errorf("scene len = %d, want 4", eng.Scene().Len())
	}
}

func TestEvaluateTimeout(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // Never sends

	timeout := 50 * time.Millisecond
	start := time.Now()
	_, _, err := waitWithTimeout(ch, 1, timeout, &mu, &gen)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) < timeout {
		t.Errorf("returned before the timeout elapsed")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, 1, EvalTimeout, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	eng := newEngine(t, WithTimeout(0))
	if eng.timeout != EvalTimeout {
		t.Errorf("timeout = %s, want %s", eng.timeout, EvalTimeout)
	}
	eng = newEngine(t, WithTimeout(time.Second))
	if eng.timeout != time.Second {
		t.Errorf("timeout = %s, want 1s", eng.timeout)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: extrude-c: chain occupied",
			wantLine: 3,
			wantMsg:  "chain occupied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
