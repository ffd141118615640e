package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
)

const testSeed = "b1946ac92492d2347c6235b4d2611184"

func TestSampleDerivesFromNonce(t *testing.T) {
	req, err := Request{ServerSeed: testSeed, ClientSeed: "client"}.WithDefaults()
	if err != nil {
		t.Fatalf("WithDefaults: %v", err)
	}
	s := req.Sample(7)
	wantForce := 10 + 40*fairness.Float(testSeed, "client", 7)
	if math.Abs(s.Force-wantForce) > 1e-12 {
		t.Errorf("Force = %v, want %v", s.Force, wantForce)
	}
	if s.Accuracy < 0 || s.Accuracy >= 1 || s.Roll < 0 || s.Roll >= 1 {
		t.Errorf("sample out of range: %+v", s)
	}
	if req.Sample(7) != s {
		t.Error("same nonce produced a different sample")
	}
	if req.Sample(8) == s {
		t.Error("different nonces produced the same sample")
	}
}

func TestRunSummary(t *testing.T) {
	res, err := Run(context.Background(), Request{Attempts: 20000, ServerSeed: testSeed})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := res.Summary
	if s.Evaluated != 20000 || s.TimedOut {
		t.Fatalf("Evaluated = %d TimedOut = %v", s.Evaluated, s.TimedOut)
	}
	// E[rate] = 0.5 + 0.3/2.5 + 0.2*0.7/3 for the default ranges
	if s.MeanRate < 0.64 || s.MeanRate > 0.69 {
		t.Errorf("MeanRate = %v", s.MeanRate)
	}
	if math.Abs(s.SuccessRate-s.MeanRate) > 0.03 {
		t.Errorf("SuccessRate %v far from MeanRate %v", s.SuccessRate, s.MeanRate)
	}
	if s.P90Rate < s.MedianRate || s.StdDevRate <= 0 {
		t.Errorf("spread: median %v p90 %v stddev %v", s.MedianRate, s.P90Rate, s.StdDevRate)
	}
	if s.MeanForce < 28 || s.MeanForce > 32 {
		t.Errorf("MeanForce = %v, want about 30", s.MeanForce)
	}

	total, captured := 0, 0
	for g, n := range s.Grades {
		total += n
		if g.Success() {
			captured += n
		}
	}
	if total != s.Evaluated || captured != s.Successes {
		t.Errorf("grade counts %d/%d, want %d/%d", captured, total, s.Successes, s.Evaluated)
	}
	if res.ServerSeedHash != fairness.HashSeed(testSeed) {
		t.Error("seed hash mismatch")
	}
	if res.Echo.ServerSeed != "" {
		t.Error("server seed leaked in echo")
	}
}

func TestRunIsIndependentOfWorkers(t *testing.T) {
	one, err := Run(context.Background(), Request{Attempts: 5000, ServerSeed: testSeed, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	many, err := Run(context.Background(), Request{Attempts: 5000, ServerSeed: testSeed, Workers: 8})
	if err != nil {
		t.Fatal(err)
	}
	a, b := one.Summary, many.Summary
	if a.Successes != b.Successes || a.MeanRate != b.MeanRate || a.P90Rate != b.P90Rate {
		t.Errorf("summaries differ:\n 1 worker  %+v\n 8 workers %+v", a, b)
	}
	for g, n := range a.Grades {
		if b.Grades[g] != n {
			t.Errorf("grade %s: %d vs %d", g, n, b.Grades[g])
		}
	}
}

func TestFixedInputsGiveFixedRate(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Attempts:    500,
		ServerSeed:  testSeed,
		ForceMin:    50,
		ForceMax:    50,
		AccuracyMin: 1,
		AccuracyMax: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	s := res.Summary
	if s.MeanRate != 1 || s.StdDevRate != 0 {
		t.Errorf("MeanRate = %v StdDev = %v, want 1 and 0", s.MeanRate, s.StdDevRate)
	}
	if s.Successes != 500 || s.Grades[capture.GradePerfect] != 500 {
		t.Errorf("want every attempt perfect, got %+v", s.Grades)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"negative attempts", Request{Attempts: -1}},
		{"too many attempts", Request{Attempts: MaxAttempts + 1}},
		{"inverted force", Request{ForceMin: 40, ForceMax: 20}},
		{"accuracy above one", Request{AccuracyMin: 0.5, AccuracyMax: 1.5}},
		{"negative timeout", Request{TimeoutMs: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.ServerSeed = testSeed
			_, err := Run(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestAttemptsMessageMatchesRange(t *testing.T) {
	if err := (Request{Attempts: 0}).Validate(); err != nil {
		t.Fatalf("zero attempts rejected: %v", err)
	}
	err := (Request{Attempts: -1}).Validate()
	want := fmt.Sprintf("attempts must be in [0, %d] (0 means %d), got -1", MaxAttempts, DefaultAttempts)
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("err = %v, want it to contain %q", err, want)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Request{Attempts: 1000, ServerSeed: testSeed})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTimeoutReturnsPartialSummary(t *testing.T) {
	res, err := Run(context.Background(), Request{Attempts: MaxAttempts, ServerSeed: testSeed, TimeoutMs: 1, Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Summary.TimedOut {
		t.Fatal("expected the run to time out")
	}
	if res.Summary.Evaluated > MaxAttempts {
		t.Errorf("Evaluated = %d", res.Summary.Evaluated)
	}
}

func TestGeneratedSeedWhenMissing(t *testing.T) {
	res, err := Run(context.Background(), Request{Attempts: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.ServerSeedHash) != 64 {
		t.Errorf("ServerSeedHash = %q", res.ServerSeedHash)
	}
}
