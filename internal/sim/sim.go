// Package sim runs Monte-Carlo capture simulations.
//
// Every attempt draws its force, accuracy and capture roll from a single
// fairness nonce, so a run is reproducible from its seeds no matter how many
// workers evaluate it.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

const (
	DefaultAttempts = 100
	MaxAttempts     = 1_000_000

	// attempts handed to a worker at a time
	chunkSize = 1024

	defaultClientSeed = "simulation"
)

// ErrInvalidRequest is wrapped by Request.Validate failures
var ErrInvalidRequest = errors.New("sim: invalid request")

// Request describes one simulation run.
type Request struct {
	Attempts int `json:"attempts"`

	// Force is drawn uniformly from [ForceMin, ForceMax]; both zero means 10..50.
	ForceMin float64 `json:"forceMin"`
	ForceMax float64 `json:"forceMax"`
	// Accuracy is drawn uniformly from [AccuracyMin, AccuracyMax]; both zero means 0..1.
	AccuracyMin float64 `json:"accuracyMin"`
	AccuracyMax float64 `json:"accuracyMax"`

	ServerSeed string `json:"serverSeed"`
	ClientSeed string `json:"clientSeed"`
	StartNonce uint64 `json:"startNonce"`

	Workers   int `json:"workers,omitempty"`
	TimeoutMs int `json:"timeoutMs,omitempty"`

	Tuning *capture.Tuning `json:"tuning,omitempty"`
}

// WithDefaults fills zero fields. A missing server seed is generated.
func (r Request) WithDefaults() (Request, error) {
	if r.Attempts == 0 {
		r.Attempts = DefaultAttempts
	}
	if r.ForceMin == 0 && r.ForceMax == 0 {
		r.ForceMin, r.ForceMax = 10, 50
	}
	if r.AccuracyMin == 0 && r.AccuracyMax == 0 {
		r.AccuracyMin, r.AccuracyMax = 0, 1
	}
	if strings.TrimSpace(r.ClientSeed) == "" {
		r.ClientSeed = defaultClientSeed
	}
	if strings.TrimSpace(r.ServerSeed) == "" {
		seed, err := fairness.NewServerSeed()
		if err != nil {
			return r, fmt.Errorf("sim: generate server seed: %w", err)
		}
		r.ServerSeed = seed
	}
	if r.Workers <= 0 {
		r.Workers = runtime.GOMAXPROCS(0)
	}
	if r.Tuning == nil {
		t := capture.DefaultTuning()
		r.Tuning = &t
	}
	return r, nil
}

// Validate checks ranges after defaults have been applied
func (r Request) Validate() error {
	switch {
	case r.Attempts < 0 || r.Attempts > MaxAttempts:
		return fmt.Errorf("%w: attempts must be in [0, %d] (0 means %d), got %d", ErrInvalidRequest, MaxAttempts, DefaultAttempts, r.Attempts)
	case r.ForceMin < 0 || r.ForceMax < r.ForceMin:
		return fmt.Errorf("%w: force range [%v, %v]", ErrInvalidRequest, r.ForceMin, r.ForceMax)
	case r.AccuracyMin < 0 || r.AccuracyMax > 1 || r.AccuracyMax < r.AccuracyMin:
		return fmt.Errorf("%w: accuracy range [%v, %v] must lie in [0, 1]", ErrInvalidRequest, r.AccuracyMin, r.AccuracyMax)
	case r.TimeoutMs < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalidRequest)
	}
	return nil
}

// Sample is the throw drawn for one nonce.
type Sample struct {
	Nonce    uint64  `json:"nonce"`
	Force    float64 `json:"force"`
	Accuracy float64 `json:"accuracy"`
	Roll     float64 `json:"roll"`
}

// Sample derives the throw for nonce from the request seeds
func (r Request) Sample(nonce uint64) Sample {
	bg := fairness.NewByteGenerator(r.ServerSeed, r.ClientSeed, nonce, 0)
	return Sample{
		Nonce:    nonce,
		Force:    vmath.Lerp(r.ForceMin, r.ForceMax, bg.NextFloat()),
		Accuracy: vmath.Lerp(r.AccuracyMin, r.AccuracyMax, bg.NextFloat()),
		Roll:     bg.NextFloat(),
	}
}

// Summary aggregates a run.
type Summary struct {
	Evaluated   int                   `json:"evaluated"`
	Successes   int                   `json:"successes"`
	SuccessRate float64               `json:"successRate"`
	MeanRate    float64               `json:"meanRate"`
	StdDevRate  float64               `json:"stdDevRate"`
	MedianRate  float64               `json:"medianRate"`
	P90Rate     float64               `json:"p90Rate"`
	MeanForce   float64               `json:"meanForce"`
	Grades      map[capture.Grade]int `json:"grades"`
	TimedOut    bool                  `json:"timedOut,omitempty"`
}

// Result is a finished run.
type Result struct {
	Summary        Summary       `json:"summary"`
	ServerSeedHash string        `json:"serverSeedHash"`
	Duration       time.Duration `json:"durationNs"`
	Echo           Request       `json:"echo"`
}

type chunk struct {
	rates     []float64
	forces    []float64
	successes int
	grades    map[capture.Grade]int
}

// Run simulates req.Attempts captures. A run cut short by its own timeout
// returns the partial summary with TimedOut set; cancellation of ctx is an
// error.
func Run(ctx context.Context, req Request) (*Result, error) {
	req, err := req.WithDefaults()
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runCtx := ctx
	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	started := time.Now()
	chunks := make([]*chunk, (req.Attempts+chunkSize-1)/chunkSize)

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(req.Workers)
	for i := range chunks {
		if gctx.Err() != nil {
			break
		}
		lo := i * chunkSize
		hi := min(lo+chunkSize, req.Attempts)
		g.Go(func() error {
			c, err := evaluate(gctx, req, lo, hi)
			chunks[i] = c
			return err
		})
	}
	err = g.Wait()

	timedOut := false
	if err != nil || runCtx.Err() != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sim: run: %w", ctx.Err())
		}
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("sim: run: %w", err)
		}
		timedOut = true
	}

	summary, err := summarize(chunks)
	if err != nil {
		return nil, err
	}
	summary.TimedOut = timedOut

	echo := req
	echo.ServerSeed = ""
	return &Result{
		Summary:        summary,
		ServerSeedHash: fairness.HashSeed(req.ServerSeed),
		Duration:       time.Since(started),
		Echo:           echo,
	}, nil
}

func evaluate(ctx context.Context, req Request, lo, hi int) (*chunk, error) {
	c := &chunk{
		rates:  make([]float64, 0, hi-lo),
		forces: make([]float64, 0, hi-lo),
		grades: make(map[capture.Grade]int),
	}
	for i := lo; i < hi; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return c, err
			}
		}
		s := req.Sample(req.StartNonce + uint64(i))
		res := req.Tuning.Evaluate(s.Force, s.Accuracy, s.Roll)
		c.rates = append(c.rates, res.Rate)
		c.forces = append(c.forces, s.Force)
		c.grades[res.Grade]++
		if res.Success {
			c.successes++
		}
	}
	return c, nil
}

// chunks are merged in order so the float sums do not depend on scheduling
func summarize(chunks []*chunk) (Summary, error) {
	sum := Summary{Grades: make(map[capture.Grade]int)}
	var rates, forces []float64
	for _, c := range chunks {
		if c == nil {
			continue
		}
		rates = append(rates, c.rates...)
		forces = append(forces, c.forces...)
		sum.Successes += c.successes
		for g, n := range c.grades {
			sum.Grades[g] += n
		}
	}
	sum.Evaluated = len(rates)
	if sum.Evaluated == 0 {
		return sum, nil
	}
	sum.SuccessRate = float64(sum.Successes) / float64(sum.Evaluated)

	var err error
	if sum.MeanRate, err = stats.Mean(rates); err != nil {
		return sum, fmt.Errorf("sim: mean: %w", err)
	}
	if sum.StdDevRate, err = stats.StandardDeviation(rates); err != nil {
		return sum, fmt.Errorf("sim: stddev: %w", err)
	}
	if sum.MedianRate, err = stats.Median(rates); err != nil {
		return sum, fmt.Errorf("sim: median: %w", err)
	}
	if sum.P90Rate, err = stats.Percentile(rates, 90); err != nil {
		return sum, fmt.Errorf("sim: p90: %w", err)
	}
	if sum.MeanForce, err = stats.Mean(forces); err != nil {
		return sum, fmt.Errorf("sim: mean force: %w", err)
	}
	return sum, nil
}
