package autoplay

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
)

const testSeed = "3f1c0d27a8e94b5c9e6b2f4a7d8c1e05"

const straightScript = `
function aim(ctx) {
	return { x: 0, y: 2 }
}
`

func newRunner(t *testing.T, source string, opts Options) *Runner {
	t.Helper()
	if opts.ServerSeed == "" {
		opts.ServerSeed = testSeed
	}
	r, err := NewRunner(context.Background(), source, opts)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestStraightStrategyCaptures(t *testing.T) {
	r := newRunner(t, straightScript, Options{Encounters: 5, MaxThrows: 50})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Encounters != 5 || rep.Abandoned != 0 {
		t.Fatalf("Encounters = %d Abandoned = %d", rep.Encounters, rep.Abandoned)
	}
	if rep.Captures != 5 {
		t.Errorf("Captures = %d, want one per encounter", rep.Captures)
	}
	if rep.Misses != 0 || rep.Hits != rep.Throws {
		t.Errorf("straight throws should all hit: %+v", rep)
	}
	if rep.Hits != rep.Captures+rep.Failures {
		t.Errorf("Hits %d != Captures %d + Failures %d", rep.Hits, rep.Captures, rep.Failures)
	}
	if rep.CaptureRate != 1 {
		t.Errorf("CaptureRate = %v", rep.CaptureRate)
	}
	if len(rep.History) != rep.Throws {
		t.Fatalf("History has %d entries for %d throws", len(rep.History), rep.Throws)
	}
	for _, h := range rep.History {
		if h.Pull.Y != 2 || h.Outcome != throw.OutcomeHit || h.Grade == "" {
			t.Errorf("unexpected history entry %+v", h)
		}
	}
	if rep.Seeds.ServerSeedHash == "" {
		t.Error("report should carry the seed commitment")
	}
}

func TestMissingStrategyIsAbandoned(t *testing.T) {
	script := `function aim(ctx) { return { x: 3, y: 0 } }`
	r := newRunner(t, script, Options{Encounters: 2, MaxThrows: 2})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Abandoned != 2 || rep.Encounters != 2 {
		t.Errorf("Abandoned = %d Encounters = %d, want 2/2", rep.Abandoned, rep.Encounters)
	}
	if rep.Misses != 4 || rep.Captures != 0 {
		t.Errorf("Misses = %d Captures = %d", rep.Misses, rep.Captures)
	}
	if rep.History[0].MissReason != throw.MissOutOfBounds {
		t.Errorf("MissReason = %s", rep.History[0].MissReason)
	}
}

func TestScriptSeesPreviousThrow(t *testing.T) {
	script := `
function aim(ctx) {
	if (ctx.last === null) {
		log("first", ctx.encounter, ctx.target.radius)
		return { x: 3, y: 0 }
	}
	log("after", ctx.last.outcome, ctx.attempt)
	return { x: 0, y: 2 }
}
`
	r := newRunner(t, script, Options{Encounters: 1})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Logs) < 2 {
		t.Fatalf("logs = %+v", rep.Logs)
	}
	if rep.Logs[0].Message != "first 1 1" {
		t.Errorf("first log = %q", rep.Logs[0].Message)
	}
	if rep.Logs[1].Message != "after missed 1" {
		t.Errorf("second log = %q", rep.Logs[1].Message)
	}
}

func TestStopEndsRun(t *testing.T) {
	script := `
function aim(ctx) {
	if (ctx.stats.captures > 0) { stop() }
	return { x: 0, y: 2 }
}
`
	r := newRunner(t, script, Options{Encounters: 50})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.StoppedByScript {
		t.Error("StoppedByScript not set")
	}
	if rep.Encounters >= 50 {
		t.Errorf("run did not stop early: %d encounters", rep.Encounters)
	}
}

func TestRunIsReproducible(t *testing.T) {
	script := `function aim(ctx) { return { x: Math.random() - 0.5, y: 1 + Math.random() * 2 } }`
	a, err := newRunner(t, script, Options{Encounters: 3}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := newRunner(t, script, Options{Encounters: 3}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.History, b.History) {
		t.Error("same seeds produced different histories")
	}
}

func TestMetadataErrorsAreCounted(t *testing.T) {
	fail := bridge.FetcherFunc(func(ctx context.Context, id int) (pokemon.Record, error) {
		return pokemon.Record{}, errors.New("offline")
	})
	var outcomes []bridge.Outcome
	notifier := bridge.NotifierFunc(func(o bridge.Outcome) { outcomes = append(outcomes, o) })

	r := newRunner(t, straightScript, Options{Encounters: 2, Fetcher: fail, Notifier: notifier})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.MetadataErrors != rep.Captures || rep.Captures == 0 {
		t.Errorf("MetadataErrors = %d Captures = %d", rep.MetadataErrors, rep.Captures)
	}
	for _, o := range outcomes {
		if o.Kind == bridge.CaptureSucceeded {
			t.Error("success notified without a record")
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"no aim", `var x = 1`, ErrNoAim},
		{"aim not a function", `var aim = 3`, ErrNoAim},
		{"load timeout", `while (true) {}`, ErrScriptTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(context.Background(), tt.source, Options{ServerSeed: testSeed})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewRunner(context.Background(), `syntax error (`, Options{ServerSeed: testSeed}); err == nil {
		t.Error("syntax error accepted")
	}
}

func TestSandboxRemovesGlobals(t *testing.T) {
	vm := NewVM(0)
	for _, src := range []string{
		`require("fs")`,
		`eval("1")`,
		`fetch("http://x")`,
		`Function("return 1")()`,
		`(function () {}).constructor("return 1")()`,
		`(function* () {}).constructor("yield 1")`,
		`(async function () {}).constructor("return 1")`,
		`Object.getPrototypeOf(function () {}).constructor("return 1")()`,
	} {
		if err := vm.Load(context.Background(), src+"\nfunction aim() { return {x: 0, y: 1} }"); err == nil {
			t.Errorf("%s should fail", src)
		}
	}
}

func TestAimValidation(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"undefined", `function aim() {}`, ErrBadAim},
		{"number", `function aim() { return 4 }`, ErrBadAim},
		{"missing y", `function aim() { return { x: 1 } }`, ErrBadAim},
		{"nan", `function aim() { return { x: NaN, y: 1 } }`, ErrBadAim},
		{"runaway", `function aim() { for (;;) {} }`, ErrScriptTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := NewVM(50 * time.Millisecond)
			if err := vm.Load(context.Background(), tt.source); err != nil {
				t.Fatalf("Load: %v", err)
			}
			_, err := vm.Aim(context.Background(), AimContext{})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAimHonoursContext(t *testing.T) {
	vm := NewVM(10 * time.Second)
	if err := vm.Load(context.Background(), `function aim() { for (;;) {} }`); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := vm.Aim(ctx, AimContext{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestConsoleLogAlias(t *testing.T) {
	vm := NewVM(0)
	if err := vm.Load(context.Background(), `console.log("a", 1); function aim() { return {x:0, y:1} }`); err != nil {
		t.Fatal(err)
	}
	logs := vm.Logs()
	if len(logs) != 1 || !strings.HasPrefix(logs[0].Message, "a 1") {
		t.Errorf("logs = %+v", logs)
	}
}
