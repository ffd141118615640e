package bindings

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/config"
	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/sim"
)

type emitted struct {
	name string
	data []any
}

type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) emit(_ context.Context, name string, data ...any) {
	r.mu.Lock()
	r.events = append(r.events, emitted{name, data})
	r.mu.Unlock()
}

func (r *recorder) find(name string) (emitted, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.name == name {
			return e, true
		}
	}
	return emitted{}, false
}

func newTestDesktop(t *testing.T) (*Desktop, *recorder) {
	t.Helper()
	keyring.MockInit()
	t.Setenv("PT_DATA_DIR", t.TempDir())
	t.Setenv("PT_PROFILE", "bindings-test")
	t.Setenv("PT_API_ENABLED", "false")
	t.Setenv("PT_CACHE_DISABLED", "true")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	rec := &recorder{}
	d := New(cfg, log.New(io.Discard, "", 0))
	d.emit = rec.emit
	if err := d.Startup(context.Background()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return d, rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGameSessionLifecycle(t *testing.T) {
	d, rec := newTestDesktop(t)

	info, err := d.Game.NewGame(true)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if info.SessionID == "" || info.Seeds.ServerSeedHash == "" {
		t.Errorf("info = %+v", info)
	}
	if got := d.Game.Sessions(); len(got) != 1 || got[0] != info.SessionID {
		t.Errorf("Sessions = %v", got)
	}

	if err := d.Game.Receive(info.SessionID, bridge.EventStartGame, "", 0); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	waitFor(t, "awaiting_throw", func() bool {
		snap, err := d.Game.Snapshot(info.SessionID)
		return err == nil && snap.Phase == encounter.PhaseAwaitingThrow
	})
	waitFor(t, "snapshot event", func() bool {
		_, ok := rec.find(EventSnapshot + ":" + info.SessionID)
		return ok
	})

	if err := d.Game.ReturnToMenu(info.SessionID); err != nil {
		t.Fatalf("ReturnToMenu: %v", err)
	}
	waitFor(t, "ReturnToMenu event", func() bool {
		e, ok := rec.find(bridge.EventReturnToMenu)
		return ok && len(e.data) == 2 && e.data[1] == info.SessionID
	})

	if err := d.Game.EndGame(info.SessionID); err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	if err := d.Game.Start(info.SessionID); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Start after EndGame = %v", err)
	}
}

func TestReceiveMalformedRecord(t *testing.T) {
	d, _ := newTestDesktop(t)
	info, err := d.Game.NewGame(true)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	err = d.Game.Receive(info.SessionID, bridge.EventReceivePokemonData, "{not json", 0)
	var merr *bridge.MalformedPayloadError
	if !errors.As(err, &merr) {
		t.Errorf("err = %v, want MalformedPayloadError", err)
	}
	if err := d.Game.Receive(info.SessionID, "Bogus", "", 0); err == nil {
		t.Error("unknown event accepted")
	}
	if err := d.Game.Receive("missing", bridge.EventStartGame, "", 0); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("unknown session err = %v", err)
	}
}

func TestHistoryModuleEmpty(t *testing.T) {
	d, _ := newTestDesktop(t)
	n, err := d.History.Count()
	if err != nil || n != 0 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	p, err := d.History.List(1, 10)
	if err != nil || len(p.Entries) != 0 {
		t.Errorf("List = %+v, %v", p, err)
	}
	if _, err := d.History.Get("nope"); err == nil {
		t.Error("Get of unknown id succeeded")
	}
}

func TestFairnessModule(t *testing.T) {
	d, _ := newTestDesktop(t)

	before, err := d.Fairness.Commitment()
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	rev, err := d.Fairness.RotateSeeds("page")
	if err != nil {
		t.Fatalf("RotateSeeds: %v", err)
	}
	if d.Fairness.HashServerSeed(rev.ServerSeed) != before.ServerSeedHash {
		t.Error("revealed seed does not hash to the commitment")
	}
	v := fairness.Float("a", "b", 3)
	if !d.Fairness.VerifyRoll("a", "b", 3, v) || d.Fairness.VerifyRoll("a", "b", 4, v) {
		t.Error("VerifyRoll mismatch")
	}

	table, err := d.Fairness.Odds(nil, nil)
	if err != nil || len(table.Rows) == 0 {
		t.Fatalf("Odds = %+v, %v", table, err)
	}
	res, err := d.Fairness.Simulate(sim.Request{Attempts: 200, ServerSeed: "s", ClientSeed: "c"})
	if err != nil || res.Summary.Evaluated != 200 {
		t.Fatalf("Simulate = %+v, %v", res, err)
	}
}

func TestAutoplayModule(t *testing.T) {
	d, _ := newTestDesktop(t)
	if err := d.Autoplay.Check("var x = 1"); err == nil {
		t.Error("script without aim accepted")
	}
	src := `function aim(ctx) { return { x: 0, y: 2 } }`
	if err := d.Autoplay.Check(src); err != nil {
		t.Fatalf("Check: %v", err)
	}
	rep, err := d.Autoplay.Run(AutoplayRequest{Source: src, Encounters: 2, ServerSeed: "s"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Throws == 0 || rep.Seeds.ServerSeedHash != fairness.HashSeed("s") {
		t.Errorf("report = %+v", rep)
	}
}

func TestServicesRequired(t *testing.T) {
	d := New(config.Config{}, log.New(io.Discard, "", 0))
	if _, err := d.Game.NewGame(true); err == nil {
		t.Error("NewGame before Startup succeeded")
	}
	if _, err := d.History.Count(); err == nil {
		t.Error("Count before Startup succeeded")
	}
}
