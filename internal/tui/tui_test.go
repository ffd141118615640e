package tui

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/feedback"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

var world = vmath.Rect{Min: vmath.V(-9, -5.5), Max: vmath.V(9, 5.5)}

func newTestHost(t *testing.T, sound Sound) (*Host, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return NewHost(screen, world, feedback.English(), sound, log.New(io.Discard, "", 0)), screen
}

func rowText(s tcell.Screen, y, width int) string {
	var b strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := s.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

func cellAt(s tcell.Screen, v View, p vmath.Vec2) rune {
	x, y, _ := v.ToCell(p)
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestViewRoundTrip(t *testing.T) {
	v := NewView(world, 80, 24)
	if v.Rows != 24-hudRows {
		t.Fatalf("rows = %d", v.Rows)
	}
	for _, c := range [][2]int{{0, 0}, {79, 20}, {40, 10}, {13, 7}} {
		p := v.ToWorld(c[0], c[1])
		x, y, ok := v.ToCell(p)
		if !ok || x != c[0] || y != c[1] {
			t.Errorf("cell %v -> %v -> (%d, %d, %v)", c, p, x, y, ok)
		}
	}
	if p := v.ToWorld(0, 0); p.X > -8.8 || p.Y < 5.2 {
		t.Errorf("top-left cell maps to %v", p)
	}
	if _, _, ok := v.ToCell(vmath.V(0, -5.6)); ok {
		t.Error("point below the world should be outside the play area")
	}
}

func TestTranslateMouseDrag(t *testing.T) {
	h, _ := newTestHost(t, nil)

	cmds, _ := h.Translate(tcell.NewEventMouse(40, 19, tcell.Button1, tcell.ModNone))
	down, ok := cmds[0].(encounter.PointerDown)
	if !ok {
		t.Fatalf("first press = %T, want PointerDown", cmds[0])
	}
	cmds, _ = h.Translate(tcell.NewEventMouse(40, 20, tcell.Button1, tcell.ModNone))
	if _, ok := cmds[0].(encounter.PointerMove); !ok {
		t.Fatalf("drag = %T, want PointerMove", cmds[0])
	}
	cmds, _ = h.Translate(tcell.NewEventMouse(41, 20, tcell.ButtonNone, tcell.ModNone))
	up, ok := cmds[0].(encounter.PointerUp)
	if !ok {
		t.Fatalf("release = %T, want PointerUp", cmds[0])
	}
	if up.Pos.Y >= down.Pos.Y {
		t.Errorf("dragging down the screen should lower the pointer: %v -> %v", down.Pos, up.Pos)
	}

	// motion with no button held is ignored
	if cmds, _ := h.Translate(tcell.NewEventMouse(10, 10, tcell.ButtonNone, tcell.ModNone)); len(cmds) != 0 {
		t.Errorf("hover produced %v", cmds)
	}
}

func TestTranslateKeys(t *testing.T) {
	h, _ := newTestHost(t, nil)
	tests := []struct {
		name string
		ev   tcell.Event
		want any
		quit bool
	}{
		{"start", tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), encounter.Start{}, false},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), encounter.Start{}, false},
		{"stop", tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), encounter.Stop{AfterEncounter: true}, false},
		{"menu", tcell.NewEventKey(tcell.KeyRune, 'm', tcell.ModNone), encounter.ReturnToMenu{}, false},
		{"quit", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), nil, true},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, quit := h.Translate(tt.ev)
			if quit != tt.quit {
				t.Fatalf("quit = %v", quit)
			}
			if tt.want == nil {
				if len(cmds) != 0 {
					t.Errorf("cmds = %v", cmds)
				}
				return
			}
			if len(cmds) != 1 || cmds[0] != tt.want {
				t.Errorf("cmds = %v, want %v", cmds, tt.want)
			}
		})
	}
}

func TestResizeRemapsView(t *testing.T) {
	h, _ := newTestHost(t, nil)
	h.Translate(tcell.NewEventResize(120, 43))
	if h.view.Cols != 120 || h.view.Rows != 40 {
		t.Errorf("view = %+v", h.view)
	}
}

func TestDrawScene(t *testing.T) {
	h, screen := newTestHost(t, nil)
	target := throw.NewTarget(vmath.V(0, 2.5), 1)
	h.Snapshot(encounter.Snapshot{
		Phase:  encounter.PhaseAwaitingThrow,
		Serial: 3,
		Throw: &throw.Snapshot{
			State:      throw.StateAiming,
			Ball:       vmath.V(0, -3.5),
			Target:     target,
			Meter:      throw.MeterFor(0.5),
			Trajectory: []vmath.Vec2{vmath.V(0, -2), vmath.V(0, 0)},
		},
		Feedback: encounter.FeedbackShown{Key: feedback.KeyDragAndRelease, Text: "Drag and release the Poké Ball!"},
		Stats:    encounter.Stats{Throws: 4, Captures: 1},
	})
	h.Draw()

	v := h.view
	if r := cellAt(screen, v, vmath.V(0, -3.5)); r != runeBall {
		t.Errorf("ball cell = %q", r)
	}
	if r := cellAt(screen, v, target.Center); r != runeTarget {
		t.Errorf("target cell = %q", r)
	}
	if r := cellAt(screen, v, vmath.V(0, 0)); r != runePath {
		t.Errorf("trajectory cell = %q", r)
	}
	if row := rowText(screen, v.Rows, 80); !strings.Contains(row, "Force 50%") || !strings.Contains(row, "medium") {
		t.Errorf("meter row = %q", row)
	}
	if row := rowText(screen, v.Rows+1, 80); !strings.HasPrefix(row, "Drag and release") {
		t.Errorf("feedback row = %q", row)
	}
	if row := rowText(screen, v.Rows+2, 80); !strings.Contains(row, "encounter 3") || !strings.Contains(row, "throws 4") {
		t.Errorf("status row = %q", row)
	}
}

func TestDrawCapturedRecord(t *testing.T) {
	h, screen := newTestHost(t, nil)
	target := throw.NewTarget(vmath.V(0, 2.5), 1)
	h.Snapshot(encounter.Snapshot{
		Phase:    encounter.PhaseDisplaying,
		Throw:    &throw.Snapshot{Target: target, Ball: target.Center},
		Record:   &pokemon.Record{ID: 133, Name: "eevee", Image: "u", Types: []string{"normal"}},
		Feedback: encounter.FeedbackShown{Text: "You caught Eevee!"},
	})
	h.Draw()

	v := h.view
	if row := rowText(screen, v.Rows+1, 80); !strings.Contains(row, "#133 Eevee (normal)") {
		t.Errorf("record row = %q", row)
	}
	// target is hidden once caught; the ball sits where it was
	if cellAt(screen, v, target.Center.Add(vmath.V(0.5, 0))) == runeTarget {
		t.Error("target still drawn after capture")
	}
}

type recordingSound struct{ got []encounter.Effect }

func (r *recordingSound) Handle(es []encounter.Effect) { r.got = append(r.got, es...) }

func TestEffectsReachSound(t *testing.T) {
	snd := &recordingSound{}
	h, _ := newTestHost(t, snd)
	h.Effects([]encounter.Effect{encounter.SoundPlayed{Cue: encounter.CueThrow}})
	if len(snd.got) != 1 {
		t.Fatalf("sound got %v", snd.got)
	}
}
