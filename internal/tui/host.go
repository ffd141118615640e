// Package tui plays the game in a terminal: the mouse drags the ball, the
// scene is drawn with cells.
package tui

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/feedback"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// Sender delivers input to the running session.
type Sender interface {
	Send(cmd any) bool
}

// Sound plays the cues carried by effects.
type Sound interface {
	Handle([]encounter.Effect)
}

// Host draws snapshots and turns terminal input into encounter events. It
// also serves as the session's sink.
type Host struct {
	screen  tcell.Screen
	world   vmath.Rect
	printer *feedback.Printer
	sound   Sound
	logger  *log.Logger

	mu       sync.Mutex
	view     View
	snap     encounter.Snapshot
	dirty    bool
	dragging bool
}

// NewHost wraps an initialized screen. sound may be nil.
func NewHost(screen tcell.Screen, world vmath.Rect, printer *feedback.Printer, sound Sound, logger *log.Logger) *Host {
	if printer == nil {
		printer = feedback.English()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[TUI] ", log.LstdFlags)
	}
	w, h := screen.Size()
	return &Host{
		screen:  screen,
		world:   world,
		printer: printer,
		sound:   sound,
		logger:  logger,
		view:    NewView(world, w, h),
		dirty:   true,
	}
}

// Effects implements session.Sink.
func (h *Host) Effects(effects []encounter.Effect) {
	if h.sound != nil {
		h.sound.Handle(effects)
	}
}

// Snapshot implements session.Sink.
func (h *Host) Snapshot(s encounter.Snapshot) {
	h.mu.Lock()
	h.snap = s
	h.dirty = true
	h.mu.Unlock()
}

// Translate converts a terminal event into session commands. quit reports
// that the player asked to leave.
func (h *Host) Translate(ev tcell.Event) (cmds []any, quit bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, hh := ev.Size()
		h.view = NewView(h.world, w, hh)
		h.dirty = true
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return nil, true
		case tcell.KeyEnter:
			return []any{encounter.Start{}}, false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return nil, true
			case 's', ' ':
				return []any{encounter.Start{}}, false
			case 'p':
				return []any{encounter.Stop{AfterEncounter: true}}, false
			case 'm':
				return []any{encounter.ReturnToMenu{}}, false
			}
		}
	case *tcell.EventMouse:
		x, y := ev.Position()
		pos := h.view.ToWorld(x, y)
		pressed := ev.Buttons()&tcell.Button1 != 0
		switch {
		case pressed && !h.dragging:
			h.dragging = true
			return []any{encounter.PointerDown{Pos: pos}}, false
		case pressed:
			return []any{encounter.PointerMove{Pos: pos}}, false
		case h.dragging:
			h.dragging = false
			return []any{encounter.PointerUp{Pos: pos}}, false
		}
	}
	return nil, false
}

// Run polls input and redraws at fps until ctx ends or the player quits.
// The caller owns the screen and finalizes it afterwards.
func (h *Host) Run(ctx context.Context, s Sender, fps int) {
	if fps <= 0 {
		fps = 30
	}
	h.screen.EnableMouse(tcell.MouseDragEvents)
	h.screen.HideCursor()

	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if _, ok := ev.(*tcell.EventResize); ok {
				h.screen.Sync()
			}
			cmds, quit := h.Translate(ev)
			if quit {
				return
			}
			for _, c := range cmds {
				if !s.Send(c) {
					h.logger.Printf("session closed, dropping %T", c)
					return
				}
			}
		case <-ticker.C:
			h.mu.Lock()
			dirty := h.dirty
			h.dirty = false
			h.mu.Unlock()
			if dirty {
				h.Draw()
				h.screen.Show()
			}
		}
	}
}
