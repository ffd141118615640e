package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/feedback"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

const (
	runeBall   = '●'
	runeTarget = '▒'
	runePath   = '·'
	meterWidth = 20
)

var (
	styleDefault = tcell.StyleDefault
	styleBall    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleTarget  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	stylePath    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHUD     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleCaught  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
)

var tierStyles = map[throw.ForceTier]tcell.Style{
	throw.TierWeak:   tcell.StyleDefault.Foreground(tcell.ColorGreen),
	throw.TierMedium: tcell.StyleDefault.Foreground(tcell.ColorYellow),
	throw.TierStrong: tcell.StyleDefault.Foreground(tcell.ColorRed),
}

// Draw renders the latest snapshot into the screen buffer. The caller shows it.
func (h *Host) Draw() {
	h.mu.Lock()
	snap, v := h.snap, h.view
	h.mu.Unlock()

	h.screen.Clear()
	if ts := snap.Throw; ts != nil {
		drawTarget(h.screen, v, ts.Target, snap.Record == nil)
		for _, p := range ts.Trajectory {
			if x, y, ok := v.ToCell(p); ok {
				h.screen.SetContent(x, y, runePath, nil, stylePath)
			}
		}
		if x, y, ok := v.ToCell(ts.Ball); ok {
			h.screen.SetContent(x, y, runeBall, nil, styleBall)
		}
		if ts.Meter.Visible {
			drawMeter(h.screen, v, h.printer, ts.Meter)
		}
	}
	drawHUD(h.screen, v, snap)
}

// drawTarget fills the cells whose centre lies inside the target circle.
// Once captured the target is gone from the scene.
func drawTarget(s tcell.Screen, v View, t throw.Target, visible bool) {
	if !visible {
		return
	}
	x0, y0, _ := v.ToCell(t.Center.Add(vmath.V(-t.Radius, t.Radius)))
	x1, y1, _ := v.ToCell(t.Center.Add(vmath.V(t.Radius, -t.Radius)))
	for y := max(y0, 0); y <= min(y1, v.Rows-1); y++ {
		for x := max(x0, 0); x <= min(x1, v.Cols-1); x++ {
			if v.ToWorld(x, y).Sub(t.Center).Len() <= t.Radius {
				s.SetContent(x, y, runeTarget, nil, styleTarget)
			}
		}
	}
}

func drawMeter(s tcell.Screen, v View, p *feedback.Printer, m throw.Meter) {
	filled := m.Percent * meterWidth / 100
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat(" ", meterWidth-filled) + "] "
	style, ok := tierStyles[m.Tier]
	if !ok {
		style = styleHUD
	}
	putText(s, 0, v.Rows, bar, style)
	putText(s, len([]rune(bar)), v.Rows, p.Text(feedback.KeyForceMeter, m.Percent)+" "+string(m.Tier), style)
}

func drawHUD(s tcell.Screen, v View, snap encounter.Snapshot) {
	msg := snap.Feedback.Text
	style := styleHUD
	if snap.Record != nil {
		style = styleCaught
		msg = fmt.Sprintf("%s  #%d %s (%s)", msg, snap.Record.ID, snap.Record.DisplayName(), strings.Join(snap.Record.Types, "/"))
	}
	putText(s, 0, v.Rows+1, msg, style)

	st := snap.Stats
	status := fmt.Sprintf("%-16s encounter %d  throws %d  hits %d  caught %d  broke free %d",
		snap.Phase, snap.Serial, st.Throws, st.Hits, st.Captures, st.Failures)
	if snap.Phase == encounter.PhaseIdle {
		status += "   [s] play  [q] quit"
	} else {
		status += "   [p] stop  [m] menu"
	}
	putText(s, 0, v.Rows+2, status, styleDefault)
}

func putText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
