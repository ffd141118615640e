package tui

import (
	"math"

	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// hudRows are reserved at the bottom of the terminal for text.
const hudRows = 3

// View maps terminal cells onto the world rectangle. The world is y-up; the
// terminal is y-down.
type View struct {
	World vmath.Rect
	Cols  int
	Rows  int // play area only, HUD excluded
}

// NewView sizes a view for a terminal of w x h cells
func NewView(world vmath.Rect, w, h int) View {
	return View{World: world, Cols: max(w, 1), Rows: max(h-hudRows, 1)}
}

// ToWorld returns the world position at the centre of cell (x, y)
func (v View) ToWorld(x, y int) vmath.Vec2 {
	size := v.World.Size()
	return vmath.V(
		v.World.Min.X+(float64(x)+0.5)/float64(v.Cols)*size.X,
		v.World.Max.Y-(float64(y)+0.5)/float64(v.Rows)*size.Y,
	)
}

// ToCell returns the cell containing p and whether it lies in the play area
func (v View) ToCell(p vmath.Vec2) (x, y int, ok bool) {
	size := v.World.Size()
	fx := (p.X - v.World.Min.X) / size.X * float64(v.Cols)
	fy := (v.World.Max.Y - p.Y) / size.Y * float64(v.Rows)
	x, y = int(math.Floor(fx)), int(math.Floor(fy))
	return x, y, x >= 0 && x < v.Cols && y >= 0 && y < v.Rows
}

// CellSize is the world extent of one cell
func (v View) CellSize() vmath.Vec2 {
	size := v.World.Size()
	return vmath.V(size.X/float64(v.Cols), size.Y/float64(v.Rows))
}
