package capture

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OddsCell is one entry of an odds table. Percent is the capture rate as an
// exact decimal percentage rounded to one place.
type OddsCell struct {
	Force    float64         `json:"force"`
	Accuracy float64         `json:"accuracy"`
	Percent  decimal.Decimal `json:"percent"`
	Grade    Grade           `json:"grade"`
}

// OddsTable is a force x accuracy grid of capture rates.
type OddsTable struct {
	Forces     []float64    `json:"forces"`
	Accuracies []float64    `json:"accuracies"`
	Rows       [][]OddsCell `json:"rows"`
}

// DefaultForces are the force columns shown when none are requested
var DefaultForces = []float64{0, 10, 20, 30, 40, 50}

// DefaultAccuracies are the accuracy rows shown when none are requested
var DefaultAccuracies = []float64{0, 0.3, 0.5, 0.7, 0.9, 1.0}

// OddsTable builds the grid. Rows are indexed by accuracy, columns by force.
// The grade assumes a successful roll so it shows the best reachable tier.
func (t Tuning) OddsTable(forces, accuracies []float64) (OddsTable, error) {
	if len(forces) == 0 {
		forces = DefaultForces
	}
	if len(accuracies) == 0 {
		accuracies = DefaultAccuracies
	}
	for _, a := range accuracies {
		if a < 0 || a > 1 {
			return OddsTable{}, fmt.Errorf("capture: accuracy %v outside [0, 1]", a)
		}
	}
	for _, f := range forces {
		if f < 0 {
			return OddsTable{}, fmt.Errorf("capture: negative force %v", f)
		}
	}

	hundred := decimal.NewFromInt(100)
	table := OddsTable{Forces: forces, Accuracies: accuracies, Rows: make([][]OddsCell, len(accuracies))}
	for i, a := range accuracies {
		row := make([]OddsCell, len(forces))
		for j, f := range forces {
			res := t.Evaluate(f, a, 0)
			row[j] = OddsCell{
				Force:    f,
				Accuracy: a,
				Percent:  decimal.NewFromFloat(res.Rate).Mul(hundred).Round(1),
				Grade:    res.Grade,
			}
		}
		table.Rows[i] = row
	}
	return table, nil
}

// Percent formats a rate in [0, 1] as a percentage string with one decimal place
func Percent(rate float64) string {
	return decimal.NewFromFloat(rate).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}
