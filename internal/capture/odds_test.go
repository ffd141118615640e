package capture

import "testing"

func TestOddsTableDefaults(t *testing.T) {
	table, err := DefaultTuning().OddsTable(nil, nil)
	if err != nil {
		t.Fatalf("OddsTable: %v", err)
	}
	if len(table.Rows) != len(DefaultAccuracies) {
		t.Fatalf("rows = %d, want %d", len(table.Rows), len(DefaultAccuracies))
	}
	for _, row := range table.Rows {
		if len(row) != len(DefaultForces) {
			t.Fatalf("cols = %d, want %d", len(row), len(DefaultForces))
		}
	}

	// accuracy 0, force 0
	if got := table.Rows[0][0].Percent.String(); got != "50" {
		t.Errorf("corner percent = %s, want 50", got)
	}
	// accuracy 1, force 50
	last := table.Rows[len(table.Rows)-1][len(DefaultForces)-1]
	if got := last.Percent.String(); got != "100" {
		t.Errorf("max percent = %s, want 100", got)
	}
	if last.Grade != GradePerfect {
		t.Errorf("max grade = %q, want perfect", last.Grade)
	}
}

func TestOddsTableRejectsBadInput(t *testing.T) {
	if _, err := DefaultTuning().OddsTable([]float64{10}, []float64{1.5}); err == nil {
		t.Error("expected error for accuracy > 1")
	}
	if _, err := DefaultTuning().OddsTable([]float64{-1}, []float64{0.5}); err == nil {
		t.Error("expected error for negative force")
	}
}

func TestPercent(t *testing.T) {
	tests := map[float64]string{
		0.5:    "50.0%",
		0.6061: "60.6%",
		1:      "100.0%",
	}
	for in, want := range tests {
		if got := Percent(in); got != want {
			t.Errorf("Percent(%v) = %q, want %q", in, got, want)
		}
	}
}
