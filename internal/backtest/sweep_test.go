package backtest

import (
	"testing"

	"backcast/internal/params"
	"backcast/internal/regime"
)

func newTestSweep() (*Sweep, *params.Set) {
	s := &Sweep{
		Engine:          &Engine{InitialCapital: 10000, SlippagePct: 0.02},
		MaxWorkers:      4,
		CalendarWeekday: 3,
	}
	return s, params.NewSet("", nil)
}

func TestSweepRowOrderDeterministic(t *testing.T) {
	s, set := newTestSweep()

	closes := repeat(100, 40)
	closes[5] = 97  // -3% dip
	closes[15] = 96 // -4% dip
	closes[25] = 97
	bars := weekdayBars(monday, repeat(100, 40), closes)

	out := s.Run(bars, set)

	wantNames := []string{
		"current",
		"mr_threshold=-3.0",
		"mr_threshold=-2.5",
		"mr_threshold=-2.0",
		"mr_threshold=-1.5",
		"mr_threshold=-1.0",
		"bounce_threshold=-6.0",
		"bounce_threshold=-5.5",
		"bounce_threshold=-5.0",
		"bounce_threshold=-4.5",
		"bounce_threshold=-4.0",
		"mean_reversion_only",
		"calendar_only",
		"combined_mr_priority",
		"combined_calendar_priority",
		"disabled",
	}
	if len(out.Rows) != len(wantNames) {
		t.Fatalf("got %d rows, want %d", len(out.Rows), len(wantNames))
	}
	for i, want := range wantNames {
		if out.Rows[i].Name != want {
			t.Errorf("row %d = %q, want %q", i, out.Rows[i].Name, want)
		}
	}

	// A second run over identical input yields identical rows.
	again := s.Run(bars, set)
	for i := range out.Rows {
		if out.Rows[i] != again.Rows[i] {
			t.Errorf("row %d differs across runs: %+v vs %+v", i, out.Rows[i], again.Rows[i])
		}
	}
}

func TestSweepResultsMatchRows(t *testing.T) {
	s, set := newTestSweep()
	closes := repeat(100, 40)
	closes[10] = 96
	bars := weekdayBars(monday, repeat(100, 40), closes)

	out := s.Run(bars, set)
	for _, row := range out.Rows {
		res, ok := out.Results[row.Name]
		if !ok {
			t.Errorf("row %q missing from Results", row.Name)
			continue
		}
		if res.Metrics.TotalTrades != row.Trades {
			t.Errorf("row %q trades %d != result trades %d", row.Name, row.Trades, res.Metrics.TotalTrades)
		}
	}
}

func TestSweepDisabledVariantNeverTrades(t *testing.T) {
	s, set := newTestSweep()
	closes := repeat(100, 40)
	closes[10] = 90 // even a huge dip must not trade with everything off
	bars := weekdayBars(monday, repeat(100, 40), closes)

	out := s.Run(bars, set)
	if got := out.Results["disabled"].Metrics.TotalTrades; got != 0 {
		t.Errorf("disabled variant traded %d times", got)
	}
}

func TestSweepTestedValuesClosure(t *testing.T) {
	s, set := newTestSweep()
	bars := weekdayBars(monday, repeat(100, 40), repeat(100, 40))

	out := s.Run(bars, set)

	cases := []struct {
		param string
		value any
		want  bool
	}{
		{"mr_threshold", -2.0, true},
		{"mr_threshold", -3.0, true},
		{"mr_threshold", -9.9, false},
		{"bounce_threshold", -5.0, true},
		{"mean_reversion_enabled", false, true},
		{"calendar_effect_enabled", true, true},
		{"signal_priority", params.PriorityCalendarFirst, true},
		{"signal_priority", "made_up_mode", false},
		{"unknown_param", 1.0, false},
	}
	for _, c := range cases {
		if got := out.Tested(c.param, c.value); got != c.want {
			t.Errorf("Tested(%q, %v) = %v, want %v", c.param, c.value, got, c.want)
		}
	}
}

func TestSweepRegimeAttached(t *testing.T) {
	s, set := newTestSweep()
	bars := weekdayBars(monday, repeat(100, 40), repeat(100, 40))

	out := s.Run(bars, set)
	if out.Regime.Regime == "" || out.Regime.Regime == regime.Unknown {
		t.Errorf("40 bars should classify to a known regime, got %q", out.Regime.Regime)
	}

	short := s.Run(bars[:5], set)
	if short.Regime.Regime != regime.Unknown {
		t.Errorf("5 bars should classify unknown, got %q", short.Regime.Regime)
	}
}

func TestGridClipsToRange(t *testing.T) {
	def := params.Definitions["mr_threshold"] // range [-4.0, -0.5]

	got := grid(def, -4.0)
	want := []float64{-4.0, -3.5, -3.0}
	if len(got) != len(want) {
		t.Fatalf("grid(-4.0) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("grid[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Centered base keeps all five points, sorted ascending.
	full := grid(def, -2.0)
	if len(full) != 5 || full[0] != -3.0 || full[4] != -1.0 {
		t.Errorf("grid(-2.0) = %v", full)
	}
	for i := 1; i < len(full); i++ {
		if full[i] <= full[i-1] {
			t.Errorf("grid not sorted: %v", full)
		}
	}
}

func TestSweepSingleWorker(t *testing.T) {
	s, set := newTestSweep()
	s.MaxWorkers = 1

	closes := repeat(100, 40)
	closes[10] = 96
	bars := weekdayBars(monday, repeat(100, 40), closes)

	serial := s.Run(bars, set)
	s.MaxWorkers = 8
	parallel := s.Run(bars, set)

	for i := range serial.Rows {
		if serial.Rows[i] != parallel.Rows[i] {
			t.Errorf("worker count changed row %d: %+v vs %+v", i, serial.Rows[i], parallel.Rows[i])
		}
	}
}
