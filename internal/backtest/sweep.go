package backtest

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"backcast/internal/domain"
	"backcast/internal/params"
	"backcast/internal/regime"
	"backcast/internal/strategy/builtins"
)

// Sweep runs the simulation engine across parameter grids and strategy
// on/off combinations, producing a comparison table. The sweep is the single
// source of truth for tested values: any value recommended downstream must
// appear verbatim in TestedValues.
type Sweep struct {
	Engine          *Engine
	MaxWorkers      int
	CalendarWeekday int // Monday=0 index for the calendar leg
	Log             *slog.Logger
}

// Row is one line of the comparison table.
type Row struct {
	Name       string
	ReturnPct  float64
	Trades     int
	WinRatePct float64
	Detail     string
}

// Output is the full sweep result handed to the advisory collaborator as
// plain structured data.
type Output struct {
	Rows         []Row
	Results      map[string]Result
	TestedValues map[string][]any
	Regime       regime.Assessment
}

// Tested reports whether value was produced by this sweep for the given
// parameter. Downstream recommendations must only use values for which this
// returns true; extrapolation is not permitted by design.
func (o Output) Tested(parameter string, value any) bool {
	for _, v := range o.TestedValues[parameter] {
		if v == value {
			return true
		}
	}
	return false
}

// job is one independent sweep variant. newRule constructs fresh generators
// so concurrent runs share no state.
type job struct {
	name    string
	detail  string
	newRule func() Rule
}

// Run executes the full sweep over bars with base as the current parameter
// set. Grid points and combination variants run concurrently; one variant's
// degenerate result never aborts the sweep.
func (s *Sweep) Run(bars []domain.Bar, base *params.Set) Output {
	out := Output{
		Results:      make(map[string]Result),
		TestedValues: make(map[string][]any),
		Regime:       regime.Classify(bars),
	}

	mrBase := base.Float("mr_threshold")
	bounceBase := base.Float("bounce_threshold")
	mrEnabled := base.Bool("mean_reversion_enabled")
	calEnabled := base.Bool("calendar_effect_enabled")
	priority := base.Enum("signal_priority")

	mrGrid := grid(params.Definitions["mr_threshold"], mrBase)
	bounceGrid := grid(params.Definitions["bounce_threshold"], bounceBase)

	out.TestedValues["mr_threshold"] = anySlice(mrGrid)
	out.TestedValues["bounce_threshold"] = anySlice(bounceGrid)
	out.TestedValues["mean_reversion_enabled"] = []any{true, false}
	out.TestedValues["calendar_effect_enabled"] = []any{true, false}
	out.TestedValues["signal_priority"] = []any{
		params.PriorityMeanReversionFirst,
		params.PriorityCalendarFirst,
	}

	var jobs []job

	// Current configuration first so the table always has a baseline row.
	jobs = append(jobs, job{
		name:    "current",
		detail:  fmt.Sprintf("mr=%.1f cal=%v prio=%s", mrBase, calEnabled, priority),
		newRule: s.chainRule(mrBase, mrEnabled, calEnabled, priority),
	})

	// Threshold grids, all other parameters held at their base values.
	for _, th := range mrGrid {
		jobs = append(jobs, job{
			name:    fmt.Sprintf("mr_threshold=%.1f", th),
			detail:  fmt.Sprintf("MR @ %.1f%%", th),
			newRule: s.chainRule(th, mrEnabled, calEnabled, priority),
		})
	}
	for _, th := range bounceGrid {
		th := th
		jobs = append(jobs, job{
			name:    fmt.Sprintf("bounce_threshold=%.1f", th),
			detail:  fmt.Sprintf("bounce @ %.1f%% off prior-session high", th),
			newRule: func() Rule { return BounceRule(th) },
		})
	}

	// Strategy enable/disable and priority-mode combinations.
	jobs = append(jobs,
		job{
			name:    "mean_reversion_only",
			detail:  "calendar leg disabled",
			newRule: s.chainRule(mrBase, true, false, params.PriorityMeanReversionFirst),
		},
		job{
			name:    "calendar_only",
			detail:  "mean reversion leg disabled",
			newRule: s.chainRule(mrBase, false, true, params.PriorityMeanReversionFirst),
		},
		job{
			name:    "combined_mr_priority",
			detail:  "both legs, mean reversion first",
			newRule: s.chainRule(mrBase, true, true, params.PriorityMeanReversionFirst),
		},
		job{
			name:    "combined_calendar_priority",
			detail:  "both legs, calendar first",
			newRule: s.chainRule(mrBase, true, true, params.PriorityCalendarFirst),
		},
		job{
			name:    "disabled",
			detail:  "no strategies enabled",
			newRule: s.chainRule(mrBase, false, false, params.PriorityMeanReversionFirst),
		},
	)

	results := make([]Result, len(jobs))

	workers := s.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = s.Engine.Run(bars, jobs[idx].newRule(), jobs[idx].name)
			}
		}()
	}
	for idx := range jobs {
		work <- idx
	}
	close(work)
	wg.Wait()

	for i, j := range jobs {
		res := results[i]
		out.Results[j.name] = res
		out.Rows = append(out.Rows, Row{
			Name:       j.name,
			ReturnPct:  res.Metrics.TotalReturnPct,
			Trades:     res.Metrics.TotalTrades,
			WinRatePct: res.Metrics.WinRate,
			Detail:     j.detail,
		})
	}

	if s.Log != nil {
		s.Log.Info("sweep complete",
			"variants", len(jobs),
			"regime", out.Regime.Regime,
			"confidence", out.Regime.Confidence,
		)
	}
	return out
}

// chainRule returns a factory building the priority chain for the given
// configuration. Fresh generators per call keep sweep variants independent.
func (s *Sweep) chainRule(mrThreshold float64, mrEnabled, calEnabled bool, priority string) func() Rule {
	weekday := s.CalendarWeekday
	return func() Rule {
		calendarFirst := priority == params.PriorityCalendarFirst
		return builtins.NewConfiguredChain(mrThreshold, mrEnabled, calEnabled, calendarFirst, weekday).Generate
	}
}

// BounceRule adapts the intraday-bounce generator to daily simulation by
// carrying the prior session's high as the running reference for each date.
func BounceRule(threshold float64) Rule {
	g := builtins.NewIntradayBounce(threshold)
	return func(history []domain.Bar, price float64, date time.Time) domain.Signal {
		if len(history) > 0 {
			g.UpdateHigh(date, history[len(history)-1].High)
		}
		return g.Generate(history, price, date)
	}
}

// grid builds the symmetric test grid around base (±1.0, ±0.5, base),
// deduplicated, sorted, and clipped to the parameter's valid range. The base
// value itself is always included when in range.
func grid(def params.Definition, base float64) []float64 {
	candidates := []float64{base - 1.0, base - 0.5, base, base + 0.5, base + 1.0}
	seen := make(map[float64]bool)
	var vals []float64
	for _, v := range candidates {
		if v < def.Min || v > def.Max || seen[v] {
			continue
		}
		seen[v] = true
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	return vals
}

func anySlice(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
