// Package report renders backtest, sweep, and regime results as terminal
// output.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"backcast/internal/backtest"
	"backcast/internal/regime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9CA3AF"))

	positiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	negativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)
)

// signedPct renders a percentage colored by sign.
func signedPct(v float64) string {
	s := fmt.Sprintf("%+.2f%%", v)
	if v > 0 {
		return positiveStyle.Render(s)
	}
	if v < 0 {
		return negativeStyle.Render(s)
	}
	return dimStyle.Render(s)
}

// Backtest renders a single simulation result as a summary block.
func Backtest(res backtest.Result) string {
	m := res.Metrics
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Backtest: %s", res.Name)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s — %s, strategy %s",
		res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"), res.StrategyID)))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Initial capital", fmt.Sprintf("$%.2f", res.InitialCapital)},
		{"Final capital", fmt.Sprintf("$%.2f", res.FinalCapital)},
		{"Total return", signedPct(m.TotalReturnPct)},
		{"Buy & hold", signedPct(res.BuyHoldPct)},
		{"vs buy & hold", signedPct(m.TotalReturnPct - res.BuyHoldPct)},
		{"Trades", fmt.Sprintf("%d (%d long / %d short)", m.TotalTrades, m.LongTrades, m.ShortTrades)},
		{"Win rate", fmt.Sprintf("%.1f%%", m.WinRate)},
		{"Avg trade", signedPct(m.AvgReturnPct)},
		{"Best / worst", fmt.Sprintf("%s / %s", signedPct(m.BestTradePct), signedPct(m.WorstTradePct))},
		{"Max drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdownPct)},
		{"Sharpe (252d)", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"Sharpe (annualized)", fmt.Sprintf("%.2f", res.AnnualizedSharpe())},
	}
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %-22s %s\n", r[0], r[1]))
	}

	if m.TotalTrades == 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  no trades executed in this window"))
		b.WriteString("\n")
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Sweep renders the sensitivity comparison table with the regime header.
func Sweep(out backtest.Output) string {
	var b strings.Builder

	b.WriteString(Regime(out.Regime))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Parameter sensitivity"))
	b.WriteString("\n\n")

	nameW := len("variant")
	for _, r := range out.Rows {
		if len(r.Name) > nameW {
			nameW = len(r.Name)
		}
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-*s  %10s  %7s  %8s  %s",
		nameW, "variant", "return", "trades", "win rate", "detail")))
	b.WriteString("\n")
	for _, r := range out.Rows {
		b.WriteString(fmt.Sprintf("  %-*s  %10s  %7d  %7.1f%%  %s\n",
			nameW, r.Name, signedPct(r.ReturnPct), r.Trades, r.WinRatePct, dimStyle.Render(r.Detail)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Regime renders a one-block regime assessment header.
func Regime(a regime.Assessment) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Market regime: "))
	b.WriteString(regimeLabel(a.Regime))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (%s confidence)", a.Confidence)))
	b.WriteString("\n")

	if a.Note != "" {
		b.WriteString(dimStyle.Render("  " + a.Note))
		return b.String()
	}

	ind := a.Indicators
	b.WriteString(fmt.Sprintf("  MA20 slope %s  price vs MA20 %s  vol20 %.2f%%",
		signedPct(ind.MA20SlopePct), signedPct(ind.PriceVsMA20Pct), ind.Volatility20))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  last 10 days: %d up / %d down", ind.UpDaysLast10, ind.DownDaysLast10))
	if ind.ConsecutiveUpDays > 1 {
		b.WriteString(fmt.Sprintf(", %d-day up streak", ind.ConsecutiveUpDays))
	}
	if ind.ConsecutiveDownDays > 1 {
		b.WriteString(fmt.Sprintf(", %d-day down streak", ind.ConsecutiveDownDays))
	}
	if ind.VolatilityCompressed {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  [volatility compressed, ratio %.2f]", ind.VolatilityRatio)))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  score: bull %d / bear %d / net %+d",
		ind.BullScore, ind.BearScore, ind.NetScore)))
	return b.String()
}

func regimeLabel(l regime.Label) string {
	switch l {
	case regime.StrongBull, regime.Bull:
		return positiveStyle.Render(string(l))
	case regime.StrongBear, regime.Bear:
		return negativeStyle.Render(string(l))
	default:
		return dimStyle.Render(string(l))
	}
}

// Params renders the current parameter snapshot as aligned key/value lines.
func Params(snapshot map[string]any, order []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Strategy parameters"))
	b.WriteString("\n")
	for _, name := range order {
		v, ok := snapshot[name]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-28s %v\n", name, v))
	}
	return strings.TrimRight(b.String(), "\n")
}
