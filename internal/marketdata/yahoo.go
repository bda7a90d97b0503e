package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"backcast/internal/domain"
	"backcast/internal/util"
)

var _ Provider = (*YahooProvider)(nil)

// YahooProvider fetches daily bars from Yahoo Finance. It needs no
// credentials, which makes it the fallback when Alpaca keys are absent.
type YahooProvider struct {
	log *slog.Logger
}

// NewYahooProvider creates a YahooProvider.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{log: slog.Default().With("provider", "yahoo")}
}

// Name returns the provider identifier.
func (p *YahooProvider) Name() string { return "yahoo" }

// DailyBars fetches daily OHLCV bars for the symbol within [start, end].
func (p *YahooProvider) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	symbol = strings.ToUpper(symbol)

	var bars []domain.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		iter := chart.Get(&chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		})

		bars = bars[:0]
		for iter.Next() {
			cb := iter.Bar()
			bars = append(bars, domain.Bar{
				Symbol: symbol,
				Date:   time.Unix(int64(cb.Timestamp), 0).UTC(),
				Open:   toFloat(cb.Open),
				High:   toFloat(cb.High),
				Low:    toFloat(cb.Low),
				Close:  toFloat(cb.Close),
				Volume: int64(cb.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("yahoo chart %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Debug("fetched daily bars", "symbol", symbol, "count", len(bars))
	return Normalize(bars), nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
