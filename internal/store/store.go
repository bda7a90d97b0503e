// Package store defines storage interfaces for persisting and retrieving
// bars, events, parameter changes, and review history, with parquet and
// SQLite implementations.
package store

import (
	"context"
	"time"

	"backcast/internal/domain"
	"backcast/internal/params"
	"backcast/internal/regime"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with existing data.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ordered by date.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// Event is one structured log entry in the persistent event journal.
type Event struct {
	ID        int64
	Type      string
	Message   string
	Details   map[string]any
	CreatedAt time.Time
}

// EventStore persists structured events.
type EventStore interface {
	LogEvent(ctx context.Context, eventType, message string, details map[string]any) error
	ListEvents(ctx context.Context, eventType string, limit int) ([]Event, error)
}

// ParamChangeStore records applied parameter changes for survival across
// restarts and audit.
type ParamChangeStore interface {
	// SaveParamChange records the change and updates the current value.
	SaveParamChange(ctx context.Context, change params.ChangeEvent) error

	// CurrentParams returns the latest value per parameter.
	CurrentParams(ctx context.Context) (map[string]any, error)
}

// Review is one persisted strategy review, kept so later reviews can see
// prior context.
type Review struct {
	ID        int64
	Summary   string
	Report    string
	Regime    regime.Assessment
	CreatedAt time.Time
}

// ReviewStore persists review history.
type ReviewStore interface {
	SaveReview(ctx context.Context, review Review) (int64, error)
	PreviousReviews(ctx context.Context, limit int) ([]Review, error)
}
