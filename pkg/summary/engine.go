package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"nutrilog/pkg/domain"
)

var ErrInvalidRange = errors.New("invalid date range")

// maxRangeDays caps range queries.
const maxRangeDays = 366

type Source interface {
	ListMealsInRange(ctx context.Context, userID, start, end string) ([]domain.Meal, error)
	ListDailySummaries(ctx context.Context, userID, start, end string) ([]domain.DailySummary, error)
}

// Sink persists the meal-derived part of a summary row. Implementations
// must leave water untouched.
type Sink interface {
	UpsertMealTotals(ctx context.Context, userID string, totals domain.DayTotals) error
}

type Engine struct {
	source Source
	sink   Sink
}

func NewEngine(source Source, sink Sink) *Engine {
	return &Engine{source: source, sink: sink}
}

// Daily returns the reconciled totals for one date; a date with no data
// yields zero totals.
func (e *Engine) Daily(ctx context.Context, userID, date string) (domain.DayTotals, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.DayTotals{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	days, err := e.merged(ctx, userID, date, date)
	if err != nil {
		return domain.DayTotals{}, err
	}
	if len(days) == 0 {
		return domain.DayTotals{Date: date}, nil
	}
	return days[0], nil
}

func (e *Engine) Range(ctx context.Context, userID, start, end string) (RangeSummary, error) {
	if err := checkRange(start, end); err != nil {
		return RangeSummary{}, err
	}
	days, err := e.merged(ctx, userID, start, end)
	if err != nil {
		return RangeSummary{}, err
	}
	return Summarize(start, end, days), nil
}

// Monthly covers the calendar month containing month ("YYYY-MM").
func (e *Engine) Monthly(ctx context.Context, userID, month string) (MonthlySummary, error) {
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	start := domain.FormatDate(first)
	end := domain.FormatDate(first.AddDate(0, 1, -1))
	days, err := e.merged(ctx, userID, start, end)
	if err != nil {
		return MonthlySummary{}, err
	}
	return MonthlySummary{
		Month:        first.Format("2006-01"),
		RangeSummary: Summarize(start, end, days),
		Weeks:        GroupWeeks(days),
	}, nil
}

// Recompute rebuilds the meal-derived fields of the cached row for date.
func (e *Engine) Recompute(ctx context.Context, userID, date string) (domain.DayTotals, error) {
	meals, err := e.source.ListMealsInRange(ctx, userID, date, date)
	if err != nil {
		return domain.DayTotals{}, err
	}
	totals, ok := MealAggregates(meals)[date]
	if !ok {
		totals = domain.DayTotals{Date: date}
	}
	if err := e.sink.UpsertMealTotals(ctx, userID, totals); err != nil {
		return domain.DayTotals{}, err
	}
	return totals, nil
}

func (e *Engine) merged(ctx context.Context, userID, start, end string) ([]domain.DayTotals, error) {
	var (
		meals  []domain.Meal
		cached []domain.DailySummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meals, err = e.source.ListMealsInRange(gctx, userID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		cached, err = e.source.ListDailySummaries(gctx, userID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(cached, MealAggregates(meals)), nil
}

func checkRange(start, end string) error {
	s, err := domain.ParseDate(start)
	if err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if e.Before(s) {
		return fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	if e.Sub(s) > maxRangeDays*24*time.Hour {
		return fmt.Errorf("%w: more than %d days", ErrInvalidRange, maxRangeDays)
	}
	return nil
}
