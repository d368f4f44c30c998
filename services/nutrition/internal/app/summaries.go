package app

import (
	"context"
	"errors"
	"fmt"

	"nutrilog/pkg/domain"
	"nutrilog/pkg/goals"
	"nutrilog/pkg/screening"
	"nutrilog/pkg/summary"
)

// DailySummary returns reconciled totals for one date.
func (a *App) DailySummary(ctx context.Context, userID, date string) (domain.DayTotals, error) {
	if err := requireUser(userID); err != nil {
		return domain.DayTotals{}, err
	}
	date, err := a.dateOrToday("date", date)
	if err != nil {
		return domain.DayTotals{}, err
	}
	totals, err := a.summaries.Daily(ctx, userID, date)
	if err != nil {
		return domain.DayTotals{}, summaryErr(err)
	}
	return totals, nil
}

func (a *App) RangeSummary(ctx context.Context, userID, start, end string) (summary.RangeSummary, error) {
	if err := requireUser(userID); err != nil {
		return summary.RangeSummary{}, err
	}
	start, end, err := validRange(start, end)
	if err != nil {
		return summary.RangeSummary{}, err
	}
	out, err := a.summaries.Range(ctx, userID, start, end)
	if err != nil {
		return summary.RangeSummary{}, summaryErr(err)
	}
	return out, nil
}

// MonthlySummary covers one calendar month with Monday-start week groups.
func (a *App) MonthlySummary(ctx context.Context, userID string, year, month int) (summary.MonthlySummary, error) {
	if err := requireUser(userID); err != nil {
		return summary.MonthlySummary{}, err
	}
	if year < 1900 || year > 9999 {
		return summary.MonthlySummary{}, invalid("year", "out of range")
	}
	if month < 1 || month > 12 {
		return summary.MonthlySummary{}, invalid("month", "must be 1-12")
	}
	out, err := a.summaries.Monthly(ctx, userID, fmt.Sprintf("%04d-%02d", year, month))
	if err != nil {
		return summary.MonthlySummary{}, summaryErr(err)
	}
	return out, nil
}

// LogWater adds to the day's water total without touching meal totals.
func (a *App) LogWater(ctx context.Context, userID, date string, amountML float64) (domain.DayTotals, error) {
	if err := requireUser(userID); err != nil {
		return domain.DayTotals{}, err
	}
	date, err := a.dateOrToday("date", date)
	if err != nil {
		return domain.DayTotals{}, err
	}
	if err := nonNegative("amountMl", amountML); err != nil {
		return domain.DayTotals{}, err
	}
	if amountML == 0 {
		return domain.DayTotals{}, invalid("amountMl", "must be greater than zero")
	}
	if _, err := a.store.AddWater(ctx, userID, date, amountML); err != nil {
		return domain.DayTotals{}, fmt.Errorf("log water: %w", err)
	}
	return a.DailySummary(ctx, userID, date)
}

// ActiveGoal returns the goal in effect on date, or nil.
func (a *App) ActiveGoal(ctx context.Context, userID, date string) (*domain.NutritionGoal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	date, err := a.dateOrToday("date", date)
	if err != nil {
		return nil, err
	}
	goal, err := a.goals.Active(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("active goal: %w", err)
	}
	return goal, nil
}

type GoalInput struct {
	CaloriesTarget float64
	ProteinTarget  float64
	CarbsTarget    float64
	FatsTarget     float64
	FiberTarget    float64
	SodiumTarget   float64
	SugarTarget    float64
	WaterTarget    float64
	StartDate      string
	EndDate        string
}

// CreateGoal stores a new active goal; earlier active goals are deactivated.
func (a *App) CreateGoal(ctx context.Context, userID string, in GoalInput) (domain.NutritionGoal, error) {
	if err := requireUser(userID); err != nil {
		return domain.NutritionGoal{}, err
	}
	if err := allNonNegative(
		fieldValue{"caloriesTarget", in.CaloriesTarget},
		fieldValue{"proteinTarget", in.ProteinTarget},
		fieldValue{"carbsTarget", in.CarbsTarget},
		fieldValue{"fatsTarget", in.FatsTarget},
		fieldValue{"fiberTarget", in.FiberTarget},
		fieldValue{"sodiumTarget", in.SodiumTarget},
		fieldValue{"sugarTarget", in.SugarTarget},
		fieldValue{"waterTarget", in.WaterTarget},
	); err != nil {
		return domain.NutritionGoal{}, err
	}
	start, err := a.dateOrToday("startDate", in.StartDate)
	if err != nil {
		return domain.NutritionGoal{}, err
	}
	end, err := optionalDate("endDate", in.EndDate)
	if err != nil {
		return domain.NutritionGoal{}, err
	}
	if end != "" && end < start {
		return domain.NutritionGoal{}, invalid("endDate", "must not be before startDate")
	}
	goal, err := a.store.CreateGoal(ctx, domain.NutritionGoal{
		UserID:         userID,
		CaloriesTarget: in.CaloriesTarget,
		ProteinTarget:  in.ProteinTarget,
		CarbsTarget:    in.CarbsTarget,
		FatsTarget:     in.FatsTarget,
		FiberTarget:    in.FiberTarget,
		SodiumTarget:   in.SodiumTarget,
		SugarTarget:    in.SugarTarget,
		WaterTarget:    in.WaterTarget,
		StartDate:      start,
		EndDate:        end,
		IsActive:       true,
		CreatedAt:      a.now().UTC(),
	})
	if err != nil {
		return domain.NutritionGoal{}, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

func (a *App) ListGoals(ctx context.Context, userID string) ([]domain.NutritionGoal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	list, err := a.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return list, nil
}

func (a *App) DeactivateGoal(ctx context.Context, userID, goalID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := a.store.DeactivateGoal(ctx, userID, goalID); err != nil {
		return mapStoreErr("goal", err)
	}
	return nil
}

type GoalProgress struct {
	goals.Progress
	Advisories []screening.Advisory `json:"advisories"`
}

// GoalProgress combines the day's totals with the active goal and adds
// condition advisories.
func (a *App) GoalProgress(ctx context.Context, userID, date string) (GoalProgress, error) {
	date, err := a.dateOrToday("date", date)
	if err != nil {
		return GoalProgress{}, err
	}
	totals, err := a.DailySummary(ctx, userID, date)
	if err != nil {
		return GoalProgress{}, err
	}
	goal, err := a.ActiveGoal(ctx, userID, date)
	if err != nil {
		return GoalProgress{}, err
	}
	conditions, err := a.store.ListActiveConditions(ctx, userID)
	if err != nil {
		return GoalProgress{}, fmt.Errorf("list conditions: %w", err)
	}
	advisories := screening.Advise(conditions, totals)
	if advisories == nil {
		advisories = []screening.Advisory{}
	}
	return GoalProgress{Progress: goals.Compute(goal, totals), Advisories: advisories}, nil
}

func (a *App) dateOrToday(field, value string) (string, error) {
	if value == "" {
		return a.today(), nil
	}
	return validDate(field, value)
}

func summaryErr(err error) error {
	if errors.Is(err, summary.ErrInvalidRange) {
		return &ValidationError{Field: "range", Reason: err.Error()}
	}
	return fmt.Errorf("summary: %w", err)
}
