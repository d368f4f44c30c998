// Package goals resolves which nutrition goal applies on a date and how far
// the day's totals are from it.
package goals

import (
	"context"
	"math"

	"nutrilog/pkg/domain"
)

type GoalReader interface {
	ListGoals(ctx context.Context, userID string) ([]domain.NutritionGoal, error)
}

type Resolver struct {
	goals GoalReader
}

func NewResolver(goals GoalReader) *Resolver {
	return &Resolver{goals: goals}
}

// Active returns nil when no goal applies.
func (r *Resolver) Active(ctx context.Context, userID, date string) (*domain.NutritionGoal, error) {
	list, err := r.goals.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SelectActive(list, date), nil
}

// SelectActive picks the most recently created goal that applies on date.
func SelectActive(list []domain.NutritionGoal, date string) *domain.NutritionGoal {
	var best *domain.NutritionGoal
	for i := range list {
		g := list[i]
		if !g.AppliesTo(date) {
			continue
		}
		if best == nil || g.CreatedAt.After(best.CreatedAt) {
			best = &g
		}
	}
	return best
}

// Metric is progress towards one target. Percent is nil when the target
// is zero.
type Metric struct {
	Name      string   `json:"name"`
	Current   float64  `json:"current"`
	Target    float64  `json:"target"`
	Percent   *float64 `json:"percent"`
	Remaining float64  `json:"remaining"`
}

type Progress struct {
	Date    string                `json:"date"`
	Goal    *domain.NutritionGoal `json:"goal"`
	Totals  domain.DayTotals      `json:"totals"`
	Metrics []Metric              `json:"metrics"`
}

func NewMetric(name string, current, target float64) Metric {
	m := Metric{Name: name, Current: current, Target: target, Remaining: math.Max(0, target-current)}
	if target > 0 {
		p := math.Min(current/target, 1.0) * 100
		m.Percent = &p
	}
	return m
}

// Compute is pure; a nil goal yields no metrics.
func Compute(goal *domain.NutritionGoal, totals domain.DayTotals) Progress {
	p := Progress{Date: totals.Date, Goal: goal, Totals: totals, Metrics: []Metric{}}
	if goal == nil {
		return p
	}
	p.Metrics = append(p.Metrics,
		NewMetric("calories", totals.TotalCalories, goal.CaloriesTarget),
		NewMetric("protein", totals.TotalProtein, goal.ProteinTarget),
		NewMetric("carbs", totals.TotalCarbs, goal.CarbsTarget),
		NewMetric("fats", totals.TotalFats, goal.FatsTarget),
		NewMetric("fiber", totals.TotalFiber, goal.FiberTarget),
		NewMetric("sodium", totals.TotalSodium, goal.SodiumTarget),
		NewMetric("sugar", totals.TotalSugar, goal.SugarTarget),
		NewMetric("water", totals.TotalWater, goal.WaterTarget),
	)
	return p
}
