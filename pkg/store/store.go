package store

import (
	"context"
	"errors"

	"nutrilog/pkg/domain"
)

// ErrNotFound is returned for rows that are missing or owned by another user.
var ErrNotFound = errors.New("not found")

// Store defines persistence for meals, summaries, goals, allergies,
// conditions and weight entries. Every read and write is scoped to a user.
type Store interface {
	// meals
	ReplaceMeal(ctx context.Context, meal domain.Meal) (domain.Meal, error)
	GetMeal(ctx context.Context, userID, mealID string) (domain.Meal, error)
	ListMealsInRange(ctx context.Context, userID, start, end string) ([]domain.Meal, error)
	DeleteMeal(ctx context.Context, userID, mealID string) (domain.Meal, error)

	// daily summaries
	ListDailySummaries(ctx context.Context, userID, start, end string) ([]domain.DailySummary, error)
	UpsertMealTotals(ctx context.Context, userID string, totals domain.DayTotals) error
	AddWater(ctx context.Context, userID, date string, ml float64) (domain.DailySummary, error)

	// goals
	CreateGoal(ctx context.Context, goal domain.NutritionGoal) (domain.NutritionGoal, error)
	ListGoals(ctx context.Context, userID string) ([]domain.NutritionGoal, error)
	DeactivateGoal(ctx context.Context, userID, goalID string) error

	// allergies
	UpsertAllergy(ctx context.Context, allergy domain.Allergy) (domain.Allergy, error)
	ListActiveAllergies(ctx context.Context, userID string) ([]domain.Allergy, error)
	ListAllergies(ctx context.Context, userID string) ([]domain.Allergy, error)
	UpdateAllergy(ctx context.Context, userID, allergyID string, patch AllergyPatch) (domain.Allergy, error)
	DeactivateAllergy(ctx context.Context, userID, allergyID string) error

	// health conditions
	CreateCondition(ctx context.Context, cond domain.HealthCondition) (domain.HealthCondition, error)
	ListActiveConditions(ctx context.Context, userID string) ([]domain.HealthCondition, error)

	// weight
	UpsertWeight(ctx context.Context, entry domain.WeightEntry) (domain.WeightEntry, error)
	ListWeights(ctx context.Context, userID, start, end string) ([]domain.WeightEntry, error)

	// PurgeUser hard-deletes every row owned by the user.
	PurgeUser(ctx context.Context, userID string) error
}

// AllergyPatch lists the updatable allergy fields; nil leaves a field as is.
type AllergyPatch struct {
	AllergenCategory    *string
	Severity            *domain.Severity
	ReactionDescription *string
	DiagnosedBy         *string
	DiagnosedDate       *string
	IsActive            *bool
}

// columns returns the column updates for the non-nil fields.
func (p AllergyPatch) columns() map[string]any {
	out := map[string]any{}
	if p.AllergenCategory != nil {
		out["allergen_category"] = *p.AllergenCategory
	}
	if p.Severity != nil {
		out["severity"] = string(*p.Severity)
	}
	if p.ReactionDescription != nil {
		out["reaction_description"] = *p.ReactionDescription
	}
	if p.DiagnosedBy != nil {
		out["diagnosed_by"] = *p.DiagnosedBy
	}
	if p.DiagnosedDate != nil {
		out["diagnosed_date"] = *p.DiagnosedDate
	}
	if p.IsActive != nil {
		out["is_active"] = *p.IsActive
	}
	return out
}
