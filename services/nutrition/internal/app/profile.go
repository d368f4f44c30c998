package app

import (
	"context"
	"fmt"
	"strings"

	"nutrilog/pkg/domain"
	"nutrilog/pkg/store"
)

type AllergyInput struct {
	AllergenName        string
	AllergenCategory    string
	Severity            string
	ReactionDescription string
	DiagnosedBy         string
	DiagnosedDate       string
}

// AddAllergy records an allergy; re-adding a known allergen updates its
// severity and reactivates it.
func (a *App) AddAllergy(ctx context.Context, userID string, in AllergyInput) (domain.Allergy, error) {
	if err := requireUser(userID); err != nil {
		return domain.Allergy{}, err
	}
	name := strings.TrimSpace(in.AllergenName)
	if name == "" {
		return domain.Allergy{}, invalid("allergenName", "required")
	}
	severity, ok := domain.ParseSeverity(in.Severity)
	if !ok {
		return domain.Allergy{}, invalid("severity", "must be one of mild, moderate, severe, life_threatening")
	}
	diagnosed, err := optionalDate("diagnosedDate", in.DiagnosedDate)
	if err != nil {
		return domain.Allergy{}, err
	}
	allergy, err := a.store.UpsertAllergy(ctx, domain.Allergy{
		UserID:              userID,
		AllergenName:        name,
		AllergenCategory:    strings.TrimSpace(in.AllergenCategory),
		Severity:            severity,
		ReactionDescription: strings.TrimSpace(in.ReactionDescription),
		DiagnosedBy:         strings.TrimSpace(in.DiagnosedBy),
		DiagnosedDate:       diagnosed,
		IsActive:            true,
	})
	if err != nil {
		return domain.Allergy{}, fmt.Errorf("add allergy: %w", err)
	}
	return allergy, nil
}

func (a *App) ListAllergies(ctx context.Context, userID string, includeInactive bool) ([]domain.Allergy, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var (
		list []domain.Allergy
		err  error
	)
	if includeInactive {
		list, err = a.store.ListAllergies(ctx, userID)
	} else {
		list, err = a.store.ListActiveAllergies(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list allergies: %w", err)
	}
	return list, nil
}

// UpdateAllergy applies a typed patch; only non-nil fields change.
func (a *App) UpdateAllergy(ctx context.Context, userID, allergyID string, patch store.AllergyPatch) (domain.Allergy, error) {
	if err := requireUser(userID); err != nil {
		return domain.Allergy{}, err
	}
	if patch.Severity != nil {
		severity, ok := domain.ParseSeverity(string(*patch.Severity))
		if !ok {
			return domain.Allergy{}, invalid("severity", "must be one of mild, moderate, severe, life_threatening")
		}
		patch.Severity = &severity
	}
	if patch.DiagnosedDate != nil {
		diagnosed, err := optionalDate("diagnosedDate", *patch.DiagnosedDate)
		if err != nil {
			return domain.Allergy{}, err
		}
		patch.DiagnosedDate = &diagnosed
	}
	allergy, err := a.store.UpdateAllergy(ctx, userID, allergyID, patch)
	if err != nil {
		return domain.Allergy{}, mapStoreErr("allergy", err)
	}
	return allergy, nil
}

// RemoveAllergy deactivates the allergy; history is kept.
func (a *App) RemoveAllergy(ctx context.Context, userID, allergyID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := a.store.DeactivateAllergy(ctx, userID, allergyID); err != nil {
		return mapStoreErr("allergy", err)
	}
	return nil
}

type ConditionInput struct {
	ConditionName string
	Notes         string
	Restrictions  []string
}

func (a *App) AddCondition(ctx context.Context, userID string, in ConditionInput) (domain.HealthCondition, error) {
	if err := requireUser(userID); err != nil {
		return domain.HealthCondition{}, err
	}
	name := strings.TrimSpace(in.ConditionName)
	if name == "" {
		return domain.HealthCondition{}, invalid("conditionName", "required")
	}
	restrictions := make([]string, 0, len(in.Restrictions))
	for _, r := range in.Restrictions {
		if r = strings.TrimSpace(r); r != "" {
			restrictions = append(restrictions, r)
		}
	}
	cond, err := a.store.CreateCondition(ctx, domain.HealthCondition{
		UserID:        userID,
		ConditionName: name,
		Notes:         strings.TrimSpace(in.Notes),
		Restrictions:  restrictions,
		IsActive:      true,
		CreatedAt:     a.now().UTC(),
	})
	if err != nil {
		return domain.HealthCondition{}, fmt.Errorf("add condition: %w", err)
	}
	return cond, nil
}

func (a *App) ListConditions(ctx context.Context, userID string) ([]domain.HealthCondition, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	list, err := a.store.ListActiveConditions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	return list, nil
}

// LogWeight keeps one entry per day; logging again overwrites it.
func (a *App) LogWeight(ctx context.Context, userID, date string, weightKg float64, notes string) (domain.WeightEntry, error) {
	if err := requireUser(userID); err != nil {
		return domain.WeightEntry{}, err
	}
	date, err := a.dateOrToday("date", date)
	if err != nil {
		return domain.WeightEntry{}, err
	}
	if err := nonNegative("weightKg", weightKg); err != nil || weightKg == 0 || weightKg > 700 {
		return domain.WeightEntry{}, invalid("weightKg", "must be between 0 and 700")
	}
	entry, err := a.store.UpsertWeight(ctx, domain.WeightEntry{
		UserID:    userID,
		EntryDate: date,
		WeightKg:  weightKg,
		Notes:     strings.TrimSpace(notes),
	})
	if err != nil {
		return domain.WeightEntry{}, fmt.Errorf("log weight: %w", err)
	}
	return entry, nil
}

func (a *App) WeightHistory(ctx context.Context, userID, start, end string) ([]domain.WeightEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	start, end, err := validRange(start, end)
	if err != nil {
		return nil, err
	}
	list, err := a.store.ListWeights(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("weight history: %w", err)
	}
	return list, nil
}
