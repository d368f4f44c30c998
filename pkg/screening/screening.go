// Package screening checks logged food against a user's allergies and
// health conditions.
package screening

import (
	"context"
	"strings"

	"nutrilog/pkg/domain"
)

// AllergyReader loads a user's active allergies.
type AllergyReader interface {
	ListActiveAllergies(ctx context.Context, userID string) ([]domain.Allergy, error)
}

// Screener binds Match to the stored allergy state of a user.
type Screener struct {
	allergies AllergyReader
}

func NewScreener(allergies AllergyReader) *Screener {
	return &Screener{allergies: allergies}
}

// Screen never mutates allergy or meal state.
func (s *Screener) Screen(ctx context.Context, userID string, items []domain.NutrientRecord) ([]domain.AllergenAlert, error) {
	if len(items) == 0 {
		return []domain.AllergenAlert{}, nil
	}
	allergies, err := s.allergies.ListActiveAllergies(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Match(items, allergies), nil
}

// Match emits one alert per (item, allergy) pair whose names contain one
// another, ignoring case and a trailing plural. Items are the outer loop so
// alerts follow item order. "Egg" matching "Eggplant" is accepted.
func Match(items []domain.NutrientRecord, allergies []domain.Allergy) []domain.AllergenAlert {
	alerts := []domain.AllergenAlert{}
	for _, item := range items {
		food := strings.ToLower(strings.TrimSpace(item.FoodName))
		if food == "" {
			continue
		}
		for _, allergy := range allergies {
			if !allergy.IsActive {
				continue
			}
			allergen := strings.ToLower(strings.TrimSpace(allergy.AllergenName))
			if allergen == "" {
				continue
			}
			if !namesOverlap(food, allergen) {
				continue
			}
			alerts = append(alerts, domain.AllergenAlert{
				AllergenID:   allergy.ID,
				AllergenName: allergy.AllergenName,
				Severity:     allergy.Severity,
				DetectedIn:   item.FoodName,
				AlertLevel:   LevelFor(allergy.Severity),
			})
		}
	}
	return alerts
}

func LevelFor(severity domain.Severity) domain.AlertLevel {
	switch severity {
	case domain.SeveritySevere, domain.SeverityLifeThreatening:
		return domain.AlertCritical
	case domain.SeverityModerate:
		return domain.AlertWarning
	default:
		return domain.AlertInfo
	}
}

// HasCritical reports whether any alert is critical.
func HasCritical(alerts []domain.AllergenAlert) bool {
	for _, a := range alerts {
		if a.AlertLevel == domain.AlertCritical {
			return true
		}
	}
	return false
}

func namesOverlap(food, allergen string) bool {
	if strings.Contains(food, allergen) || strings.Contains(allergen, food) {
		return true
	}
	f, a := singular(food), singular(allergen)
	return strings.Contains(food, a) || strings.Contains(allergen, f)
}

func singular(s string) string {
	switch {
	case len(s) > 4 && strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case len(s) > 3 && strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}
