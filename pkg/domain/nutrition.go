package domain

import (
	"strings"
	"time"
)

// ParseMealType accepts a meal slot name case-insensitively.
func ParseMealType(raw string) (MealType, bool) {
	switch MealType(strings.ToLower(strings.TrimSpace(raw))) {
	case MealEarlyAM:
		return MealEarlyAM, true
	case MealBreakfast:
		return MealBreakfast, true
	case MealLunch:
		return MealLunch, true
	case MealDinner:
		return MealDinner, true
	default:
		return "", false
	}
}

// ParseInputMethod accepts an input method name case-insensitively.
func ParseInputMethod(raw string) (InputMethod, bool) {
	switch InputMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case InputText:
		return InputText, true
	case InputVoice:
		return InputVoice, true
	case InputImage:
		return InputImage, true
	case InputBarcode:
		return InputBarcode, true
	case InputManual:
		return InputManual, true
	default:
		return "", false
	}
}

// ParseSeverity accepts a severity name; spaces and dashes map to underscores.
func ParseSeverity(raw string) (Severity, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch Severity(s) {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityLifeThreatening:
		return Severity(s), true
	default:
		return "", false
	}
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Add folds one record into the totals.
func (t *DayTotals) Add(r NutrientRecord) {
	t.TotalCalories += r.Calories
	t.TotalProtein += r.Protein
	t.TotalCarbs += r.Carbs
	t.TotalFats += r.Fats
	t.TotalFiber += r.Fiber
	t.TotalSugar += r.Sugar
	t.TotalSodium += r.Sodium
}

// Combine adds another day's totals, water and meal count included.
func (t *DayTotals) Combine(o DayTotals) {
	t.TotalCalories += o.TotalCalories
	t.TotalProtein += o.TotalProtein
	t.TotalCarbs += o.TotalCarbs
	t.TotalFats += o.TotalFats
	t.TotalFiber += o.TotalFiber
	t.TotalSugar += o.TotalSugar
	t.TotalSodium += o.TotalSodium
	t.TotalWater += o.TotalWater
	t.MealCount += o.MealCount
}

// Totals sums the meal's items. Water is never meal-derived.
func (m Meal) Totals() DayTotals {
	totals := DayTotals{Date: m.MealDate, MealCount: 1}
	for _, item := range m.Items {
		totals.Add(item)
	}
	return totals
}

// AppliesTo reports whether the goal is in effect on date (DateLayout).
func (g NutritionGoal) AppliesTo(date string) bool {
	if !g.IsActive {
		return false
	}
	if g.StartDate > date {
		return false
	}
	return g.EndDate == "" || g.EndDate >= date
}

// Rank orders meal slots through the day.
func (t MealType) Rank() int {
	switch t {
	case MealEarlyAM:
		return 0
	case MealBreakfast:
		return 1
	case MealLunch:
		return 2
	case MealDinner:
		return 3
	default:
		return 4
	}
}
