package app

import (
	"fmt"
	"math"
	"strings"

	"nutrilog/pkg/domain"
)

const maxItemsPerMeal = 200

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("userId", "required")
	}
	return nil
}

func validDate(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid(field, "required")
	}
	t, err := domain.ParseDate(value)
	if err != nil {
		return "", invalid(field, "must be YYYY-MM-DD")
	}
	return domain.FormatDate(t), nil
}

func optionalDate(field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return validDate(field, value)
}

func validRange(start, end string) (string, string, error) {
	start, err := validDate("start", start)
	if err != nil {
		return "", "", err
	}
	end, err = validDate("end", end)
	if err != nil {
		return "", "", err
	}
	if end < start {
		return "", "", invalid("end", "must not be before start")
	}
	return start, end, nil
}

type fieldValue struct {
	field string
	value float64
}

// allNonNegative checks values in order and reports the first bad field.
func allNonNegative(values ...fieldValue) error {
	for _, fv := range values {
		if err := nonNegative(fv.field, fv.value); err != nil {
			return err
		}
	}
	return nil
}

// nonNegative rejects NaN, infinities and negatives.
func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid(field, "must be a non-negative number")
	}
	return nil
}

func validateItems(items []domain.NutrientRecord) ([]domain.NutrientRecord, error) {
	if len(items) > maxItemsPerMeal {
		return nil, invalid("items", fmt.Sprintf("at most %d items", maxItemsPerMeal))
	}
	out := make([]domain.NutrientRecord, 0, len(items))
	for i, item := range items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		item.FoodName = strings.TrimSpace(item.FoodName)
		if item.FoodName == "" {
			return nil, invalid(field("foodName"), "required")
		}
		if math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) || item.Quantity <= 0 {
			return nil, invalid(field("quantity"), "must be a positive number")
		}
		if err := allNonNegative(
			fieldValue{field("calories"), item.Calories},
			fieldValue{field("protein"), item.Protein},
			fieldValue{field("carbs"), item.Carbs},
			fieldValue{field("fats"), item.Fats},
			fieldValue{field("fiber"), item.Fiber},
			fieldValue{field("sugar"), item.Sugar},
			fieldValue{field("sodium"), item.Sodium},
		); err != nil {
			return nil, err
		}
		if math.IsNaN(item.ConfidenceScore) || item.ConfidenceScore < 0 || item.ConfidenceScore > 1 {
			return nil, invalid(field("confidenceScore"), "must be within [0,1]")
		}
		item.Unit = strings.TrimSpace(item.Unit)
		if item.Unit == "" {
			item.Unit = "serving"
		}
		out = append(out, item)
	}
	return out, nil
}
