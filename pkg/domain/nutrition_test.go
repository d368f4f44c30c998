package domain

import "testing"

func TestMealTotalsSumsItems(t *testing.T) {
	meal := Meal{MealDate: "2024-03-05", Items: []NutrientRecord{
		{Calories: 140, Protein: 12, Sodium: 140},
		{Calories: 195, Carbs: 42, Fiber: 0.6},
	}}
	got := meal.Totals()
	if got.Date != "2024-03-05" || got.MealCount != 1 || got.TotalWater != 0 {
		t.Fatalf("unexpected meal totals header: %+v", got)
	}
	if got.TotalCalories != 335 || got.TotalProtein != 12 || got.TotalCarbs != 42 || got.TotalSodium != 140 || got.TotalFiber != 0.6 {
		t.Fatalf("unexpected meal totals: %+v", got)
	}
	if empty := (Meal{MealDate: "2024-03-05"}).Totals(); empty.MealCount != 1 || empty.TotalCalories != 0 {
		t.Fatalf("expected an empty meal to count once, got %+v", empty)
	}
}

func TestDayTotalsCombine(t *testing.T) {
	day := DayTotals{Date: "2024-03-05", TotalCalories: 100, TotalWater: 250, MealCount: 1}
	day.Combine(DayTotals{TotalCalories: 50, TotalSugar: 5, TotalWater: 500, MealCount: 2})
	if day.Date != "2024-03-05" || day.TotalCalories != 150 || day.TotalSugar != 5 || day.TotalWater != 750 || day.MealCount != 3 {
		t.Fatalf("unexpected combined totals: %+v", day)
	}
}
