package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"
	"nutrilog/pkg/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore("", WithDialector(sqlite.Open("file::memory:")), WithLogLevel(gormlogger.Silent))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testMeal(items ...domain.NutrientRecord) domain.Meal {
	return domain.Meal{
		UserID:      "u1",
		MealDate:    "2024-03-01",
		MealType:    domain.MealLunch,
		InputMethod: domain.InputText,
		Items:       items,
	}
}

func TestReplaceMealKeepsOneMealPerSlot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.ReplaceMeal(ctx, testMeal(
		domain.NutrientRecord{FoodName: "egg", Quantity: 2, Unit: "piece", Calories: 140},
		domain.NutrientRecord{FoodName: "rice", Quantity: 1, Unit: "cup", Calories: 195},
	))
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}
	second, err := s.ReplaceMeal(ctx, testMeal(domain.NutrientRecord{FoodName: "salad", Quantity: 1, Unit: "bowl", Calories: 120}))
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected slot to keep meal id %s, got %s", first.ID, second.ID)
	}

	meals, err := s.ListMealsInRange(ctx, "u1", "2024-03-01", "2024-03-01")
	if err != nil {
		t.Fatalf("list meals: %v", err)
	}
	if len(meals) != 1 {
		t.Fatalf("expected 1 meal, got %d", len(meals))
	}
	if len(meals[0].Items) != 1 || meals[0].Items[0].FoodName != "salad" {
		t.Fatalf("expected items to be replaced, got %+v", meals[0].Items)
	}
}

func TestReplaceMealPreservesItemOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	names := []string{"toast", "butter", "jam", "coffee"}
	var items []domain.NutrientRecord
	for _, n := range names {
		items = append(items, domain.NutrientRecord{FoodName: n, Quantity: 1, Unit: "serving"})
	}
	saved, err := s.ReplaceMeal(ctx, testMeal(items...))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.GetMeal(ctx, "u1", saved.ID)
	if err != nil {
		t.Fatalf("get meal: %v", err)
	}
	for i, n := range names {
		if got.Items[i].FoodName != n {
			t.Fatalf("item %d: expected %s, got %s", i, n, got.Items[i].FoodName)
		}
	}
}

func TestMealOwnershipAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saved, err := s.ReplaceMeal(ctx, testMeal(domain.NutrientRecord{FoodName: "egg", Calories: 70}))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := s.GetMeal(ctx, "u2", saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, err := s.DeleteMeal(ctx, "u2", saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other user delete to fail, got %v", err)
	}
	deleted, err := s.DeleteMeal(ctx, "u1", saved.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.MealDate != "2024-03-01" {
		t.Fatalf("unexpected deleted meal: %+v", deleted)
	}
	meals, _ := s.ListMealsInRange(ctx, "u1", "2024-01-01", "2024-12-31")
	if len(meals) != 0 {
		t.Fatalf("expected no meals after delete, got %d", len(meals))
	}
}

func TestListMealsOrdersBySlot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, mt := range []domain.MealType{domain.MealDinner, domain.MealEarlyAM, domain.MealLunch, domain.MealBreakfast} {
		m := testMeal()
		m.MealType = mt
		if _, err := s.ReplaceMeal(ctx, m); err != nil {
			t.Fatalf("replace %s: %v", mt, err)
		}
	}
	meals, err := s.ListMealsInRange(ctx, "u1", "2024-03-01", "2024-03-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []domain.MealType{domain.MealEarlyAM, domain.MealBreakfast, domain.MealLunch, domain.MealDinner}
	for i, mt := range want {
		if meals[i].MealType != mt {
			t.Fatalf("position %d: expected %s, got %s", i, mt, meals[i].MealType)
		}
	}
}

func TestUpsertMealTotalsPreservesWater(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.AddWater(ctx, "u1", "2024-03-01", 500); err != nil {
		t.Fatalf("add water: %v", err)
	}
	row, err := s.AddWater(ctx, "u1", "2024-03-01", 250)
	if err != nil {
		t.Fatalf("add water: %v", err)
	}
	if row.TotalWater != 750 {
		t.Fatalf("expected 750ml, got %v", row.TotalWater)
	}
	if err := s.UpsertMealTotals(ctx, "u1", domain.DayTotals{Date: "2024-03-01", TotalCalories: 500, MealCount: 2}); err != nil {
		t.Fatalf("upsert totals: %v", err)
	}
	if err := s.UpsertMealTotals(ctx, "u1", domain.DayTotals{Date: "2024-03-01", TotalCalories: 300, MealCount: 1}); err != nil {
		t.Fatalf("upsert totals again: %v", err)
	}
	rows, err := s.ListDailySummaries(ctx, "u1", "2024-03-01", "2024-03-01")
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one summary row, got %d", len(rows))
	}
	if rows[0].TotalCalories != 300 || rows[0].MealCount != 1 || rows[0].TotalWater != 750 {
		t.Fatalf("unexpected summary: %+v", rows[0].DayTotals)
	}
}

func TestCreateGoalDeactivatesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first, err := s.CreateGoal(ctx, domain.NutritionGoal{UserID: "u1", CaloriesTarget: 2000, StartDate: "2024-01-01", IsActive: true})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	second, err := s.CreateGoal(ctx, domain.NutritionGoal{UserID: "u1", CaloriesTarget: 1800, StartDate: "2024-02-01", IsActive: true})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	goals, err := s.ListGoals(ctx, "u1")
	if err != nil {
		t.Fatalf("list goals: %v", err)
	}
	active := 0
	for _, g := range goals {
		if g.IsActive {
			active++
			if g.ID != second.ID {
				t.Fatalf("expected newest goal active, got %s", g.ID)
			}
		}
		if g.ID == first.ID && g.IsActive {
			t.Fatalf("expected first goal deactivated")
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active goal, got %d", active)
	}
	if err := s.DeactivateGoal(ctx, "u2", second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
}

func TestConcurrentCreateGoalLeavesOneActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateGoal(ctx, domain.NutritionGoal{
				UserID:         "u1",
				CaloriesTarget: float64(1500 + i*100),
				StartDate:      fmt.Sprintf("2024-01-%02d", i+1),
				IsActive:       true,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("create goal: %v", err)
		}
	}
	goals, err := s.ListGoals(ctx, "u1")
	if err != nil {
		t.Fatalf("list goals: %v", err)
	}
	if len(goals) != writers {
		t.Fatalf("expected %d goals, got %d", writers, len(goals))
	}
	active := 0
	for _, g := range goals {
		if g.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active goal, got %d", active)
	}
}

func TestAllergyUpsertPatchAndDeactivate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, err := s.UpsertAllergy(ctx, domain.Allergy{UserID: "u1", AllergenName: "Peanuts", Severity: domain.SeverityModerate})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, err := s.UpsertAllergy(ctx, domain.Allergy{UserID: "u1", AllergenName: " peanuts ", Severity: domain.SeveritySevere})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if again.ID != a.ID || again.Severity != domain.SeveritySevere {
		t.Fatalf("expected same allergy updated, got %+v", again)
	}

	reaction := "hives"
	patched, err := s.UpdateAllergy(ctx, "u1", a.ID, AllergyPatch{ReactionDescription: &reaction})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if patched.ReactionDescription != "hives" || patched.Severity != domain.SeveritySevere {
		t.Fatalf("unexpected patched allergy: %+v", patched)
	}
	if _, err := s.UpdateAllergy(ctx, "u2", a.ID, AllergyPatch{ReactionDescription: &reaction}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}

	if err := s.DeactivateAllergy(ctx, "u1", a.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ := s.ListActiveAllergies(ctx, "u1")
	if len(active) != 0 {
		t.Fatalf("expected no active allergies, got %d", len(active))
	}
	all, _ := s.ListAllergies(ctx, "u1")
	if len(all) != 1 || all[0].IsActive {
		t.Fatalf("expected one inactive allergy, got %+v", all)
	}

	if _, err := s.UpsertAllergy(ctx, domain.Allergy{UserID: "u1", AllergenName: "PEANUTS", Severity: domain.SeverityMild}); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	active, _ = s.ListActiveAllergies(ctx, "u1")
	if len(active) != 1 || active[0].AllergenName != "PEANUTS" {
		t.Fatalf("expected re-added allergy to be active, got %+v", active)
	}
}

func TestConditionsAndWeights(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateCondition(ctx, domain.HealthCondition{UserID: "u1", ConditionName: "Hypertension", Restrictions: []string{"low_sodium"}, IsActive: true}); err != nil {
		t.Fatalf("create condition: %v", err)
	}
	conds, err := s.ListActiveConditions(ctx, "u1")
	if err != nil {
		t.Fatalf("list conditions: %v", err)
	}
	if len(conds) != 1 || len(conds[0].Restrictions) != 1 || conds[0].Restrictions[0] != "low_sodium" {
		t.Fatalf("unexpected conditions: %+v", conds)
	}

	if _, err := s.UpsertWeight(ctx, domain.WeightEntry{UserID: "u1", EntryDate: "2024-03-02", WeightKg: 80}); err != nil {
		t.Fatalf("weight: %v", err)
	}
	if _, err := s.UpsertWeight(ctx, domain.WeightEntry{UserID: "u1", EntryDate: "2024-03-01", WeightKg: 81}); err != nil {
		t.Fatalf("weight: %v", err)
	}
	w, err := s.UpsertWeight(ctx, domain.WeightEntry{UserID: "u1", EntryDate: "2024-03-02", WeightKg: 79.5})
	if err != nil {
		t.Fatalf("weight: %v", err)
	}
	if w.WeightKg != 79.5 {
		t.Fatalf("expected overwrite, got %v", w.WeightKg)
	}
	entries, _ := s.ListWeights(ctx, "u1", "2024-03-01", "2024-03-31")
	if len(entries) != 2 || entries[0].EntryDate != "2024-03-01" {
		t.Fatalf("unexpected weights: %+v", entries)
	}
}

func TestPurgeUserOnlyRemovesThatUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, user := range []string{"u1", "u2"} {
		m := testMeal(domain.NutrientRecord{FoodName: "egg", Calories: 70})
		m.UserID = user
		if _, err := s.ReplaceMeal(ctx, m); err != nil {
			t.Fatalf("replace: %v", err)
		}
		if _, err := s.AddWater(ctx, user, "2024-03-01", 200); err != nil {
			t.Fatalf("water: %v", err)
		}
		if _, err := s.UpsertAllergy(ctx, domain.Allergy{UserID: user, AllergenName: "milk", Severity: domain.SeverityMild}); err != nil {
			t.Fatalf("allergy: %v", err)
		}
	}
	if err := s.PurgeUser(ctx, "u1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if meals, _ := s.ListMealsInRange(ctx, "u1", "2024-01-01", "2024-12-31"); len(meals) != 0 {
		t.Fatalf("expected u1 meals purged")
	}
	if rows, _ := s.ListDailySummaries(ctx, "u1", "2024-01-01", "2024-12-31"); len(rows) != 0 {
		t.Fatalf("expected u1 summaries purged")
	}
	meals, _ := s.ListMealsInRange(ctx, "u2", "2024-01-01", "2024-12-31")
	if len(meals) != 1 || len(meals[0].Items) != 1 {
		t.Fatalf("expected u2 data intact, got %+v", meals)
	}
	if allergies, _ := s.ListActiveAllergies(ctx, "u2"); len(allergies) != 1 {
		t.Fatalf("expected u2 allergy intact")
	}
}
