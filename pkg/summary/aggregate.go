// Package summary reconciles meal-derived totals with cached daily rows.
package summary

import (
	"sort"
	"time"

	"nutrilog/pkg/domain"
)

// Averages are per returned day. MealCount is fractional here.
type Averages struct {
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fats      float64 `json:"fats"`
	Fiber     float64 `json:"fiber"`
	Sugar     float64 `json:"sugar"`
	Sodium    float64 `json:"sodium"`
	Water     float64 `json:"water"`
	MealCount float64 `json:"mealCount"`
}

type RangeSummary struct {
	Start      string             `json:"start"`
	End        string             `json:"end"`
	Days       []domain.DayTotals `json:"days"`
	Totals     domain.DayTotals   `json:"totals"`
	Averages   Averages           `json:"averages"`
	DaysLogged int                `json:"daysLogged"`
}

// Week groups consecutive returned days, starting on Monday.
type Week struct {
	Start      string             `json:"start"`
	End        string             `json:"end"`
	Days       []domain.DayTotals `json:"days"`
	Totals     domain.DayTotals   `json:"totals"`
	DaysLogged int                `json:"daysLogged"`
}

type MonthlySummary struct {
	Month string `json:"month"`
	RangeSummary
	Weeks []Week `json:"weeks"`
}

// MealAggregates sums meals per date.
func MealAggregates(meals []domain.Meal) map[string]domain.DayTotals {
	out := make(map[string]domain.DayTotals)
	for _, meal := range meals {
		day, ok := out[meal.MealDate]
		if !ok {
			day = domain.DayTotals{Date: meal.MealDate}
		}
		day.Combine(meal.Totals())
		out[meal.MealDate] = day
	}
	return out
}

// Merge starts from the cached rows and lets meal-derived values win for
// every field except water. Dates with neither source are absent. The
// result is ordered by date.
func Merge(cached []domain.DailySummary, derived map[string]domain.DayTotals) []domain.DayTotals {
	byDate := make(map[string]domain.DayTotals, len(cached)+len(derived))
	for _, row := range cached {
		byDate[row.Date] = row.DayTotals
	}
	for date, fromMeals := range derived {
		merged := fromMeals
		merged.Date = date
		merged.TotalWater = byDate[date].TotalWater
		byDate[date] = merged
	}
	days := make([]domain.DayTotals, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// IsLogged treats a day with meals or any calories as logged.
func IsLogged(day domain.DayTotals) bool {
	return day.MealCount > 0 || day.TotalCalories > 0
}

// Summarize totals the days and divides by len(days), not by the length of
// the requested range.
func Summarize(start, end string, days []domain.DayTotals) RangeSummary {
	out := RangeSummary{Start: start, End: end, Days: days}
	if out.Days == nil {
		out.Days = []domain.DayTotals{}
	}
	out.Totals, out.DaysLogged = total(days)
	if n := float64(len(days)); n > 0 {
		t := out.Totals
		out.Averages = Averages{
			Calories:  t.TotalCalories / n,
			Protein:   t.TotalProtein / n,
			Carbs:     t.TotalCarbs / n,
			Fats:      t.TotalFats / n,
			Fiber:     t.TotalFiber / n,
			Sugar:     t.TotalSugar / n,
			Sodium:    t.TotalSodium / n,
			Water:     t.TotalWater / n,
			MealCount: float64(t.MealCount) / n,
		}
	}
	return out
}

// GroupWeeks opens a new week at the first day and at every Monday.
func GroupWeeks(days []domain.DayTotals) []Week {
	weeks := []Week{}
	for i, day := range days {
		if i == 0 || isMonday(day.Date) {
			weeks = append(weeks, Week{Start: day.Date})
		}
		w := &weeks[len(weeks)-1]
		w.Days = append(w.Days, day)
		w.End = day.Date
	}
	for i := range weeks {
		weeks[i].Totals, weeks[i].DaysLogged = total(weeks[i].Days)
	}
	return weeks
}

func total(days []domain.DayTotals) (domain.DayTotals, int) {
	var sum domain.DayTotals
	logged := 0
	for _, d := range days {
		sum.TotalCalories += d.TotalCalories
		sum.TotalProtein += d.TotalProtein
		sum.TotalCarbs += d.TotalCarbs
		sum.TotalFats += d.TotalFats
		sum.TotalFiber += d.TotalFiber
		sum.TotalSugar += d.TotalSugar
		sum.TotalSodium += d.TotalSodium
		sum.TotalWater += d.TotalWater
		sum.MealCount += d.MealCount
		if IsLogged(d) {
			logged++
		}
	}
	return sum, logged
}

func isMonday(date string) bool {
	t, err := domain.ParseDate(date)
	return err == nil && t.Weekday() == time.Monday
}
