package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"nutrilog/pkg/domain"
)

const (
	matchedConfidence  = 0.6
	fallbackConfidence = 0.3
)

// FoodFacts is nutrition for one natural unit of a food.
type FoodFacts struct {
	Calories     float64
	Protein      float64
	Carbs        float64
	Fats         float64
	Unit         string
	GramsPerUnit float64
}

type unitRule struct {
	name       string
	multiplier float64
	grams      float64
}

var defaultFoods = map[string]FoodFacts{
	"egg":      {Calories: 70, Protein: 6, Carbs: 0.6, Fats: 5, Unit: "piece", GramsPerUnit: 50},
	"rice":     {Calories: 130, Protein: 2.7, Carbs: 28, Fats: 0.3, Unit: "serving", GramsPerUnit: 100},
	"chicken":  {Calories: 165, Protein: 31, Carbs: 0, Fats: 3.6, Unit: "serving", GramsPerUnit: 100},
	"bread":    {Calories: 80, Protein: 3, Carbs: 15, Fats: 1, Unit: "slice", GramsPerUnit: 30},
	"toast":    {Calories: 80, Protein: 3, Carbs: 15, Fats: 1, Unit: "slice", GramsPerUnit: 30},
	"apple":    {Calories: 95, Protein: 0.5, Carbs: 25, Fats: 0.3, Unit: "piece", GramsPerUnit: 180},
	"banana":   {Calories: 105, Protein: 1.3, Carbs: 27, Fats: 0.4, Unit: "piece", GramsPerUnit: 118},
	"orange":   {Calories: 62, Protein: 1.2, Carbs: 15, Fats: 0.2, Unit: "piece", GramsPerUnit: 130},
	"milk":     {Calories: 103, Protein: 8, Carbs: 12, Fats: 2.4, Unit: "glass", GramsPerUnit: 244},
	"oats":     {Calories: 150, Protein: 5, Carbs: 27, Fats: 3, Unit: "serving", GramsPerUnit: 40},
	"oatmeal":  {Calories: 150, Protein: 5, Carbs: 27, Fats: 3, Unit: "serving", GramsPerUnit: 40},
	"pasta":    {Calories: 200, Protein: 7, Carbs: 42, Fats: 1.2, Unit: "serving", GramsPerUnit: 140},
	"salad":    {Calories: 50, Protein: 2, Carbs: 8, Fats: 1, Unit: "serving", GramsPerUnit: 100},
	"cheese":   {Calories: 113, Protein: 7, Carbs: 0.4, Fats: 9, Unit: "slice", GramsPerUnit: 28},
	"yogurt":   {Calories: 100, Protein: 10, Carbs: 4, Fats: 5, Unit: "serving", GramsPerUnit: 150},
	"potato":   {Calories: 160, Protein: 4, Carbs: 37, Fats: 0.2, Unit: "piece", GramsPerUnit: 170},
	"salmon":   {Calories: 208, Protein: 20, Carbs: 0, Fats: 13, Unit: "serving", GramsPerUnit: 100},
	"fish":     {Calories: 206, Protein: 22, Carbs: 0, Fats: 12, Unit: "serving", GramsPerUnit: 100},
	"beef":     {Calories: 250, Protein: 26, Carbs: 0, Fats: 15, Unit: "serving", GramsPerUnit: 100},
	"steak":    {Calories: 250, Protein: 26, Carbs: 0, Fats: 15, Unit: "serving", GramsPerUnit: 100},
	"broccoli": {Calories: 55, Protein: 3.7, Carbs: 11, Fats: 0.6, Unit: "serving", GramsPerUnit: 150},
	"beans":    {Calories: 130, Protein: 8, Carbs: 23, Fats: 0.5, Unit: "serving", GramsPerUnit: 100},
	"coffee":   {Calories: 2, Protein: 0.3, Carbs: 0, Fats: 0, Unit: "cup", GramsPerUnit: 240},
	"tea":      {Calories: 2, Protein: 0, Carbs: 0.5, Fats: 0, Unit: "cup", GramsPerUnit: 240},
}

// cup-sized portions count as 1.5 natural units.
var defaultUnits = map[string]unitRule{
	"cup":      {name: "cup", multiplier: 1.5},
	"cups":     {name: "cup", multiplier: 1.5},
	"tbsp":     {name: "tbsp", multiplier: 1.5 / 16},
	"tsp":      {name: "tsp", multiplier: 1.5 / 48},
	"g":        {name: "g", grams: 1},
	"gram":     {name: "g", grams: 1},
	"grams":    {name: "g", grams: 1},
	"oz":       {name: "oz", grams: 28.35},
	"ounce":    {name: "oz", grams: 28.35},
	"ounces":   {name: "oz", grams: 28.35},
	"piece":    {name: "piece", multiplier: 1},
	"pieces":   {name: "piece", multiplier: 1},
	"slice":    {name: "slice", multiplier: 1},
	"slices":   {name: "slice", multiplier: 1},
	"serving":  {name: "serving", multiplier: 1},
	"servings": {name: "serving", multiplier: 1},
	"bowl":     {name: "bowl", multiplier: 1},
	"bowls":    {name: "bowl", multiplier: 1},
	"glass":    {name: "glass", multiplier: 1},
	"glasses":  {name: "glass", multiplier: 1},
}

// placeholder used when nothing in the text is recognised
var fallbackEstimate = FoodFacts{Calories: 200, Protein: 10, Carbs: 25, Fats: 8}

var (
	tokenSplit   = regexp.MustCompile(`[,\s]+`)
	attachedUnit = regexp.MustCompile(`^(\d+(?:\.\d+)?)([a-z]+)$`)
)

// PatternMatcher is the deterministic text extractor used when no
// inference service can be used.
type PatternMatcher struct {
	foods map[string]FoodFacts
	units map[string]unitRule
}

// NewPatternMatcher builds a matcher over the built-in food table.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{foods: defaultFoods, units: defaultUnits}
}

// Match extracts items from free text. Any non-empty input, including one
// that is only whitespace, yields at least one item.
func (m *PatternMatcher) Match(text string) []domain.NutrientRecord {
	if text == "" {
		return nil
	}
	text = strings.TrimSpace(text)
	qty := 1.0
	var unit *unitRule
	expectUnit := false
	var items []domain.NutrientRecord

	for _, raw := range tokenSplit.Split(strings.ToLower(text), -1) {
		token := strings.Trim(raw, ".;:!?()\"'")
		if token == "" {
			continue
		}
		if n, ok := parseQuantity(token); ok {
			qty, unit, expectUnit = n, nil, true
			continue
		}
		if parts := attachedUnit.FindStringSubmatch(token); parts != nil {
			if rule, ok := m.units[parts[2]]; ok {
				n, _ := strconv.ParseFloat(parts[1], 64)
				qty, expectUnit = n, false
				unit = &rule
				continue
			}
		}
		if expectUnit {
			expectUnit = false
			if rule, ok := m.units[token]; ok {
				unit = &rule
				continue
			}
		}
		facts, name, ok := m.lookupFood(token)
		if !ok {
			continue
		}
		items = append(items, buildItem(name, facts, qty, unit))
		qty, unit = 1.0, nil
	}

	if len(items) == 0 {
		name := text
		if name == "" {
			name = unknownFoodName
		}
		return []domain.NutrientRecord{{
			FoodName:        name,
			Quantity:        1,
			Unit:            defaultUnit,
			Calories:        fallbackEstimate.Calories,
			Protein:         fallbackEstimate.Protein,
			Carbs:           fallbackEstimate.Carbs,
			Fats:            fallbackEstimate.Fats,
			ConfidenceScore: fallbackConfidence,
		}}
	}
	return items
}

func (m *PatternMatcher) lookupFood(token string) (FoodFacts, string, bool) {
	candidates := []string{token}
	if strings.HasSuffix(token, "es") {
		candidates = append(candidates, strings.TrimSuffix(token, "es"))
	}
	if strings.HasSuffix(token, "s") {
		candidates = append(candidates, strings.TrimSuffix(token, "s"))
	}
	for _, c := range candidates {
		if facts, ok := m.foods[c]; ok {
			return facts, token, true
		}
	}
	return FoodFacts{}, "", false
}

func buildItem(name string, facts FoodFacts, qty float64, unit *unitRule) domain.NutrientRecord {
	factor := qty
	unitName := facts.Unit
	if unit != nil {
		unitName = unit.name
		if unit.grams > 0 && facts.GramsPerUnit > 0 {
			factor = qty * unit.grams / facts.GramsPerUnit
		} else {
			factor = qty * unit.multiplier
		}
	}
	return domain.NutrientRecord{
		FoodName:        name,
		Quantity:        qty,
		Unit:            unitName,
		Calories:        facts.Calories * factor,
		Protein:         facts.Protein * factor,
		Carbs:           facts.Carbs * factor,
		Fats:            facts.Fats * factor,
		ConfidenceScore: matchedConfidence,
	}
}

func parseQuantity(token string) (float64, bool) {
	if num, den, ok := strings.Cut(token, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return positive(n / d)
	}
	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return positive(n)
}

func positive(n float64) (float64, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, false
	}
	return n, true
}
