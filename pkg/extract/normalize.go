package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"nutrilog/pkg/domain"
)

const (
	defaultUnit     = "serving"
	unknownFoodName = "Unknown food"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

var fieldAliases = map[string][]string{
	"name":       {"food_name", "foodname", "name", "food", "item", "label"},
	"quantity":   {"quantity", "qty", "amount"},
	"unit":       {"unit", "units", "serving_unit"},
	"calories":   {"calories", "kcal", "energy_kcal", "energy-kcal"},
	"protein":    {"protein", "proteins"},
	"carbs":      {"carbs", "carbohydrates", "carbohydrate"},
	"fats":       {"fats", "fat", "total_fat"},
	"fiber":      {"fiber", "fibre"},
	"sugar":      {"sugar", "sugars"},
	"sodium":     {"sodium"},
	"barcode":    {"barcode", "code"},
	"imageRef":   {"source_image_ref", "sourceimageref", "image_ref"},
	"confidence": {"confidence_score", "confidencescore", "confidence"},
	"edited":     {"is_edited", "isedited"},
}

// Normalize coerces a recognition response into nutrient records.
// Accepted shapes: a list of item objects, an object with an "items" list,
// a single item object, or JSON text holding one of those. The boolean is
// false when the shape was not recognised; the result is then empty.
func Normalize(raw any) ([]domain.NutrientRecord, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case string:
		decoded, err := DecodeRaw(v)
		if err != nil {
			return nil, false
		}
		return Normalize(decoded)
	case []byte:
		return Normalize(string(v))
	case json.RawMessage:
		return Normalize(string(v))
	case []any:
		return normalizeList(v), true
	case []map[string]any:
		out := make([]domain.NutrientRecord, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeItem(item))
		}
		return out, true
	case map[string]any:
		fields := lowerKeys(v)
		if items, ok := fields["items"]; ok {
			list, ok := items.([]any)
			if !ok {
				return nil, false
			}
			return normalizeList(list), true
		}
		if lookup(fields, "name") != nil {
			return []domain.NutrientRecord{normalizeItem(v)}, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// DecodeRaw parses model output that should contain JSON. Markdown code
// fences and prose around the first JSON value are tolerated.
func DecodeRaw(text string) (any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out any
	err := json.Unmarshal([]byte(text), &out)
	if err == nil {
		return out, nil
	}
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return nil, err
	}
	closer := "]"
	if text[start] == '{' {
		closer = "}"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return nil, err
	}
	if jsonErr := json.Unmarshal([]byte(text[start:end+1]), &out); jsonErr != nil {
		return nil, jsonErr
	}
	return out, nil
}

func normalizeList(list []any) []domain.NutrientRecord {
	out := make([]domain.NutrientRecord, 0, len(list))
	for _, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, normalizeItem(item))
	}
	return out
}

func normalizeItem(item map[string]any) domain.NutrientRecord {
	fields := lowerKeys(item)
	rec := domain.NutrientRecord{
		FoodName:        strings.TrimSpace(toString(lookup(fields, "name"))),
		Quantity:        toNumber(lookup(fields, "quantity")),
		Unit:            strings.TrimSpace(toString(lookup(fields, "unit"))),
		Calories:        toNumber(lookup(fields, "calories")),
		Protein:         toNumber(lookup(fields, "protein")),
		Carbs:           toNumber(lookup(fields, "carbs")),
		Fats:            toNumber(lookup(fields, "fats")),
		Fiber:           toNumber(lookup(fields, "fiber")),
		Sugar:           toNumber(lookup(fields, "sugar")),
		Sodium:          toNumber(lookup(fields, "sodium")),
		Barcode:         strings.TrimSpace(toString(lookup(fields, "barcode"))),
		SourceImageRef:  strings.TrimSpace(toString(lookup(fields, "imageRef"))),
		ConfidenceScore: 1.0,
	}
	if rec.FoodName == "" {
		rec.FoodName = unknownFoodName
	}
	if rec.Quantity <= 0 {
		rec.Quantity = 1
	}
	if rec.Unit == "" {
		rec.Unit = defaultUnit
	}
	if raw := lookup(fields, "confidence"); raw != nil {
		rec.ConfidenceScore = math.Min(toNumber(raw), 1)
	}
	if edited, ok := lookup(fields, "edited").(bool); ok {
		rec.IsEdited = edited
	}
	return rec
}

func lowerKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func lookup(fields map[string]any, field string) any {
	for _, alias := range fieldAliases[field] {
		if v, ok := fields[alias]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// toNumber returns a finite, non-negative number; anything else is 0.
func toNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		match := leadingNumber.FindString(strings.TrimSpace(n))
		if match == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func clamp(f float64) float64 {
	return toNumber(f)
}
