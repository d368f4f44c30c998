package extract

import (
	"encoding/json"
	"testing"
)

func TestNormalizeAcceptsListWrapperAndSingleObject(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want int
	}{
		{"list", []any{map[string]any{"food_name": "Toast"}, map[string]any{"name": "Jam"}}, 2},
		{"wrapper", map[string]any{"items": []any{map[string]any{"food": "Soup"}}}, 1},
		{"single", map[string]any{"food_name": "Apple", "calories": 95.0}, 1},
		{"json text", `{"items":[{"food_name":"Rice","calories":"130 kcal"}]}`, 1},
		{"fenced", "```json\n[{\"food_name\":\"Egg\"}]\n```", 1},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.raw)
		if !ok {
			t.Fatalf("%s: expected recognised shape", tc.name)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: expected %d items, got %d", tc.name, tc.want, len(got))
		}
	}
}

func TestNormalizeGarbageYieldsEmpty(t *testing.T) {
	for _, raw := range []any{nil, 42.0, "not json", map[string]any{"foo": "bar"}, map[string]any{"items": "nope"}, true} {
		got, ok := Normalize(raw)
		if ok {
			t.Fatalf("expected %v to be rejected", raw)
		}
		if len(got) != 0 {
			t.Fatalf("expected no items for %v, got %+v", raw, got)
		}
	}
}

func TestNormalizeCoercesFieldsAndDefaults(t *testing.T) {
	raw := map[string]any{
		"food_name": "Oat Milk",
		"calories":  "120",
		"protein":   -4.0,
		"carbs":     "abc",
		"fats":      json.Number("2.5"),
		"sugar":     "7g",
		"fiber":     "1.5e1",
		"sodium":    "3E2mg",
	}
	got, ok := Normalize(raw)
	if !ok || len(got) != 1 {
		t.Fatalf("unexpected normalize result: %+v ok=%v", got, ok)
	}
	rec := got[0]
	if rec.Calories != 120 || rec.Protein != 0 || rec.Carbs != 0 || rec.Fats != 2.5 || rec.Sugar != 7 ||
		rec.Fiber != 15 || rec.Sodium != 300 {
		t.Fatalf("unexpected nutrients: %+v", rec)
	}
	if rec.Quantity != 1 || rec.Unit != "serving" {
		t.Fatalf("expected quantity/unit defaults, got %v %q", rec.Quantity, rec.Unit)
	}
	if rec.ConfidenceScore != 1 {
		t.Fatalf("expected default confidence 1, got %v", rec.ConfidenceScore)
	}
}

func TestNormalizeSkipsNonObjectListEntries(t *testing.T) {
	got, ok := Normalize([]any{"junk", 3.0, map[string]any{}})
	if !ok {
		t.Fatalf("expected list to be accepted")
	}
	if len(got) != 1 || got[0].FoodName != "Unknown food" {
		t.Fatalf("unexpected items: %+v", got)
	}
}

func TestDecodeRawFindsEmbeddedJSON(t *testing.T) {
	out, err := DecodeRaw("Here you go: [{\"food_name\":\"Tea\"}] enjoy")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	list, ok := out.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected decode result: %#v", out)
	}
}
