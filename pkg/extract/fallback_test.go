package extract

import (
	"math"
	"testing"
)

func TestPatternMatcherEggsAndCupOfRice(t *testing.T) {
	items := NewPatternMatcher().Match("2 eggs, 1 cup rice")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].Quantity != 2 || !almost(items[0].Calories, 140) {
		t.Fatalf("unexpected eggs item: %+v", items[0])
	}
	if items[1].Unit != "cup" || !almost(items[1].Calories, 195) {
		t.Fatalf("unexpected rice item: %+v", items[1])
	}
	if items[0].ConfidenceScore != matchedConfidence {
		t.Fatalf("expected matched confidence, got %v", items[0].ConfidenceScore)
	}
}

func TestPatternMatcherAlwaysReturnsAnItem(t *testing.T) {
	for _, text := range []string{"mystery stew", "3", "!!!", "grandma's casserole with extra gravy"} {
		items := NewPatternMatcher().Match(text)
		if len(items) < 1 {
			t.Fatalf("expected at least one item for %q", text)
		}
	}
	items := NewPatternMatcher().Match("mystery stew")
	if items[0].FoodName != "mystery stew" || items[0].ConfidenceScore != fallbackConfidence {
		t.Fatalf("unexpected fallback item: %+v", items[0])
	}
}

func TestPatternMatcherBlankInput(t *testing.T) {
	if items := NewPatternMatcher().Match(""); len(items) != 0 {
		t.Fatalf("expected no items for empty input, got %+v", items)
	}
	items := NewPatternMatcher().Match(" \t ")
	if len(items) != 1 {
		t.Fatalf("expected one fallback item for whitespace input, got %+v", items)
	}
	if items[0].FoodName != "Unknown food" || items[0].ConfidenceScore != fallbackConfidence {
		t.Fatalf("unexpected whitespace fallback item: %+v", items[0])
	}
}

func TestPatternMatcherGramsAndFractions(t *testing.T) {
	items := NewPatternMatcher().Match("200g chicken and 1/2 banana")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].Unit != "g" || !almost(items[0].Calories, 330) {
		t.Fatalf("unexpected chicken item: %+v", items[0])
	}
	if items[1].Quantity != 0.5 || !almost(items[1].Calories, 52.5) {
		t.Fatalf("unexpected banana item: %+v", items[1])
	}
}

func TestPatternMatcherQuantityResetsAfterMatch(t *testing.T) {
	items := NewPatternMatcher().Match("3 apples toast")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[1].Quantity != 1 {
		t.Fatalf("expected quantity reset for second food, got %v", items[1].Quantity)
	}
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
