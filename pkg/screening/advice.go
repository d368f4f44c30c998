package screening

import (
	"fmt"
	"strings"

	"nutrilog/pkg/domain"
)

// Advisory is informational text tied to a health condition. It never
// blocks anything.
type Advisory struct {
	Code      string  `json:"code"`
	Condition string  `json:"condition"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Limit     float64 `json:"limit"`
	Message   string  `json:"message"`
}

type limitRule struct {
	code   string
	metric string
	limit  float64
	value  func(domain.DayTotals) float64
}

var (
	sodiumRule = limitRule{code: "sodium_high", metric: "sodium", limit: 2300, value: func(t domain.DayTotals) float64 { return t.TotalSodium }}
	sugarRule  = limitRule{code: "sugar_high", metric: "sugar", limit: 50, value: func(t domain.DayTotals) float64 { return t.TotalSugar }}
	carbsRule  = limitRule{code: "carbs_high", metric: "carbs", limit: 250, value: func(t domain.DayTotals) float64 { return t.TotalCarbs }}
	fatsRule   = limitRule{code: "fats_high", metric: "fats", limit: 70, value: func(t domain.DayTotals) float64 { return t.TotalFats }}
	kidneyRule = limitRule{code: "protein_high", metric: "protein", limit: 60, value: func(t domain.DayTotals) float64 { return t.TotalProtein }}
)

// keyword in condition name or restriction -> rules
var conditionRules = []struct {
	keyword string
	rules   []limitRule
}{
	{"hypertension", []limitRule{sodiumRule}},
	{"blood pressure", []limitRule{sodiumRule}},
	{"low_sodium", []limitRule{sodiumRule}},
	{"diabet", []limitRule{sugarRule, carbsRule}},
	{"low_sugar", []limitRule{sugarRule}},
	{"low_carb", []limitRule{carbsRule}},
	{"cholesterol", []limitRule{fatsRule}},
	{"heart", []limitRule{fatsRule, sodiumRule}},
	{"low_fat", []limitRule{fatsRule}},
	{"kidney", []limitRule{kidneyRule, sodiumRule}},
}

// Advise compares a day's totals with limits implied by active conditions.
// Each rule fires at most once per condition.
func Advise(conditions []domain.HealthCondition, totals domain.DayTotals) []Advisory {
	out := []Advisory{}
	for _, cond := range conditions {
		if !cond.IsActive {
			continue
		}
		seen := map[string]bool{}
		for _, rule := range rulesFor(cond) {
			if seen[rule.code] {
				continue
			}
			seen[rule.code] = true
			value := rule.value(totals)
			if value <= rule.limit {
				continue
			}
			out = append(out, Advisory{
				Code:      rule.code,
				Condition: cond.ConditionName,
				Metric:    rule.metric,
				Value:     value,
				Limit:     rule.limit,
				Message:   fmt.Sprintf("%s intake %.0f is above the %.0f suggested for %s", rule.metric, value, rule.limit, cond.ConditionName),
			})
		}
	}
	return out
}

func rulesFor(cond domain.HealthCondition) []limitRule {
	terms := []string{strings.ToLower(cond.ConditionName)}
	for _, r := range cond.Restrictions {
		terms = append(terms, strings.ToLower(strings.ReplaceAll(strings.TrimSpace(r), " ", "_")))
	}
	var rules []limitRule
	for _, term := range terms {
		for _, cr := range conditionRules {
			if strings.Contains(term, cr.keyword) {
				rules = append(rules, cr.rules...)
			}
		}
	}
	return rules
}
