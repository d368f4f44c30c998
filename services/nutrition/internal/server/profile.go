package server

import (
	"net/http"
	"strconv"
	"strings"

	"nutrilog/pkg/domain"
	"nutrilog/pkg/store"
	"nutrilog/services/nutrition/internal/app"
)

type goalRequest struct {
	CaloriesTarget float64 `json:"caloriesTarget"`
	ProteinTarget  float64 `json:"proteinTarget"`
	CarbsTarget    float64 `json:"carbsTarget"`
	FatsTarget     float64 `json:"fatsTarget"`
	FiberTarget    float64 `json:"fiberTarget"`
	SodiumTarget   float64 `json:"sodiumTarget"`
	SugarTarget    float64 `json:"sugarTarget"`
	WaterTarget    float64 `json:"waterTarget"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.app.ListGoals(r.Context(), userID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list, "count": len(list)})
	case http.MethodPost:
		var req goalRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		goal, err := s.app.CreateGoal(r.Context(), userID, app.GoalInput(req))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, goal)
	default:
		methodNotAllowed(w)
	}
}

// /api/goals/active, /api/goals/progress or /api/goals/{id}
func (s *Server) handleGoalSubpath(w http.ResponseWriter, r *http.Request, userID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/goals/")
	if rest == "" || strings.Contains(rest, "/") {
		notFound(w, "not found")
		return
	}
	date := r.URL.Query().Get("date")
	switch rest {
	case "active":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		goal, err := s.app.ActiveGoal(r.Context(), userID, date)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"goal": goal})
	case "progress":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		progress, err := s.app.GoalProgress(r.Context(), userID, date)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	default:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeactivateGoal(r.Context(), userID, rest); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
	}
}

type allergyRequest struct {
	AllergenName        string `json:"allergenName"`
	AllergenCategory    string `json:"allergenCategory"`
	Severity            string `json:"severity"`
	ReactionDescription string `json:"reactionDescription"`
	DiagnosedBy         string `json:"diagnosedBy"`
	DiagnosedDate       string `json:"diagnosedDate"`
}

type allergyPatchRequest struct {
	AllergenCategory    *string `json:"allergenCategory"`
	Severity            *string `json:"severity"`
	ReactionDescription *string `json:"reactionDescription"`
	DiagnosedBy         *string `json:"diagnosedBy"`
	DiagnosedDate       *string `json:"diagnosedDate"`
	IsActive            *bool   `json:"isActive"`
}

func (p allergyPatchRequest) patch() store.AllergyPatch {
	out := store.AllergyPatch{
		AllergenCategory:    p.AllergenCategory,
		ReactionDescription: p.ReactionDescription,
		DiagnosedBy:         p.DiagnosedBy,
		DiagnosedDate:       p.DiagnosedDate,
		IsActive:            p.IsActive,
	}
	if p.Severity != nil {
		severity := domain.Severity(*p.Severity)
		out.Severity = &severity
	}
	return out
}

func (s *Server) handleAllergies(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))
		list, err := s.app.ListAllergies(r.Context(), userID, includeInactive)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list, "count": len(list)})
	case http.MethodPost:
		var req allergyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		allergy, err := s.app.AddAllergy(r.Context(), userID, app.AllergyInput(req))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, allergy)
	default:
		methodNotAllowed(w)
	}
}

// /api/allergies/{id}
func (s *Server) handleAllergyByID(w http.ResponseWriter, r *http.Request, userID string) {
	id := strings.TrimPrefix(r.URL.Path, "/api/allergies/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req allergyPatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		allergy, err := s.app.UpdateAllergy(r.Context(), userID, id, req.patch())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, allergy)
	case http.MethodDelete:
		if err := s.app.RemoveAllergy(r.Context(), userID, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
	default:
		methodNotAllowed(w)
	}
}

type conditionRequest struct {
	ConditionName string   `json:"conditionName"`
	Notes         string   `json:"notes"`
	Restrictions  []string `json:"restrictions"`
}

func (s *Server) handleConditions(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.app.ListConditions(r.Context(), userID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list, "count": len(list)})
	case http.MethodPost:
		var req conditionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cond, err := s.app.AddCondition(r.Context(), userID, app.ConditionInput(req))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, cond)
	default:
		methodNotAllowed(w)
	}
}

type weightRequest struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weightKg"`
	Notes    string  `json:"notes"`
}

func (s *Server) handleWeight(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		list, err := s.app.WeightHistory(r.Context(), userID, q.Get("start"), q.Get("end"))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list, "count": len(list)})
	case http.MethodPost:
		var req weightRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		entry, err := s.app.LogWeight(r.Context(), userID, req.Date, req.WeightKg, req.Notes)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		methodNotAllowed(w)
	}
}
