package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"nutrilog/pkg/domain"
	"nutrilog/services/nutrition/internal/app"
)

type extractRequest struct {
	Modality string `json:"modality"`
	Text     string `json:"text"`
	Barcode  string `json:"barcode"`
}

// POST /api/extract. JSON for text and barcode, multipart with field "file"
// for image and voice.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowExtract(w, r, userID) {
		return
	}
	var req app.ExtractRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		parsed, ok := s.parseUpload(w, r)
		if !ok {
			return
		}
		req = parsed
	} else {
		var body extractRequest
		if !decodeJSON(w, r, &body) {
			return
		}
		req = app.ExtractRequest{Modality: body.Modality, Text: body.Text, Barcode: body.Barcode}
	}
	res, err := s.app.ExtractAndScreen(r.Context(), userID, req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (app.ExtractRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return app.ExtractRequest{}, false
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return app.ExtractRequest{}, false
	}
	req := app.ExtractRequest{
		Modality: r.FormValue("modality"),
		Text:     r.FormValue("text"),
		Barcode:  r.FormValue("barcode"),
	}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return app.ExtractRequest{}, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return app.ExtractRequest{}, false
	}
	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	req.File = app.Upload{Data: data, MIMEType: contentType, Filename: header.Filename}
	return req, true
}

// itemRequest leaves quantity and confidence optional so omitted values can
// be told apart from explicit zeros.
type itemRequest struct {
	FoodName        string   `json:"foodName"`
	Quantity        *float64 `json:"quantity"`
	Unit            string   `json:"unit"`
	Calories        float64  `json:"calories"`
	Protein         float64  `json:"protein"`
	Carbs           float64  `json:"carbs"`
	Fats            float64  `json:"fats"`
	Fiber           float64  `json:"fiber"`
	Sugar           float64  `json:"sugar"`
	Sodium          float64  `json:"sodium"`
	Barcode         string   `json:"barcode"`
	SourceImageRef  string   `json:"sourceImageRef"`
	ConfidenceScore *float64 `json:"confidenceScore"`
	IsEdited        bool     `json:"isEdited"`
}

func (i itemRequest) record() domain.NutrientRecord {
	rec := domain.NutrientRecord{
		FoodName:        i.FoodName,
		Quantity:        1,
		Unit:            i.Unit,
		Calories:        i.Calories,
		Protein:         i.Protein,
		Carbs:           i.Carbs,
		Fats:            i.Fats,
		Fiber:           i.Fiber,
		Sugar:           i.Sugar,
		Sodium:          i.Sodium,
		Barcode:         i.Barcode,
		SourceImageRef:  i.SourceImageRef,
		ConfidenceScore: 1,
		IsEdited:        i.IsEdited,
	}
	if i.Quantity != nil {
		rec.Quantity = *i.Quantity
	}
	if i.ConfidenceScore != nil {
		rec.ConfidenceScore = *i.ConfidenceScore
	}
	return rec
}

type saveMealRequest struct {
	MealDate    string        `json:"mealDate"`
	MealType    string        `json:"mealType"`
	InputMethod string        `json:"inputMethod"`
	Items       []itemRequest `json:"items"`
	Notes       string        `json:"notes"`
}

func (s *Server) handleMeals(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		s.handleSaveMeal(w, r, userID)
	case http.MethodGet:
		q := r.URL.Query()
		meals, err := s.app.ListMeals(r.Context(), userID, q.Get("start"), q.Get("end"))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": meals,
			"count": len(meals),
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSaveMeal(w http.ResponseWriter, r *http.Request, userID string) {
	var req saveMealRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	items := make([]domain.NutrientRecord, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, item.record())
	}
	saved, err := s.app.SaveMeal(r.Context(), userID, app.SaveMealInput{
		MealDate:    req.MealDate,
		MealType:    req.MealType,
		InputMethod: req.InputMethod,
		Items:       items,
		Notes:       req.Notes,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// /api/meals/{id}
func (s *Server) handleMealByID(w http.ResponseWriter, r *http.Request, userID string) {
	id := strings.TrimPrefix(r.URL.Path, "/api/meals/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		meal, err := s.app.GetMeal(r.Context(), userID, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, meal)
	case http.MethodDelete:
		if err := s.app.DeleteMeal(r.Context(), userID, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	totals, err := s.app.DailySummary(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleRangeSummary(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	out, err := s.app.RangeSummary(r.Context(), userID, q.Get("start"), q.Get("end"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	year, yerr := strconv.Atoi(strings.TrimSpace(q.Get("year")))
	month, merr := strconv.Atoi(strings.TrimSpace(q.Get("month")))
	if yerr != nil || merr != nil {
		writeError(w, http.StatusBadRequest, "year and month must be integers")
		return
	}
	out, err := s.app.MonthlySummary(r.Context(), userID, year, month)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type waterRequest struct {
	Date     string  `json:"date"`
	AmountML float64 `json:"amountMl"`
}

func (s *Server) handleWater(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req waterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	totals, err := s.app.LogWater(r.Context(), userID, req.Date, req.AmountML)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
