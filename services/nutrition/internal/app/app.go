package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutrilog/internal/util"
	"nutrilog/pkg/domain"
	"nutrilog/pkg/extract"
	"nutrilog/pkg/goals"
	"nutrilog/pkg/metrics"
	"nutrilog/pkg/queue"
	"nutrilog/pkg/screening"
	"nutrilog/pkg/storage"
	"nutrilog/pkg/store"
	"nutrilog/pkg/summary"
)

// Config holds the collaborators of the core application.
type Config struct {
	Store     store.Store
	Extractor *extract.Extractor
	// Photos stores uploaded meal photos; nil skips photo storage.
	Photos  storage.ObjectStore
	Alerts  queue.AlertPublisher
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// App is the nutrition core: extraction, screening, meal persistence,
// summaries and goals.
type App struct {
	store     store.Store
	extractor *extract.Extractor
	photos    storage.ObjectStore
	alerts    queue.AlertPublisher
	metrics   *metrics.Metrics
	summaries *summary.Engine
	goals     *goals.Resolver
	screener  *screening.Screener
	now       func() time.Time
}

// New constructs the application. A store is required; a missing extractor
// gets one with only the local fallbacks.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(extract.Config{})
	}
	if cfg.Alerts == nil {
		cfg.Alerts = queue.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &App{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		photos:    cfg.Photos,
		alerts:    cfg.Alerts,
		metrics:   cfg.Metrics,
		summaries: summary.NewEngine(cfg.Store, cfg.Store),
		goals:     goals.NewResolver(cfg.Store),
		screener:  screening.NewScreener(cfg.Store),
		now:       cfg.Now,
	}, nil
}

func (a *App) today() string {
	return domain.FormatDate(a.now().UTC())
}

// Reasons reported when extraction yields nothing to log.
const (
	ReasonNoItemsFound    = "no_items_found"
	ReasonNothingDetected = "nothing_detected"
)

// Upload is a file received with an extraction request.
type Upload struct {
	Data     []byte
	MIMEType string
	Filename string
}

type ExtractRequest struct {
	Modality string
	Text     string
	Barcode  string
	File     Upload
}

type ExtractResult struct {
	Items      []domain.NutrientRecord `json:"items"`
	Alerts     []domain.AllergenAlert  `json:"alerts"`
	Source     extract.Source          `json:"source"`
	Reason     string                  `json:"reason,omitempty"`
	Transcript string                  `json:"transcript,omitempty"`
}

// ExtractAndScreen turns one input into normalized items and screens them
// against the user's active allergies. Recognition outages never fail it.
func (a *App) ExtractAndScreen(ctx context.Context, userID string, req ExtractRequest) (ExtractResult, error) {
	if err := requireUser(userID); err != nil {
		return ExtractResult{}, err
	}
	modality, ok := extract.ParseModality(strings.ToLower(strings.TrimSpace(req.Modality)))
	if !ok {
		return ExtractResult{}, invalid("modality", "must be one of text, voice, image, barcode")
	}
	in := extract.Input{Modality: modality}
	switch modality {
	case extract.ModalityText:
		in.Text = strings.TrimSpace(req.Text)
		if in.Text == "" {
			return ExtractResult{}, invalid("text", "required")
		}
	case extract.ModalityBarcode:
		in.Barcode = strings.TrimSpace(req.Barcode)
		if in.Barcode == "" {
			return ExtractResult{}, invalid("barcode", "required")
		}
	case extract.ModalityImage:
		if len(req.File.Data) == 0 {
			return ExtractResult{}, invalid("file", "required")
		}
		in.Image = extract.Image{Data: req.File.Data, MIMEType: req.File.MIMEType}
		in.Image.Ref = a.storePhoto(ctx, userID, req.File)
	case extract.ModalityVoice:
		in.Audio = extract.Audio{Data: req.File.Data, MIMEType: req.File.MIMEType, Filename: req.File.Filename}
	}

	started := time.Now()
	res, err := a.extractor.Extract(ctx, in)
	if err != nil {
		return ExtractResult{}, invalid("modality", err.Error())
	}
	a.metrics.ObserveExtraction(string(modality), string(res.Source), res.Degraded, time.Since(started))

	alerts, err := a.screener.Screen(ctx, userID, res.Items)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("screen items: %w", err)
	}
	a.observeAlerts(alerts)

	out := ExtractResult{
		Items:      res.Items,
		Alerts:     alerts,
		Source:     res.Source,
		Transcript: res.Transcript,
	}
	if out.Items == nil {
		out.Items = []domain.NutrientRecord{}
	}
	switch {
	case res.NothingDetected:
		out.Reason = ReasonNothingDetected
	case len(res.Items) == 0:
		out.Reason = ReasonNoItemsFound
	}
	return out, nil
}

func (a *App) storePhoto(ctx context.Context, userID string, file Upload) string {
	if a.photos == nil {
		return ""
	}
	key, err := storage.SaveMealPhoto(ctx, a.photos, userID, file.Data, file.MIMEType, file.Filename)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("meal photo upload failed", "user_id", userID, "err", err)
		return ""
	}
	return key
}

func (a *App) observeAlerts(alerts []domain.AllergenAlert) {
	for _, alert := range alerts {
		a.metrics.ObserveAlert(string(alert.AlertLevel))
	}
}

type SaveMealInput struct {
	MealDate    string
	MealType    string
	InputMethod string
	Items       []domain.NutrientRecord
	Notes       string
}

type SavedMeal struct {
	Meal   domain.Meal            `json:"meal"`
	Alerts []domain.AllergenAlert `json:"alerts"`
}

// SaveMeal replaces the meal in its slot, refreshes the day's cached totals
// and screens the items. Alerts never block the save.
func (a *App) SaveMeal(ctx context.Context, userID string, in SaveMealInput) (SavedMeal, error) {
	if err := requireUser(userID); err != nil {
		return SavedMeal{}, err
	}
	mealDate, err := validDate("mealDate", in.MealDate)
	if err != nil {
		return SavedMeal{}, err
	}
	if strings.TrimSpace(in.MealType) == "" {
		return SavedMeal{}, invalid("mealType", "required")
	}
	mealType, ok := domain.ParseMealType(in.MealType)
	if !ok {
		return SavedMeal{}, invalid("mealType", "must be one of early_am, breakfast, lunch, dinner")
	}
	method := domain.InputManual
	if strings.TrimSpace(in.InputMethod) != "" {
		if method, ok = domain.ParseInputMethod(in.InputMethod); !ok {
			return SavedMeal{}, invalid("inputMethod", "must be one of text, voice, image, barcode, manual")
		}
	}
	items, err := validateItems(in.Items)
	if err != nil {
		return SavedMeal{}, err
	}

	meal, err := a.store.ReplaceMeal(ctx, domain.Meal{
		ID:          util.NewID(),
		UserID:      userID,
		MealDate:    mealDate,
		MealType:    mealType,
		InputMethod: method,
		Notes:       strings.TrimSpace(in.Notes),
		Items:       items,
	})
	if err != nil {
		return SavedMeal{}, fmt.Errorf("save meal: %w", err)
	}
	logger := util.LoggerFromContext(ctx)
	if _, err := a.summaries.Recompute(ctx, userID, mealDate); err != nil {
		logger.Warn("summary recompute failed", "user_id", userID, "date", mealDate, "err", err)
	}

	alerts, err := a.screener.Screen(ctx, userID, items)
	if err != nil {
		logger.Warn("allergen screening failed", "user_id", userID, "meal_id", meal.ID, "err", err)
		alerts = []domain.AllergenAlert{}
	}
	a.observeAlerts(alerts)
	if screening.HasCritical(alerts) {
		a.publishAlerts(ctx, meal, alerts)
	}
	return SavedMeal{Meal: meal, Alerts: alerts}, nil
}

func (a *App) GetMeal(ctx context.Context, userID, mealID string) (domain.Meal, error) {
	if err := requireUser(userID); err != nil {
		return domain.Meal{}, err
	}
	meal, err := a.store.GetMeal(ctx, userID, strings.TrimSpace(mealID))
	if err != nil {
		return domain.Meal{}, mapStoreErr("meal", err)
	}
	return meal, nil
}

func (a *App) ListMeals(ctx context.Context, userID, start, end string) ([]domain.Meal, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	start, end, err := validRange(start, end)
	if err != nil {
		return nil, err
	}
	meals, err := a.store.ListMealsInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	return meals, nil
}

// DeleteMeal removes a meal and recomputes its day.
func (a *App) DeleteMeal(ctx context.Context, userID, mealID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	meal, err := a.store.DeleteMeal(ctx, userID, strings.TrimSpace(mealID))
	if err != nil {
		return mapStoreErr("meal", err)
	}
	if _, err := a.summaries.Recompute(ctx, userID, meal.MealDate); err != nil {
		util.LoggerFromContext(ctx).Warn("summary recompute failed", "user_id", userID, "date", meal.MealDate, "err", err)
	}
	return nil
}

// PurgeUser hard-deletes every row owned by the user.
func (a *App) PurgeUser(ctx context.Context, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := a.store.PurgeUser(ctx, userID); err != nil {
		return fmt.Errorf("purge user: %w", err)
	}
	util.LoggerFromContext(ctx).Info("user data purged", "user_id", userID)
	return nil
}

func mapStoreErr(what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
