package app

import (
	"context"
	"log/slog"

	"nutrilog/internal/util"
	"nutrilog/pkg/domain"
	"nutrilog/pkg/queue"
)

// publishAlerts hands the meal's alerts to the broker. Failures are logged
// and counted; the save has already succeeded.
func (a *App) publishAlerts(ctx context.Context, meal domain.Meal, alerts []domain.AllergenAlert) {
	event := queue.AlertEvent{
		ID:        util.NewID(),
		UserID:    meal.UserID,
		MealID:    meal.ID,
		MealDate:  meal.MealDate,
		MealType:  meal.MealType,
		Alerts:    alerts,
		CreatedAt: a.now().UTC(),
	}
	if err := a.alerts.PublishAlert(ctx, event); err != nil {
		a.metrics.ObservePublishFailure()
		util.LoggerFromContext(ctx).Warn("allergen alert publish failed", "user_id", meal.UserID, "meal_id", meal.ID, "err", err)
	}
}

// LogDeliveredAlert is the alert consumer handler: it records each delivered
// alert as a structured log line.
func LogDeliveredAlert(_ context.Context, event queue.AlertEvent) error {
	for _, alert := range event.Alerts {
		slog.Info("allergen_alert_delivered",
			"event_id", event.ID,
			"user_id", event.UserID,
			"meal_id", event.MealID,
			"meal_date", event.MealDate,
			"allergen", alert.AllergenName,
			"detected_in", alert.DetectedIn,
			"alert_level", string(alert.AlertLevel),
		)
	}
	return nil
}
