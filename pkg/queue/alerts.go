package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutrilog/pkg/domain"
)

// AlertEvent is the notification published when a saved meal triggers
// critical allergen alerts.
type AlertEvent struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	MealID    string                 `json:"mealId"`
	MealDate  string                 `json:"mealDate"`
	MealType  domain.MealType        `json:"mealType"`
	Alerts    []domain.AllergenAlert `json:"alerts"`
	CreatedAt time.Time              `json:"createdAt"`
}

// AlertPublisher delivers alert events to a broker.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, event AlertEvent) error
}

// AlertHandler processes one delivered event.
type AlertHandler func(ctx context.Context, event AlertEvent) error

// Noop drops every event; used when no broker is configured.
type Noop struct{}

func (Noop) PublishAlert(context.Context, AlertEvent) error { return nil }

func encodeEvent(event AlertEvent) ([]byte, error) {
	if strings.TrimSpace(event.UserID) == "" {
		return nil, errors.New("alert event userId required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode alert event: %w", err)
	}
	return payload, nil
}

func decodeEvent(payload string) (AlertEvent, error) {
	var event AlertEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return AlertEvent{}, fmt.Errorf("decode alert event: %w", err)
	}
	return event, nil
}
