// Package events carries weather alert lifecycle events to a Redis Stream or
// a Kafka topic.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/weatherapp/internal/repository"
)

// Stream and topic defaults
const (
	StreamAlerts       = "weather:alerts"
	GroupAlertWatchers = "alert-watchers"
	DefaultKafkaTopic  = "weather-alerts"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Event types
const (
	TypeAlertCreated     = "alert.created"
	TypeAlertDeactivated = "alert.deactivated"
	TypeAlertExpired     = "alert.expired"
)

// AlertEvent describes a change in an alert's lifecycle.
type AlertEvent struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	AlertID     int        `json:"alert_id"`
	AlertType   string     `json:"alert_type"`
	Severity    string     `json:"severity"`
	Description string     `json:"description"`
	CityIDs     []int      `json:"city_ids"`
	CityNames   []string   `json:"city_names"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IsActive    bool       `json:"is_active"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// NewAlertEvent builds an event of the given type for alert at the given time.
func NewAlertEvent(eventType string, alert repository.AlertWithCities, at time.Time) AlertEvent {
	ids := make([]int, len(alert.Cities))
	for i, c := range alert.Cities {
		ids[i] = c.ID
	}
	return AlertEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		AlertID:     alert.ID,
		AlertType:   alert.AlertType,
		Severity:    alert.Severity,
		Description: alert.Description,
		CityIDs:     ids,
		CityNames:   alert.CityNames(),
		StartTime:   alert.StartTime,
		EndTime:     alert.EndTime,
		IsActive:    alert.IsActive,
		OccurredAt:  at,
	}
}
