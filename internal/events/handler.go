package events

import (
	"context"
	"log/slog"
)

// LogHandler returns a Handler that writes each event to logger. Critical
// alerts are logged at warn level.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event AlertEvent) error {
		level := slog.LevelInfo
		if event.Severity == "Critical" {
			level = slog.LevelWarn
		}

		attrs := []any{
			"event_id", event.ID,
			"type", event.Type,
			"alert_id", event.AlertID,
			"alert_type", event.AlertType,
			"severity", event.Severity,
			"cities", event.CityNames,
			"occurred_at", event.OccurredAt,
		}
		if event.EndTime != nil {
			attrs = append(attrs, "end_time", *event.EndTime)
		}

		logger.Log(ctx, level, "Weather alert event", attrs...)
		return nil
	}
}
