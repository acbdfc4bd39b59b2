package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jimdaga/weatherapp/internal/events"
	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/jimdaga/weatherapp/internal/models"
	"github.com/jimdaga/weatherapp/internal/repository"
	"github.com/jonboulle/clockwork"
)

// MinAlertDescription is the shortest accepted alert description, in characters.
const MinAlertDescription = 10

// DefaultPublishTimeout bounds how long a create or deactivate waits on the
// event broker.
const DefaultPublishTimeout = 2 * time.Second

// WeatherAlertStore is the persistence WeatherAlertService needs.
type WeatherAlertStore interface {
	GetByID(ctx context.Context, id int, scopes ...repository.Scope) (*models.WeatherAlert, error)
	GetWithCities(ctx context.Context, id int, scopes ...repository.Scope) (*repository.AlertWithCities, error)
	ListWithCities(ctx context.Context) ([]repository.AlertWithCities, error)
	ListActive(ctx context.Context, now time.Time) ([]repository.AlertWithCities, error)
	ListByCity(ctx context.Context, cityID int) ([]repository.AlertWithCities, error)
	CreateWithCities(ctx context.Context, alert *models.WeatherAlert, cityIDs []int) error
	Update(ctx context.Context, alert *models.WeatherAlert) error
}

// EventPublisher delivers alert lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.AlertEvent) error
}

// WeatherAlertService manages weather alerts and the cities they affect.
type WeatherAlertService struct {
	store     WeatherAlertStore
	cities    CityLookup
	publisher EventPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics

	publishTimeout time.Duration
}

// NewWeatherAlertService creates a WeatherAlertService. A nil publisher
// disables events.
func NewWeatherAlertService(store WeatherAlertStore, cities CityLookup, publisher EventPublisher, clock clockwork.Clock, logger *slog.Logger, m *metrics.Metrics) *WeatherAlertService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &WeatherAlertService{
		store:     store,
		cities:    cities,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   m,

		publishTimeout: DefaultPublishTimeout,
	}
}

// ListAll returns every alert, active or not.
func (s *WeatherAlertService) ListAll(ctx context.Context) ([]WeatherAlertDTO, error) {
	alerts, err := s.store.ListWithCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list weather alerts: %w", err)
	}
	return toAlertDTOs(alerts), nil
}

// ListActive returns the alerts in force now.
func (s *WeatherAlertService) ListActive(ctx context.Context) ([]WeatherAlertDTO, error) {
	alerts, err := s.store.ListActive(ctx, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list active weather alerts: %w", err)
	}
	return toAlertDTOs(alerts), nil
}

// ListByCity returns every alert that has affected a city, newest first.
func (s *WeatherAlertService) ListByCity(ctx context.Context, cityID int) ([]WeatherAlertDTO, error) {
	alerts, err := s.store.ListByCity(ctx, cityID)
	if err != nil {
		return nil, fmt.Errorf("list weather alerts for city %d: %w", cityID, err)
	}
	return toAlertDTOs(alerts), nil
}

// Create validates and stores a new active alert with its cities.
func (s *WeatherAlertService) Create(ctx context.Context, in CreateWeatherAlertInput) (WeatherAlertDTO, error) {
	alert, err := s.create(ctx, in)
	if err != nil {
		kind := kindLabel(err)
		if kind == "internal" {
			s.logger.ErrorContext(ctx, "Weather alert create failed", "alert_type", in.AlertType, "error", err)
			return WeatherAlertDTO{}, err
		}
		s.metrics.RequestsRejected.WithLabelValues("weather_alert", kind).Inc()
		s.logger.WarnContext(ctx, "Weather alert rejected", "alert_type", in.AlertType, "kind", kind, "reason", err.Error())
		return WeatherAlertDTO{}, err
	}

	s.metrics.EntitiesCreated.WithLabelValues("weather_alert").Inc()
	s.logger.InfoContext(ctx, "Weather alert created",
		"alert_id", alert.ID,
		"alert_type", alert.AlertType,
		"severity", alert.Severity,
		"cities", alert.CityNames(),
	)
	s.publish(ctx, events.TypeAlertCreated, *alert)
	return toAlertDTO(*alert), nil
}

func (s *WeatherAlertService) create(ctx context.Context, in CreateWeatherAlertInput) (*repository.AlertWithCities, error) {
	in.Description = strings.TrimSpace(in.Description)

	if !slices.Contains(models.AlertTypes, in.AlertType) {
		return nil, invalidInput("Alert type must be one of: %s", strings.Join(models.AlertTypes, ", "))
	}
	if !slices.Contains(models.Severities, in.Severity) {
		return nil, invalidInput("Severity must be one of: %s", strings.Join(models.Severities, ", "))
	}
	if utf8.RuneCountInString(in.Description) < MinAlertDescription {
		return nil, invalidInput("Description must be at least %d characters long.", MinAlertDescription)
	}
	if err := checkShape(in); err != nil {
		return nil, err
	}
	if in.StartTime.IsZero() {
		return nil, invalidInput("The startTime field is required.")
	}
	if in.EndTime != nil && !in.EndTime.After(in.StartTime) {
		return nil, invalidInput("End time must be after start time.")
	}

	for _, cityID := range in.CityIDs {
		_, err := s.cities.GetByID(ctx, cityID, repository.Primary)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidInput("City with ID %d does not exist.", cityID)
		}
		if err != nil {
			return nil, fmt.Errorf("look up city %d: %w", cityID, err)
		}
	}

	alert := &models.WeatherAlert{
		AlertType:   in.AlertType,
		Severity:    in.Severity,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		IsActive:    true,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if in.EndTime != nil {
		end := in.EndTime.UTC()
		alert.EndTime = &end
	}

	err := s.store.CreateWithCities(ctx, alert, in.CityIDs)
	if errors.Is(err, repository.ErrForeignKey) {
		return nil, invalidInput("One or more cities no longer exist.")
	}
	if err != nil {
		return nil, fmt.Errorf("create weather alert: %w", err)
	}

	created, err := s.store.GetWithCities(ctx, alert.ID, repository.Primary)
	if err != nil {
		return nil, fmt.Errorf("reload weather alert %d: %w", alert.ID, err)
	}
	return created, nil
}

// Deactivate marks an alert inactive and ends it now. Deactivating an
// inactive alert moves its end time to now.
func (s *WeatherAlertService) Deactivate(ctx context.Context, id int) error {
	alert, err := s.store.GetByID(ctx, id, repository.Primary)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.RequestsRejected.WithLabelValues("weather_alert", "not_found").Inc()
		return notFound("Alert with ID %d does not exist.", id)
	}
	if err != nil {
		return fmt.Errorf("get weather alert %d: %w", id, err)
	}

	now := s.clock.Now().UTC()
	wasActive := alert.IsActive
	alert.IsActive = false
	alert.EndTime = &now

	err = s.store.Update(ctx, alert)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Alert with ID %d does not exist.", id)
	}
	if err != nil {
		return fmt.Errorf("deactivate weather alert %d: %w", id, err)
	}

	s.metrics.AlertsDeactivated.Inc()
	s.logger.InfoContext(ctx, "Weather alert deactivated", "alert_id", id, "was_active", wasActive, "end_time", now)

	full, err := s.store.GetWithCities(ctx, id, repository.Primary)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping deactivation event, reload failed", "alert_id", id, "error", err)
		return nil
	}
	s.publish(ctx, events.TypeAlertDeactivated, *full)
	return nil
}

// publish sends an event without failing the caller. It gives up after
// publishTimeout.
func (s *WeatherAlertService) publish(ctx context.Context, eventType string, alert repository.AlertWithCities) {
	event := events.NewAlertEvent(eventType, alert, s.clock.Now().UTC())
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish alert event", "type", eventType, "alert_id", alert.ID, "error", err)
	}
}
