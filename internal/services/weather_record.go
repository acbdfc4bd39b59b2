package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/jimdaga/weatherapp/internal/models"
	"github.com/jimdaga/weatherapp/internal/repository"
	"github.com/jonboulle/clockwork"
)

// MaxRecentRecords caps ListRecentForCity.
const MaxRecentRecords = 100

// WeatherRecordStore is the persistence WeatherRecordService needs.
type WeatherRecordStore interface {
	GetWithCity(ctx context.Context, id int) (*repository.RecordWithCity, error)
	ListWithCity(ctx context.Context) ([]repository.RecordWithCity, error)
	ListByCity(ctx context.Context, cityID int) ([]repository.RecordWithCity, error)
	ListRecent(ctx context.Context, cityID, n int) ([]repository.RecordWithCity, error)
	GetLatest(ctx context.Context, cityID int) (*repository.RecordWithCity, error)
	Add(ctx context.Context, record *models.WeatherRecord) error
}

// CityLookup resolves a city by id.
type CityLookup interface {
	GetByID(ctx context.Context, id int, scopes ...repository.Scope) (*models.City, error)
}

// WeatherRecordService manages weather observations.
type WeatherRecordService struct {
	store   WeatherRecordStore
	cities  CityLookup
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWeatherRecordService creates a WeatherRecordService.
func NewWeatherRecordService(store WeatherRecordStore, cities CityLookup, clock clockwork.Clock, logger *slog.Logger, m *metrics.Metrics) *WeatherRecordService {
	return &WeatherRecordService{store: store, cities: cities, clock: clock, logger: logger, metrics: m}
}

// ListAll returns every observation.
func (s *WeatherRecordService) ListAll(ctx context.Context) ([]WeatherRecordDTO, error) {
	recs, err := s.store.ListWithCity(ctx)
	if err != nil {
		return nil, fmt.Errorf("list weather records: %w", err)
	}
	return toRecordDTOs(recs), nil
}

// GetByID returns one observation.
func (s *WeatherRecordService) GetByID(ctx context.Context, id int) (WeatherRecordDTO, error) {
	rec, err := s.store.GetWithCity(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return WeatherRecordDTO{}, notFound("Weather record with ID %d not found", id)
	}
	if err != nil {
		return WeatherRecordDTO{}, fmt.Errorf("get weather record %d: %w", id, err)
	}
	return toRecordDTO(rec.WeatherRecord, rec.CityName), nil
}

// ListByCity returns a city's observations, newest first. An unknown city
// yields an empty list.
func (s *WeatherRecordService) ListByCity(ctx context.Context, cityID int) ([]WeatherRecordDTO, error) {
	recs, err := s.store.ListByCity(ctx, cityID)
	if err != nil {
		return nil, fmt.Errorf("list weather records for city %d: %w", cityID, err)
	}
	return toRecordDTOs(recs), nil
}

// ListRecentForCity returns at most count of a city's observations, newest first.
func (s *WeatherRecordService) ListRecentForCity(ctx context.Context, cityID, count int) ([]WeatherRecordDTO, error) {
	if count < 1 || count > MaxRecentRecords {
		return nil, invalidInput("Count must be between 1 and %d.", MaxRecentRecords)
	}
	recs, err := s.store.ListRecent(ctx, cityID, count)
	if err != nil {
		return nil, fmt.Errorf("list recent weather records for city %d: %w", cityID, err)
	}
	return toRecordDTOs(recs), nil
}

// GetLatestForCity returns the observation with the latest recorded time.
func (s *WeatherRecordService) GetLatestForCity(ctx context.Context, cityID int) (WeatherRecordDTO, error) {
	rec, err := s.store.GetLatest(ctx, cityID)
	if errors.Is(err, repository.ErrNotFound) {
		return WeatherRecordDTO{}, notFound("No weather records found for city ID %d", cityID)
	}
	if err != nil {
		return WeatherRecordDTO{}, fmt.Errorf("get latest weather record for city %d: %w", cityID, err)
	}
	return toRecordDTO(rec.WeatherRecord, rec.CityName), nil
}

// Create validates and stores a new observation.
func (s *WeatherRecordService) Create(ctx context.Context, in CreateWeatherRecordInput) (WeatherRecordDTO, error) {
	dto, err := s.create(ctx, in)
	if err != nil {
		kind := kindLabel(err)
		if kind == "internal" {
			s.logger.ErrorContext(ctx, "Weather record create failed", "city_id", in.CityID, "error", err)
			return WeatherRecordDTO{}, err
		}
		s.metrics.RequestsRejected.WithLabelValues("weather_record", kind).Inc()
		s.logger.WarnContext(ctx, "Weather record rejected", "city_id", in.CityID, "kind", kind, "reason", err.Error())
		return WeatherRecordDTO{}, err
	}

	s.metrics.EntitiesCreated.WithLabelValues("weather_record").Inc()
	s.logger.InfoContext(ctx, "Weather record created", "record_id", dto.ID, "city_id", dto.CityID, "recorded_at", dto.RecordedAt)
	return dto, nil
}

func (s *WeatherRecordService) create(ctx context.Context, in CreateWeatherRecordInput) (WeatherRecordDTO, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := checkShape(in); err != nil {
		return WeatherRecordDTO{}, err
	}

	city, err := s.cities.GetByID(ctx, in.CityID, repository.Primary)
	if errors.Is(err, repository.ErrNotFound) {
		return WeatherRecordDTO{}, invalidInput("City with ID %d does not exist.", in.CityID)
	}
	if err != nil {
		return WeatherRecordDTO{}, fmt.Errorf("look up city %d: %w", in.CityID, err)
	}

	if in.Temperature < -100 || in.Temperature > 100 {
		return WeatherRecordDTO{}, invalidInput("Temperature must be between -100 and 100 degrees Celsius.")
	}
	if in.Humidity < 0 || in.Humidity > 100 {
		return WeatherRecordDTO{}, invalidInput("Humidity must be between 0 and 100 percent.")
	}
	if in.WindSpeed < 0 || in.WindSpeed > 500 {
		return WeatherRecordDTO{}, invalidInput("Wind speed must be between 0 and 500 km/h.")
	}

	now := s.clock.Now().UTC()
	recordedAt := now
	if in.RecordedAt != nil {
		recordedAt = in.RecordedAt.UTC()
	}

	rec := &models.WeatherRecord{
		CityID:      city.ID,
		Temperature: roundTo(in.Temperature, models.MeasurementScale),
		Humidity:    roundTo(in.Humidity, models.MeasurementScale),
		WindSpeed:   roundTo(in.WindSpeed, models.MeasurementScale),
		Description: in.Description,
		RecordedAt:  recordedAt,
		CreatedAt:   now,
	}
	err = s.store.Add(ctx, rec)
	if errors.Is(err, repository.ErrForeignKey) {
		// City deleted between the lookup and the insert
		return WeatherRecordDTO{}, invalidInput("City with ID %d does not exist.", in.CityID)
	}
	if err != nil {
		return WeatherRecordDTO{}, fmt.Errorf("add weather record: %w", err)
	}
	return toRecordDTO(*rec, city.Name), nil
}
