package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/jimdaga/weatherapp/internal/models"
	"github.com/jimdaga/weatherapp/internal/repository"
	"github.com/jonboulle/clockwork"
)

// CityStore is the persistence CityService needs.
type CityStore interface {
	ListAll(ctx context.Context) ([]models.City, error)
	GetByID(ctx context.Context, id int, scopes ...repository.Scope) (*models.City, error)
	GetWithRecords(ctx context.Context, id int) (*repository.CityWithRecords, error)
	FindByName(ctx context.Context, name, country string) (*models.City, error)
	ListWithActiveAlerts(ctx context.Context, now time.Time) ([]models.City, error)
	Add(ctx context.Context, city *models.City) error
}

// CityService manages cities.
type CityService struct {
	store   CityStore
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCityService creates a CityService.
func NewCityService(store CityStore, clock clockwork.Clock, logger *slog.Logger, m *metrics.Metrics) *CityService {
	return &CityService{store: store, clock: clock, logger: logger, metrics: m}
}

// ListAll returns every city.
func (s *CityService) ListAll(ctx context.Context) ([]CityDTO, error) {
	cities, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return toCityDTOs(cities), nil
}

// GetByID returns one city.
func (s *CityService) GetByID(ctx context.Context, id int) (CityDTO, error) {
	city, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return CityDTO{}, notFound("City with ID %d not found", id)
	}
	if err != nil {
		return CityDTO{}, fmt.Errorf("get city %d: %w", id, err)
	}
	return toCityDTO(*city), nil
}

// GetWithRecords returns a city and its observations, newest first.
func (s *CityService) GetWithRecords(ctx context.Context, id int) (CityDetailDTO, error) {
	detail, err := s.store.GetWithRecords(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return CityDetailDTO{}, notFound("City with ID %d not found", id)
	}
	if err != nil {
		return CityDetailDTO{}, fmt.Errorf("get city %d with records: %w", id, err)
	}

	records := make([]WeatherRecordDTO, len(detail.Records))
	for i, r := range detail.Records {
		records[i] = toRecordDTO(r, detail.Name)
	}
	return CityDetailDTO{CityDTO: toCityDTO(detail.City), WeatherRecords: records}, nil
}

// ListWithActiveAlerts returns the cities currently under at least one active alert.
func (s *CityService) ListWithActiveAlerts(ctx context.Context) ([]CityDTO, error) {
	cities, err := s.store.ListWithActiveAlerts(ctx, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list cities with active alerts: %w", err)
	}
	return toCityDTOs(cities), nil
}

// Create validates and stores a new city.
func (s *CityService) Create(ctx context.Context, in CreateCityInput) (CityDTO, error) {
	city, err := s.create(ctx, in)
	if err != nil {
		s.rejected(err, "name", in.Name, "country", in.Country)
		return CityDTO{}, err
	}
	s.metrics.EntitiesCreated.WithLabelValues("city").Inc()
	s.logger.InfoContext(ctx, "City created", "city_id", city.ID, "name", city.Name, "country", city.Country)
	return toCityDTO(*city), nil
}

func (s *CityService) create(ctx context.Context, in CreateCityInput) (*models.City, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.TrimSpace(in.Country)
	if err := checkShape(in); err != nil {
		return nil, err
	}

	_, err := s.store.FindByName(ctx, in.Name, in.Country)
	switch {
	case err == nil:
		return nil, conflict("City '%s' in '%s' already exists.", in.Name, in.Country)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("look up city by name: %w", err)
	}

	if in.Latitude < -90 || in.Latitude > 90 {
		return nil, invalidInput("Latitude must be between -90 and 90 degrees.")
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return nil, invalidInput("Longitude must be between -180 and 180 degrees.")
	}

	city := &models.City{
		Name:      in.Name,
		Country:   in.Country,
		Latitude:  roundTo(in.Latitude, models.CoordinateScale),
		Longitude: roundTo(in.Longitude, models.CoordinateScale),
		CreatedAt: s.clock.Now().UTC(),
	}
	err = s.store.Add(ctx, city)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent create of the same city
		return nil, conflict("City '%s' in '%s' already exists.", in.Name, in.Country)
	}
	if err != nil {
		return nil, fmt.Errorf("add city: %w", err)
	}
	return city, nil
}

func (s *CityService) rejected(err error, attrs ...any) {
	kind := kindLabel(err)
	if kind == "internal" {
		s.logger.Error("City create failed", append(attrs, "error", err)...)
		return
	}
	s.metrics.RequestsRejected.WithLabelValues("city", kind).Inc()
	s.logger.Warn("City rejected", append(attrs, "kind", kind, "reason", err.Error())...)
}
