package repository

import (
	"context"
	"time"

	"github.com/jimdaga/weatherapp/internal/models"
	"gorm.io/gorm"
)

// CityWithRecords is a city together with its observations, newest first.
type CityWithRecords struct {
	models.City
	Records []models.WeatherRecord
}

// CityRepository stores cities.
type CityRepository struct {
	*Repository[models.City]
}

// NewCityRepository returns a CityRepository bound to db.
func NewCityRepository(db *gorm.DB) *CityRepository {
	return &CityRepository{Repository: New[models.City](db)}
}

// ListAll returns every city ordered by id.
func (r *CityRepository) ListAll(ctx context.Context) ([]models.City, error) {
	return r.GetAll(ctx, OrderBy("id"))
}

// GetWithRecords loads a city and all of its records.
func (r *CityRepository) GetWithRecords(ctx context.Context, id int) (*CityWithRecords, error) {
	city, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var records []models.WeatherRecord
	err = r.conn(ctx).
		Where("city_id = ?", id).
		Order("recorded_at DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err)
	}

	return &CityWithRecords{City: *city, Records: records}, nil
}

// FindByName looks a city up by name and country, ignoring case.
func (r *CityRepository) FindByName(ctx context.Context, name, country string) (*models.City, error) {
	var city models.City
	err := r.conn(ctx).
		Where("LOWER(name) = LOWER(?) AND LOWER(country) = LOWER(?)", name, country).
		First(&city).Error
	if err != nil {
		return nil, translate(err)
	}
	return &city, nil
}

// ListWithActiveAlerts returns the cities affected by at least one alert that
// is flagged active and has not ended at now.
func (r *CityRepository) ListWithActiveAlerts(ctx context.Context, now time.Time) ([]models.City, error) {
	var cities []models.City
	err := r.conn(ctx).
		Where(`EXISTS (
			SELECT 1 FROM city_weather_alerts cwa
			JOIN weather_alerts wa ON wa.id = cwa.weather_alert_id
			WHERE cwa.city_id = cities.id
			  AND wa.is_active
			  AND (wa.end_time IS NULL OR wa.end_time > ?))`, now).
		Order("cities.id").
		Find(&cities).Error
	if err != nil {
		return nil, translate(err)
	}
	return cities, nil
}
