package repository

import (
	"context"

	"github.com/jimdaga/weatherapp/internal/models"
	"gorm.io/gorm"
)

// RecordWithCity is a weather record with its city's name joined in.
type RecordWithCity struct {
	models.WeatherRecord
	CityName string
}

// WeatherRecordRepository stores weather records.
type WeatherRecordRepository struct {
	*Repository[models.WeatherRecord]
}

// NewWeatherRecordRepository returns a WeatherRecordRepository bound to db.
func NewWeatherRecordRepository(db *gorm.DB) *WeatherRecordRepository {
	return &WeatherRecordRepository{Repository: New[models.WeatherRecord](db)}
}

func (r *WeatherRecordRepository) withCity(ctx context.Context) *gorm.DB {
	return r.conn(ctx).
		Table("weather_records").
		Select("weather_records.*, cities.name AS city_name").
		Joins("JOIN cities ON cities.id = weather_records.city_id")
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("weather_records.recorded_at DESC").Order("weather_records.id DESC")
}

// GetWithCity loads a record and its city name.
func (r *WeatherRecordRepository) GetWithCity(ctx context.Context, id int) (*RecordWithCity, error) {
	var rec RecordWithCity
	err := r.withCity(ctx).
		Where("weather_records.id = ?", id).
		Take(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// ListWithCity returns every record with its city name, ordered by id.
func (r *WeatherRecordRepository) ListWithCity(ctx context.Context) ([]RecordWithCity, error) {
	var recs []RecordWithCity
	if err := r.withCity(ctx).Order("weather_records.id").Find(&recs).Error; err != nil {
		return nil, translate(err)
	}
	return recs, nil
}

// ListByCity returns a city's records, newest first.
func (r *WeatherRecordRepository) ListByCity(ctx context.Context, cityID int) ([]RecordWithCity, error) {
	var recs []RecordWithCity
	err := r.withCity(ctx).
		Where("weather_records.city_id = ?", cityID).
		Scopes(newestFirst).
		Find(&recs).Error
	if err != nil {
		return nil, translate(err)
	}
	return recs, nil
}

// ListRecent returns at most n of a city's records, newest first.
func (r *WeatherRecordRepository) ListRecent(ctx context.Context, cityID, n int) ([]RecordWithCity, error) {
	var recs []RecordWithCity
	err := r.withCity(ctx).
		Where("weather_records.city_id = ?", cityID).
		Scopes(newestFirst).
		Limit(n).
		Find(&recs).Error
	if err != nil {
		return nil, translate(err)
	}
	return recs, nil
}

// GetLatest returns the record with the greatest recorded_at for a city.
// Ties are broken by the higher id.
func (r *WeatherRecordRepository) GetLatest(ctx context.Context, cityID int) (*RecordWithCity, error) {
	var rec RecordWithCity
	err := r.withCity(ctx).
		Where("weather_records.city_id = ?", cityID).
		Scopes(newestFirst).
		Take(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}
