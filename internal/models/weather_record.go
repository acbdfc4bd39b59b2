package models

import "time"

// MeasurementScale is the number of decimal places stored for temperature,
// humidity and wind speed.
const MeasurementScale = 2

// WeatherRecord is a single observation for a city. Records are immutable
// once written and are removed only when their city is deleted.
type WeatherRecord struct {
	ID          int       `gorm:"primaryKey"`
	CityID      int       `gorm:"not null;index:idx_weather_records_city_recorded,priority:1"`
	Temperature float64   `gorm:"type:numeric(5,2);not null"` // Celsius
	Humidity    float64   `gorm:"type:numeric(5,2);not null"` // percent
	WindSpeed   float64   `gorm:"type:numeric(5,2);not null"` // km/h
	Description string    `gorm:"size:500"`
	RecordedAt  time.Time `gorm:"not null;index:idx_weather_records_city_recorded,priority:2,sort:desc"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
}
