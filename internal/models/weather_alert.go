package models

import "time"

// Alert types
const (
	AlertTypeStorm     = "Storm"
	AlertTypeHeatwave  = "Heatwave"
	AlertTypeFlood     = "Flood"
	AlertTypeSnow      = "Snow"
	AlertTypeFog       = "Fog"
	AlertTypeWind      = "Wind"
	AlertTypeTornado   = "Tornado"
	AlertTypeHurricane = "Hurricane"
)

// Severities
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// AlertTypes lists the accepted alert types in display order.
var AlertTypes = []string{
	AlertTypeStorm,
	AlertTypeHeatwave,
	AlertTypeFlood,
	AlertTypeSnow,
	AlertTypeFog,
	AlertTypeWind,
	AlertTypeTornado,
	AlertTypeHurricane,
}

// Severities lists the accepted severities from least to most severe.
var Severities = []string{
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

// WeatherAlert is a time-bounded warning affecting one or more cities.
// An alert is created active and can only move to inactive.
type WeatherAlert struct {
	ID          int        `gorm:"primaryKey"`
	AlertType   string     `gorm:"size:50;not null"`
	Severity    string     `gorm:"size:20;not null"`
	Description string     `gorm:"size:1000;not null"`
	StartTime   time.Time  `gorm:"not null"`
	EndTime     *time.Time
	IsActive    bool       `gorm:"not null"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
}

// IsActiveAt reports whether the alert is flagged active and has not ended
// at the given instant.
func (a WeatherAlert) IsActiveAt(now time.Time) bool {
	return a.IsActive && (a.EndTime == nil || a.EndTime.After(now))
}

// CityWeatherAlert links an alert to a city it affects. The pair is the
// primary key, so a city is associated with an alert at most once.
type CityWeatherAlert struct {
	CityID         int `gorm:"primaryKey;autoIncrement:false"`
	WeatherAlertID int `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName pins the junction table name.
func (CityWeatherAlert) TableName() string {
	return "city_weather_alerts"
}
