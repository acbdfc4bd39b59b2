package models

import "time"

// CoordinateScale is the number of decimal places stored for latitude and
// longitude.
const CoordinateScale = 6

// City is a named location that owns weather observations and can be
// affected by weather alerts.
type City struct {
	ID        int        `gorm:"primaryKey"`
	Name      string     `gorm:"size:100;not null"`
	Country   string     `gorm:"size:100;not null"`
	Latitude  float64    `gorm:"type:numeric(9,6);not null"`
	Longitude float64    `gorm:"type:numeric(9,6);not null"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}
