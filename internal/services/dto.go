package services

import (
	"time"

	"github.com/jimdaga/weatherapp/internal/models"
	"github.com/jimdaga/weatherapp/internal/repository"
)

// CityDTO is the public view of a city.
type CityDTO struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

// CityDetailDTO is a city with its observations, newest first.
type CityDetailDTO struct {
	CityDTO
	WeatherRecords []WeatherRecordDTO `json:"weatherRecords"`
}

// CreateCityInput is the payload for creating a city.
type CreateCityInput struct {
	Name      string  `json:"name" validate:"required,max=100"`
	Country   string  `json:"country" validate:"required,max=100"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WeatherRecordDTO is the public view of an observation.
type WeatherRecordDTO struct {
	ID          int       `json:"id"`
	CityID      int       `json:"cityId"`
	CityName    string    `json:"cityName"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Description string    `json:"description,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// CreateWeatherRecordInput is the payload for recording an observation.
// RecordedAt defaults to the time of creation.
type CreateWeatherRecordInput struct {
	CityID      int        `json:"cityId"`
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	WindSpeed   float64    `json:"windSpeed"`
	Description string     `json:"description" validate:"max=500"`
	RecordedAt  *time.Time `json:"recordedAt"`
}

// WeatherAlertDTO is the public view of an alert.
type WeatherAlertDTO struct {
	ID             int        `json:"id"`
	AlertType      string     `json:"alertType"`
	Severity       string     `json:"severity"`
	Description    string     `json:"description"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	IsActive       bool       `json:"isActive"`
	AffectedCities []string   `json:"affectedCities"`
}

// CreateWeatherAlertInput is the payload for raising an alert.
type CreateWeatherAlertInput struct {
	AlertType   string     `json:"alertType"`
	Severity    string     `json:"severity"`
	Description string     `json:"description" validate:"max=1000"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	CityIDs     []int      `json:"cityIds" validate:"required"`
}

func toCityDTO(c models.City) CityDTO {
	return CityDTO{
		ID:        c.ID,
		Name:      c.Name,
		Country:   c.Country,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		CreatedAt: c.CreatedAt,
	}
}

func toCityDTOs(cities []models.City) []CityDTO {
	out := make([]CityDTO, len(cities))
	for i, c := range cities {
		out[i] = toCityDTO(c)
	}
	return out
}

func toRecordDTO(r models.WeatherRecord, cityName string) WeatherRecordDTO {
	return WeatherRecordDTO{
		ID:          r.ID,
		CityID:      r.CityID,
		CityName:    cityName,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		WindSpeed:   r.WindSpeed,
		Description: r.Description,
		RecordedAt:  r.RecordedAt,
	}
}

func toRecordDTOs(recs []repository.RecordWithCity) []WeatherRecordDTO {
	out := make([]WeatherRecordDTO, len(recs))
	for i, r := range recs {
		out[i] = toRecordDTO(r.WeatherRecord, r.CityName)
	}
	return out
}

func toAlertDTO(a repository.AlertWithCities) WeatherAlertDTO {
	return WeatherAlertDTO{
		ID:             a.ID,
		AlertType:      a.AlertType,
		Severity:       a.Severity,
		Description:    a.Description,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		IsActive:       a.IsActive,
		AffectedCities: a.CityNames(),
	}
}

func toAlertDTOs(alerts []repository.AlertWithCities) []WeatherAlertDTO {
	out := make([]WeatherAlertDTO, len(alerts))
	for i, a := range alerts {
		out[i] = toAlertDTO(a)
	}
	return out
}
