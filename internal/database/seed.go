package database

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/weatherapp/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Cities  []seedCity   `yaml:"cities"`
	Records []seedRecord `yaml:"records"`
	Alerts  []seedAlert  `yaml:"alerts"`
}

type seedCity struct {
	Name      string  `yaml:"name"`
	Country   string  `yaml:"country"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

type seedRecord struct {
	City           string  `yaml:"city"`
	Temperature    float64 `yaml:"temperature"`
	Humidity       float64 `yaml:"humidity"`
	WindSpeed      float64 `yaml:"wind_speed"`
	Description    string  `yaml:"description"`
	RecordedOffset string  `yaml:"recorded_offset"`
}

type seedAlert struct {
	AlertType   string   `yaml:"alert_type"`
	Severity    string   `yaml:"severity"`
	Description string   `yaml:"description"`
	StartOffset string   `yaml:"start_offset"`
	EndOffset   string   `yaml:"end_offset"`
	Cities      []string `yaml:"cities"`
}

// loadSeedFile parses the embedded data set.
// Unknown YAML fields are rejected so typos surface at startup.
func loadSeedFile(data []byte) (*seedFile, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var f seedFile
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	if err := validateSeedSchema(data); err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(f.Cities))
	for _, c := range f.Cities {
		names[c.Name] = true
	}
	for _, r := range f.Records {
		if !names[r.City] {
			return nil, fmt.Errorf("seed record references unknown city %q", r.City)
		}
		if _, err := time.ParseDuration(r.RecordedOffset); err != nil {
			return nil, fmt.Errorf("seed record for %q: invalid recorded_offset: %w", r.City, err)
		}
	}
	for _, a := range f.Alerts {
		if _, err := time.ParseDuration(a.StartOffset); err != nil {
			return nil, fmt.Errorf("seed alert %q: invalid start_offset: %w", a.AlertType, err)
		}
		if a.EndOffset != "" {
			if _, err := time.ParseDuration(a.EndOffset); err != nil {
				return nil, fmt.Errorf("seed alert %q: invalid end_offset: %w", a.AlertType, err)
			}
		}
		for _, name := range a.Cities {
			if !names[name] {
				return nil, fmt.Errorf("seed alert %q references unknown city %q", a.AlertType, name)
			}
		}
	}

	return &f, nil
}

// SeedDevData populates the database with a small set of cities, observations
// and alerts, timed relative to now.
// Idempotent: skips if any city already exists.
func SeedDevData(ctx context.Context, db *gorm.DB, now time.Time, logger *slog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.City{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing seed data: %w", err)
	}
	if count > 0 {
		logger.Info("Seed data already exists, skipping", "cities", count)
		return nil
	}

	f, err := loadSeedFile(seedYAML)
	if err != nil {
		return err
	}

	now = now.UTC()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cityIDs := make(map[string]int, len(f.Cities))
		for _, c := range f.Cities {
			city := models.City{
				Name:      c.Name,
				Country:   c.Country,
				Latitude:  c.Latitude,
				Longitude: c.Longitude,
				CreatedAt: now,
			}
			if err := tx.Create(&city).Error; err != nil {
				return fmt.Errorf("failed to seed city %q: %w", c.Name, err)
			}
			cityIDs[c.Name] = city.ID
		}

		for _, r := range f.Records {
			offset, _ := time.ParseDuration(r.RecordedOffset)
			record := models.WeatherRecord{
				CityID:      cityIDs[r.City],
				Temperature: r.Temperature,
				Humidity:    r.Humidity,
				WindSpeed:   r.WindSpeed,
				Description: r.Description,
				RecordedAt:  now.Add(offset),
				CreatedAt:   now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to seed record for %q: %w", r.City, err)
			}
		}

		for _, a := range f.Alerts {
			start, _ := time.ParseDuration(a.StartOffset)
			alert := models.WeatherAlert{
				AlertType:   a.AlertType,
				Severity:    a.Severity,
				Description: a.Description,
				StartTime:   now.Add(start),
				IsActive:    true,
				CreatedAt:   now,
			}
			if a.EndOffset != "" {
				end, _ := time.ParseDuration(a.EndOffset)
				endTime := now.Add(end)
				alert.EndTime = &endTime
			}
			if err := tx.Create(&alert).Error; err != nil {
				return fmt.Errorf("failed to seed %s alert: %w", a.AlertType, err)
			}

			for _, name := range a.Cities {
				link := models.CityWeatherAlert{CityID: cityIDs[name], WeatherAlertID: alert.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
					return fmt.Errorf("failed to link %s alert to %q: %w", a.AlertType, name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(
		"Seeded dev data",
		"cities", len(f.Cities),
		"records", len(f.Records),
		"alerts", len(f.Alerts),
	)
	return nil
}
