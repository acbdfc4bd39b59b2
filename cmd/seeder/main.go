// Command seeder fills a running API with fake cities, observations and
// alerts.
//
// Usage:
//
//	go run ./cmd/seeder -api http://localhost:8080 -cities 20 -records 10 -alerts 5
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jimdaga/weatherapp/internal/apiclient"
	"github.com/jimdaga/weatherapp/internal/logging"
	"github.com/jimdaga/weatherapp/internal/models"
	"github.com/jimdaga/weatherapp/internal/services"
)

type seeder struct {
	api    *apiclient.Client
	faker  *gofakeit.Faker
	logger *slog.Logger
}

func main() {
	api := flag.String("api", "http://localhost:8080", "base URL of the weather API")
	cities := flag.Int("cities", 10, "cities to create")
	records := flag.Int("records", 5, "observations per city")
	alerts := flag.Int("alerts", 3, "alerts to raise")
	seed := flag.Int64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	logger := logging.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	s := &seeder{
		api:    apiclient.NewClient(*api, 10*time.Second),
		faker:  gofakeit.New(*seed),
		logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := s.run(ctx, *cities, *records, *alerts); err != nil {
		logger.Error("Seeding failed", "error", err, "seed", *seed)
		os.Exit(1)
	}
	logger.Info("Seeding complete", "seed", *seed)
}

func (s *seeder) run(ctx context.Context, cities, records, alerts int) error {
	var ids []int
	for range cities {
		city, err := s.api.CreateCity(ctx, s.fakeCity())
		if apiclient.IsRejected(err) {
			// Random names collide now and then.
			s.logger.Warn("Skipped city", "error", err)
			continue
		}
		if err != nil {
			return err
		}
		ids = append(ids, city.ID)

		for range records {
			if _, err := s.api.CreateWeatherRecord(ctx, s.fakeRecord(city.ID)); err != nil {
				return err
			}
		}
	}
	if len(ids) == 0 {
		return errors.New("no cities created")
	}
	s.logger.Info("Created cities", "count", len(ids), "records_each", records)

	for range alerts {
		alert, err := s.api.CreateWeatherAlert(ctx, s.fakeAlert(ids))
		if err != nil {
			return err
		}
		s.logger.Info("Raised alert", "id", alert.ID, "type", alert.AlertType, "cities", alert.AffectedCities)
	}

	active, err := s.api.ListActiveAlerts(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("Active alerts", "count", len(active))
	return nil
}

func (s *seeder) fakeCity() services.CreateCityInput {
	return services.CreateCityInput{
		Name:      s.faker.City(),
		Country:   s.faker.Country(),
		Latitude:  s.faker.Latitude(),
		Longitude: s.faker.Longitude(),
	}
}

func (s *seeder) fakeRecord(cityID int) services.CreateWeatherRecordInput {
	recordedAt := time.Now().UTC().Add(-time.Duration(s.faker.Number(0, 72*60)) * time.Minute)
	return services.CreateWeatherRecordInput{
		CityID:      cityID,
		Temperature: round1(s.faker.Float64Range(-30, 45)),
		Humidity:    round1(s.faker.Float64Range(5, 100)),
		WindSpeed:   round1(s.faker.Float64Range(0, 120)),
		Description: s.faker.RandomString([]string{"Clear sky", "Partly cloudy", "Overcast", "Light rain", "Heavy rain", "Snow showers", "Fog"}),
		RecordedAt:  &recordedAt,
	}
}

func (s *seeder) fakeAlert(cityIDs []int) services.CreateWeatherAlertInput {
	start := time.Now().UTC().Add(-time.Duration(s.faker.Number(0, 12)) * time.Hour)
	end := start.Add(time.Duration(s.faker.Number(1, 48)) * time.Hour)

	n := s.faker.Number(1, min(3, len(cityIDs)))
	picked := append([]int(nil), cityIDs...)
	s.faker.ShuffleInts(picked)

	return services.CreateWeatherAlertInput{
		AlertType:   s.faker.RandomString(models.AlertTypes),
		Severity:    s.faker.RandomString(models.Severities),
		Description: s.faker.Sentence(8),
		StartTime:   start,
		EndTime:     &end,
		CityIDs:     picked[:n],
	}
}

func round1(v float64) float64 {
	return float64(int(v*10)) / 10
}
