package repository

import (
	"context"
	"time"

	"github.com/jimdaga/weatherapp/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertWithCities is an alert together with the cities it affects, ordered
// by city name.
type AlertWithCities struct {
	models.WeatherAlert
	Cities []models.City
}

// CityNames returns the names of the affected cities.
func (a AlertWithCities) CityNames() []string {
	names := make([]string, len(a.Cities))
	for i, c := range a.Cities {
		names[i] = c.Name
	}
	return names
}

// WeatherAlertRepository stores weather alerts and their city associations.
type WeatherAlertRepository struct {
	*Repository[models.WeatherAlert]
}

// NewWeatherAlertRepository returns a WeatherAlertRepository bound to db.
func NewWeatherAlertRepository(db *gorm.DB) *WeatherAlertRepository {
	return &WeatherAlertRepository{Repository: New[models.WeatherAlert](db)}
}

func activeAt(now time.Time) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("weather_alerts.is_active AND (weather_alerts.end_time IS NULL OR weather_alerts.end_time > ?)", now)
	}
}

// GetWithCities loads an alert and its affected cities. The scopes apply to
// both queries.
func (r *WeatherAlertRepository) GetWithCities(ctx context.Context, id int, scopes ...Scope) (*AlertWithCities, error) {
	alert, err := r.GetByID(ctx, id, scopes...)
	if err != nil {
		return nil, err
	}
	out, err := r.attachCities(ctx, []models.WeatherAlert{*alert}, scopes...)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListWithCities returns every alert with its cities, ordered by id.
func (r *WeatherAlertRepository) ListWithCities(ctx context.Context) ([]AlertWithCities, error) {
	alerts, err := r.GetAll(ctx, OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return r.attachCities(ctx, alerts)
}

// ListActive returns alerts that are flagged active and have not ended at now,
// most recently started first.
func (r *WeatherAlertRepository) ListActive(ctx context.Context, now time.Time) ([]AlertWithCities, error) {
	alerts, err := r.GetAll(ctx, activeAt(now), OrderBy("start_time DESC"), OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return r.attachCities(ctx, alerts)
}

// ListByCity returns every alert, active or not, that affects a city, newest
// first.
func (r *WeatherAlertRepository) ListByCity(ctx context.Context, cityID int) ([]AlertWithCities, error) {
	var alerts []models.WeatherAlert
	err := r.conn(ctx).
		Joins("JOIN city_weather_alerts cwa ON cwa.weather_alert_id = weather_alerts.id").
		Where("cwa.city_id = ?", cityID).
		Order("weather_alerts.created_at DESC").
		Order("weather_alerts.id DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.attachCities(ctx, alerts)
}

// ListExpiredBetween returns alerts still flagged active whose end time falls
// in (from, to].
func (r *WeatherAlertRepository) ListExpiredBetween(ctx context.Context, from, to time.Time) ([]AlertWithCities, error) {
	var alerts []models.WeatherAlert
	err := r.conn(ctx).
		Where("is_active AND end_time > ? AND end_time <= ?", from, to).
		Order("end_time").
		Find(&alerts).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.attachCities(ctx, alerts)
}

// AddToCity associates an alert with a city. Repeating an existing
// association is a no-op.
func (r *WeatherAlertRepository) AddToCity(ctx context.Context, alertID, cityID int) error {
	link := models.CityWeatherAlert{CityID: cityID, WeatherAlertID: alertID}
	err := r.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

// Atomically runs fn with a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *WeatherAlertRepository) Atomically(ctx context.Context, fn func(tx *WeatherAlertRepository) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewWeatherAlertRepository(tx))
	})
}

// CreateWithCities inserts alert and associates it with each city in one
// transaction.
func (r *WeatherAlertRepository) CreateWithCities(ctx context.Context, alert *models.WeatherAlert, cityIDs []int) error {
	return r.Atomically(ctx, func(tx *WeatherAlertRepository) error {
		if err := tx.Add(ctx, alert); err != nil {
			return err
		}
		for _, cityID := range cityIDs {
			if err := tx.AddToCity(ctx, alert.ID, cityID); err != nil {
				return err
			}
		}
		return nil
	})
}

type alertCityRow struct {
	AlertID int
	models.City
}

// attachCities loads the cities of every alert in a single join over the
// junction table.
func (r *WeatherAlertRepository) attachCities(ctx context.Context, alerts []models.WeatherAlert, scopes ...Scope) ([]AlertWithCities, error) {
	out := make([]AlertWithCities, len(alerts))
	if len(alerts) == 0 {
		return out, nil
	}

	ids := make([]int, len(alerts))
	index := make(map[int]int, len(alerts))
	for i, a := range alerts {
		ids[i] = a.ID
		index[a.ID] = i
		out[i] = AlertWithCities{WeatherAlert: a, Cities: []models.City{}}
	}

	var rows []alertCityRow
	err := r.conn(ctx).
		Scopes(scopes...).
		Table("cities").
		Select("city_weather_alerts.weather_alert_id AS alert_id, cities.*").
		Joins("JOIN city_weather_alerts ON city_weather_alerts.city_id = cities.id").
		Where("city_weather_alerts.weather_alert_id IN ?", ids).
		Order("cities.name").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	for _, row := range rows {
		i := index[row.AlertID]
		out[i].Cities = append(out[i].Cities, row.City)
	}
	return out, nil
}
