package services

import (
	"context"
	"io"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jimdaga/weatherapp/internal/events"
	"github.com/jimdaga/weatherapp/internal/models"
	"github.com/jimdaga/weatherapp/internal/repository"
	"github.com/stretchr/testify/mock"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// memDB is an in-memory stand-in for the three repositories.
type memDB struct {
	cities  map[int]models.City
	records map[int]models.WeatherRecord
	alerts  map[int]models.WeatherAlert
	links   map[[2]int]bool // {alertID, cityID}
	nextID  int

	// failWith, when set, is returned by every store call.
	failWith error

	// primaryReads lists lookups routed to the primary, e.g. "city:3".
	primaryReads []string
}

func newMemDB() *memDB {
	return &memDB{
		cities:  map[int]models.City{},
		records: map[int]models.WeatherRecord{},
		alerts:  map[int]models.WeatherAlert{},
		links:   map[[2]int]bool{},
	}
}

func (m *memDB) id() int {
	m.nextID++
	return m.nextID
}

func (m *memDB) addCity(name, country string) models.City {
	c := models.City{ID: m.id(), Name: name, Country: country, CreatedAt: time.Now()}
	m.cities[c.ID] = c
	return c
}

func (m *memDB) addRecord(cityID int, temp float64, at time.Time) models.WeatherRecord {
	r := models.WeatherRecord{ID: m.id(), CityID: cityID, Temperature: temp, RecordedAt: at, CreatedAt: at}
	m.records[r.ID] = r
	return r
}

func (m *memDB) addAlert(a models.WeatherAlert, cityIDs ...int) models.WeatherAlert {
	a.ID = m.id()
	m.alerts[a.ID] = a
	for _, c := range cityIDs {
		m.links[[2]int{a.ID, c}] = true
	}
	return a
}

// notePrimary records the lookup when scopes include repository.Primary.
func (m *memDB) notePrimary(kind string, id int, scopes []repository.Scope) {
	want := reflect.ValueOf(repository.Primary).Pointer()
	for _, s := range scopes {
		if reflect.ValueOf(s).Pointer() == want {
			m.primaryReads = append(m.primaryReads, fmt.Sprintf("%s:%d", kind, id))
			return
		}
	}
}

func (m *memDB) withCities(a models.WeatherAlert) repository.AlertWithCities {
	out := repository.AlertWithCities{WeatherAlert: a, Cities: []models.City{}}
	for link := range m.links {
		if link[0] == a.ID {
			out.Cities = append(out.Cities, m.cities[link[1]])
		}
	}
	sort.Slice(out.Cities, func(i, j int) bool { return out.Cities[i].Name < out.Cities[j].Name })
	return out
}

func (m *memDB) recordWithCity(r models.WeatherRecord) repository.RecordWithCity {
	return repository.RecordWithCity{WeatherRecord: r, CityName: m.cities[r.CityID].Name}
}

func (m *memDB) cityRecords(cityID int) []models.WeatherRecord {
	var out []models.WeatherRecord
	for _, r := range m.records {
		if r.CityID == cityID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out
}

// cityFake implements CityStore and CityLookup.
type cityFake struct{ db *memDB }

func (f cityFake) ListAll(context.Context) ([]models.City, error) {
	if f.db.failWith != nil {
		return nil, f.db.failWith
	}
	out := make([]models.City, 0, len(f.db.cities))
	for _, c := range f.db.cities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f cityFake) GetByID(_ context.Context, id int, scopes ...repository.Scope) (*models.City, error) {
	f.db.notePrimary("city", id, scopes)
	if f.db.failWith != nil {
		return nil, f.db.failWith
	}
	c, ok := f.db.cities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f cityFake) GetWithRecords(ctx context.Context, id int) (*repository.CityWithRecords, error) {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &repository.CityWithRecords{City: *c, Records: f.db.cityRecords(id)}, nil
}

func (f cityFake) FindByName(_ context.Context, name, country string) (*models.City, error) {
	if f.db.failWith != nil {
		return nil, f.db.failWith
	}
	for _, c := range f.db.cities {
		if strings.EqualFold(c.Name, name) && strings.EqualFold(c.Country, country) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f cityFake) ListWithActiveAlerts(_ context.Context, now time.Time) ([]models.City, error) {
	seen := map[int]bool{}
	for link := range f.db.links {
		if f.db.alerts[link[0]].IsActiveAt(now) {
			seen[link[1]] = true
		}
	}
	var out []models.City
	for id := range seen {
		out = append(out, f.db.cities[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f cityFake) Add(_ context.Context, city *models.City) error {
	if f.db.failWith != nil {
		return f.db.failWith
	}
	city.ID = f.db.id()
	f.db.cities[city.ID] = *city
	return nil
}

// recordFake implements WeatherRecordStore.
type recordFake struct{ db *memDB }

func (f recordFake) GetWithCity(_ context.Context, id int) (*repository.RecordWithCity, error) {
	r, ok := f.db.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := f.db.recordWithCity(r)
	return &out, nil
}

func (f recordFake) ListWithCity(context.Context) ([]repository.RecordWithCity, error) {
	var out []repository.RecordWithCity
	for _, r := range f.db.records {
		out = append(out, f.db.recordWithCity(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f recordFake) ListByCity(_ context.Context, cityID int) ([]repository.RecordWithCity, error) {
	var out []repository.RecordWithCity
	for _, r := range f.db.cityRecords(cityID) {
		out = append(out, f.db.recordWithCity(r))
	}
	return out, nil
}

func (f recordFake) ListRecent(ctx context.Context, cityID, n int) ([]repository.RecordWithCity, error) {
	out, _ := f.ListByCity(ctx, cityID)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (f recordFake) GetLatest(ctx context.Context, cityID int) (*repository.RecordWithCity, error) {
	out, _ := f.ListByCity(ctx, cityID)
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return &out[0], nil
}

func (f recordFake) Add(_ context.Context, r *models.WeatherRecord) error {
	if f.db.failWith != nil {
		return f.db.failWith
	}
	if _, ok := f.db.cities[r.CityID]; !ok {
		return repository.ErrForeignKey
	}
	r.ID = f.db.id()
	f.db.records[r.ID] = *r
	return nil
}

// alertFake implements WeatherAlertStore.
type alertFake struct{ db *memDB }

func (f alertFake) GetByID(_ context.Context, id int, scopes ...repository.Scope) (*models.WeatherAlert, error) {
	f.db.notePrimary("alert", id, scopes)
	if f.db.failWith != nil {
		return nil, f.db.failWith
	}
	a, ok := f.db.alerts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (f alertFake) GetWithCities(ctx context.Context, id int, scopes ...repository.Scope) (*repository.AlertWithCities, error) {
	a, err := f.GetByID(ctx, id, scopes...)
	if err != nil {
		return nil, err
	}
	out := f.db.withCities(*a)
	return &out, nil
}

func (f alertFake) list(keep func(models.WeatherAlert) bool) []repository.AlertWithCities {
	out := []repository.AlertWithCities{}
	for _, a := range f.db.alerts {
		if keep(a) {
			out = append(out, f.db.withCities(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f alertFake) ListWithCities(context.Context) ([]repository.AlertWithCities, error) {
	return f.list(func(models.WeatherAlert) bool { return true }), nil
}

func (f alertFake) ListActive(_ context.Context, now time.Time) ([]repository.AlertWithCities, error) {
	return f.list(func(a models.WeatherAlert) bool { return a.IsActiveAt(now) }), nil
}

func (f alertFake) ListByCity(_ context.Context, cityID int) ([]repository.AlertWithCities, error) {
	return f.list(func(a models.WeatherAlert) bool { return f.db.links[[2]int{a.ID, cityID}] }), nil
}

func (f alertFake) CreateWithCities(_ context.Context, a *models.WeatherAlert, cityIDs []int) error {
	if f.db.failWith != nil {
		return f.db.failWith
	}
	for _, c := range cityIDs {
		if _, ok := f.db.cities[c]; !ok {
			return repository.ErrForeignKey
		}
	}
	*a = f.db.addAlert(*a, cityIDs...)
	return nil
}

func (f alertFake) Update(_ context.Context, a *models.WeatherAlert) error {
	if _, ok := f.db.alerts[a.ID]; !ok {
		return repository.ErrNotFound
	}
	f.db.alerts[a.ID] = *a
	return nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event events.AlertEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
