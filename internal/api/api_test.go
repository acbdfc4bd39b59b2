package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/jimdaga/weatherapp/internal/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 11, 11, 12, 0, 0, 0, time.UTC)

type stubCities struct {
	cities []services.CityDTO
	create func(services.CreateCityInput) (services.CityDTO, error)
}

func (s *stubCities) ListAll(context.Context) ([]services.CityDTO, error) { return s.cities, nil }

func (s *stubCities) GetByID(_ context.Context, id int) (services.CityDTO, error) {
	for _, c := range s.cities {
		if c.ID == id {
			return c, nil
		}
	}
	return services.CityDTO{}, &services.Error{Kind: services.ErrNotFound, Message: "City with ID 9 not found"}
}

func (s *stubCities) GetWithRecords(ctx context.Context, id int) (services.CityDetailDTO, error) {
	c, err := s.GetByID(ctx, id)
	return services.CityDetailDTO{CityDTO: c, WeatherRecords: []services.WeatherRecordDTO{}}, err
}

func (s *stubCities) ListWithActiveAlerts(context.Context) ([]services.CityDTO, error) {
	return nil, errors.New("pq: connection reset")
}

func (s *stubCities) Create(_ context.Context, in services.CreateCityInput) (services.CityDTO, error) {
	return s.create(in)
}

type stubRecords struct {
	lastCount int
}

func (s *stubRecords) ListAll(context.Context) ([]services.WeatherRecordDTO, error) {
	return []services.WeatherRecordDTO{}, nil
}

func (s *stubRecords) GetByID(context.Context, int) (services.WeatherRecordDTO, error) {
	return services.WeatherRecordDTO{}, &services.Error{Kind: services.ErrNotFound, Message: "Weather record with ID 3 not found"}
}

func (s *stubRecords) ListByCity(context.Context, int) ([]services.WeatherRecordDTO, error) {
	return []services.WeatherRecordDTO{}, nil
}

func (s *stubRecords) ListRecentForCity(_ context.Context, _ int, count int) ([]services.WeatherRecordDTO, error) {
	s.lastCount = count
	return []services.WeatherRecordDTO{}, nil
}

func (s *stubRecords) GetLatestForCity(_ context.Context, cityID int) (services.WeatherRecordDTO, error) {
	return services.WeatherRecordDTO{ID: 5, CityID: cityID, CityName: "London", Temperature: 14.8, RecordedAt: created}, nil
}

func (s *stubRecords) Create(_ context.Context, in services.CreateWeatherRecordInput) (services.WeatherRecordDTO, error) {
	if in.Temperature > 100 {
		return services.WeatherRecordDTO{}, &services.Error{Kind: services.ErrInvalidInput, Message: "Temperature must be between -100 and 100 degrees Celsius."}
	}
	return services.WeatherRecordDTO{ID: 12, CityID: in.CityID, Temperature: in.Temperature}, nil
}

type stubAlerts struct {
	deactivated []int
}

func (s *stubAlerts) ListAll(context.Context) ([]services.WeatherAlertDTO, error) {
	return []services.WeatherAlertDTO{}, nil
}

func (s *stubAlerts) ListActive(context.Context) ([]services.WeatherAlertDTO, error) {
	return []services.WeatherAlertDTO{{ID: 1, AlertType: "Storm", Severity: "High", IsActive: true, AffectedCities: []string{"London"}}}, nil
}

func (s *stubAlerts) ListByCity(context.Context, int) ([]services.WeatherAlertDTO, error) {
	return []services.WeatherAlertDTO{}, nil
}

func (s *stubAlerts) Create(_ context.Context, in services.CreateWeatherAlertInput) (services.WeatherAlertDTO, error) {
	return services.WeatherAlertDTO{ID: 3, AlertType: in.AlertType, IsActive: true, AffectedCities: []string{}}, nil
}

func (s *stubAlerts) Deactivate(_ context.Context, id int) error {
	if id != 1 {
		return &services.Error{Kind: services.ErrNotFound, Message: "Alert with ID 2 does not exist."}
	}
	s.deactivated = append(s.deactivated, id)
	return nil
}

type testServer struct {
	router  *gin.Engine
	cities  *stubCities
	records *stubRecords
	alerts  *stubAlerts
	metrics *metrics.Metrics
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		cities: &stubCities{
			cities: []services.CityDTO{{ID: 1, Name: "London", Country: "United Kingdom", Latitude: 51.5074, Longitude: -0.1278, CreatedAt: created}},
			create: func(in services.CreateCityInput) (services.CityDTO, error) {
				if in.Name == "London" {
					return services.CityDTO{}, &services.Error{Kind: services.ErrConflict, Message: "City 'London' in 'United Kingdom' already exists."}
				}
				return services.CityDTO{ID: 7, Name: in.Name, Country: in.Country, CreatedAt: created}, nil
			},
		},
		records: &stubRecords{},
		alerts:  &stubAlerts{},
		metrics: metrics.NewMetricsForTesting(),
	}
	ts.router = NewRouter(Deps{
		Cities:  ts.cities,
		Records: ts.records,
		Alerts:  ts.alerts,
		Ready:   func(context.Context) error { return nil },
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: ts.metrics,
	})
	return ts
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetCity(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/cities/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "London", body["name"])
	assert.Equal(t, "United Kingdom", body["country"])
	assert.Equal(t, "2025-11-11T12:00:00Z", body["createdAt"])
	assert.Contains(t, body, "latitude")
}

func TestGetCity_NotFound(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/cities/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "City with ID 9 not found", decode[errorResponse](t, w).Message)
}

func TestGetCity_InvalidID(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/cities/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIDsBeyondInt32AreBadRequest(t *testing.T) {
	ts := newTestServer()

	for _, target := range []string{
		"/api/cities/3000000000",
		"/api/weatherrecords/city/3000000000",
		"/api/weatheralerts/2147483648/deactivate",
	} {
		method := http.MethodGet
		if strings.HasSuffix(target, "/deactivate") {
			method = http.MethodPut
		}
		w := ts.do(method, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, decode[errorResponse](t, w).Message, "out of range", target)
	}

	w := ts.do(http.MethodGet, "/api/cities/2147483647", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCity(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/cities", `{"name":"Oslo","country":"Norway","latitude":59.91,"longitude":10.75}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/cities/7", w.Header().Get("Location"))
	assert.EqualValues(t, 7, decode[map[string]any](t, w)["id"])
}

func TestCreateCity_ConflictIsBadRequest(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/cities", `{"name":"London","country":"United Kingdom","latitude":51,"longitude":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "City 'London' in 'United Kingdom' already exists.", decode[errorResponse](t, w).Message)
}

func TestCreateCity_MalformedJSON(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/cities", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Message, "Invalid request body")
}

func TestUnexpectedErrorIsGeneric500(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/cities/with-active-alerts", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	msg := decode[errorResponse](t, w).Message
	assert.Equal(t, "An unexpected error occurred.", msg)
	assert.NotContains(t, msg, "pq")
}

func TestCityRecords(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/cities/1/weatherrecords", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "London", body["name"])
	assert.Equal(t, []any{}, body["weatherRecords"])
}

func TestWeatherRecordRoutes(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/weatherrecords", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/weatherrecords/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/api/weatherrecords/city/1/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	latest := decode[map[string]any](t, w)
	assert.Equal(t, "London", latest["cityName"])
	assert.EqualValues(t, 1, latest["cityId"])

	w = ts.do(http.MethodGet, "/api/weatherrecords/city/1/recent", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultRecentCount, ts.records.lastCount)

	w = ts.do(http.MethodGet, "/api/weatherrecords/city/1/recent?count=3", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, ts.records.lastCount)

	w = ts.do(http.MethodGet, "/api/weatherrecords/city/1/recent?count=lots", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateWeatherRecord(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/weatherrecords", `{"cityId":1,"temperature":15.5,"humidity":65,"windSpeed":12.5}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/weatherrecords/12", w.Header().Get("Location"))

	w = ts.do(http.MethodPost, "/api/weatherrecords", `{"cityId":1,"temperature":100.01,"humidity":65,"windSpeed":12.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Temperature must be between -100 and 100 degrees Celsius.", decode[errorResponse](t, w).Message)
}

func TestWeatherAlertRoutes(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/weatheralerts/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	active := decode[[]map[string]any](t, w)
	require.Len(t, active, 1)
	assert.Equal(t, "Storm", active[0]["alertType"])
	assert.Equal(t, true, active[0]["isActive"])
	assert.Equal(t, []any{"London"}, active[0]["affectedCities"])
	assert.Nil(t, active[0]["endTime"])

	w = ts.do(http.MethodPost, "/api/weatheralerts",
		`{"alertType":"Fog","severity":"Low","description":"Dense fog this morning","startTime":"2025-11-11T06:00:00Z","cityIds":[1]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/weatheralerts/active", w.Header().Get("Location"))

	w = ts.do(http.MethodPut, "/api/weatheralerts/1/deactivate", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, []int{1}, ts.alerts.deactivated)

	w = ts.do(http.MethodPut, "/api/weatheralerts/2/deactivate", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDAndMetrics(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/cities", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, ts.do(http.MethodGet, "/api/cities", "").Header().Get("X-Request-ID"))

	assert.InDelta(t, 2, testutil.ToFloat64(ts.metrics.HTTPRequests.WithLabelValues("GET", "/api/cities", "200")), 0)

	ts.do(http.MethodGet, "/nowhere", "")
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.HTTPRequests.WithLabelValues("GET", "unmatched", "404")), 0)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
