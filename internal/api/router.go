// Package api exposes the weather services over HTTP with gin.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/weatherapp/internal/health"
	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Cities  CityService
	Records WeatherRecordService
	Alerts  WeatherAlertService
	Ready   health.Checker
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(d.Logger), Metrics(d.Metrics))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/readyz", health.ReadyHandler(d.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	cities := api.Group("/cities")
	cities.GET("", ListCitiesHandler(d.Cities, d.Logger))
	cities.POST("", CreateCityHandler(d.Cities, d.Logger))
	cities.GET("/with-active-alerts", ListCitiesWithActiveAlertsHandler(d.Cities, d.Logger))
	cities.GET("/:id", GetCityHandler(d.Cities, d.Logger))
	cities.GET("/:id/weatherrecords", GetCityRecordsHandler(d.Cities, d.Logger))

	records := api.Group("/weatherrecords")
	records.GET("", ListRecordsHandler(d.Records, d.Logger))
	records.POST("", CreateRecordHandler(d.Records, d.Logger))
	records.GET("/:id", GetRecordHandler(d.Records, d.Logger))
	records.GET("/city/:cityId", ListCityRecordsHandler(d.Records, d.Logger))
	records.GET("/city/:cityId/latest", GetLatestCityRecordHandler(d.Records, d.Logger))
	records.GET("/city/:cityId/recent", ListRecentCityRecordsHandler(d.Records, d.Logger))

	alerts := api.Group("/weatheralerts")
	alerts.GET("", ListAlertsHandler(d.Alerts, d.Logger))
	alerts.POST("", CreateAlertHandler(d.Alerts, d.Logger))
	alerts.GET("/active", ListActiveAlertsHandler(d.Alerts, d.Logger))
	alerts.GET("/city/:cityId", ListCityAlertsHandler(d.Alerts, d.Logger))
	alerts.PUT("/:id/deactivate", DeactivateAlertHandler(d.Alerts, d.Logger))

	return r
}
