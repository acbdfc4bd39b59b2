package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/weatherapp/internal/services"
)

// WeatherAlertService is the alert behaviour the HTTP layer needs.
type WeatherAlertService interface {
	ListAll(ctx context.Context) ([]services.WeatherAlertDTO, error)
	ListActive(ctx context.Context) ([]services.WeatherAlertDTO, error)
	ListByCity(ctx context.Context, cityID int) ([]services.WeatherAlertDTO, error)
	Create(ctx context.Context, in services.CreateWeatherAlertInput) (services.WeatherAlertDTO, error)
	Deactivate(ctx context.Context, id int) error
}

// ListAlertsHandler returns every alert, active or not
func ListAlertsHandler(svc WeatherAlertService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := svc.ListAll(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

// ListActiveAlertsHandler returns the alerts currently in force
func ListActiveAlertsHandler(svc WeatherAlertService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := svc.ListActive(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

// ListCityAlertsHandler returns every alert that has affected a city
func ListCityAlertsHandler(svc WeatherAlertService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID, ok := pathInt(c, "cityId")
		if !ok {
			return
		}
		alerts, err := svc.ListByCity(c.Request.Context(), cityID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

// CreateAlertHandler raises an alert. Location points at the active list
// since alerts have no single-item route.
func CreateAlertHandler(svc WeatherAlertService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CreateWeatherAlertInput
		if !bindJSON(c, &in) {
			return
		}
		alert, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Header("Location", "/api/weatheralerts/active")
		c.JSON(http.StatusCreated, alert)
	}
}

// DeactivateAlertHandler ends an alert now
func DeactivateAlertHandler(svc WeatherAlertService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathInt(c, "id")
		if !ok {
			return
		}
		if err := svc.Deactivate(c.Request.Context(), id); err != nil {
			writeError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
