package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/weatherapp/internal/services"
)

// CityService is the city behaviour the HTTP layer needs.
type CityService interface {
	ListAll(ctx context.Context) ([]services.CityDTO, error)
	GetByID(ctx context.Context, id int) (services.CityDTO, error)
	GetWithRecords(ctx context.Context, id int) (services.CityDetailDTO, error)
	ListWithActiveAlerts(ctx context.Context) ([]services.CityDTO, error)
	Create(ctx context.Context, in services.CreateCityInput) (services.CityDTO, error)
}

// ListCitiesHandler returns every city
func ListCitiesHandler(svc CityService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cities, err := svc.ListAll(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cities)
	}
}

// GetCityHandler returns one city by id
func GetCityHandler(svc CityService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathInt(c, "id")
		if !ok {
			return
		}
		city, err := svc.GetByID(c.Request.Context(), id)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, city)
	}
}

// GetCityRecordsHandler returns a city with its observations
func GetCityRecordsHandler(svc CityService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathInt(c, "id")
		if !ok {
			return
		}
		detail, err := svc.GetWithRecords(c.Request.Context(), id)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

// ListCitiesWithActiveAlertsHandler returns the cities currently under an active alert
func ListCitiesWithActiveAlertsHandler(svc CityService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cities, err := svc.ListWithActiveAlerts(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cities)
	}
}

// CreateCityHandler creates a city and points Location at it
func CreateCityHandler(svc CityService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CreateCityInput
		if !bindJSON(c, &in) {
			return
		}
		city, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Header("Location", fmt.Sprintf("/api/cities/%d", city.ID))
		c.JSON(http.StatusCreated, city)
	}
}
