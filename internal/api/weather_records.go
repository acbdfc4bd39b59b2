package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/weatherapp/internal/services"
)

const defaultRecentCount = 10

// WeatherRecordService is the observation behaviour the HTTP layer needs.
type WeatherRecordService interface {
	ListAll(ctx context.Context) ([]services.WeatherRecordDTO, error)
	GetByID(ctx context.Context, id int) (services.WeatherRecordDTO, error)
	ListByCity(ctx context.Context, cityID int) ([]services.WeatherRecordDTO, error)
	ListRecentForCity(ctx context.Context, cityID, count int) ([]services.WeatherRecordDTO, error)
	GetLatestForCity(ctx context.Context, cityID int) (services.WeatherRecordDTO, error)
	Create(ctx context.Context, in services.CreateWeatherRecordInput) (services.WeatherRecordDTO, error)
}

// ListRecordsHandler returns every weather record
func ListRecordsHandler(svc WeatherRecordService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := svc.ListAll(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

// GetRecordHandler returns one weather record by id
func GetRecordHandler(svc WeatherRecordService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathInt(c, "id")
		if !ok {
			return
		}
		rec, err := svc.GetByID(c.Request.Context(), id)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// ListCityRecordsHandler returns a city's records, newest first
func ListCityRecordsHandler(svc WeatherRecordService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID, ok := pathInt(c, "cityId")
		if !ok {
			return
		}
		recs, err := svc.ListByCity(c.Request.Context(), cityID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

// ListRecentCityRecordsHandler returns the newest observations for a city;
// ?count defaults to 10.
func ListRecentCityRecordsHandler(svc WeatherRecordService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID, ok := pathInt(c, "cityId")
		if !ok {
			return
		}
		count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(defaultRecentCount)))
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Message: "The count query parameter must be an integer."})
			return
		}
		recs, err := svc.ListRecentForCity(c.Request.Context(), cityID, count)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

// GetLatestCityRecordHandler returns a city's most recent record
func GetLatestCityRecordHandler(svc WeatherRecordService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID, ok := pathInt(c, "cityId")
		if !ok {
			return
		}
		rec, err := svc.GetLatestForCity(c.Request.Context(), cityID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// CreateRecordHandler stores a new weather record
func CreateRecordHandler(svc WeatherRecordService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CreateWeatherRecordInput
		if !bindJSON(c, &in) {
			return
		}
		rec, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Header("Location", fmt.Sprintf("/api/weatherrecords/%d", rec.ID))
		c.JSON(http.StatusCreated, rec)
	}
}
