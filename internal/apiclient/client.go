package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/weatherapp/internal/services"
)

// Client talks to a running weather API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateCity(ctx context.Context, in services.CreateCityInput) (services.CityDTO, error) {
	var out services.CityDTO
	err := c.do(ctx, http.MethodPost, "/api/cities", in, &out)
	return out, err
}

func (c *Client) CreateWeatherRecord(ctx context.Context, in services.CreateWeatherRecordInput) (services.WeatherRecordDTO, error) {
	var out services.WeatherRecordDTO
	err := c.do(ctx, http.MethodPost, "/api/weatherrecords", in, &out)
	return out, err
}

func (c *Client) CreateWeatherAlert(ctx context.Context, in services.CreateWeatherAlertInput) (services.WeatherAlertDTO, error) {
	var out services.WeatherAlertDTO
	err := c.do(ctx, http.MethodPost, "/api/weatheralerts", in, &out)
	return out, err
}

func (c *Client) ListActiveAlerts(ctx context.Context) ([]services.WeatherAlertDTO, error) {
	var out []services.WeatherAlertDTO
	err := c.do(ctx, http.MethodGet, "/api/weatheralerts/active", nil, &out)
	return out, err
}

func (c *Client) DeactivateAlert(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/weatheralerts/%d/deactivate", id), nil, nil)
}

// IsRejected reports whether err is a 400 from the API (validation or conflict).
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Message != "" {
			apiErr.Message = eb.Message
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
