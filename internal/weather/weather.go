// Package weather fetches daily forecasts from Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/tripplan/internal/cache"
	"github.com/pbaille/tripplan/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://api.open-meteo.com"

	// TTL is how long a forecast is served from cache.
	TTL = time.Hour
)

const dailyFields = "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weathercode"

// Day is the forecast for one date. Fields the provider left out are nil.
type Day struct {
	Date         string   `json:"date"`
	TempMax      *float64 `json:"temp_max"`
	TempMin      *float64 `json:"temp_min"`
	PrecipChance *float64 `json:"precip_chance"`
	WeatherCode  *int     `json:"weather_code"`
}

// Forecast is a daily forecast for one coordinate
type Forecast struct {
	Days []Day `json:"forecast"`
}

// Client fetches forecasts and keeps them in an injected cache
type Client struct {
	endpoint string
	http     *http.Client
	cache    cache.Cache[Forecast]
	logger   *zap.Logger
}

// New creates a Client. An empty endpoint selects DefaultEndpoint.
func New(endpoint string, c cache.Cache[Forecast], logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		cache:    c,
		logger:   logger,
	}
}

type forecastResponse struct {
	Daily struct {
		Time         []string   `json:"time"`
		TempMax      []*float64 `json:"temperature_2m_max"`
		TempMin      []*float64 `json:"temperature_2m_min"`
		PrecipChance []*float64 `json:"precipitation_probability_max"`
		WeatherCode  []*int     `json:"weathercode"`
	} `json:"daily"`
}

// Daily returns the daily forecast at ll, in the location's own timezone.
func (c *Client) Daily(ctx context.Context, ll domain.LatLng) (Forecast, error) {
	if !ll.Valid() || ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return Forecast{}, fmt.Errorf("invalid coordinates %v,%v", ll.Lat, ll.Lng)
	}

	key := fmt.Sprintf("%.4f,%.4f", ll.Lat, ll.Lng)
	if c.cache != nil {
		if f, ok := c.cache.Get(key); ok {
			return f, nil
		}
	}

	q := url.Values{
		"latitude":  {strconv.FormatFloat(ll.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(ll.Lng, 'f', -1, 64)},
		"daily":     {dailyFields},
		"timezone":  {"auto"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return Forecast{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Forecast{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Forecast{}, fmt.Errorf("weather api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var fr forecastResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return Forecast{}, fmt.Errorf("unmarshal response: %w", err)
	}

	f := Forecast{Days: make([]Day, len(fr.Daily.Time))}
	for i, date := range fr.Daily.Time {
		f.Days[i] = Day{
			Date:         date,
			TempMax:      at(fr.Daily.TempMax, i),
			TempMin:      at(fr.Daily.TempMin, i),
			PrecipChance: at(fr.Daily.PrecipChance, i),
			WeatherCode:  at(fr.Daily.WeatherCode, i),
		}
	}

	if c.cache != nil {
		c.cache.Set(key, f, TTL)
	}
	c.logger.Debug("forecast fetched", zap.String("at", key), zap.Int("days", len(f.Days)))
	return f, nil
}

// at tolerates series shorter than the date list.
func at[T any](series []*T, i int) *T {
	if i < len(series) {
		return series[i]
	}
	return nil
}
