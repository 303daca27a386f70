// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pbaille/tripplan/internal/geocode"
	"github.com/pbaille/tripplan/internal/rates"
	"github.com/pbaille/tripplan/internal/weather"
)

// Config holds settings shared by every command
type Config struct {
	DBPath          string
	Addr            string
	NominatimServer string
	NominatimEmail  string
	GeocodeDelay    time.Duration
	AnthropicAPIKey string
	ExchangeAPI     string
	WeatherAPI      string
	Debug           bool
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		DBPath:          getenv("TRIPPLAN_DB", "tripplan.db"),
		Addr:            getenv("TRIPPLAN_ADDR", ":8080"),
		NominatimServer: getenv("NOMINATIM_SERVER", geocode.DefaultServer),
		NominatimEmail:  os.Getenv("NOMINATIM_EMAIL"),
		GeocodeDelay:    geocode.DefaultDelay,
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		ExchangeAPI:     getenv("EXCHANGE_API", rates.DefaultEndpoint),
		WeatherAPI:      getenv("WEATHER_API", weather.DefaultEndpoint),
	}

	if v := os.Getenv("GEOCODE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse GEOCODE_DELAY: %w", err)
		}
		cfg.GeocodeDelay = d
	}
	if v := os.Getenv("TRIPPLAN_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse TRIPPLAN_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
