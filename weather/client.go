package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/fatimetou23083/CacheFlow/httpx"
)

// DefaultAPIURL is the OpenWeatherMap current-weather endpoint.
const DefaultAPIURL = "https://api.openweathermap.org/data/2.5/weather"

var ErrCityNotFound = errors.New("weather: city not found")

type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
}

// Client fetches reports from OpenWeatherMap. Without a real API key it
// runs in demo mode and synthesizes stable per-city data; authentication,
// client and network failures also degrade to demo data so lookups keep
// answering while the upstream misbehaves. Server-side (5xx) failures
// surface as errors.
type Client struct {
	http   *httpx.Client
	apiKey string
	demo   bool
	now    func() time.Time
	log    *slog.Logger
}

type ClientOption func(*Client)

// WithAPIKey enables live lookups. The literal key "demo" (or an empty
// key) keeps the client in demo mode.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
		c.demo = c.apiKey == "" || c.apiKey == "demo"
	}
}

// WithHTTPClient overrides the upstream HTTP client; tests point it at a
// local server.
func WithHTTPClient(hc *httpx.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http: httpx.NewClient(httpx.WithBaseURL(DefaultAPIURL)),
		demo: true,
		now:  time.Now,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) Fetch(ctx context.Context, city string) (Weather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Weather{}, ErrEmptyCity
	}

	if c.demo {
		return c.demoWeather(city), nil
	}

	var out openWeatherResponse
	resp, err := c.http.Get(ctx, "", &out, httpx.WithQuery(map[string]string{
		"q":     city,
		"appid": c.apiKey,
		"units": "metric",
		"lang":  "fr",
	}))
	if err != nil {
		code := 0
		if resp != nil {
			code = resp.StatusCode()
		}
		switch {
		case code == http.StatusNotFound:
			return Weather{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
		case code >= http.StatusInternalServerError:
			return Weather{}, fmt.Errorf("weather: upstream: %w", err)
		case code == http.StatusUnauthorized:
			c.log.Warn("weather api rejected credentials, serving demo data", "city", city)
			return c.demoWeather(city), nil
		default:
			// Remaining client and network errors.
			c.log.Warn("weather api unavailable, serving demo data", "city", city, "error", err)
			return c.demoWeather(city), nil
		}
	}

	name := out.Name
	if name == "" {
		name = city
	}
	return Weather{
		City:      name,
		Temp:      out.Main.Temp,
		Humidity:  out.Main.Humidity,
		Timestamp: c.now(),
	}, nil
}

// demoWeather derives a stable report from the city name, so repeated
// lookups for one city agree while different cities differ.
func (c *Client) demoWeather(city string) Weather {
	h := cityHash(strings.ToLower(city))
	if h < 0 {
		h = -h
	}
	return Weather{
		City:      city,
		Temp:      round1(5 + float64(h%25)),
		Humidity:  round1(30 + float64(h%60)),
		Timestamp: c.now(),
	}
}

func cityHash(s string) int32 {
	var h int32
	for _, r := range s {
		h = 31*h + r
	}
	return h
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
