package weather

import "time"

// Weather is one city's report as served (and cached) by the API.
type Weather struct {
	City      string    `json:"city"`
	Temp      float64   `json:"temp"`
	Humidity  float64   `json:"humidity"`
	Timestamp time.Time `json:"timestamp"`
}
