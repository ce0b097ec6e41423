// Package weather is a small city weather lookup backed by a simulated
// API. Lookups are reduced into a State; a newer lookup supersedes any
// still in flight.
package weather

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultDelay is the simulated network latency of FakeAPI.
const DefaultDelay = time.Second

// Report is the weather for one city.
type Report struct {
	Name        string  `json:"name"`
	TempC       float64 `json:"temp"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"windSpeed"` // m/s
}

// APIError is a failed lookup as returned by the remote side.
type APIError struct {
	Code    int    `json:"cod"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("weather api %d: %s", e.Code, e.Message) }

// Fetcher looks up the weather for a city.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (Report, error)
}

// FakeAPI answers every city with canned data after Delay. The city
// "nowhere" (any case) fails with a 404.
type FakeAPI struct {
	Delay time.Duration
}

func (f FakeAPI) Fetch(ctx context.Context, city string) (Report, error) {
	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Report{}, ctx.Err()
		case <-timer.C:
		}
	}
	if strings.EqualFold(city, "nowhere") {
		return Report{}, &APIError{Code: 404, Message: "City not found"}
	}
	return Report{
		Name:        city,
		TempC:       28,
		Description: "cloudy",
		WindSpeed:   3.5,
	}, nil
}
