package weather

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrSuperseded is returned to a lookup whose answer arrived after a
	// newer lookup started. Its result is discarded.
	ErrSuperseded = errors.New("weather lookup superseded")
	// ErrEmptyCity is returned for a blank city name.
	ErrEmptyCity = errors.New("city is required")
)

// Controller drives lookups against a Fetcher and owns the State.
type Controller struct {
	fetcher Fetcher

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
}

// NewController creates a controller. A nil fetcher uses FakeAPI with
// DefaultDelay.
func NewController(f Fetcher) *Controller {
	if f == nil {
		f = FakeAPI{Delay: DefaultDelay}
	}
	return &Controller{fetcher: f}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Lookup fetches the weather for city. It cancels any lookup still in
// flight. A failed fetch is stored in State.Err and also returned.
func (c *Controller) Lookup(ctx context.Context, city string) (State, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return c.State(), ErrEmptyCity
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.state = Reduce(c.state, FetchWeather{City: city})
	c.mu.Unlock()

	report, err := c.fetcher.Fetch(ctx, city)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return c.state, ErrSuperseded
	}
	c.cancel = nil
	if err != nil {
		c.state = Reduce(c.state, FetchError{Message: errorMessage(err)})
		return c.state, err
	}
	c.state = Reduce(c.state, FetchSuccess{Report: report})
	return c.state, nil
}

func errorMessage(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	default:
		return err.Error()
	}
}
