package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeAPI(t *testing.T) {
	api := FakeAPI{}
	ctx := context.Background()

	r, err := api.Fetch(ctx, "Lisbon")
	require.NoError(t, err)
	assert.Equal(t, Report{Name: "Lisbon", TempC: 28, Description: "cloudy", WindSpeed: 3.5}, r)

	_, err = api.Fetch(ctx, "NoWhere")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Code)
	assert.Equal(t, "City not found", apiErr.Message)
}

func TestFakeAPI_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FakeAPI{Delay: time.Minute}.Fetch(ctx, "Oslo")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReduce(t *testing.T) {
	s := Reduce(State{}, FetchWeather{City: "Oslo"})
	assert.Equal(t, State{City: "Oslo"}, s)
	assert.True(t, s.Loading())

	s = Reduce(s, FetchSuccess{Report: Report{Name: "Oslo", TempC: 3}})
	require.NotNil(t, s.Weather)
	assert.Equal(t, 3.0, s.Weather.TempC)
	assert.False(t, s.Loading())

	s = Reduce(s, FetchError{Message: "boom"})
	assert.Nil(t, s.Weather)
	assert.Equal(t, "boom", s.Err)
	assert.Equal(t, "Oslo", s.City)

	// A new fetch clears both the error and the previous report.
	s = Reduce(s, FetchWeather{City: "Rome"})
	assert.Equal(t, State{City: "Rome"}, s)

	assert.Equal(t, s, Reduce(s, nil))
}

func TestController_Lookup(t *testing.T) {
	c := NewController(FakeAPI{})
	ctx := context.Background()

	s, err := c.Lookup(ctx, "  Lisbon ")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", s.City)
	require.NotNil(t, s.Weather)
	assert.Equal(t, "cloudy", s.Weather.Description)

	s, err = c.Lookup(ctx, "nowhere")
	require.Error(t, err)
	assert.Equal(t, "City not found", s.Err)
	assert.Nil(t, s.Weather)
	assert.Equal(t, s, c.State())

	_, err = c.Lookup(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyCity)
	assert.Equal(t, "nowhere", c.State().City)
}

func TestController_LookupTimeout(t *testing.T) {
	c := NewController(FakeAPI{Delay: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s, err := c.Lookup(ctx, "Oslo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "Request timed out", s.Err)
}

func TestController_NewLookupCancelsPrevious(t *testing.T) {
	c := NewController(FakeAPI{Delay: 200 * time.Millisecond})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := c.Lookup(ctx, "Oslo")
		first <- err
	}()
	require.Eventually(t, func() bool { return c.State().City == "Oslo" }, time.Second, 5*time.Millisecond)

	s, err := c.Lookup(ctx, "Rome")
	require.NoError(t, err)
	assert.Equal(t, "Rome", s.Weather.Name)

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first lookup never returned")
	}
	assert.Equal(t, "Rome", c.State().City)
}

// gatedFetcher ignores cancellation and answers once released, like a
// server that replies late.
type gatedFetcher struct {
	gates map[string]chan struct{}
}

func (g gatedFetcher) Fetch(_ context.Context, city string) (Report, error) {
	if gate, ok := g.gates[city]; ok {
		<-gate
	}
	if city == "fail" {
		return Report{}, errors.New("late failure")
	}
	return Report{Name: city}, nil
}

func TestController_StaleResponseDiscarded(t *testing.T) {
	gate := make(chan struct{})
	c := NewController(gatedFetcher{gates: map[string]chan struct{}{"fail": gate}})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := c.Lookup(ctx, "fail")
		first <- err
	}()
	require.Eventually(t, func() bool { return c.State().City == "fail" }, time.Second, 5*time.Millisecond)

	s, err := c.Lookup(ctx, "Paris")
	require.NoError(t, err)
	require.NotNil(t, s.Weather)

	close(gate)
	assert.ErrorIs(t, <-first, ErrSuperseded)

	got := c.State()
	assert.Equal(t, "Paris", got.City)
	assert.Empty(t, got.Err)
	require.NotNil(t, got.Weather)
	assert.Equal(t, "Paris", got.Weather.Name)
}
