package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/tm/internal/output"
	"github.com/joescharf/tm/internal/weather"
)

var weatherCmd = &cobra.Command{
	Use:   "weather <city>",
	Short: "Look up the weather for a city",
	Long: `Look up the weather for a city using the simulated weather API.

The city "nowhere" reports "City not found".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return weatherRun(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
}

func weatherRun(ctx context.Context, city string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c := weather.NewController(weather.FakeAPI{Delay: viper.GetDuration("weather.delay")})

	ui.VerboseLog("fetching weather for %s", city)
	state, err := c.Lookup(ctx, city)
	if errors.Is(err, weather.ErrEmptyCity) {
		return err
	}
	return renderWeather(state)
}

func renderWeather(s weather.State) error {
	if s.Err != "" {
		ui.Error("%s", s.Err)
		return fmt.Errorf("weather lookup failed for %s", s.City)
	}
	if s.Weather == nil {
		ui.Info("Enter a city to get weather data.")
		return nil
	}
	w := s.Weather
	fmt.Fprintln(ui.Out, output.Cyan(w.Name))
	fmt.Fprintf(ui.Out, "  Temp:  %.1f °C\n", w.TempC)
	fmt.Fprintf(ui.Out, "  Sky:   %s\n", w.Description)
	fmt.Fprintf(ui.Out, "  Wind:  %.1f m/s\n", w.WindSpeed)
	return nil
}
