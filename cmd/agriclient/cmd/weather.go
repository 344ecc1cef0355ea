package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var weatherCmd = &cobra.Command{
	Use:   "weather <location>",
	Short: "Show the weather forecast for a location",
	Long: `Show the current weather forecast for a town, region, or
"lat,lon" coordinate pair. The last successful forecast is cached on
device and served, marked (cached), when the network is unavailable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.advice.Weather(ctx, args[0], language())
		if err != nil {
			return err
		}
		w := entry.Payload
		fmt.Printf("Weather for %s%s\n", w.LocationName, cachedTag(entry.FromCache))
		fmt.Printf("  Temperature:   %s\n", w.Temp)
		fmt.Printf("  Precipitation: %s\n", w.Precipitation)
		fmt.Printf("  Wind:          %s\n", w.Wind)
		fmt.Printf("  Condition:     %s\n", w.Condition)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
}
