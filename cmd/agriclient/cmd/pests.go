package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pestsCmd = &cobra.Command{
	Use:   "pests <location>",
	Short: "Predict pest and disease risk for a location",
	Long: `Predict pest and disease pressure based on the current weather
at the location. The forecast and the risk assessment are both cached
per location, so a recent answer is available offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		location := args[0]
		weather, err := a.advice.Weather(ctx, location, language())
		if err != nil {
			return err
		}
		risk, err := a.advice.PestRisk(ctx, weather.Payload.Condition, location, language())
		if err != nil {
			return err
		}
		r := risk.Payload
		fmt.Printf("Pest risk for %s%s\n", location, cachedTag(risk.FromCache))
		fmt.Printf("  Risk:   %s\n", r.RiskLevel)
		fmt.Printf("  Alert:  %s\n", r.Alert)
		fmt.Printf("  Action: %s\n", r.PreventiveAction)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pestsCmd)
}
