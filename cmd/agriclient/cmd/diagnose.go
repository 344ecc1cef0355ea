package cmd

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <image.jpg>",
	Short: "Diagnose a crop from a photo",
	Long: `Analyze a JPEG photo of a crop for diseases, pests, and
nutrient deficiencies. Diagnosis is live-only: it needs connectivity
and is not cached.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.advice.Diagnose(ctx, base64.StdEncoding.EncodeToString(data), language())
		if err != nil {
			return err
		}
		fmt.Printf("Crop:      %s\n", result.CropName)
		fmt.Printf("Diagnosis: %s\n", result.Diagnosis)
		for _, issue := range result.Issues {
			fmt.Printf("  Issue:   %s\n", issue.Label)
		}
		if len(result.Treatment) > 0 {
			fmt.Printf("Treatment:\n  %s\n", strings.Join(result.Treatment, "\n  "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
