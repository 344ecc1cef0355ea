package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	plantingRegion string
	rotationRegion string
	rotationCrops  []string
)

var cropCmd = &cobra.Command{
	Use:   "crop <name>",
	Short: "Show the farming guide for a crop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.advice.CropDetails(ctx, args[0], language())
		if err != nil {
			return err
		}
		info := entry.Payload
		fmt.Printf("%s%s\n", info.Name, cachedTag(entry.FromCache))
		fmt.Printf("  Planting season: %s\n", info.PlantingSeason)
		fmt.Printf("  Soil:            %s\n", info.SoilRequirements)
		fmt.Printf("  Care:            %s\n", info.CareTips)
		fmt.Printf("  Pests:           %s\n", strings.Join(info.CommonPests, ", "))
		fmt.Printf("  Diseases:        %s\n", strings.Join(info.CommonDiseases, ", "))
		fmt.Printf("  Companions:      %s\n", strings.Join(info.CompanionPlants, ", "))
		fmt.Printf("  Harvesting:      %s\n", info.Harvesting)
		return nil
	},
}

var plantingCmd = &cobra.Command{
	Use:   "planting <crop>",
	Short: "Show the best planting window for a crop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.advice.Planting(ctx, plantingRegion, args[0], language())
		if err != nil {
			return err
		}
		fmt.Printf("%s%s\n", entry.Payload.Text, cachedTag(entry.FromCache))
		return nil
	},
}

var rotationCmd = &cobra.Command{
	Use:   "rotation",
	Short: "Recommend the next crop for rotation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.advice.RotationAdvice(ctx, rotationRegion, rotationCrops, language())
		if err != nil {
			return err
		}
		advice := entry.Payload
		fmt.Printf("Recommended next crops%s: %s\n", cachedTag(entry.FromCache), strings.Join(advice.RecommendedCrops, ", "))
		fmt.Printf("  Why:           %s\n", advice.Reasoning)
		fmt.Printf("  Soil benefits: %s\n", advice.SoilBenefits)
		return nil
	},
}

func init() {
	plantingCmd.Flags().StringVar(&plantingRegion, "region", "Ashanti", "Ghanaian region")
	rotationCmd.Flags().StringVar(&rotationRegion, "region", "Ashanti", "Ghanaian region")
	rotationCmd.Flags().StringSliceVar(&rotationCrops, "previous", nil, "previously planted crops")
	_ = rotationCmd.MarkFlagRequired("previous")
	rootCmd.AddCommand(cropCmd, plantingCmd, rotationCmd)
}
