package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newsCmd = &cobra.Command{
	Use:   "news <location>",
	Short: "Summarize agricultural news for a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.advice.News(ctx, args[0], language())
		if err != nil {
			return err
		}
		fmt.Printf("Farm news for %s%s\n\n", args[0], cachedTag(entry.FromCache))
		fmt.Println(entry.Payload.Text)
		if len(entry.Payload.Links) > 0 {
			fmt.Println("\nSources:")
			for _, link := range entry.Payload.Links {
				fmt.Printf("  %s\n    %s\n", link.Title, link.URL)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newsCmd)
}
