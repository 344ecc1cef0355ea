package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the farming advisor a question",
	Long: `Ask AgriGuide, the farming advisor, a free-form question.
Chat is live-only: it needs connectivity and is not cached.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		answer, err := a.advice.Chat(ctx, nil, strings.Join(args, " "), language())
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
