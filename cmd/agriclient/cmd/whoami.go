package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var whoamiVerify bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if whoamiVerify {
			// One immediate guard check; a revoked or deleted account is
			// signed out before we report.
			a.guard.CheckNow(ctx)
		}

		sess, err := a.mustSession(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("User:    %s\n", sess.User.Email)
		fmt.Printf("ID:      %s\n", sess.User.ID)
		if name, ok := sess.User.Metadata["name"].(string); ok && name != "" {
			fmt.Printf("Name:    %s\n", name)
		}
		fmt.Printf("Expires: %s\n", time.Unix(sess.ExpiresAt, 0).Format(time.RFC3339))
		return nil
	},
}

func init() {
	whoamiCmd.Flags().BoolVar(&whoamiVerify, "verify", false, "confirm the session with the backend first")
	rootCmd.AddCommand(whoamiCmd)
}
