package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	signupEmail    string
	signupPassword string
	signupName     string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new AgriConnect account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		var metadata map[string]any
		if signupName != "" {
			metadata = map[string]any{"name": signupName}
		}
		sess, err := a.store.SignUp(ctx, signupEmail, signupPassword, metadata)
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("Account created. Check your email to confirm, then run: agriclient login")
			return nil
		}
		fmt.Printf("Signed up and signed in as %s\n", sess.User.Email)
		return nil
	},
}

func init() {
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "account email")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "account password")
	signupCmd.Flags().StringVar(&signupName, "name", "", "display name")
	_ = signupCmd.MarkFlagRequired("email")
	_ = signupCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(signupCmd)
}
