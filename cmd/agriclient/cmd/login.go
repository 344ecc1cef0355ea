package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
	loginGoogle   bool
	redirectURL   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the AgriConnect backend",
	Long: `Sign in with email and password, or start a Google sign-in.

Google sign-in prints an authorization URL. Open it in a browser,
complete the sign-in, then pass the full URL the browser lands on back
with --redirect-url to finish:

  agriclient login --google
  agriclient login --redirect-url 'http://localhost/#access_token=...'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if redirectURL != "" {
			sess, _, err := a.store.CaptureRedirect(ctx, redirectURL)
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("no access token found in redirect URL")
			}
			fmt.Printf("Signed in as %s\n", sess.User.Email)
			return nil
		}

		if loginGoogle {
			fmt.Println("Open this URL in a browser to sign in with Google:")
			fmt.Println(a.store.GoogleAuthURL("http://localhost"))
			fmt.Println("\nThen run: agriclient login --redirect-url '<url the browser lands on>'")
			return nil
		}

		if loginEmail == "" || loginPassword == "" {
			return fmt.Errorf("--email and --password are required")
		}
		sess, err := a.store.SignIn(ctx, loginEmail, loginPassword)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", sess.User.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	loginCmd.Flags().BoolVar(&loginGoogle, "google", false, "start a Google sign-in")
	loginCmd.Flags().StringVar(&redirectURL, "redirect-url", "", "finish a Google sign-in with the browser's final URL")
	rootCmd.AddCommand(loginCmd)
}
