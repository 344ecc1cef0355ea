package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agriconnect/agriclient/internal/service"
)

var twoFactorCmd = &cobra.Command{
	Use:   "2fa",
	Short: "Manage two-factor authentication",
}

var twoFactorSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Email a verification code to the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTwoFactor(cmd.Context(), func(ctx context.Context, tf *service.TwoFactorService) error {
			if err := tf.SendCode(ctx); err != nil {
				return err
			}
			fmt.Println("Verification code sent. Run: agriclient 2fa enable --code <code>")
			return nil
		})
	},
}

var twoFactorCode string

var twoFactorEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Verify a code and turn on two-factor authentication",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTwoFactor(cmd.Context(), func(ctx context.Context, tf *service.TwoFactorService) error {
			ok, err := tf.Enable(ctx, twoFactorCode)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("code not approved, request a new one with: agriclient 2fa send")
			}
			fmt.Println("Two-factor authentication enabled")
			return nil
		})
	},
}

var twoFactorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether two-factor authentication is on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTwoFactor(cmd.Context(), func(ctx context.Context, tf *service.TwoFactorService) error {
			enabled, err := tf.Enabled(ctx)
			if err != nil {
				return err
			}
			if enabled {
				fmt.Println("Two-factor authentication: enabled")
			} else {
				fmt.Println("Two-factor authentication: disabled")
			}
			return nil
		})
	},
}

func withTwoFactor(ctx context.Context, fn func(context.Context, *service.TwoFactorService) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	verifier, err := a.verifier()
	if err != nil {
		return err
	}
	tf := service.NewTwoFactorService(verifier, a.api, a.store, a.logger)
	return fn(ctx, tf)
}

func init() {
	twoFactorEnableCmd.Flags().StringVar(&twoFactorCode, "code", "", "the code received by email")
	_ = twoFactorEnableCmd.MarkFlagRequired("code")
	twoFactorCmd.AddCommand(twoFactorSendCmd, twoFactorEnableCmd, twoFactorStatusCmd)
	rootCmd.AddCommand(twoFactorCmd)
}
