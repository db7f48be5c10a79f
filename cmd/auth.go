package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/orchrest/rest"
)

// helloCmd represents the hello command
var helloCmd = &cobra.Command{
	Use:   "hello",
	Short: "Check that the target answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if err := ensureLogin(ctx, authn); err != nil {
			return err
		}

		res, err := client.Get(ctx, "/gmsserver/hello", rest.Returning(rest.ReturnText))
		if err != nil {
			return fmt.Errorf("hello failed: %w", err)
		}
		fmt.Println(res.Text())
		return nil
	},
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify the configured credentials",
	Long: `Log in with the configured credentials and report the result.

Interactive sessions are closed again when the command exits. In API-key
mode no request is made; the key is only checked for presence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureLogin(context.Background(), authn); err != nil {
			return err
		}
		fmt.Printf("✓ Logged in to %s as %s\n", cfg.Target.DisplayName(), credentialLabel())
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log in and end the session through the logout endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if err := ensureLogin(ctx, authn); err != nil {
			return err
		}
		if !authn.Logout(ctx) {
			fmt.Println("Remote logout failed; local session cleared")
			return nil
		}
		fmt.Println("✓ Logged out")
		return nil
	},
}

// mfaCmd represents the mfa command
var mfaCmd = &cobra.Command{
	Use:   "mfa",
	Short: "Log in with a one-time code",
	Long: `Ask the orchestrator to send a one-time code, read the code from stdin
and complete the login with it.`,
	RunE: runMFA,
}

func init() {
	rootCmd.AddCommand(helloCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(mfaCmd)
}

func runMFA(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if !authn.SendMFA(ctx) {
		return fmt.Errorf("one-time code request was not acknowledged")
	}

	fmt.Print("One-time code: ")
	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	if !authn.LoginWithCode(ctx, strings.TrimSpace(code)) {
		return fmt.Errorf("login with one-time code failed")
	}
	fmt.Printf("✓ Logged in to %s as %s\n", cfg.Target.DisplayName(), credentialLabel())
	return nil
}

func credentialLabel() string {
	if cfg.Target.Auth.User != "" && cfg.Target.Auth.Mode != "apikey" {
		return cfg.Target.Auth.User
	}
	return "API key"
}
