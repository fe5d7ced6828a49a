package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spatialmeet/cli/internal/api"
	"github.com/spatialmeet/cli/internal/auth"
	"github.com/spatialmeet/cli/internal/config"
	"github.com/spatialmeet/cli/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagUsername    string
	flagRegister    bool
	flagGuest       bool
	flagEmail       string
	flagDisplayName string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to a SpatialMeet server",
	Long: `Sign in and store the issued session token in your user config directory.

Examples:
  spatialmeet login
  spatialmeet login --username alice
  spatialmeet login --register --username alice --email a@example.com
  spatialmeet login --guest --display-name "Drive-by Dave"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogin(cmd.Context())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.Clear(); err != nil {
			return err
		}
		ui.PrintInfo("Logged out")
		return nil
	},
}

func runLogin(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if flagGuest {
		return enterAsGuest(ctx, cfg)
	}

	username := flagUsername
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	client := newAPIClient(cfg, nil)

	if flagRegister {
		if err := register(ctx, client, username, password); err != nil {
			return err
		}
	}

	stopSpinner := ui.RunConnectionSpinner("Signing in...")
	defer stopSpinner()
	resp, err := client.SignIn(ctx, api.SignInRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	stopSpinner()

	creds := &auth.Credentials{
		Token:       resp.Token,
		UserID:      resp.ID,
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
	}
	if err := auth.Save(creds); err != nil {
		return err
	}

	ui.PrintSuccessf("Signed in as %s", creds.DisplayName)
	return nil
}

// enterAsGuest requests a temporary identity; no account, no password. The
// opaque session token goes through the same credential store as a real
// sign-in.
func enterAsGuest(ctx context.Context, cfg *config.Config) error {
	client := newAPIClient(cfg, nil)

	stopSpinner := ui.RunConnectionSpinner("Entering as guest...")
	defer stopSpinner()
	sess, err := client.EnterAsGuest(ctx, flagDisplayName)
	if err != nil {
		return err
	}
	stopSpinner()

	creds := &auth.Credentials{
		Token:       sess.SessionToken,
		Username:    sess.GuestID,
		DisplayName: sess.DisplayName,
	}
	if err := auth.Save(creds); err != nil {
		return err
	}

	ui.PrintSuccessf("Entered as guest %s", creds.DisplayName)
	return nil
}

func register(ctx context.Context, client *api.Client, username, password string) error {
	email := flagEmail
	var err error
	if email == "" {
		email, err = promptLine("Email: ")
		if err != nil {
			return err
		}
	}

	displayName := flagDisplayName
	if displayName == "" {
		displayName, err = promptLine("Display name: ")
		if err != nil {
			return err
		}
	}

	err = client.SignUp(ctx, api.SignUpRequest{
		Username:    username,
		Email:       email,
		DisplayName: displayName,
		Password:    password,
	})
	if err != nil {
		return err
	}

	ui.PrintSuccess("Account created")
	return nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringVarP(&flagUsername, "username", "u", "", "Username")
	loginCmd.Flags().BoolVar(&flagRegister, "register", false, "Create an account first")
	loginCmd.Flags().BoolVar(&flagGuest, "guest", false, "Enter as a temporary guest, no account needed")
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "Email (registration)")
	loginCmd.Flags().StringVar(&flagDisplayName, "display-name", "", "Display name (registration or guest)")
}
