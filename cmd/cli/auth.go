package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/import-wizard/internal/auth"
)

var (
	loginUsername string
	loginPassword string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage import service credentials",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store a token pair",
	Long: `Exchange a username and password for an access/refresh token pair. The pair
is stored in the credentials file and reused by later commands. The password
may also be given through the IMPORT_WIZARD_PASSWORD environment variable.`,
	Example: `  import-wizard auth login --username demo
  IMPORT_WIZARD_PASSWORD=demo import-wizard auth login --username demo`,
	RunE: runLogin,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credentials",
	RunE:  runStatus,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new pair",
	RunE:  runRefresh,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credentials",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, statusCmd, refreshCmd, logoutCmd)

	loginCmd.Flags().StringVar(&loginUsername, "username", "", "Username (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (default $IMPORT_WIZARD_PASSWORD)")
	loginCmd.MarkFlagRequired("username")
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("IMPORT_WIZARD_PASSWORD")
	}
	if password == "" {
		return errors.New("password required: use --password or IMPORT_WIZARD_PASSWORD")
	}

	gateway, refresher, err := newGateway()
	if err != nil {
		return err
	}
	tokens, err := refresher.Login(cmd.Context(), loginUsername, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := gateway.SetTokens(tokens); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	logger.Info().Str("user", loginUsername).Str("path", cfg.Credentials.Path).Msg("Logged in")
	printTokenStatus(tokens)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	gateway, _, err := newGateway()
	if err != nil {
		return err
	}
	tokens := gateway.Tokens()
	if tokens.AccessToken == "" && tokens.RefreshToken == "" {
		fmt.Println("Not logged in")
		return nil
	}
	printTokenStatus(tokens)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	gateway, _, err := newGateway()
	if err != nil {
		return err
	}
	if _, ok := gateway.Refresh(cmd.Context(), gateway.CurrentToken()); !ok {
		return errors.New("refresh failed: log in again")
	}
	printTokenStatus(gateway.Tokens())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	gateway, _, err := newGateway()
	if err != nil {
		return err
	}
	if err := gateway.SetTokens(auth.Tokens{}); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func printTokenStatus(tokens auth.Tokens) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Credentials\t%s\n", cfg.Credentials.Path)
	fmt.Fprintf(w, "Service\t%s\n", cfg.API.BaseURL)
	if subject := auth.Subject(tokens.AccessToken); subject != "" {
		fmt.Fprintf(w, "Subject\t%s\n", subject)
	}
	if exp, ok := auth.ExpiresAt(tokens.AccessToken); ok {
		state := "valid"
		if time.Now().After(exp) {
			state = "expired"
		}
		fmt.Fprintf(w, "Access Token\t%s (expires %s)\n", state, exp.Local().Format(time.RFC3339))
	} else {
		fmt.Fprintf(w, "Access Token\t%s\n", presence(tokens.AccessToken))
	}
	fmt.Fprintf(w, "Refresh Token\t%s\n", presence(tokens.RefreshToken))
	w.Flush()
}

func presence(token string) string {
	if strings.TrimSpace(token) == "" {
		return "none"
	}
	return "present"
}
