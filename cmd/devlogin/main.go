// Package main implements the devlogin CLI, the constrained-device side of
// the device authorization flow.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/platform-labs/deviceauth/internal/devlogin"
)

var (
	idpURL string
	apiURL string
)

var rootCmd = &cobra.Command{
	Use:   "devlogin",
	Short: "Log in to the platform via the device authorization flow",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run the device flow and call the protected platform resource",
	RunE:  runLogin,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&idpURL, "idp-url", "http://127.0.0.1:8081", "identity provider base URL")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://127.0.0.1:8082", "platform API base URL")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	client := devlogin.New(idpURL, apiURL)

	tok, err := client.Login(cmd.Context())
	if err != nil {
		return fmt.Errorf("device login failed: %w", err)
	}

	fmt.Println("Token issued. Calling protected API...")
	fmt.Println()

	resource, err := client.CallResource(cmd.Context(), tok)
	if err != nil {
		return fmt.Errorf("resource call failed: %w", err)
	}

	out, err := json.MarshalIndent(resource, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
