package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const keyringService = "streamkit"
const keyringUser = "api-token"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Commands for managing the API token used to request sessions.`,
}

var authSetTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Store the API token",
	Long:  `Stores the API token in the operating system keyring.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Set(keyringService, keyringUser, args[0]); err != nil {
			return fmt.Errorf("failed to store api token: %w", err)
		}
		fmt.Println("Token stored.")
		return nil
	},
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Display the stored API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := keyring.Get(keyringService, keyringUser)
		if err != nil {
			return fmt.Errorf("no api token found for streamkit")
		}

		fmt.Println(token)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(keyringService, keyringUser); err != nil {
			fmt.Println("streamkit has no stored token")
			return nil
		}

		fmt.Println("Token removed.")
		return nil
	},
}

// apiToken loads the stored token; an empty string means anonymous access.
func apiToken() string {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		return ""
	}
	return token
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetTokenCmd, authTokenCmd, authLogoutCmd)
}
