package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/config"
	"github.com/tubeq/tubeq/internal/utils"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the auth token used by the tubeq daemon",
	Run: func(cmd *cobra.Command, args []string) {
		token := ensureAuthToken()
		fmt.Println(token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func tokenPath() string {
	return filepath.Join(config.GetRuntimeDir(), "token")
}

// ensureAuthToken returns the persisted API token, creating one on first use.
func ensureAuthToken() string {
	path := tokenPath()
	if data, err := os.ReadFile(path); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}

	token := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		utils.Debug("Error creating runtime dir: %v", err)
		return token
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		utils.Debug("Error writing token file: %v", err)
	}
	return token
}
