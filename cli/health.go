package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the document service is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	out := stdoutPrinter()
	if err := env.client.Health(cmd.Context()); err != nil {
		return fmt.Errorf("service at %s is unavailable: %w", env.client.BaseURL(), err)
	}
	out.OK("healthy (%s)", env.client.BaseURL())
	return nil
}
