package cli

import (
	"github.com/GathsaraH/PDF-QA-Assistant/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Serve the document tools to MCP clients over stdio",
	Long: `Start an MCP server on stdin/stdout exposing pdfqa_list_documents, pdfqa_ask,
pdfqa_history and pdfqa_health. Tools default to the last active session.`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	rootCmd.AddCommand(mcpServeCmd)
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol, so logs only go to the file.
	env, err := loadEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer env.Close()

	env.logger.Info("mcp server starting", zap.String("api_url", env.client.BaseURL()))
	return mcp.NewServer(env.client, env.state, env.logger).Serve()
}
