package cli

import (
	"fmt"

	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/spf13/cobra"
)

var historySession string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation kept for a session",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "", "Session to show (default: last active session)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	sessionID, err := env.resolveSessionID(historySession)
	if err != nil {
		return err
	}

	history, err := env.client.History(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	printHistory(stdoutPrinter(), history)
	return nil
}

func printHistory(out *printer, history []remote.HistoryMessage) {
	if len(history) == 0 {
		out.Muted("No messages yet")
		return
	}
	for _, h := range history {
		stamp := "--:--"
		if !h.CreatedAt.IsZero() {
			stamp = h.CreatedAt.Local().Format("15:04")
		}
		out.Title("%s %s", stamp, h.Role)
		out.Line("%s", h.Content)
		if h.Role == remote.RoleAssistant && len(h.Sources) > 0 {
			out.Muted("%s", sourceCount(len(h.Sources)))
		}
		out.Line("")
	}
}
