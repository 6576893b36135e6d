package cli

import (
	"fmt"
	"strings"

	"github.com/GathsaraH/PDF-QA-Assistant/conversation"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/spf13/cobra"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the active document",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Session to ask (default: last active session)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	sessionID, err := env.resolveSessionID(askSession)
	if err != nil {
		return err
	}

	var rec notify.Recorder
	chat := conversation.NewMachine(env.client, &rec, env.logger)
	chat.Activate(sessionID, true)

	out := stdoutPrinter()
	sendErr := chat.Send(cmd.Context(), strings.Join(args, " "))
	if sendErr != nil && len(rec.All()) == 0 {
		// Rejected before reaching the service.
		return sendErr
	}
	printAnswer(out, chat.Messages())
	if sendErr != nil {
		out.Notifications(errorsOnly(rec.All()))
		return fmt.Errorf("question not answered")
	}
	return nil
}

// printAnswer prints the last assistant reply of messages.
func printAnswer(out *printer, messages []conversation.Message) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != remote.RoleAssistant || msg.Synthetic {
			continue
		}
		out.Line("%s", msg.Content)
		if len(msg.Sources) > 0 {
			out.Muted("Sources: %s", strings.Join(msg.Sources, ", "))
		}
		return
	}
}

func errorsOnly(ns []notify.Notification) []notify.Notification {
	var out []notify.Notification
	for _, n := range ns {
		if n.Severity == notify.SeverityError {
			out = append(out, n)
		}
	}
	return out
}
