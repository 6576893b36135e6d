package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/registry"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/GathsaraH/PDF-QA-Assistant/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	docsSearch    string
	docsDeleteYes bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List and manage uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a document and its conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

var docsUseCmd = &cobra.Command{
	Use:   "use <session-id>",
	Short: "Make a document the active session",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsUse,
}

func init() {
	docsCmd.Flags().StringVar(&docsSearch, "search", "", "Case-insensitive filename filter")
	docsDeleteCmd.Flags().BoolVarP(&docsDeleteYes, "yes", "y", false, "Skip the confirmation prompt")
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsUseCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	dir := registry.NewDirectory(env.client, nil, env.logger)
	if _, err := dir.Refresh(cmd.Context()); err != nil {
		return err
	}
	active, _ := env.state.Load()
	printDocuments(stdoutPrinter(), dir.Search(docsSearch), docsSearch, active.SessionID)
	return nil
}

func printDocuments(out *printer, docs []remote.DocumentRecord, query, activeID string) {
	if len(docs) == 0 {
		out.Muted("%s", registry.EmptyMessage(query))
		return
	}
	for _, d := range docs {
		marker := " "
		if d.SessionID == activeID {
			marker = "*"
		}
		out.Line("%s %s  %d chunks  %s", marker, d.Filename, d.ChunkCount, formatUploadedAt(d.UploadedAt.Time))
		out.Muted("  %s", d.SessionID)
	}
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	out := stdoutPrinter()
	unsubscribe := env.bus.Subscribe(out.Notification)
	defer unsubscribe()

	dir := registry.NewDirectory(env.client, env.bus, env.logger)
	if _, err := dir.Refresh(cmd.Context()); err != nil {
		env.logger.Warn("listing before delete failed", zap.Error(err))
	}

	sessionID := args[0]
	name := sessionID
	if rec, ok := dir.Find(sessionID); ok {
		name = rec.Filename
	}
	if !docsDeleteYes {
		ok, err := confirm(os.Stdin, os.Stdout, fmt.Sprintf("Delete %q? [y/N] ", name))
		if err != nil {
			return err
		}
		if !ok {
			out.Muted("Cancelled")
			return nil
		}
	}

	active, _ := env.state.Load()
	outcome, err := dir.Delete(cmd.Context(), sessionID, active.SessionID)
	if err != nil {
		return err
	}
	return applyDeleteToState(env.state, dir, outcome, out)
}

// applyDeleteToState moves the remembered session off a deleted document.
func applyDeleteToState(store *session.StateStore, dir *registry.Directory, outcome registry.DeleteOutcome, out *printer) error {
	if !outcome.WasActive {
		return nil
	}
	if outcome.Empty() {
		out.Muted("No documents left")
		return store.Clear()
	}
	rec, _ := dir.Find(outcome.Fallback)
	out.Muted("Active document is now %s", rec.Filename)
	return store.Save(session.State{SessionID: outcome.Fallback, Filename: rec.Filename, UpdatedAt: time.Now()})
}

func runDocsUse(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	dir := registry.NewDirectory(env.client, nil, env.logger)
	if _, err := dir.Refresh(cmd.Context()); err != nil {
		return err
	}
	rec, ok := dir.Find(args[0])
	if !ok {
		return fmt.Errorf("no document with session %s", args[0])
	}
	if err := env.state.Save(session.State{SessionID: rec.SessionID, Filename: rec.Filename, UpdatedAt: time.Now()}); err != nil {
		return err
	}
	stdoutPrinter().Line("Active document: %s", rec.Filename)
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
