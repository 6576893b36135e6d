package cli

import (
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/session"
	"github.com/GathsaraH/PDF-QA-Assistant/upload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF and make it the active document",
	Long: `Upload a PDF to the document service and wait until it has been processed.

The new document becomes the active session for ask and history.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	out := stdoutPrinter()
	unsubscribe := env.bus.Subscribe(out.Notification)
	defer unsubscribe()

	file, err := upload.FileFromPath(expandHome(args[0]))
	if err != nil {
		return err
	}

	machine := upload.NewMachine(upload.PolicyFromConfig(env.cfg.Upload),
		upload.WithNotifier(env.bus),
		upload.WithLogger(env.logger),
		upload.WithObserver(func(from, to upload.State) {
			switch to {
			case upload.Transferring:
				out.Step("uploading %s (%s)", file.Name, upload.FormatSize(file.Size))
			case upload.Processing:
				out.Step("processing")
			}
		}),
	)

	done, err := upload.NewRunner(machine, env.client).Run(cmd.Context(), file, session.NewID())
	if err != nil {
		return err
	}

	if err := env.state.Save(session.State{
		SessionID: done.SessionID,
		Filename:  done.Filename,
		UpdatedAt: time.Now(),
	}); err != nil {
		env.logger.Warn("failed to remember session", zap.Error(err))
	}
	out.Muted("session %s", done.SessionID)
	return nil
}
