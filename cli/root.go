// Package cli implements the pdfqa command line: the interactive app and the plain
// subcommands that script the same operations.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/GathsaraH/PDF-QA-Assistant/config"
	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/GathsaraH/PDF-QA-Assistant/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	apiURL     string
	rootNoUI   bool
)

var rootCmd = &cobra.Command{
	Use:   "pdfqa",
	Short: "Ask questions about your PDF documents",
	Long: `pdfqa uploads PDF documents to the document service and answers questions
about them, citing the pages each answer comes from.

Run without arguments in a terminal to open the interactive app. The subcommands
script the same operations for pipes and automation.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Document service base URL (overrides config)")
	rootCmd.Flags().BoolVar(&rootNoUI, "no-ui", false, "Do not open the interactive app")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	if !shouldUseAppUI(isInteractiveTerminal(), rootNoUI) {
		return cmd.Help()
	}

	env, err := loadEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer env.Close()

	return runAppUI(env)
}

// appEnv is the wiring shared by every command.
type appEnv struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *remote.Client
	bus      *notify.Bus
	state    *session.StateStore
	shutdown func(context.Context) error
}

// loadEnv reads configuration and builds the logger, client, bus and state store.
// console adds a stderr logger for commands that do not own the terminal.
func loadEnv(ctx context.Context, console bool) (*appEnv, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(apiURL); v != "" {
		cfg.API.URL = strings.TrimRight(v, "/")
	}

	logger, err := logging.New(cfg.Log, console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	shutdown, err := remote.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	client := remote.NewClient(cfg.API.URL,
		remote.WithTimeout(cfg.API.Timeout),
		remote.WithLogger(logger),
	)

	return &appEnv{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		bus:      notify.NewBus(logger),
		state:    session.NewStateStore(config.GetStatePath()),
		shutdown: shutdown,
	}, nil
}

func (e *appEnv) Close() {
	if e.bus != nil {
		_ = e.bus.Close()
	}
	if e.shutdown != nil {
		_ = e.shutdown(context.Background())
	}
	_ = e.logger.Sync()
}

// resolveSessionID picks the explicit session, else the one remembered from the last run.
func (e *appEnv) resolveSessionID(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	st, err := e.state.Load()
	if err != nil {
		return "", err
	}
	if st.SessionID == "" {
		return "", fmt.Errorf("no active session: upload a document or pass --session")
	}
	return st.SessionID, nil
}

func stdoutPrinter() *printer {
	return newPrinter(os.Stdout, shouldUseColor(isTerminalFD(os.Stdout)))
}
