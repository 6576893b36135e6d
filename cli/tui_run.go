package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/GathsaraH/PDF-QA-Assistant/inbox"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// pendingNotifications bounds how far the bus may run ahead of the UI.
const pendingNotifications = 256

func runAppUI(env *appEnv) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := newAppModel(ctx, env.cfg, env.client, env.bus, env.state, env.logger)
	p := tea.NewProgram(model, tea.WithAltScreen())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			p.Quit()
		case <-ctx.Done():
		}
	}()

	// The bus blocks the emitter until the handler returns and emitters run inside
	// Update, so the handler only queues and a separate goroutine feeds the program.
	pending := make(chan notify.Notification, pendingNotifications)
	unsubscribe := env.bus.Subscribe(func(n notify.Notification) {
		select {
		case pending <- n:
		default:
			env.logger.Warn("notification queue full, dropping", zap.String("message", n.Message))
		}
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case n := <-pending:
				p.Send(notificationMsg{n: n})
			case <-gctx.Done():
				return nil
			}
		}
	})

	if env.cfg.Inbox.Dir != "" {
		watcher, err := inbox.NewWatcher(env.cfg.Inbox, inbox.WithLogger(env.logger))
		if err != nil {
			return err
		}
		g.Go(func() error {
			err := watcher.Run(gctx, func(path string) {
				p.Send(inboxFileMsg{path: path})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				env.logger.Warn("inbox watcher stopped", zap.Error(err))
				env.bus.Emit("Inbox watching stopped: "+err.Error(), notify.SeverityWarning)
			}
			return nil
		})
	}

	_, runErr := p.Run()
	cancel()
	workerErr := g.Wait()

	if runErr != nil {
		return runErr
	}
	if workerErr != nil && !errors.Is(workerErr, context.Canceled) {
		return workerErr
	}
	return nil
}
