package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"devhelper/internal/chat"
	"devhelper/internal/logging"
	"devhelper/internal/server"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API on the configured port (default 3000, or $PORT).

Endpoints:
  POST /api/qa-agent/test              run acceptance tests for a ticket
  POST /api/pr-analyzer/analyze        review the PRs linked to a ticket
  POST /api/ticket-creator/generate    draft a ticket
  POST /api/ticket-creator/create      draft and file a ticket
  POST /api/ticket-creator/chat/*      chat assistant (start, message, generate, create)
  GET  /api/health                     service availability
  GET  /metrics                        Prometheus metrics`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handlerCfg := server.Config{
		QA:           a.runner,
		Review:       a.analyzer,
		Tickets:      a.drafter,
		Chat:         a.assistant,
		Services:     cfg.Services(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigin:   cfg.Server.CORSOrigin,
	}
	if a.metrics != nil {
		handlerCfg.Observer = a.metrics
		handlerCfg.Metrics = a.metrics.Handler()
		handlerCfg.MetricsPath = cfg.Metrics.Path
	}
	handler, err := server.NewHandler(handlerCfg)
	if err != nil {
		return err
	}

	services := cfg.Services()
	logging.Boot("PR analyzer available: %v", services.PRAnalyzer)
	logging.Boot("QA agent available: %v", services.QAAgent)
	logging.Boot("Ticket creator available: %v", services.TicketCreator)

	srv := server.New(cfg.Addr(), handler, server.Options{
		ReadTimeout:     cfg.GetReadTimeout(),
		WriteTimeout:    cfg.GetWriteTimeout(),
		ShutdownTimeout: cfg.GetShutdownTimeout(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		chat.RunReaper(gctx, a.assistant.Store(), cfg.GetReapInterval(), a.metrics.SetChatSessions)
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logging.BootError("Server stopped: %v", err)
		return err
	}
	logging.Boot("Stopped")
	return nil
}
