package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelforge/internal/config"
	"reelforge/internal/dialogue"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/preflight"
	"reelforge/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			return runServer(commandCtx(cmd), cmd, ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind")
	return cmd
}

func runServer(parent context.Context, cmd *cobra.Command, ctx *commandContext, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another reelforge server holds %s", cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := ctx.logger(true)
	if err != nil {
		return err
	}

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run reelforge status for details"),
			logging.String(logging.FieldImpact, "renders may fail until the check passes"),
		)
	}

	store, err := ctx.openHistory()
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	p, err := pipeline.NewFromConfig(cfg, store, logger)
	if err != nil {
		return err
	}

	var generator server.Generator
	if cfg.LLM.APIKey != "" {
		generator = dialogue.NewGeneratorFromConfig(cfg, logger)
	}

	srv := server.New(server.Options{
		Bind:             cfg.Server.Bind,
		APIToken:         cfg.Server.APIToken,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		MaxUploadBytes:   int64(cfg.Server.MaxUploadMiB) << 20,
		TTSURL:           cfg.TTS.BaseURL,
		AlignmentBackend: cfg.Alignment.Backend,
		LLMConfigured:    generator != nil,
	}, p, generator, store, func(ctx context.Context) preflight.Report {
		return preflight.BuildReport(ctx, cfg)
	}, logger)

	if err := srv.Start(signalCtx); err != nil {
		return err
	}
	logger.Info("reelforge server listening",
		logging.String("addr", srv.Addr()),
		logging.String("alignment", cfg.Alignment.Backend),
		logging.Bool("llm", generator != nil),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

	<-signalCtx.Done()
	logger.Info("reelforge server shutting down")
	srv.Stop()
	return nil
}
