package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/cli/config"
	controller "github.com/m-mizutani/releasepost/pkg/controller/http"
	"github.com/m-mizutani/releasepost/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe(loggerCfg *config.Logger) *cli.Command {
	var (
		serverCfg    config.Server
		githubCfg    config.GitHub
		publisherCfg config.Publisher
		storageCfg   config.Storage
		slackCfg     config.Slack
		archiveCfg   config.Archive
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, publisherCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Rebuild the logger so that secrets given to this command are redacted as well
			loggerCfg.Secrets = append(loggerCfg.Secrets, githubCfg.WebhookSecret, slackCfg.WebhookURL)
			logger, err := loggerCfg.Configure()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)

			if githubCfg.WebhookSecret == "" && publisherCfg.SettingsFile == "" {
				logger.Warn("No webhook secret configured; every delivery will be rejected until one is set")
			}

			logger.Info("Starting releasepost server",
				slog.String("addr", serverCfg.Addr),
				slog.String("storage", storageCfg.Backend),
				slog.Bool("custom_post_type", publisherCfg.CustomPostType),
				slog.Bool("strict_status", serverCfg.StrictStatus),
			)

			repo, closeRepo, err := storageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure storage")
			}
			defer closeRepo()

			archiver, closeArchiver, err := archiveCfg.Configure(ctx, storageCfg.ClientOptions()...)
			if err != nil {
				return goerr.Wrap(err, "failed to configure payload archive")
			}
			defer closeArchiver()

			provider := publisherCfg.Provider(&githubCfg)

			// Create use cases
			var ingestOpts []usecase.IngestOption
			if notifier := slackCfg.Notifier(); notifier != nil {
				ingestOpts = append(ingestOpts, usecase.WithNotifier(notifier))
			}
			if archiver != nil {
				ingestOpts = append(ingestOpts, usecase.WithArchiver(archiver))
			}
			ingestUC := usecase.NewIngest(repo, provider, ingestOpts...)

			queryUC, err := usecase.NewQuery(repo, provider)
			if err != nil {
				return goerr.Wrap(err, "failed to create query use case")
			}

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				ingestUC,
				queryUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithStrictStatus(serverCfg.StrictStatus),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "HTTP server error")
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-errCh:
				return err
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
