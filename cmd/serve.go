package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/urfave/cli/v2"

	"github.com/quarterdeck/internal/api"
	"github.com/quarterdeck/internal/config"
	"github.com/quarterdeck/internal/gateway"
	"github.com/quarterdeck/internal/jobqueue"
	"github.com/quarterdeck/internal/lifecycle"
	"github.com/quarterdeck/internal/macro"
	"github.com/quarterdeck/internal/router"
	"github.com/quarterdeck/internal/store/postgres"
)

// ServeCommand returns the serve command, which runs the bot until
// interrupted.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the support-desk bot",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the HTTP port from the config file",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	st := postgres.New(pool)
	gw := gateway.NewSlackGateway(slack.New(cfg.Slack.BotToken))

	queueCfg := jobqueue.DefaultQueueConfig()
	if cfg.Queue.MaxWorkers > 0 {
		queueCfg.MaxWorkers = cfg.Queue.MaxWorkers
	}
	if cfg.Queue.MaxRetries > 0 {
		queueCfg.MaxRetries = cfg.Queue.MaxRetries
	}
	queue, err := jobqueue.New(pool, gw, queueCfg, log)
	if err != nil {
		return fmt.Errorf("failed to create job queue: %w", err)
	}

	engine := lifecycle.New(st, gw, lifecycle.Channels{
		Support: cfg.Slack.SupportChannel,
		Request: cfg.Slack.RequestChannel,
	}, log)

	macros := macro.New(st, gw, engine, macro.Channels{
		Support:     cfg.Slack.SupportChannel,
		Request:     cfg.Slack.RequestChannel,
		Maintenance: cfg.Slack.MaintenanceChannel,
	}, cfg.Macros.Scope, log)

	rtr := router.New(st, gw, engine, macros, queue, router.Channels{
		Support:     cfg.Slack.SupportChannel,
		Request:     cfg.Slack.RequestChannel,
		Maintenance: cfg.Slack.MaintenanceChannel,
	}, cfg.Slack.WorkspaceURL, log)

	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			log.Error().Err(err).Msg("job queue did not stop cleanly")
		}
	}()

	srv := api.NewServer(cfg.Server.Port, cfg.Slack.SigningSecret, rtr, log)

	log.Info().
		Str("support_channel", cfg.Slack.SupportChannel).
		Str("request_channel", cfg.Slack.RequestChannel).
		Msg("starting support-desk bot")

	return srv.Start(ctx)
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
