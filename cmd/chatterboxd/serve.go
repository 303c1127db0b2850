package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/chatterbox-serve/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Chatterbox HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			resolver := buildResolver(cfg)

			svc, err := buildService(cmd.Context(), cfg, resolver)
			if err != nil {
				return err
			}

			jobs, err := buildJobs(cfg)
			if err != nil {
				return err
			}

			deps := server.Deps{
				Synth:  svc,
				Voices: resolver,
			}
			if jobs != nil {
				deps.Jobs = jobs
			}

			srv := server.New(cfg.Server.ListenAddr, deps,
				server.WithWorkers(cfg.Server.Workers),
				server.WithMaxTextLen(cfg.Server.MaxTextLen),
				server.WithRequestTimeout(time.Duration(cfg.Server.RequestTimeout)*time.Second),
				server.WithPollInterval(time.Duration(cfg.Backend.PollInterval)*time.Millisecond),
				server.WithStreamTimeout(time.Duration(cfg.Backend.StreamTimeout)*time.Second),
			).WithShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeout) * time.Second)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	return cmd
}
