package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gurre/awsgate/auth"
	"github.com/gurre/awsgate/aws"
	"github.com/gurre/awsgate/config"
	"github.com/gurre/awsgate/integration/mock"
	"github.com/gurre/awsgate/metrics"
	"github.com/gurre/awsgate/objectstore"
	"github.com/gurre/awsgate/queue"
	"github.com/gurre/awsgate/secret"
	"github.com/gurre/awsgate/server"
	"github.com/gurre/awsgate/topic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	cfg := config.Default()
	sd := &seeds{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := setFlagsFromEnv(cmd.Flags(), envPrefix); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, sd, newLogger(cfg))
		},
	}
	bindServeFlags(cmd.Flags(), cfg, sd)
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, sd *seeds, logger *logrus.Logger) error {
	clients, err := buildClients(ctx, cfg, sd, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newApp(cfg, clients, logger, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      app.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.ListenAddr,
			"inMemory": cfg.InMemory,
			"version":  version,
		}).Info("starting awsgate")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// buildClients returns the real AWS clients, or in-memory fakes seeded with
// sd when cfg.InMemory is set.
func buildClients(ctx context.Context, cfg *config.Config, sd *seeds, logger logrus.FieldLogger) (*aws.Clients, error) {
	if cfg.InMemory {
		s3 := mock.NewS3Client(sd.Buckets...)
		s3.AutoCreateBuckets = true

		sqs := mock.NewSQSClient()
		for _, q := range sd.Queues {
			logger.WithField("queueUrl", sqs.CreateQueue(q)).Info("created in-memory queue")
		}
		sns := mock.NewSNSClient()
		for _, t := range sd.Topics {
			logger.WithField("topicArn", sns.CreateTopic(t)).Info("created in-memory topic")
		}

		return &aws.Clients{
			SQS:            sqs,
			SNS:            sns,
			S3:             s3,
			SecretsManager: mock.NewSecretsManagerClient(),
		}, nil
	}

	awsCfg, err := aws.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return aws.NewClients(awsCfg, cfg.Endpoint), nil
}

// newApp builds the principal table and wires the adapters into the HTTP
// application.
func newApp(cfg *config.Config, clients *aws.Clients, logger logrus.FieldLogger, reg *prometheus.Registry) (*server.App, error) {
	table, err := auth.NewTable(principals(cfg), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to build principal table: %w", err)
	}

	return &server.App{
		Queue:   queue.New(clients.SQS, logger.WithField("adapter", "sqs")),
		Topic:   topic.New(clients.SNS, logger.WithField("adapter", "sns")),
		Objects: objectstore.New(clients.S3, logger.WithField("adapter", "s3")),
		Secrets: secret.New(clients.SecretsManager, logger.WithField("adapter", "secretsmanager")),

		Gate:     auth.NewGate(table, auth.DefaultPolicy(), cfg.Realm, logger.WithField("component", "auth")),
		Metrics:  metrics.NewMetrics(reg),
		Gatherer: reg,

		Logger:       logger,
		Version:      version,
		MaxBodyBytes: cfg.MaxUploadBytes,
	}, nil
}

func principals(cfg *config.Config) []auth.User {
	return []auth.User{
		{Name: cfg.AdminUser, Password: cfg.AdminPassword, PasswordHash: cfg.AdminPasswordHash, Role: auth.RoleAdmin},
		{Name: cfg.User, Password: cfg.UserPassword, PasswordHash: cfg.UserPasswordHash, Role: auth.RoleUser},
	}
}
