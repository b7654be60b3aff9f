package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gurre/awsgate/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// seeds names the resources created up front in --in-memory mode.
type seeds struct {
	Queues  []string
	Topics  []string
	Buckets []string
}

func bindServeFlags(fs *pflag.FlagSet, cfg *config.Config, sd *seeds) {
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "host:port the HTTP server listens on")
	fs.StringVar(&cfg.Region, "region", cfg.Region, "AWS region (defaults to the SDK's resolution chain)")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "override the AWS endpoint for every service, e.g. http://localhost:4566")
	fs.BoolVar(&cfg.InMemory, "in-memory", cfg.InMemory, "serve from in-memory fakes instead of AWS")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text|json)")

	fs.StringVar(&cfg.Realm, "realm", cfg.Realm, "HTTP Basic authentication realm")
	fs.StringVar(&cfg.AdminUser, "admin-user", cfg.AdminUser, "name of the admin principal")
	fs.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "password of the admin principal")
	fs.StringVar(&cfg.AdminPasswordHash, "admin-password-hash", cfg.AdminPasswordHash, "bcrypt hash of the admin password, overrides --admin-password")
	fs.StringVar(&cfg.User, "user", cfg.User, "name of the regular principal")
	fs.StringVar(&cfg.UserPassword, "user-password", cfg.UserPassword, "password of the regular principal")
	fs.StringVar(&cfg.UserPasswordHash, "user-password-hash", cfg.UserPasswordHash, "bcrypt hash of the user password, overrides --user-password")
	fs.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "bcrypt cost for plain passwords")

	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "HTTP idle timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	fs.Int64Var(&cfg.MaxUploadBytes, "max-upload-bytes", cfg.MaxUploadBytes, "maximum request body size in bytes")

	fs.StringSliceVar(&sd.Queues, "seed-queues", sd.Queues, "queues to create in --in-memory mode")
	fs.StringSliceVar(&sd.Topics, "seed-topics", sd.Topics, "topics to create in --in-memory mode")
	fs.StringSliceVar(&sd.Buckets, "seed-buckets", sd.Buckets, "buckets to create in --in-memory mode")
}

// setFlagsFromEnv sets every flag not given on the command line from the
// environment. some-flag is read from PREFIX_SOME_FLAG.
func setFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if alreadySet[f.Name] {
			return
		}
		key := envKey(prefix, f.Name)
		if val := os.Getenv(key); val != "" {
			if serr := fs.Set(f.Name, val); serr != nil && err == nil {
				err = fmt.Errorf("invalid value %q for %s: %v", val, key, serr)
			}
		}
	})
	return err
}

func envKey(prefix, flag string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// newLogger builds the process logger. cfg must already be validated.
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
