package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pilab-dev/identity-mongodb/config"
	"github.com/pilab-dev/identity-mongodb/internal/idx"
	"github.com/pilab-dev/identity-mongodb/internal/metrics"
	"github.com/pilab-dev/identity-mongodb/log"
	"github.com/pilab-dev/identity-mongodb/mongodb"
	"github.com/pilab-dev/identity-mongodb/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const appName = "identityctl"

var (
	cfgFile  string
	logLevel string
	traceRun bool

	appLogger = log.Nop()
	provider  *mongodb.Provider

	tracerProvider *sdktrace.TracerProvider
	commandSpan    trace.Span
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "identityctl manages users and roles stored in MongoDB",
	Long: `A command-line interface for the identity store: create the indexes,
inspect and manage users and roles directly in the backing MongoDB database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if traceRun {
			cfg.TracingEnabled = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		appLogger = log.NewZerologAdapter(level, cfg.LogPretty)

		ctx := cmd.Context()
		if cfg.TracingEnabled {
			tracerProvider, err = tracing.InitTracerProvider(cfg.ServiceName)
			if err != nil {
				return fmt.Errorf("failed to initialize tracer provider: %w", err)
			}
			ctx, commandSpan = tracing.Tracer().Start(ctx, cmd.CommandPath())
			cmd.SetContext(ctx)
		}

		ids, err := idx.ByName(cfg.IDGenerator)
		if err != nil {
			return err
		}
		storeMetrics, err := metrics.NewStoreMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}

		appLogger.Debug(ctx, "Connecting to MongoDB", log.Fields{"database": cfg.MongoDBName})
		provider, err = mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName, mongodb.Options{
			ConnectTimeout:  cfg.ConnectTimeout,
			UsersCollection: cfg.UsersCollection,
			RolesCollection: cfg.RolesCollection,
			IDGenerator:     ids,
			Logger:          appLogger,
			Metrics:         storeMetrics,
		})
		return err
	},
}

// shutdown releases what PersistentPreRunE acquired. It runs whether or not
// the command succeeded.
func shutdown(ctx context.Context) {
	if provider != nil {
		if err := provider.Disconnect(ctx); err != nil {
			appLogger.Warn(ctx, "Error disconnecting from MongoDB", log.Fields{"error": err.Error()})
		}
	}
	if commandSpan != nil {
		commandSpan.End()
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			appLogger.Warn(ctx, "Error shutting down tracer provider", log.Fields{"error": err.Error()})
		}
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	shutdown(ctx)
	if err != nil {
		appLogger.Error(ctx, "Command failed", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is identity.yaml in ., /etc/identity or $HOME/.identity)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&traceRun, "trace", false, "export a trace of the command to stderr")
}
