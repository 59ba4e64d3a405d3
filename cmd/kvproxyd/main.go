package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdutil "github.com/leg100/kvproxy/cmd"
	"github.com/leg100/kvproxy/internal"
	"github.com/leg100/kvproxy/internal/api"
	"github.com/leg100/kvproxy/internal/http"
	"github.com/leg100/kvproxy/internal/kv"
	"github.com/leg100/kvproxy/internal/logr"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// pingTimeout bounds the startup check that redis is reachable.
const pingTimeout = 5 * time.Second

func main() {
	// Configure ^C to terminate program
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-ctx.Done()
		// Stop handling ^C; another ^C will exit the program.
		cancel()
	}()

	if err := cmdutil.LoadDotEnv(".env"); err != nil {
		cmdutil.PrintError(err)
		os.Exit(1)
	}

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		cmdutil.PrintError(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var (
		loggerCfg *logr.Config
		redisCfg  *kv.RedisConfig
		serverCfg *http.ServerConfig
	)

	cmd := &cobra.Command{
		Use:           "kvproxyd",
		Short:         "kvproxy daemon",
		Long:          "kvproxyd serves an HTTP API for getting and setting keys in redis.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       internal.Version,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Fail fast on invalid config before anything connects.
			if err := redisCfg.Validate(); err != nil {
				return err
			}
			if err := serverCfg.Validate(); err != nil {
				return err
			}

			logger, err := logr.New(loggerCfg)
			if err != nil {
				return err
			}

			redis, err := kv.NewRedisStore(logger.WithValues("component", "redis").Logger, *redisCfg)
			if err != nil {
				return fmt.Errorf("setting up redis store: %w", err)
			}
			defer redis.Close()

			checkRedis(cmd.Context(), logger, redis, *redisCfg)

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			store, err := kv.NewInstrumentedStore(redis, registry)
			if err != nil {
				return fmt.Errorf("registering store metrics: %w", err)
			}
			serverCfg.Registry = registry

			serverCfg.Handlers = append(serverCfg.Handlers, api.NewHandlers(logger.Logger, store))
			server, err := http.NewServer(logger.Logger, *serverCfg)
			if err != nil {
				return fmt.Errorf("setting up http server: %w", err)
			}

			ln, err := net.Listen("tcp", serverCfg.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", serverCfg.Addr(), err)
			}
			// blocks
			if err := server.Start(cmd.Context(), ln); err != nil {
				return fmt.Errorf("http server terminated: %w", err)
			}
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(out)

	loggerCfg = logr.NewConfigFromFlags(cmd.Flags())
	redisCfg = kv.NewRedisConfigFromFlags(cmd.Flags())
	serverCfg = http.NewServerConfigFromFlags(cmd.Flags())

	if err := cmdutil.SetFlagsFromEnvVariables(cmd.Flags()); err != nil {
		return errors.Wrap(err, "failed to populate config from environment vars")
	}

	return cmd.ExecuteContext(ctx)
}

// checkRedis reports whether redis is reachable. An unreachable redis is not
// fatal: requests report the failure until it becomes reachable.
func checkRedis(ctx context.Context, logger logr.Logger, store *kv.RedisStore, cfg kv.RedisConfig) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		logger.Error(err, "redis is unreachable", "address", cfg.Addr(), "db", cfg.DB)
		return
	}
	logger.Info("connected to redis", "address", cfg.Addr(), "db", cfg.DB)
}
