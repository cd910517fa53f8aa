package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	httpAdapter "github.com/bft-labs/tickquery/internal/adapters/http"
	"github.com/bft-labs/tickquery/internal/adapters/kafka"
	"github.com/bft-labs/tickquery/internal/adapters/memory"
	"github.com/bft-labs/tickquery/internal/adapters/protobuf"
	"github.com/bft-labs/tickquery/internal/cliconfig"
	"github.com/bft-labs/tickquery/internal/telemetry"
	"github.com/bft-labs/tickquery/pkg/log"
	"github.com/bft-labs/tickquery/pkg/tickquery"
	"github.com/bft-labs/tickquery/plugins/configwatcher"
)

const longHelp = `Query an endpoint on a fixed interval and report every reply.

Each tick builds a message (timestamp, entity path, body), encodes it with
protobuf and issues one query. Replies stream back and are logged as they
arrive; error replies are logged and never stop the loop.

Transports:
  memory  in-process ack responder, no infrastructure needed
  http    HTTP/2 (h2c for http:// URLs), see "tickquery respond"
  kafka   request topic {endpoint}, replies on {endpoint}.replies`

var exampleUsage = strings.TrimSpace(`
  tickquery --count 3
  tickquery respond --listen :7447 &
  tickquery --transport http --service-url http://localhost:7447 --interval 500ms
  tickquery --transport kafka --brokers localhost:9092
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	root := newRootCommand()
	root.AddCommand(newRespondCommand())

	if err := root.Execute(); err != nil {
		bootLog.Error().Err(err).Msg("tickquery")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "tickquery",
		Short:         "Periodically query an endpoint and report the streamed replies",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, cfgPath, &cfg)
			if err != nil {
				return err
			}

			zl, err := cliconfig.NewLogger(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			zl.Info().Interface("config", cfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.OTLPEndpoint != "" {
				shutdown, err := telemetry.Init(ctx, cfg.OTLPEndpoint, "tickquery", getVersion())
				if err != nil {
					return fmt.Errorf("init telemetry: %w", err)
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdown(sctx); err != nil {
						zl.Warn().Err(err).Msg("telemetry shutdown")
					}
				}()
			}

			opts := []tickquery.Option{tickquery.WithLogger(log.NewZerologAdapterWithLogger(zl))}
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgFile}))
			}

			client, err := tickquery.New(cfg.ClientConfig(), opts...)
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}
			if err := client.Start(ctx); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				zl.Info().Msg("received signal, stopping...")
			case <-client.Done():
			}

			if err := client.Stop(); err != nil && !errors.Is(err, tickquery.ErrNotRunning) {
				return fmt.Errorf("stop client: %w", err)
			}
			if client.Status() == tickquery.StateCrashed {
				return fmt.Errorf("query loop crashed: %w", client.Err())
			}
			return nil
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.tickquery/config.toml)")
	f.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "endpoint to query")
	f.DurationVar(&cfg.Interval, "interval", cfg.Interval, "delay between query cycles")
	f.StringVar(&cfg.EntityPath, "entity-path", cfg.EntityPath, "entity path of outgoing messages")
	f.StringVar(&cfg.Body, "body", cfg.Body, "body of outgoing messages")
	f.IntVar(&cfg.Count, "count", cfg.Count, "stop after this many cycles (0 runs until interrupted)")
	f.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport: memory, http or kafka")
	f.StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "base URL for the http transport")
	f.StringSliceVar(&cfg.Brokers, "brokers", cfg.Brokers, "Kafka bootstrap brokers")
	f.StringVar(&cfg.ReplyTopic, "reply-topic", cfg.ReplyTopic, "Kafka reply topic (default: {endpoint}.replies)")
	f.DurationVar(&cfg.ReplyTimeout, "reply-timeout", cfg.ReplyTimeout, "Kafka wait for the next reply before a stream ends")
	f.DurationVar(&cfg.QueryTimeout, "query-timeout", cfg.QueryTimeout, "bound on one query and its replies (0 disables)")
	f.IntVar(&cfg.SetupAttempts, "setup-attempts", cfg.SetupAttempts, "session setup attempts before giving up")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP/gRPC collector for metrics (optional)")

	return root
}

// loadConfig applies file and environment configuration under the flags
// that were set explicitly, then validates. Returns the config file used.
func loadConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else if cfgPath != "" {
		return "", fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfgFile, nil
}

func newRespondCommand() *cobra.Command {
	var (
		listen    = ":7447"
		endpoint  = tickquery.DefaultConfig().Endpoint
		body      = memory.DefaultAckBody
		transport = string(tickquery.TransportHTTP)
		brokers   []string
		logLevel  = "info"
	)

	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Answer queries with an ack reply",
		Long: `Serve an ack responder for the http transport (h2c on --listen) or the
kafka transport (consuming the endpoint topic on --brokers).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			zl, err := cliconfig.NewLogger(os.Stderr, logLevel)
			if err != nil {
				return err
			}
			logger := log.NewZerologAdapterWithLogger(zl)
			responder := memory.AckResponder(protobuf.NewCodec(), body)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			switch tickquery.Transport(transport) {
			case tickquery.TransportHTTP:
				return serveHTTP(ctx, listen, endpoint, responder, logger)
			case tickquery.TransportKafka:
				session, err := kafka.NewSession(ctx, kafka.Config{Brokers: brokers}, logger)
				if err != nil {
					return err
				}
				defer session.Close()

				logger.Info("responding", log.String("transport", transport), log.String("endpoint", endpoint))
				if err := session.Serve(ctx, endpoint, responder); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			default:
				return fmt.Errorf("%w: %q", tickquery.ErrUnknownTransport, transport)
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&listen, "listen", listen, "listen address for the http transport")
	f.StringVar(&endpoint, "endpoint", endpoint, "endpoint to answer")
	f.StringVar(&body, "body", body, "body of every reply")
	f.StringVar(&transport, "transport", transport, "transport: http or kafka")
	f.StringSliceVar(&brokers, "brokers", kafka.DefaultBrokers, "Kafka bootstrap brokers")
	f.StringVar(&logLevel, "log-level", logLevel, "log level: debug, info, warn, error")

	return cmd
}

func serveHTTP(ctx context.Context, listen, endpoint string, responder tickquery.Queryable, logger log.Logger) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           httpAdapter.NewH2CHandler(httpAdapter.NewHandler(endpoint, responder, logger)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("responding", log.String("listen", listen), log.String("endpoint", endpoint))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
