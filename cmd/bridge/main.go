package main

import (
	"context"
	"fmt"
	"im-bridge/auth"
	"im-bridge/infrastructure/gateway"
	"im-bridge/infrastructure/grpc/server"
	"im-bridge/internal"
	"im-bridge/moderation"
	"im-bridge/observability"
	"im-bridge/parser"
	"im-bridge/repositories"
	"im-bridge/runtime"
	"im-bridge/runtime/workers"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bridge terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns the shutdown order:
// stop consuming, drain in-flight events, then release the gateway and the store.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, _ := internal.CharacterRune(config.CharReplacement)

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) && config.DebugPort > 0 {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, ClusterMapper)
	}

	// 3. Credentials
	token, err := auth.NewToken()
	if err != nil {
		return exitRuntime, fmt.Errorf("admin token generation failed: %w", err)
	}
	// The token is only ever shown here: whoever reads the logs administers the bridge.
	logger.Info("Admin token generated", "token", token.String())

	moderator, err := buildModerator(config, charReplacement, logger)
	if err != nil {
		return exitConfig, err
	}

	// 4. Gateway & dispatch
	monitoring := observability.NewMonitoringManager()
	client := gateway.NewClient(gateway.Config{
		URL:        config.AMQPURL,
		Exchange:   config.AMQPExchange,
		EventQueue: config.AMQPEventQueue,
		Prefetch:   config.AMQPPrefetch,
		RPCTimeout: config.RPCTimeout,
	}, logger)

	dispatcher := runtime.NewDispatcher(&runtime.Services{
		Token:      token,
		OTP:        auth.NewOTPStore(),
		Clusters:   repositories.NewClusterRepository(db, logger, auth.Word),
		Client:     client,
		Parser:     parser.NewParser(config.CommandPrefix),
		Moderator:  moderator,
		Monitoring: monitoring,
	}, logger)

	healthServer := server.NewHealthServer(logger)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		client,
		workers.NewEventPumpWorker(logger, client, dispatcher),
		workers.NewHeartbeatWorker(logger, monitoring, config.MetricInterval),
		workers.NewHealthMonitoringWorker(logger, healthServer.Health(), server.ServiceName, config.HealthInterval,
			workers.Probe{Name: "store", Check: storeProbe(db)},
			workers.Probe{Name: "gateway", Check: client.Connected}),
	)

	errChan := make(chan error, 2)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		logger.Info("Starting supervisor...")
		sup.Run(ctx)
	}()

	// 6. gRPC health & monitoring endpoints
	address := fmt.Sprintf("0.0.0.0:%d", config.GRPCPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	go func() {
		if err := healthServer.Serve(listener); err != nil {
			errChan <- err
		}
	}()

	var monitoringServer *server.MonitoringServer
	if config.MonitoringPort > 0 {
		monitoringServer = server.NewMonitoringServer(logger, monitoring, config.MonitoringPort)
		go func() {
			if err := monitoringServer.Start(); err != nil {
				errChan <- err
			}
		}()
	}

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
		stop()
	}

	// 8. Graceful shutdown
	logger.Info("Shutting down gracefully...")
	drainCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	// No event enters the dispatcher once the pump has returned.
	sup.Stop()
	<-supDone
	if err := dispatcher.Wait(drainCtx); err != nil {
		logger.Warn("In-flight events abandoned", "error", err)
	}
	client.Close()
	healthServer.Stop(drainCtx)
	if monitoringServer != nil {
		monitoringServer.Stop(drainCtx)
	}
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// buildModerator returns nil when no censored words directory is configured.
func buildModerator(config internal.Config, charReplacement rune, logger *slog.Logger) (*moderation.Moderator, error) {
	if config.CensoredWordsDir == "" {
		return nil, nil
	}
	data, err := moderation.NewCensoredLoader(os.DirFS(config.CensoredWordsDir)).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("censored words loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(data.Words, charReplacement, logger)
	if err != nil {
		return nil, fmt.Errorf("moderator init failed: %w", err)
	}
	logger.Info("Moderation enabled", "words", len(data.Words), "languages", strings.Join(data.Languages, ","))
	return &moderator, nil
}

func storeProbe(db *badger.DB) func(context.Context) error {
	return func(context.Context) error {
		if db.IsClosed() {
			return badger.ErrDBClosed
		}
		return nil
	}
}

// ClusterMapper renders cluster documents in the debug inspector.
// Membership index keys carry no value and keep the default rendering.
func ClusterMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	if !repositories.IsClusterKey(key) {
		row.Type = "MEMBER"
		return row
	}

	cluster, err := repositories.DecodeCluster(val)
	if err != nil {
		row.Detail = "Error: decode failed"
		return row
	}
	row.Type = "CLUSTER"
	groups := make([]string, 0, len(cluster.Groups))
	for _, g := range cluster.Groups {
		groups = append(groups, g.String())
	}
	row.Detail = strings.Join(groups, " ")
	row.Scores = fmt.Sprintf("members:%d", len(cluster.Groups))
	return row
}
