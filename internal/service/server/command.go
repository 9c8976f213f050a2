package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	repository "github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/service/common"
)

// DefaultEnvFile is the dotenv file read for secrets before settings are loaded.
const DefaultEnvFile = ".env"

// Options controls the catpoint-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StateFile specifies the path to persist the security state JSON.
	StateFile string
	// EnvFile is an optional dotenv file with secrets; a missing file is ignored.
	EnvFile string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "catpoint-server")

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.SetLevelName(settings.LogLevel); err != nil {
		return err
	}

	// Use StateFile from config unless overridden by command line option.
	stateFile := settings.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	svc, err := newService(ctx, settings, repository.NewFileRepository(stateFile))
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	defer svc.Close()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	apiServer := api.NewServer(svc.controller)
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(common.LoggingUnaryInterceptor),
		grpc.ChainStreamInterceptor(common.LoggingStreamInterceptor),
	)
	api.RegisterSecurityServiceServer(grpcServer, apiServer)

	logger.InfoKV(ctx, "Security server listening",
		"listen_address", listenAddress,
		"state_file", stateFile,
		"vision_backend", settings.Vision.Backend,
		"mqtt_enabled", settings.MQTT.Broker != "")

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")

		// Watch streams never finish on their own.
		apiServer.Shutdown()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
