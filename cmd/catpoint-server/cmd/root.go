package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/server"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where the security state is persisted.
	stateFile string
	// envFile path to the dotenv file with secrets.
	envFile string

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "catpoint-server [listen-address]",
		Short: "Run the catpoint security gRPC server.",
		Long: `Starts the security server that owns the alarm state machine.

The server arms and disarms the system, reacts to sensor events and camera frames,
and publishes status changes to watchers and, when configured, to an MQTT broker.
Only the port from server_addr in the configuration is used for listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).
Secrets are read from the environment, the dotenv file or the OS keyring.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StateFile:     stateFile,
				EnvFile:       envFile,
			})
		},
	}
)

// Execute runs the catpoint-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&stateFile, "state-file", "s", "", "path to persist security state (overrides config)")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", server.DefaultEnvFile, "path to dotenv file with secrets")
}
