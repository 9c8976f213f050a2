package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	client "github.com/oshokin/catpoint/internal/service/client"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from the configuration.
	serverAddress string
	// retry keeps retrying requests until the server answers.
	retry bool

	// rootCmd represents the base command of the catpoint client.
	rootCmd = &cobra.Command{
		Use:   "catpoint",
		Short: "Control the catpoint home security system.",
		Long: `Talks to a running catpoint-server.

Arm or disarm the system, override the alarm, manage sensors, send camera frames
for cat detection and watch status changes as they happen.`,
		SilenceUsage: true,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show arming status, alarm status and sensors.",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, session *client.Session, _ []string) error {
			return session.Status(ctx)
		}),
	}

	armCmd = &cobra.Command{
		Use:       "arm home|away",
		Short:     "Arm the system. Every sensor is reset to inactive.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"home", "away"},
		RunE: withSession(func(ctx context.Context, session *client.Session, args []string) error {
			arming, err := domain.ParseArmingStatus("armed_" + args[0])
			if err != nil {
				return err
			}

			return session.SetArmingStatus(ctx, arming)
		}),
	}

	disarmCmd = &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the system and clear the alarm.",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, session *client.Session, _ []string) error {
			return session.SetArmingStatus(ctx, domain.Disarmed)
		}),
	}

	alarmCmd = &cobra.Command{
		Use:   "alarm no_alarm|pending_alarm|alarm",
		Short: "Override the alarm status.",
		Long: `Override the alarm status.

A pending alarm is refused (stored as no_alarm) while any sensor is active.`,
		Args: cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, session *client.Session, args []string) error {
			alarm, err := domain.ParseAlarmStatus(args[0])
			if err != nil {
				return err
			}

			return session.SetAlarmStatus(ctx, alarm)
		}),
	}

	scanCmd = &cobra.Command{
		Use:   "scan <image-file>",
		Short: "Send a camera frame for cat detection.",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, session *client.Session, args []string) error {
			return session.Scan(ctx, args[0])
		}),
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print status changes until interrupted.",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, session *client.Session, _ []string) error {
			return session.Watch(ctx)
		}),
	}
)

// sessionFunc is a command body that runs against an open session.
type sessionFunc func(ctx context.Context, session *client.Session, args []string) error

// withSession opens a session for the duration of the command.
func withSession(run sessionFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		session, err := client.Open(ctx, &client.Options{
			ConfigPath:    cfgPath,
			ServerAddress: serverAddress,
			Retry:         retry,
			Output:        cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		defer func() {
			_ = session.Close()
		}()

		return run(ctx, session, args)
	}
}

// Execute runs the catpoint CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "a", "", "server address (overrides config)")
	flags.BoolVarP(&retry, "retry", "r", false, "retry until the server answers")

	rootCmd.AddCommand(statusCmd, armCmd, disarmCmd, alarmCmd, sensorsCmd, scanCmd, watchCmd)
}
