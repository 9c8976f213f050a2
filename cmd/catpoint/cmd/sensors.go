package cmd

import (
	"context"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	client "github.com/oshokin/catpoint/internal/service/client"
)

var (
	// sensorsCmd groups the sensor subcommands.
	sensorsCmd = &cobra.Command{
		Use:   "sensors",
		Short: "Manage door, window and motion sensors.",
	}

	sensorsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List installed sensors.",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, session *client.Session, _ []string) error {
			return session.ListSensors(ctx)
		}),
	}

	sensorsAddCmd = &cobra.Command{
		Use:   "add <name> door|window|motion",
		Short: "Install a sensor.",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, session *client.Session, args []string) error {
			sensor, err := parseSensor(args)
			if err != nil {
				return err
			}

			return session.AddSensor(ctx, sensor)
		}),
	}

	sensorsRemoveCmd = &cobra.Command{
		Use:   "remove <name> door|window|motion",
		Short: "Uninstall a sensor.",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, session *client.Session, args []string) error {
			sensor, err := parseSensor(args)
			if err != nil {
				return err
			}

			return session.RemoveSensor(ctx, sensor)
		}),
	}

	sensorsActivateCmd = &cobra.Command{
		Use:   "activate <name> door|window|motion",
		Short: "Mark a sensor as tripped.",
		Args:  cobra.ExactArgs(2),
		RunE:  changeActivation(true),
	}

	sensorsDeactivateCmd = &cobra.Command{
		Use:   "deactivate <name> door|window|motion",
		Short: "Mark a sensor as quiet.",
		Args:  cobra.ExactArgs(2),
		RunE:  changeActivation(false),
	}
)

// changeActivation builds the activate and deactivate command bodies.
func changeActivation(active bool) func(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, session *client.Session, args []string) error {
		sensor, err := parseSensor(args)
		if err != nil {
			return err
		}

		return session.SetSensorActive(ctx, sensor.Key(), active)
	})
}

// parseSensor builds a sensor from the name and type arguments.
func parseSensor(args []string) (*domain.Sensor, error) {
	sensorType, err := domain.ParseSensorType(args[1])
	if err != nil {
		return nil, err
	}

	sensor := domain.NewSensor(args[0], sensorType)
	if err = sensor.Validate(); err != nil {
		return nil, err
	}

	return sensor, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	sensorsCmd.AddCommand(sensorsListCmd, sensorsAddCmd, sensorsRemoveCmd, sensorsActivateCmd, sensorsDeactivateCmd)
}
