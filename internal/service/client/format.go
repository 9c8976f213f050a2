package client

import (
	"fmt"
	"io"
	"text/tabwriter"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// writeStatus prints a status block followed by the sensor table.
func writeStatus(out io.Writer, status *api.Status) error {
	if status == nil {
		_, err := fmt.Fprintln(out, "<nil status>")

		return err
	}

	if status.Event != "" && status.Event != api.EventSnapshot {
		if _, err := fmt.Fprintf(out, "[%s changed]\n", status.Event); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(out, "Arming: %s (%s)\nAlarm:  %s (%s)\n",
		status.ArmingStatus, status.ArmingStatus.Description(),
		status.AlarmStatus, status.AlarmStatus.Description()); err != nil {
		return err
	}

	if status.CatDetected {
		if _, err := fmt.Fprintln(out, "Camera: cat detected"); err != nil {
			return err
		}
	}

	return writeSensors(out, status.Sensors)
}

// writeSensors prints the sensors as an aligned table.
func writeSensors(out io.Writer, sensors []*domain.Sensor) error {
	if len(sensors) == 0 {
		_, err := fmt.Fprintln(out, "No sensors installed.")

		return err
	}

	table := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(table, "NAME\tTYPE\tSTATE")

	for _, sensor := range sensors {
		_, _ = fmt.Fprintf(table, "%s\t%s\t%s\n", sensor.Name, sensor.Type, sensorState(sensor))
	}

	return table.Flush()
}

// sensorState renders the activation of a sensor.
func sensorState(sensor *domain.Sensor) string {
	if sensor.Active {
		return "active"
	}

	return "inactive"
}
