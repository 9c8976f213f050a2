package controller

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// LogListener writes every status change to the logger carried by the context.
type LogListener struct{}

// AlarmStatusChanged implements domain.StatusListener.
func (LogListener) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	logger.InfoKV(ctx, "Alarm status changed", "alarm_status", status.String(), "description", status.Description())
}

// SensorStatusChanged implements domain.StatusListener.
func (LogListener) SensorStatusChanged(ctx context.Context) {
	logger.Debug(ctx, "Sensor status changed")
}
