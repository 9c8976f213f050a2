// Package mqtt publishes security status changes to an MQTT broker as retained JSON messages.
package mqtt
