package pbdmodels

import "time"

// ForwarderConfig carries the settings for the field relay service that
// bridges device MQTT traffic into the ingest API.
type ForwarderConfig struct {
	// MQTT
	BrokerHost  string
	BrokerPort  int
	BrokerUser  string
	BrokerPass  string
	UseTLS      bool
	CACertPath  string
	Topic       string
	ClientID    string
	SharedGroup string // e.g., "forwarders" to enable $share group consumption

	// Ingest API
	APIServiceURL string
	MaxRetries    int
	RetryDelay    time.Duration

	// In-process buffering between the MQTT callback and the forward loop
	QueueSize int
}
