package forwarder

import (
	"log"
	"os"
	"strconv"
	"time"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

func mustInt(env string, def int) int {
	v := os.Getenv(env)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", env, err)
	}
	return i
}

func mustBool(env string, def bool) bool {
	v := os.Getenv(env)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	if v == "0" || v == "false" || v == "FALSE" {
		return false
	}
	log.Fatalf("invalid %s: %q", env, v)
	return def
}

func mustDur(env string, def time.Duration) time.Duration {
	v := os.Getenv(env)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", env, err)
	}
	return d
}

func defaultStr(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}

// LoadFromEnv loads the forwarder configuration from environment variables
func LoadFromEnv() pbdmodels.ForwarderConfig {
	return pbdmodels.ForwarderConfig{
		BrokerHost:  defaultStr("BROKER_HOST", "localhost"),
		BrokerPort:  mustInt("BROKER_PORT", 1883),
		BrokerUser:  os.Getenv("BROKER_USER"),
		BrokerPass:  os.Getenv("BROKER_PASS"),
		UseTLS:      mustBool("BROKER_TLS", false),
		CACertPath:  os.Getenv("BROKER_CA_FILE"),
		Topic:       defaultStr("MQTT_TOPIC", "plantbuddy/+/readings"),
		ClientID:    defaultStr("MQTT_CLIENT_ID", "plantbuddy-forwarder-1"),
		SharedGroup: os.Getenv("MQTT_SHARED_GROUP"),

		APIServiceURL: defaultStr("API_SERVICE_URL", "http://localhost:5000"),
		MaxRetries:    mustInt("FORWARD_MAX_RETRIES", 3),
		RetryDelay:    mustDur("FORWARD_RETRY_DELAY", 1*time.Second),

		QueueSize: mustInt("FORWARD_QUEUE_SIZE", 4096),
	}
}
