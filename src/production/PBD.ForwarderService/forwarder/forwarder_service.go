package forwarder

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ForwarderService/client"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

// queuedPayload is one device message waiting to be forwarded.
type queuedPayload struct {
	DeviceID string
	Topic    string
	Payload  map[string]interface{}
}

// Forwarder bridges device MQTT traffic into the data server's ingest API.
// Messages that are not JSON objects are skipped; everything else is passed
// through untouched so the server's normalizer owns the field mapping.
type Forwarder struct {
	cfg        pbdmodels.ForwarderConfig
	apiClient  *client.APIClient
	mqttClient mqtt.Client
	msgCh      chan queuedPayload
	wg         sync.WaitGroup
	logger     *logger.Logger
}

func New(cfg pbdmodels.ForwarderConfig, apiClient *client.APIClient, logger *logger.Logger) *Forwarder {
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 4096
	}
	return &Forwarder{
		cfg:       cfg,
		apiClient: apiClient,
		msgCh:     make(chan queuedPayload, queueSize),
		logger:    logger,
	}
}

func (f *Forwarder) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(f.brokerURL()).
		SetClientID(f.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if f.cfg.BrokerUser != "" {
		opts.SetUsername(f.cfg.BrokerUser)
		opts.SetPassword(f.cfg.BrokerPass)
	}

	if f.cfg.UseTLS {
		tlsCfg, err := f.tlsConfig(f.cfg.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		f.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := f.cfg.Topic
		if f.cfg.SharedGroup != "" {
			topic = fmt.Sprintf("$share/%s/%s", f.cfg.SharedGroup, f.cfg.Topic)
		}
		f.logger.Logger.Info().Str("topic", topic).Msg("MQTT connected, subscribing to topic")
		if token := c.Subscribe(topic, 1, f.onMessage); token.Wait() && token.Error() != nil {
			f.logger.Logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		}
	}

	f.mqttClient = mqtt.NewClient(opts)
	if tk := f.mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.forwardLoop(ctx)
	}()

	return nil
}

func (f *Forwarder) Stop() {
	if f.mqttClient != nil && f.mqttClient.IsConnected() {
		f.mqttClient.Disconnect(500)
	}
	close(f.msgCh)
	f.wg.Wait()
}

func (f *Forwarder) IsConnected() bool {
	return f.mqttClient != nil && f.mqttClient.IsConnected()
}

func (f *Forwarder) onMessage(_ mqtt.Client, m mqtt.Message) {
	f.logger.Logger.Debug().Str("topic", m.Topic()).Str("payload", string(m.Payload())).Msg("Received MQTT message")

	// Devices occasionally emit boot banners and other line noise over the
	// same channel; those are skipped, not forwarded.
	var payload map[string]interface{}
	if err := json.Unmarshal(m.Payload(), &payload); err != nil {
		f.logger.Logger.Warn().Str("topic", m.Topic()).Msg("Skipping non-JSON payload")
		return
	}

	// Expected format: plantbuddy/<device_id>/readings
	deviceID := ""
	parts := strings.Split(m.Topic(), "/")
	if len(parts) >= 2 {
		deviceID = parts[1]
	}

	// The topic is authoritative for identity only when the payload
	// carries none.
	if _, present := payload["device_id"]; !present && deviceID != "" {
		payload["device_id"] = deviceID
	}

	f.logger.Logger.Debug().Str("device_id", deviceID).Msg("Queuing reading")
	f.msgCh <- queuedPayload{
		DeviceID: deviceID,
		Topic:    m.Topic(),
		Payload:  payload,
	}
}

func (f *Forwarder) forwardLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-f.msgCh:
			if !ok {
				return
			}

			if err := f.apiClient.IngestReading(ctx, msg.Payload); err != nil {
				if client.IsPermanent(err) {
					f.logger.Logger.Warn().Err(err).Str("topic", msg.Topic).Msg("Server rejected payload, dropping")
					continue
				}
				f.logger.Logger.Error().Err(err).Str("device_id", msg.DeviceID).Msg("Error forwarding reading")
				continue
			}

			f.logger.Logger.Debug().Str("device_id", msg.DeviceID).Msg("Reading forwarded")
		}
	}
}

func (f *Forwarder) brokerURL() string {
	scheme := "tcp"
	if f.cfg.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, f.cfg.BrokerHost, f.cfg.BrokerPort)
}

func (f *Forwarder) tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}
