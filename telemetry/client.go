package telemetry

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config configures the MQTT connection used by a Publisher, generalizing
// mesh.Config.MQTT's broker/client-id/credentials fields.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect builds an mqtt.Client from cfg and connects to the broker,
// retrying with exponential backoff up to maxAttempts times, mirroring
// mesh/mqtt.go's connectWithRetry but bounded so a CLI invocation doesn't
// hang forever against an unreachable broker.
func Connect(cfg Config, maxAttempts int) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("telemetry: broker address is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "icp3d"
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	client := mqtt.NewClient(opts)

	retryDelay := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		token := client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Printf("[telemetry] connected to %s as %s", cfg.Broker, clientID)
				return client, nil
			}
			lastErr = token.Error()
		} else {
			lastErr = fmt.Errorf("connection timeout")
		}

		log.Printf("[telemetry] connect attempt %d/%d failed: %v, retrying in %v", attempt+1, maxAttempts, lastErr, retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > 60*time.Second {
			retryDelay = 60 * time.Second
		}
	}
	return nil, fmt.Errorf("telemetry: failed to connect to %s after %d attempts: %w", cfg.Broker, maxAttempts, lastErr)
}
