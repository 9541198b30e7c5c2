// Package telemetry streams per-iteration ICP diagnostics to an MQTT
// broker, generalizing the teacher's "publish vacuum state over MQTT"
// concern (mesh/mqtt.go, mesh/publisher.go) from vacuum positions to
// alignment-job progress.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IterationUpdate is one iteration's worth of diagnostics, mirroring the
// fields the icp package logs at Config.Verbose > 1.
type IterationUpdate struct {
	JobID            string  `json:"jobId"`
	Iteration        int     `json:"iteration"`
	PairCount        int     `json:"pairCount"`
	MaxDistance      float64 `json:"maxDistance"`
	NormDotThreshold float64 `json:"normDotThreshold"`
	RMS              float64 `json:"rms"`
	Timestamp        int64   `json:"timestamp"`
}

// JobResult is published once a job completes or fails.
type JobResult struct {
	JobID     string  `json:"jobId"`
	RMS       float64 `json:"rms"`
	Failed    bool    `json:"failed"`
	Timestamp int64   `json:"timestamp"`
}

// Publisher streams IterationUpdate/JobResult messages to an MQTT broker.
// If client is nil, publishing is a silent no-op, matching the teacher's
// NewPublisher(nil) "disabled for testing" convention (mesh/publisher.go).
type Publisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	retain bool
	mu     sync.RWMutex
}

// NewPublisher wraps an already-connected mqtt.Client. prefix defaults to
// "icp3d" (overridable via the ICP3D_MQTT_PREFIX env var), following the
// teacher's MQTT_PUBLISH_PREFIX convention.
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("ICP3D_MQTT_PREFIX")
	if prefix == "" {
		prefix = "icp3d"
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		qos:    0,
		retain: false,
	}
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2).
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.mu.Lock()
		p.qos = qos
		p.mu.Unlock()
	}
}

// SetRetain sets whether published messages should be retained by the broker.
func (p *Publisher) SetRetain(retain bool) {
	p.mu.Lock()
	p.retain = retain
	p.mu.Unlock()
}

// PublishIteration publishes one iteration's diagnostics to
// <prefix>/<jobID>/iteration.
func (p *Publisher) PublishIteration(u IterationUpdate) error {
	u.Timestamp = time.Now().Unix()
	return p.publish(fmt.Sprintf("%s/%s/iteration", p.prefix, u.JobID), u)
}

// PublishResult publishes a job's final outcome to <prefix>/<jobID>/result.
func (p *Publisher) PublishResult(r JobResult) error {
	r.Timestamp = time.Now().Unix()
	return p.publish(fmt.Sprintf("%s/%s/result", p.prefix, r.JobID), r)
}

func (p *Publisher) publish(topic string, v interface{}) error {
	p.mu.RLock()
	client, qos, retain := p.client, p.qos, p.retain
	p.mu.RUnlock()

	if client == nil {
		return nil
	}
	if !client.IsConnected() {
		return fmt.Errorf("telemetry: mqtt client not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("telemetry: marshaling payload: %w", err)
	}

	token := client.Publish(topic, qos, retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("telemetry: publishing to %s: %w", topic, token.Error())
	}
	log.Printf("[telemetry] published %s (%d bytes)", topic, len(payload))
	return nil
}
