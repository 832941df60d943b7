package publisher

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-resty/resty/v2"

	"github.com/jgoulah/gridcarbon/internal/config"
	"github.com/jgoulah/gridcarbon/pkg/models"
)

const (
	defaultEntityPrefix = "sensor.gridcarbon"
	mqttTimeout         = 10 * time.Second
)

// mqttClient is the part of mqtt.Client the publisher needs
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher handles publishing stats runs to Home Assistant and MQTT
type Publisher struct {
	client      mqttClient
	topicPrefix string
	haConfig    config.HAConfig
	http        *resty.Client
}

// New creates a new publisher (supports both MQTT and HA HTTP API)
func New(mqttCfg config.MQTTConfig, haCfg config.HAConfig) (*Publisher, error) {
	// Validate HA config if enabled
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	var client mqttClient
	var topicPrefix string

	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		// Set default topic prefix if not specified
		topicPrefix = mqttCfg.TopicPrefix
		if topicPrefix == "" {
			topicPrefix = "gridcarbon"
		}

		// Configure MQTT client options
		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("gridcarbon")
		opts.SetAutoReconnect(true)
		opts.SetConnectTimeout(mqttTimeout)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		// Create and connect client
		c := mqtt.NewClient(opts)
		if err := awaitToken(c.Connect(), mqttTimeout); err != nil {
			c.Disconnect(0)
			return nil, fmt.Errorf("connecting to MQTT broker %s: %w", mqttCfg.Broker, err)
		}
		client = c
	}

	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
		haConfig:    haCfg,
		http:        resty.New().SetTimeout(10 * time.Second),
	}, nil
}

// Enabled reports whether any destination is configured
func (p *Publisher) Enabled() bool {
	return p.haConfig.Enabled || p.client != nil
}

// HAState matches the Home Assistant POST /api/states/<entity_id> body
type HAState struct {
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Publish sends a stats run to every configured destination
func (p *Publisher) Publish(s *models.AggregateStats) error {
	if !p.Enabled() {
		return fmt.Errorf("neither Home Assistant nor MQTT publishing is enabled in config")
	}

	if p.haConfig.Enabled {
		if err := p.publishHA(s); err != nil {
			return fmt.Errorf("publishing to Home Assistant: %w", err)
		}
	}
	if p.client != nil {
		if err := p.publishMQTT(s); err != nil {
			return fmt.Errorf("publishing to MQTT: %w", err)
		}
	}
	return nil
}

// HAStates builds the three sensor states for a stats run, keyed by entity ID
func (p *Publisher) HAStates(s *models.AggregateStats) map[string]HAState {
	prefix := p.haConfig.EntityPrefix
	if prefix == "" {
		prefix = defaultEntityPrefix
	}

	common := func() map[string]interface{} {
		return map[string]interface{}{
			"meter_id":  s.MeterID,
			"start":     s.Start.Format(time.RFC3339),
			"end":       s.End.Format(time.RFC3339),
			"intervals": s.Intervals,
			"run_id":    s.ID,
		}
	}

	consumption := common()
	consumption["unit_of_measurement"] = "kWh"
	consumption["device_class"] = "energy"

	co2 := common()
	co2["unit_of_measurement"] = "kg"

	mix := common()
	for fuel, pct := range s.AverageFuelMix {
		mix[fuel] = roundTo2(pct)
	}

	return map[string]HAState{
		prefix + "_consumption_kwh": {State: fmt.Sprintf("%.2f", s.TotalConsumptionKWh), Attributes: consumption},
		prefix + "_co2_kg":          {State: fmt.Sprintf("%.3f", s.TotalCO2Kg), Attributes: co2},
		prefix + "_fuel_mix":        {State: dominantFuel(s.AverageFuelMix), Attributes: mix},
	}
}

func (p *Publisher) publishHA(s *models.AggregateStats) error {
	base := strings.TrimRight(p.haConfig.URL, "/")

	for entityID, state := range p.HAStates(s) {
		apiURL := fmt.Sprintf("%s/api/states/%s", base, entityID)
		resp, err := p.http.R().
			SetAuthToken(p.haConfig.Token).
			SetHeader("Content-Type", "application/json").
			SetBody(state).
			Post(apiURL)
		if err != nil {
			return fmt.Errorf("request error: %w", err)
		}

		// HA answers 201 for a new entity and 200 for an update
		if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
			return fmt.Errorf("HTTP error for %s: status %d, response: %s", entityID, resp.StatusCode(), resp.String())
		}
	}

	return nil
}

func (p *Publisher) publishMQTT(s *models.AggregateStats) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := p.topicPrefix + "/stats"
	if err := awaitToken(p.client.Publish(topic, 1, true, payload), mqttTimeout); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// awaitToken waits for a paho operation, at most timeout
func awaitToken(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return token.Error()
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func dominantFuel(mix map[string]float64) string {
	best := ""
	bestPct := -1.0
	for fuel, pct := range mix {
		if pct > bestPct || (pct == bestPct && fuel < best) {
			best, bestPct = fuel, pct
		}
	}
	return best
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
