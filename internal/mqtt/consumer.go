package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"agrotrace/internal/logger"
	"agrotrace/internal/models"
	"agrotrace/internal/service"
)

// Topic layout: sensors/{device_id}/data
const (
	defaultTopic    = "sensors/+/data"
	subscribeQoS    = 1 // at-least-once from the broker; the pipeline tolerates duplicates
	connectTimeout  = 10 * time.Second
	keepAlive       = 60 * time.Second
	pingTimeout     = 10 * time.Second
	handlerDeadline = 30 * time.Second
)

// Config holds MQTT consumer configuration.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// Consumer bridges the broker to the ingestion listener. It is a thin
// adapter: everything after decoding goes through the same Ingestor contract
// the other producers use.
type Consumer struct {
	client   mqtt.Client
	topic    string
	ingestor service.Ingestor
	log      *logger.Logger
}

// NewConsumer connects to the broker and returns a consumer ready to
// subscribe. Auto-reconnect is on; subscriptions are re-established by the
// OnConnect handler after a broker bounce.
func NewConsumer(cfg Config, ingestor service.Ingestor, log *logger.Logger) (*Consumer, error) {
	if cfg.Topic == "" {
		cfg.Topic = defaultTopic
	}

	c := &Consumer{topic: cfg.Topic, ingestor: ingestor, log: log}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		if log != nil {
			log.Infow("mqtt_connected", "broker", cfg.Broker)
		}
		if token := client.Subscribe(c.topic, subscribeQoS, c.handleMessage); token.Wait() && token.Error() != nil && log != nil {
			log.Errorw("mqtt_subscribe_failed", "topic", c.topic, "err", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if log != nil {
			log.Warnw("mqtt_connection_lost", "err", err)
		}
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %q: %w", cfg.Broker, token.Error())
	}
	return c, nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (c *Consumer) Close() {
	c.client.Disconnect(uint(connectTimeout / time.Millisecond))
}

// wirePayload is the producer-facing message shape. Timestamp accepts
// ISO-8601 or epoch seconds; device_id in the payload is a fallback when the
// topic does not carry one.
type wirePayload struct {
	DeviceID     string             `json:"device_id"`
	Measurements map[string]float64 `json:"measurements"`
	Timestamp    json.RawMessage    `json:"timestamp"`
}

// handleMessage runs on paho's router goroutine per message; each payload
// gets its own bounded deadline so one slow message cannot stall the topic.
func (c *Consumer) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerDeadline)
	defer cancel()

	raw, err := decodePayload(msg.Topic(), msg.Payload())
	if err != nil {
		if c.log != nil {
			c.log.Warnw("mqtt_payload_rejected", "topic", msg.Topic(), "err", err)
		}
		return
	}

	if err := c.ingestor.Ingest(ctx, raw); err != nil && c.log != nil {
		c.log.Warnw("mqtt_ingest_failed", "device", raw.DeviceID, "err", err)
	}
}

// decodePayload extracts the device id from the topic (falling back to the
// payload) and normalizes the timestamp.
func decodePayload(topic string, payload []byte) (models.RawReading, error) {
	var wire wirePayload
	if err := json.Unmarshal(payload, &wire); err != nil {
		return models.RawReading{}, fmt.Errorf("decode payload: %w", err)
	}

	deviceID := deviceFromTopic(topic)
	if deviceID == "" {
		deviceID = wire.DeviceID
	}
	if deviceID == "" {
		return models.RawReading{}, fmt.Errorf("no device id in topic %q or payload", topic)
	}

	return models.RawReading{
		DeviceID:     deviceID,
		Measurements: wire.Measurements,
		Timestamp:    parseTimestamp(wire.Timestamp),
	}, nil
}

// deviceFromTopic parses sensors/{device_id}/data.
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 && parts[0] == "sensors" && parts[2] == "data" {
		return parts[1]
	}
	return ""
}

// parseTimestamp accepts RFC3339 strings or epoch seconds; anything else
// yields zero, which the pipeline replaces with arrival time.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t
		}
		return time.Time{}
	}
	var epoch int64
	if err := json.Unmarshal(raw, &epoch); err == nil && epoch > 0 {
		return time.Unix(epoch, 0).UTC()
	}
	return time.Time{}
}
