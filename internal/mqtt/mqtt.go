package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"clima/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const DefaultTopic = "clima/weather/state"

type Client struct {
	client mqtt.Client
	topic  string
}

// normalizeBrokerURL accepts mqtt:// URLs and bare host:port and returns
// the tcp:// form paho expects.
func normalizeBrokerURL(brokerURL string) string {
	url := strings.TrimSpace(brokerURL)
	if url == "" {
		url = "mqtt://localhost:1883"
	}
	if strings.HasPrefix(url, "mqtt://") {
		url = "tcp://" + strings.TrimPrefix(url, "mqtt://")
	}
	if !strings.Contains(url, "://") {
		url = "tcp://" + url
	}
	return url
}

func Connect(brokerURL, clientID, topic string) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(normalizeBrokerURL(brokerURL))
	if strings.TrimSpace(clientID) == "" {
		clientID = "clima-" + time.Now().Format("150405.000")
	}
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "error", err)
	}
	opts.OnConnect = func(_ mqtt.Client) {
		slog.Info("mqtt connected")
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if ok := tok.WaitTimeout(15 * time.Second); !ok {
		return nil, tok.Error()
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &Client{client: c, topic: topic}, nil
}

// PublishView sends v as a retained message so late subscribers get the
// current screen. It implements screen.Observer.
func (c *Client) PublishView(v models.View) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	tok := c.client.Publish(c.topic, 1, true, b)
	if !tok.WaitTimeout(5 * time.Second) {
		slog.Warn("mqtt publish timed out", "topic", c.topic)
		return
	}
	if err := tok.Error(); err != nil {
		slog.Warn("mqtt publish failed", "topic", c.topic, "error", err)
	}
}

func (c *Client) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Disconnect(1000)
}
