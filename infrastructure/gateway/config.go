package gateway

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange   = "im.gateway"
	DefaultEventQueue = "im.bridge.events"

	directReplyTo = "amq.rabbitmq.reply-to"
)

// Config describes how to reach the IM gateway over RabbitMQ.
type Config struct {
	URL         string
	Exchange    string
	EventQueue  string
	Prefetch    int
	RPCTimeout  time.Duration
	DialTimeout time.Duration
	AppID       string
	Dialer      func(ctx context.Context, url string) (*amqp.Connection, error)
}

func (c Config) withDefaults() Config {
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.EventQueue == "" {
		c.EventQueue = DefaultEventQueue
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 32
	}
	if c.RPCTimeout <= 0 {
		c.RPCTimeout = 5 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 30 * time.Second
	}
	if c.AppID == "" {
		c.AppID = "im-bridge"
	}
	if c.Dialer == nil {
		timeout := c.DialTimeout
		c.Dialer = func(_ context.Context, url string) (*amqp.Connection, error) {
			return amqp.DialConfig(url, amqp.Config{
				Heartbeat:  10 * time.Second,
				Locale:     "en_US",
				Dial:       amqp.DefaultDial(timeout),
				Properties: amqp.Table{"connection_name": c.AppID},
			})
		}
	}
	return c
}
