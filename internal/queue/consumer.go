package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/restaurant-management/internal/config"
)

// Consumer drains the activity queue into an append-only log file.
type Consumer struct {
	cfg config.EventsConfig
	log *log.Logger
	mu  sync.Mutex
}

func NewConsumer(cfg config.EventsConfig, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.New("activity-consumer")
	}
	return &Consumer{cfg: cfg, log: logger}
}

// Run connects to RabbitMQ, declares the durable queue and consumes until
// ctx is cancelled.  Lost connections are redialled with exponential
// backoff capped at 30s.  Run returns nil once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Warnf("dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warnf("consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warnf("set QoS: %v", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Infof("consuming %s into %s", c.cfg.Queue, c.cfg.LogPath)

	for d := range msgs {
		if err := c.Handle(d.Body); err != nil {
			c.log.Errorf("handle message: %v", err)
			// dead messages are dropped, never requeued
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message body and appends it to the activity log.
func (c *Consumer) Handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	return c.appendLine(ev.Line())
}

func (c *Consumer) appendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dir := filepath.Dir(c.cfg.LogPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(c.cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
