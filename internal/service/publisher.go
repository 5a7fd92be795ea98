// Package service holds the multi-step write paths that span several
// repositories: reservation booking, checkout and event publication.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/restaurant-management/internal/config"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/queue"
)

// Publisher hands activity events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.Event) error { return nil }

// RabbitPublisher publishes persistent JSON messages to a durable queue
// through the default exchange.  Each call dials its own connection.
type RabbitPublisher struct {
	url   string
	queue string
	log   *log.Logger
}

// NewPublisher returns a RabbitPublisher, or a NopPublisher when events are
// disabled in cfg.
func NewPublisher(cfg config.EventsConfig, logger *log.Logger) Publisher {
	if !cfg.Enabled {
		return NopPublisher{}
	}
	if logger == nil {
		logger = log.New("events")
	}
	return &RabbitPublisher{url: cfg.URL, queue: cfg.Queue, log: logger}
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.Event) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.log.Warnf("rabbitmq: publish %s failed: %v", ev.Type, err)
		return err
	}
	return nil
}

// Notifier publishes in the background after a request has committed its
// writes.  Failures are logged and counted, never returned to the caller.
type Notifier struct {
	pub     Publisher
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewNotifier(pub Publisher, m *metrics.Metrics) *Notifier {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Notifier{pub: pub, metrics: m, timeout: 5 * time.Second}
}

// Notify publishes ev on its own goroutine, detached from ctx cancellation.
func (n *Notifier) Notify(ctx context.Context, ev queue.Event) {
	if n == nil {
		return
	}
	if _, nop := n.pub.(NopPublisher); nop {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		n.metrics.ObserveEvent(ev.Type, n.pub.Publish(ctx, ev))
	}()
}
