package events

import (
	"context"
	"sync"
	"time"

	"roomtrack/pkg/kafka"
	"roomtrack/pkg/logger"
	"roomtrack/pkg/model"
)

const serviceName = "attendance"

// Publisher emits presence events without blocking the admission pipeline.
// Publishing is fire-and-forget: a slow or unavailable broker never delays or
// fails a check-in, and a dropped event is logged but not retried here (the
// DLQ on the producer covers broker-side failures).
type Publisher interface {
	PublishCheckIn(event model.CheckInEvent)
	PublishCheckOut(event model.CheckOutEvent)
	Close()
}

// sender is the producer surface the publisher needs.
type sender interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher hands events to a bounded queue consumed by one background
// sender goroutine. When the queue is full the event is dropped with a
// warning rather than applying backpressure to request handling.
type KafkaPublisher struct {
	producer    sender
	queue       chan kafka.Message
	log         *logger.Logger
	sendTimeout time.Duration
	closeOnce   sync.Once
	done        chan struct{}
}

func NewKafkaPublisher(producer sender, queueSize int, log *logger.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		producer:    producer,
		queue:       make(chan kafka.Message, queueSize),
		log:         log,
		sendTimeout: 10 * time.Second,
		done:        make(chan struct{}),
	}

	go p.sendLoop()

	return p
}

func (p *KafkaPublisher) PublishCheckIn(event model.CheckInEvent) {
	msg := kafka.NewMessage().
		WithKey(event.RoomID).
		WithValue(event).
		WithEventType(model.EventTypeCheckedIn).
		WithSource(serviceName).
		Build()

	p.enqueue(msg)
}

func (p *KafkaPublisher) PublishCheckOut(event model.CheckOutEvent) {
	msg := kafka.NewMessage().
		WithKey(event.RoomID).
		WithValue(event).
		WithEventType(model.EventTypeCheckedOut).
		WithSource(serviceName).
		Build()

	p.enqueue(msg)
}

func (p *KafkaPublisher) enqueue(msg kafka.Message) {
	select {
	case p.queue <- msg:
	default:
		p.log.Warn("Event queue full, dropping event",
			"event_type", msg.GetEventType(),
			"event_id", msg.GetEventID(),
			"key", msg.Key,
		)
	}
}

func (p *KafkaPublisher) sendLoop() {
	defer close(p.done)

	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
		if err := p.producer.Publish(ctx, msg); err != nil {
			p.log.Error("Failed to publish event",
				"event_type", msg.GetEventType(),
				"event_id", msg.GetEventID(),
				"key", msg.Key,
				"error", err,
			)
		}
		cancel()
	}
}

// Close drains queued events and stops the sender goroutine.
func (p *KafkaPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		<-p.done
	})
}
