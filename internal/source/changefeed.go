// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/models"
)

// TopicPrefix namespaces change topics on the message bus.
const TopicPrefix = "minbar.changes."

// ErrFeedClosed is returned by Subscribe after Close.
var ErrFeedClosed = errors.New("change feed closed")

// Topic returns the bus topic carrying changes to entity.
func Topic(entity string) string {
	return TopicPrefix + entity
}

// ChangeFeed turns bus messages into ChangeNotifier callbacks. Every
// subscription gets its own bus subscription, so each subscriber sees every
// event on its topic.
type ChangeFeed struct {
	sub    message.Subscriber
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[Handle]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewChangeFeed creates a feed reading from sub.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewChangeFeed(sub message.Subscriber, logger zerolog.Logger) *ChangeFeed {
	return &ChangeFeed{
		sub:    sub,
		logger: logger.With().Str("component", "change-feed").Logger(),
		subs:   make(map[Handle]context.CancelFunc),
	}
}

// Subscribe starts delivering events for entity that pass filter.
func (f *ChangeFeed) Subscribe(entity string, filter Filter, callback func(models.ChangeEvent)) (Handle, error) {
	if callback == nil {
		return "", errors.New("change feed: nil callback")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", ErrFeedClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := f.sub.Subscribe(ctx, Topic(entity))
	if err != nil {
		cancel()
		return "", fmt.Errorf("subscribe to %s: %w", Topic(entity), err)
	}

	h := Handle(uuid.NewString())
	f.subs[h] = cancel
	metrics.ActiveSubscriptions.Inc()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.consume(ctx, entity, messages, filter, callback)
	}()

	return h, nil
}

func (f *ChangeFeed) consume(ctx context.Context, entity string, messages <-chan *message.Message, filter Filter, callback func(models.ChangeEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				msg.Nack()
				return
			}
			var ev models.ChangeEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				f.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Str("entity", entity).Msg("Dropping undecodable change event")
				msg.Ack()
				continue
			}
			if filter == nil || filter(ev) {
				metrics.ChangeEventsReceived.WithLabelValues(ev.Entity, string(ev.Type)).Inc()
				f.deliver(callback, ev)
			}
			msg.Ack()
		}
	}
}

func (f *ChangeFeed) deliver(callback func(models.ChangeEvent), ev models.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Interface("panic", r).Str("record_id", ev.RecordID).Msg("Change callback panicked")
		}
	}()
	callback(ev)
}

// Unsubscribe stops the subscription. It does not wait for an in-flight
// callback, so it may be called from inside one.
func (f *ChangeFeed) Unsubscribe(h Handle) error {
	f.mu.Lock()
	cancel, ok := f.subs[h]
	delete(f.subs, h)
	f.mu.Unlock()

	if ok {
		cancel()
		metrics.ActiveSubscriptions.Dec()
	}
	return nil
}

// Active returns the number of live subscriptions.
func (f *ChangeFeed) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close cancels all subscriptions and waits for their consumers to exit.
// The underlying subscriber is not closed.
func (f *ChangeFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for h, cancel := range f.subs {
		cancel()
		delete(f.subs, h)
		metrics.ActiveSubscriptions.Dec()
	}
	f.mu.Unlock()

	f.wg.Wait()
	return nil
}

// ChangePublisher publishes change events to the bus.
type ChangePublisher struct {
	pub message.Publisher
}

// NewChangePublisher wraps pub.
func NewChangePublisher(pub message.Publisher) *ChangePublisher {
	return &ChangePublisher{pub: pub}
}

// PublishChange implements ChangeSink.
func (p *ChangePublisher) PublishChange(ctx context.Context, ev models.ChangeEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", ev.EventID)
	msg.SetContext(ctx)
	msg.Metadata.Set("entity", ev.Entity)
	msg.Metadata.Set("type", string(ev.Type))
	if err := p.pub.Publish(Topic(ev.Entity), msg); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}
