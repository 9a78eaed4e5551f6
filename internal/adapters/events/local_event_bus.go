package events

import (
	"context"
	"sync"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
)

// LocalEventBus delivers events within the process. It is used when Redis
// is not configured, so notifications only reach clients of this replica.
type LocalEventBus struct {
	fanout *fanout
	once   sync.Once
	done   chan struct{}
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() providers.EventBus {
	logger := observability.GetLogger().With().Str("component", "local_event_bus").Logger()
	return &LocalEventBus{
		fanout: newFanout(logger),
		done:   make(chan struct{}),
	}
}

// Publish delivers event to the current subscribers of channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.ReportEvent) error {
	b.fanout.deliver(channel, event)
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error) {
	eventChan, _ := b.fanout.add(channel)
	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.fanout.remove(channel, eventChan)
	}()
	return eventChan, nil
}

// Unsubscribe closes every subscriber of channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.fanout.removeAll(channel)
	return nil
}

// Close closes all subscriptions
func (b *LocalEventBus) Close() error {
	b.once.Do(func() { close(b.done) })
	for _, channel := range b.fanout.channels() {
		b.fanout.removeAll(channel)
	}
	return nil
}
