package events

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

const subscriberBuffer = 100

// fanout delivers events to the local subscribers of each channel. A slow
// subscriber loses events instead of blocking the others.
type fanout struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.ReportEvent]struct{}
	logger      zerolog.Logger
}

func newFanout(logger zerolog.Logger) *fanout {
	return &fanout{
		subscribers: make(map[string]map[chan *entities.ReportEvent]struct{}),
		logger:      logger,
	}
}

// add registers a subscriber and reports whether it is the channel's first
func (f *fanout) add(channel string) (chan *entities.ReportEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	first := false
	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.ReportEvent]struct{})
		first = true
	}
	eventChan := make(chan *entities.ReportEvent, subscriberBuffer)
	f.subscribers[channel][eventChan] = struct{}{}
	return eventChan, first
}

// remove drops one subscriber and reports whether the channel is now empty
func (f *fanout) remove(channel string, eventChan chan *entities.ReportEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	subscribers, ok := f.subscribers[channel]
	if !ok {
		return false
	}
	if _, ok := subscribers[eventChan]; !ok {
		return false
	}

	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(f.subscribers, channel)
		return true
	}
	return false
}

// removeAll closes every subscriber of channel
func (f *fanout) removeAll(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for subscriber := range f.subscribers[channel] {
		close(subscriber)
	}
	delete(f.subscribers, channel)
}

func (f *fanout) channels() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.subscribers))
	for channel := range f.subscribers {
		out = append(out, channel)
	}
	return out
}

func (f *fanout) deliver(channel string, event *entities.ReportEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for subscriber := range f.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			f.logger.Warn().
				Str("channel", channel).
				Str("event_id", event.ID).
				Msg("subscriber channel full, skipping event")
		}
	}
}
