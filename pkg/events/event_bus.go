// pkg/events/event_bus.go
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType defines the type of analytics event
type EventType string

const (
	EventTrainingStarted   EventType = "training_started"
	EventModelTrained      EventType = "model_trained"
	EventModelDeprecated   EventType = "model_deprecated"
	EventBaselineUpdated   EventType = "baseline_updated"
	EventAnomalyDetected   EventType = "anomaly_detected"
	EventThreatPredicted   EventType = "threat_predicted"
	EventCampaignDetected  EventType = "campaign_detected"
	EventPatternRecognized EventType = "pattern_recognized"
)

// AnalyticsEvent represents an event emitted by the analytics engine
type AnalyticsEvent struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	Source      string                 `json:"source"`  // Which component generated this
	Subject     string                 `json:"subject"` // Entity, model, or node the event is about
	Severity    string                 `json:"severity"`
	Timestamp   time.Time              `json:"timestamp"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data"`
}

// EventHandler defines the interface for event handlers
type EventHandler interface {
	Handle(ctx context.Context, event AnalyticsEvent) error
	GetEventTypes() []EventType
}

// EventBus distributes analytics events to subscribers. Dashboard-facing
// consumers subscribe here to observe training completion and detections
// without polling.
type EventBus struct {
	handlers    map[EventType][]EventHandler
	buffer      chan AnalyticsEvent
	logger      zerolog.Logger
	mu          sync.RWMutex
	metrics     EventMetrics
	running     bool
	stopChannel chan struct{}
	wg          sync.WaitGroup
}

type EventMetrics struct {
	EventsPublished int64            `json:"events_published"`
	EventsProcessed int64            `json:"events_processed"`
	EventsByType    map[string]int64 `json:"events_by_type"`
	HandlerErrors   int64            `json:"handler_errors"`
}

// NewEventBus creates a new event bus
func NewEventBus(logger zerolog.Logger, bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	return &EventBus{
		handlers:    make(map[EventType][]EventHandler),
		buffer:      make(chan AnalyticsEvent, bufferSize),
		logger:      logger.With().Str("component", "event_bus").Logger(),
		stopChannel: make(chan struct{}),
		metrics: EventMetrics{
			EventsByType: make(map[string]int64),
		},
	}
}

// Subscribe registers an event handler for specific event types
func (eb *EventBus) Subscribe(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, eventType := range handler.GetEventTypes() {
		eb.handlers[eventType] = append(eb.handlers[eventType], handler)
		eb.logger.Info().
			Str("event_type", string(eventType)).
			Msg("Handler subscribed to event type")
	}
}

// Publish sends an event to all registered handlers
func (eb *EventBus) Publish(ctx context.Context, event AnalyticsEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.buffer <- event:
		eb.updateMetrics(event, true)
		eb.logger.Debug().
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Str("source", event.Source).
			Msg("Event published to bus")
		return nil
	default:
		eb.logger.Error().
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("Event bus buffer full, dropping event")
		return ErrEventBusBufferFull
	}
}

// Start begins processing events from the buffer
func (eb *EventBus) Start(ctx context.Context) {
	eb.mu.Lock()
	if eb.running {
		eb.mu.Unlock()
		return
	}
	eb.running = true
	eb.mu.Unlock()

	eb.logger.Info().Msg("Event bus starting...")

	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		for {
			select {
			case event := <-eb.buffer:
				eb.processEvent(ctx, event)
			case <-ctx.Done():
				eb.logger.Info().Msg("Event bus shutting down due to context cancellation...")
				return
			case <-eb.stopChannel:
				eb.logger.Info().Msg("Event bus shutting down...")
				return
			}
		}
	}()
}

// Stop gracefully shuts down the event bus
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return
	}
	eb.running = false
	eb.mu.Unlock()

	close(eb.stopChannel)
	eb.wg.Wait()
	eb.logger.Info().Msg("Event bus stopped")
}

// processEvent handles distribution of events to handlers
func (eb *EventBus) processEvent(ctx context.Context, event AnalyticsEvent) {
	eb.mu.RLock()
	handlers := eb.handlers[event.Type]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		eb.logger.Debug().
			Str("event_type", string(event.Type)).
			Msg("No handlers registered for event type")
		return
	}

	var wg sync.WaitGroup
	errorChan := make(chan error, len(handlers))

	for _, handler := range handlers {
		wg.Add(1)
		go func(h EventHandler) {
			defer wg.Done()
			if err := h.Handle(ctx, event); err != nil {
				errorChan <- err
				eb.logger.Error().
					Err(err).
					Str("event_id", event.ID).
					Str("event_type", string(event.Type)).
					Msg("Handler error processing event")
			}
		}(handler)
	}

	wg.Wait()
	close(errorChan)

	errorCount := 0
	for range errorChan {
		errorCount++
	}

	eb.mu.Lock()
	eb.metrics.HandlerErrors += int64(errorCount)
	eb.mu.Unlock()

	eb.updateMetrics(event, false)
}

// updateMetrics updates internal metrics
func (eb *EventBus) updateMetrics(event AnalyticsEvent, published bool) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if published {
		eb.metrics.EventsPublished++
	} else {
		eb.metrics.EventsProcessed++
	}

	eb.metrics.EventsByType[string(event.Type)]++
}

// GetMetrics returns current event bus metrics
func (eb *EventBus) GetMetrics() EventMetrics {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	metricsCopy := EventMetrics{
		EventsPublished: eb.metrics.EventsPublished,
		EventsProcessed: eb.metrics.EventsProcessed,
		HandlerErrors:   eb.metrics.HandlerErrors,
		EventsByType:    make(map[string]int64),
	}
	for k, v := range eb.metrics.EventsByType {
		metricsCopy.EventsByType[k] = v
	}

	return metricsCopy
}

// Errors
var (
	ErrEventBusBufferFull = fmt.Errorf("event bus buffer is full")
)
