package events

// EventPublisherAdapter wraps the EventBus behind a TryPublish(any) method,
// so a caller holding it as an untyped value can publish PipelineEvents.
// No EventPublisher interface is declared, and internal/xerrors has no
// publisher hook that uses it.
type EventPublisherAdapter struct {
	eventBus *EventBus
}

// NewEventPublisherAdapter creates a new adapter
func NewEventPublisherAdapter(eventBus *EventBus) *EventPublisherAdapter {
	return &EventPublisherAdapter{
		eventBus: eventBus,
	}
}

// TryPublish attempts to publish an event
// It accepts any and type asserts to PipelineEvent
func (a *EventPublisherAdapter) TryPublish(event any) bool {
	// Fast path: check if any consumers are active
	if !HasActiveConsumers() {
		return false
	}
	
	if a.eventBus == nil {
		return false
	}
	
	// Type assert to PipelineEvent (this gateway has one event envelope,
	// unlike the teacher's separate ErrorEvent type)
	pipelineEvent, ok := event.(PipelineEvent)
	if !ok {
		return false
	}

	return a.eventBus.TryPublish(pipelineEvent)
}

// InitializeErrorsIntegration wraps the global event bus in an adapter and
// passes it to setPublisher. When the bus has not been initialized it
// returns nil without calling setPublisher.
func InitializeErrorsIntegration(setPublisher func(any)) error {
	eb := GetEventBus()
	if eb == nil {
		return nil // Event bus not initialized, skip integration
	}
	
	// Create adapter
	adapter := NewEventPublisherAdapter(eb)
	
	// Set the publisher in the errors package
	setPublisher(adapter)
	
	return nil
}