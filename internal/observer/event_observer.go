package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DetectionEvent is emitted on every state change of a detection call
type DetectionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id"`
	ImagePath      string                 `json:"image_path"`
	State          string                 `json:"state"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Detections     int                    `json:"detections,omitempty"`
	Labelled       int                    `json:"labelled,omitempty"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of detection event
type EventType string

const (
	// DetectionStarted when a call leaves Idle
	DetectionStarted EventType = "detection_started"
	// ImageResolved when the image reference was loaded and decoded
	ImageResolved EventType = "image_resolved"
	// ImageResolutionFailed when the image could not be loaded
	ImageResolutionFailed EventType = "image_resolution_failed"
	// DetectionCompleted when the call resolves with a result
	DetectionCompleted EventType = "detection_completed"
	// DetectionFailed when the call resolves with an error
	DetectionFailed EventType = "detection_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event DetectionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event DetectionEvent)
}

// LoggingObserver logs detection events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles detection events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"request_id":      event.RequestID,
		"image_path":      event.ImagePath,
		"state":           event.State,
		"processing_time": event.ProcessingTime,
	}

	if event.ErrorType != "" {
		fields["error_type"] = event.ErrorType
		fields["error"] = event.ErrorMessage
	}
	if event.EventType == DetectionCompleted {
		fields["detections"] = event.Detections
		fields["labelled"] = event.Labelled
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case DetectionStarted:
		entry.Info("Object detection started")
	case ImageResolved:
		entry.Debug("Image resolved")
	case ImageResolutionFailed:
		entry.Warn("Image resolution failed")
	case DetectionCompleted:
		entry.Info("Object detection completed")
	case DetectionFailed:
		entry.Error("Object detection failed")
	default:
		entry.Info("Detection event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of MetricsObserver counters
type Metrics struct {
	TotalRequests       int64            `json:"total_requests"`
	SuccessfulRequests  int64            `json:"successful_requests"`
	FailedRequests      int64            `json:"failed_requests"`
	FailuresByType      map[string]int64 `json:"failures_by_type"`
	ImagesResolved      int64            `json:"images_resolved"`
	TotalDetections     int64            `json:"total_detections"`
	LabelledDetections  int64            `json:"labelled_detections"`
	TotalProcessingTime time.Duration    `json:"total_processing_time"`
	AvgProcessingTime   time.Duration    `json:"avg_processing_time"`
}

// MetricsObserver collects counters from detection events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	failuresByType      map[string]int64
	imagesResolved      int64
	totalDetections     int64
	labelledDetections  int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{failuresByType: make(map[string]int64)}
}

// OnEvent handles detection events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case DetectionStarted:
		o.totalRequests++
	case ImageResolved:
		o.imagesResolved++
	case DetectionCompleted:
		o.successfulRequests++
		o.totalDetections += int64(event.Detections)
		o.labelledDetections += int64(event.Labelled)
		o.totalProcessingTime += event.ProcessingTime
	case DetectionFailed:
		o.failedRequests++
		o.failuresByType[event.ErrorType]++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulRequests > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulRequests)
	}

	failures := make(map[string]int64, len(o.failuresByType))
	for k, v := range o.failuresByType {
		failures[k] = v
	}

	return Metrics{
		TotalRequests:       o.totalRequests,
		SuccessfulRequests:  o.successfulRequests,
		FailedRequests:      o.failedRequests,
		FailuresByType:      failures,
		ImagesResolved:      o.imagesResolved,
		TotalDetections:     o.totalDetections,
		LabelledDetections:  o.labelledDetections,
		TotalProcessingTime: o.totalProcessingTime,
		AvgProcessingTime:   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order.
// Delivery is synchronous so a call's events are observed in state order.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event DetectionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event DetectionEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
