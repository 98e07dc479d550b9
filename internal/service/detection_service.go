package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-object-detector/internal/detection"
	apperrors "go-object-detector/internal/errors"
	"go-object-detector/internal/observer"
	"go-object-detector/internal/repository"
	"go-object-detector/pkg/models"
)

// State is the lifecycle position of a single detection call
type State string

const (
	StateIdle           State = "idle"
	StateImageResolving State = "image_resolving"
	StateDetecting      State = "detecting"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// Outcome is the single resolution of a detection call. Exactly one of
// Response and Err is set.
type Outcome struct {
	RequestID string
	Response  *models.DetectionResponse
	Err       error
}

// DetectionService runs one image through the detector per call
type DetectionService interface {
	// Detect blocks until the call resolves
	Detect(ctx context.Context, imagePath string) (*models.DetectionResponse, error)

	// DetectAsync starts a call and returns a channel that receives exactly
	// one Outcome and is then closed.
	DetectAsync(ctx context.Context, imagePath string) <-chan Outcome

	// Stats reports the engine queue counters
	Stats() detection.PoolStats

	// Close stops accepting calls, waits for running engine calls and
	// releases the detector
	Close() error
}

type detectionService struct {
	images  repository.ImageRepository
	source  detection.Source
	policy  detection.Policy
	pool    *detection.WorkerPool
	events  observer.Subject
	timeout time.Duration
}

// NewDetectionService wires the controller. The pool is started here.
// A zero timeout disables the call deadline.
func NewDetectionService(
	images repository.ImageRepository,
	source detection.Source,
	policy detection.Policy,
	pool *detection.WorkerPool,
	events observer.Subject,
	timeout time.Duration,
) DetectionService {
	if events == nil {
		events = observer.NewEventPublisher()
	}
	pool.Start()
	return &detectionService{
		images:  images,
		source:  source,
		policy:  policy,
		pool:    pool,
		events:  events,
		timeout: timeout,
	}
}

func (s *detectionService) Detect(ctx context.Context, imagePath string) (*models.DetectionResponse, error) {
	outcome := <-s.DetectAsync(ctx, imagePath)
	return outcome.Response, outcome.Err
}

func (s *detectionService) DetectAsync(ctx context.Context, imagePath string) <-chan Outcome {
	c := &call{
		service:   s,
		requestID: uuid.NewString(),
		imagePath: imagePath,
		state:     StateIdle,
		started:   time.Now(),
		out:       make(chan Outcome, 1),
	}
	go c.run(ctx)
	return c.out
}

func (s *detectionService) Stats() detection.PoolStats {
	return s.pool.GetStats()
}

func (s *detectionService) Close() error {
	s.pool.Close()
	// Running inferences finish before the engine is released.
	s.pool.Wait()
	return s.source.Close()
}

type engineResult struct {
	detections []detection.RawDetection
	err        error
}

// call carries the state of one invocation
type call struct {
	service   *detectionService
	requestID string
	imagePath string
	started   time.Time

	mu    sync.Mutex
	state State

	// emitMu orders observer delivery against the terminal transition
	emitMu sync.Mutex

	once sync.Once
	out  chan Outcome
}

func (c *call) run(parent context.Context) {
	ctx := parent
	if c.service.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, c.service.timeout)
		defer cancel()
	}

	// Resolve on cancellation even while a fetcher or the engine ignores ctx.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.resolve(ctx, nil, contextError(parent, ctx))
		case <-done:
		}
	}()

	c.transition(StateImageResolving)
	c.emit(ctx, observer.DetectionEvent{EventType: observer.DetectionStarted})

	img, err := c.service.images.FetchImage(ctx, c.imagePath)
	if err == nil && img == nil {
		err = errors.New("resolver returned no image")
	}
	if err != nil {
		if ctx.Err() != nil {
			c.resolve(ctx, nil, contextError(parent, ctx))
			return
		}
		c.emit(ctx, observer.DetectionEvent{EventType: observer.ImageResolutionFailed, ErrorMessage: err.Error()})
		c.resolve(ctx, nil, apperrors.NewImageResolutionError("Failed to load image", err))
		return
	}
	c.emit(ctx, observer.DetectionEvent{
		EventType: observer.ImageResolved,
		Metadata:  map[string]interface{}{"width": img.Bounds().Dx(), "height": img.Bounds().Dy()},
	})

	if !c.transition(StateDetecting) {
		return
	}
	results := make(chan engineResult, 1)
	submitted := c.service.pool.SubmitContext(ctx, func() {
		results <- c.service.runEngine(ctx, img)
	})
	if !submitted {
		if ctx.Err() != nil {
			c.resolve(ctx, nil, contextError(parent, ctx))
			return
		}
		c.resolve(ctx, nil, apperrors.NewInternalError("Detector is shutting down", nil))
		return
	}

	select {
	case r := <-results:
		if r.err != nil && ctx.Err() != nil {
			c.resolve(ctx, nil, contextError(parent, ctx))
			return
		}
		resp, err := c.finish(img, r)
		c.resolve(ctx, resp, err)
	case <-ctx.Done():
		// A late engine result lands in the buffered channel and is dropped.
		c.resolve(ctx, nil, contextError(parent, ctx))
	}
}

// runEngine never calls the source with a nil image and turns panics into errors
func (s *detectionService) runEngine(ctx context.Context, img image.Image) (r engineResult) {
	defer func() {
		if p := recover(); p != nil {
			r = engineResult{err: fmt.Errorf("detector panicked: %v", p)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return engineResult{err: err}
	}
	dets, err := s.source.Detect(ctx, img)
	return engineResult{detections: dets, err: err}
}

// finish maps engine output onto a response or a typed rejection
func (c *call) finish(img image.Image, r engineResult) (*models.DetectionResponse, error) {
	if r.err != nil {
		return nil, apperrors.NewEngineError("Object detection failed", r.err)
	}

	agg := detection.Aggregate(r.detections, c.service.policy)
	if agg.AnyEmpty {
		return nil, apperrors.NewNoDetectionsError()
	}
	if agg.Labelled == 0 {
		return nil, apperrors.NewNoConfidentLabelError(len(agg.Annotated))
	}

	bounds := img.Bounds()
	return &models.DetectionResponse{
		RequestID:        c.requestID,
		ImagePath:        c.imagePath,
		ImageWidth:       bounds.Dx(),
		ImageHeight:      bounds.Dy(),
		ProcessingTimeMs: time.Since(c.started).Milliseconds(),
		Detections:       detection.BuildRecords(agg.Annotated),
	}, nil
}

// resolve delivers the outcome. Only the first call has any effect.
func (c *call) resolve(ctx context.Context, resp *models.DetectionResponse, err error) {
	c.once.Do(func() {
		c.emitMu.Lock()
		event := observer.DetectionEvent{ProcessingTime: time.Since(c.started)}
		if err != nil {
			c.transition(StateFailed)
			event.EventType = observer.DetectionFailed
			event.ErrorType = string(apperrors.TypeOf(err))
			event.ErrorMessage = err.Error()
		} else {
			c.transition(StateSucceeded)
			event.EventType = observer.DetectionCompleted
			event.Detections = len(resp.Detections)
			for _, d := range resp.Detections {
				if d.Label != nil {
					event.Labelled++
				}
			}
		}
		c.deliver(context.WithoutCancel(ctx), event)
		c.emitMu.Unlock()

		c.out <- Outcome{RequestID: c.requestID, Response: resp, Err: err}
		close(c.out)
	})
}

// transition moves to next unless the call already resolved
func (c *call) transition(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSucceeded || c.state == StateFailed {
		return false
	}
	c.state = next
	return true
}

func (c *call) current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// emit drops progress events once the call has resolved
func (c *call) emit(ctx context.Context, event observer.DetectionEvent) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if state := c.current(); state == StateSucceeded || state == StateFailed {
		return
	}
	c.deliver(ctx, event)
}

func (c *call) deliver(ctx context.Context, event observer.DetectionEvent) {
	event.Timestamp = time.Now()
	event.RequestID = c.requestID
	event.ImagePath = c.imagePath
	event.State = string(c.current())
	c.service.events.NotifyObservers(ctx, event)
}

// contextError classifies a finished context. A caller deadline or the call
// timeout is a timeout; anything else is a cancellation.
func contextError(parent, ctx context.Context) error {
	if parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded) {
		return apperrors.NewCancelledError(parent.Err())
	}
	cause := ctx.Err()
	if parent.Err() != nil {
		cause = parent.Err()
	}
	return apperrors.NewTimeoutError("Detection timed out", cause)
}
