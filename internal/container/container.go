package container

import (
	"fmt"
	"net/http"

	"go-object-detector/internal/config"
	"go-object-detector/internal/detection"
	"go-object-detector/internal/engine"
	"go-object-detector/internal/factory"
	"go-object-detector/internal/logger"
	"go-object-detector/internal/observer"
	"go-object-detector/internal/service"
	"go-object-detector/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	metrics          *observer.MetricsObserver
	detectionService service.DetectionService
	handler          http.Handler
}

// NewContainer builds the dependency graph. The model is loaded here, so a
// missing or unreadable model asset fails construction.
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	components := factory.NewComponentFactory(cfg)

	repo, err := components.BuildRepository(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to build image repository: %w", err)
	}

	var labels []string
	if cfg.Detector.LabelsPath != "" {
		labels, err = engine.LoadLabels(cfg.Detector.LabelsPath)
		if err != nil {
			return nil, err
		}
	}

	source, err := components.SourceFactory.CreateSource(
		factory.EngineType(cfg.Detector.Engine),
		factory.SourceOptions(cfg.Detector, labels),
	)
	if err != nil {
		return nil, err
	}

	policy, err := detection.NewPolicy(cfg.Detector.SelectionPolicy, cfg.Detector.ConfidenceThreshold)
	if err != nil {
		source.Close()
		return nil, err
	}

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	detectionService := service.NewDetectionService(
		repo,
		source,
		policy,
		detection.NewWorkerPool(cfg.Detector.Workers),
		publisher,
		cfg.Detector.Timeout,
	)

	logger.WithFields(map[string]interface{}{
		"engine":     cfg.Detector.Engine,
		"model_path": cfg.Detector.ModelPath,
		"labels":     len(labels),
		"policy":     policy.Name(),
		"workers":    cfg.Detector.Workers,
	}).Info("Detector loaded")

	return &Container{
		config:           cfg,
		metrics:          metrics,
		detectionService: detectionService,
		handler:          transport.NewHandler(detectionService, metrics, cfg),
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// DetectionService returns the invocation controller
func (c *Container) DetectionService() service.DetectionService {
	return c.detectionService
}

// Metrics returns the event metrics collector
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close releases the detector
func (c *Container) Close() error {
	return c.detectionService.Close()
}
