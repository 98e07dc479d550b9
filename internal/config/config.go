package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Detection modes. Only single image inference is supported.
const (
	ModeSingleImage = "single_image"
)

// Selection policies for the label reducer.
const (
	PolicyMaxConfidence = "max_confidence"
	PolicyThreshold     = "threshold"
)

// Engine kinds.
const (
	EngineONNX    = "onnx"
	EngineGoCV    = "gocv"
	EngineFixture = "fixture"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	LogLevel           string
	LogFormat          string

	Detector DetectorOptions
	Storage  StorageOptions
}

// DetectorOptions is process-wide and immutable once loaded.
type DetectorOptions struct {
	ModelPath           string
	LabelsPath          string
	Engine              string
	Mode                string
	MultipleObjects     bool
	Classification      bool
	ObjectThreshold     float32
	ConfidenceThreshold float32
	MaxLabelsPerObject  int
	SelectionPolicy     string
	InputSize           int
	NMSThreshold        float32
	Workers             int
	Timeout             time.Duration
	ONNXRuntimeLibrary  string
}

type StorageOptions struct {
	AllowedSchemes   []string
	AzureAccountName string
	AzureAccountKey  string

	// Image limits, zero means the default
	MinImageWidth  int
	MinImageHeight int
	MaxImagePixels int
	MaxImageBytes  int64
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// DefaultDetectorOptions mirrors the options the bundled model was shipped with.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		ModelPath:           "model.onnx",
		Engine:              EngineONNX,
		Mode:                ModeSingleImage,
		MultipleObjects:     true,
		Classification:      true,
		ObjectThreshold:     0.25,
		ConfidenceThreshold: 0.8,
		MaxLabelsPerObject:  3,
		SelectionPolicy:     PolicyMaxConfidence,
		InputSize:           640,
		NMSThreshold:        0.7,
		Workers:             1,
		Timeout:             20 * time.Second,
	}
}

func LoadFromEnv() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	defaults := DefaultDetectorOptions()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 1024*1024), // 1MB
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
		Detector: DetectorOptions{
			ModelPath:           getEnvOrDefault("DETECTOR_MODEL_PATH", defaults.ModelPath),
			LabelsPath:          getEnvOrDefault("DETECTOR_LABELS_PATH", ""),
			Engine:              strings.ToLower(getEnvOrDefault("DETECTOR_ENGINE", defaults.Engine)),
			Mode:                getEnvOrDefault("DETECTOR_MODE", defaults.Mode),
			MultipleObjects:     parseBoolOrDefault("DETECTOR_MULTIPLE_OBJECTS", defaults.MultipleObjects),
			Classification:      parseBoolOrDefault("DETECTOR_CLASSIFICATION", defaults.Classification),
			ObjectThreshold:     parseFloatOrDefault("DETECTOR_OBJECT_THRESHOLD", defaults.ObjectThreshold),
			ConfidenceThreshold: parseFloatOrDefault("DETECTOR_CONFIDENCE_THRESHOLD", defaults.ConfidenceThreshold),
			MaxLabelsPerObject:  int(parseIntOrDefault("DETECTOR_MAX_LABELS", int64(defaults.MaxLabelsPerObject))),
			SelectionPolicy:     strings.ToLower(getEnvOrDefault("DETECTOR_SELECTION_POLICY", defaults.SelectionPolicy)),
			InputSize:           int(parseIntOrDefault("DETECTOR_INPUT_SIZE", int64(defaults.InputSize))),
			NMSThreshold:        parseFloatOrDefault("DETECTOR_NMS_THRESHOLD", defaults.NMSThreshold),
			Workers:             int(parseIntOrDefault("DETECTOR_WORKERS", int64(defaults.Workers))),
			Timeout:             parseDurationOrDefault("DETECTOR_TIMEOUT", defaults.Timeout),
			ONNXRuntimeLibrary:  getEnvOrDefault("ONNXRUNTIME_SHARED_LIBRARY", ""),
		},
		Storage: StorageOptions{
			AllowedSchemes:   parseListOrDefault("IMAGE_ALLOWED_SCHEMES", []string{"", "file", "http", "https", "azblob"}),
			AzureAccountName: os.Getenv("AZURE_STORAGE_ACCOUNT"),
			AzureAccountKey:  os.Getenv("AZURE_STORAGE_KEY"),
			MinImageWidth:    int(parseIntOrDefault("IMAGE_MIN_WIDTH", 0)),
			MinImageHeight:   int(parseIntOrDefault("IMAGE_MIN_HEIGHT", 0)),
			MaxImagePixels:   int(parseIntOrDefault("IMAGE_MAX_PIXELS", 0)),
			MaxImageBytes:    parseIntOrDefault("IMAGE_MAX_BYTES", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s)", c.RequestTimeout, c.ImageFetchTimeout)
	}
	if c.Storage.MinImageWidth < 0 || c.Storage.MinImageHeight < 0 || c.Storage.MaxImagePixels < 0 || c.Storage.MaxImageBytes < 0 {
		return fmt.Errorf("image limits must be >= 0")
	}
	return c.Detector.Validate()
}

func (d DetectorOptions) Validate() error {
	if strings.TrimSpace(d.ModelPath) == "" {
		return fmt.Errorf("DETECTOR_MODEL_PATH is required")
	}
	switch d.Engine {
	case EngineONNX, EngineGoCV, EngineFixture:
	default:
		return fmt.Errorf("unsupported DETECTOR_ENGINE: %q", d.Engine)
	}
	if d.Mode != ModeSingleImage {
		return fmt.Errorf("unsupported DETECTOR_MODE: %q (only %s)", d.Mode, ModeSingleImage)
	}
	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		return fmt.Errorf("DETECTOR_CONFIDENCE_THRESHOLD must be within [0,1] (got %g)", d.ConfidenceThreshold)
	}
	if d.ObjectThreshold < 0 || d.ObjectThreshold > 1 {
		return fmt.Errorf("DETECTOR_OBJECT_THRESHOLD must be within [0,1] (got %g)", d.ObjectThreshold)
	}
	if d.NMSThreshold <= 0 || d.NMSThreshold > 1 {
		return fmt.Errorf("DETECTOR_NMS_THRESHOLD must be within (0,1] (got %g)", d.NMSThreshold)
	}
	if d.MaxLabelsPerObject < 1 {
		return fmt.Errorf("DETECTOR_MAX_LABELS must be >= 1 (got %d)", d.MaxLabelsPerObject)
	}
	switch d.SelectionPolicy {
	case PolicyMaxConfidence, PolicyThreshold:
	default:
		return fmt.Errorf("unsupported DETECTOR_SELECTION_POLICY: %q", d.SelectionPolicy)
	}
	if d.InputSize < 32 {
		return fmt.Errorf("DETECTOR_INPUT_SIZE must be >= 32 (got %d)", d.InputSize)
	}
	if d.Workers < 1 {
		return fmt.Errorf("DETECTOR_WORKERS must be >= 1 (got %d)", d.Workers)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("DETECTOR_TIMEOUT must be > 0 (got %s)", d.Timeout)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
