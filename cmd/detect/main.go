// Package main is a command line front end to the detector. Results are
// written to stdout as JSON, logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go-object-detector/internal/config"
	"go-object-detector/internal/container"
	apperrors "go-object-detector/internal/errors"
	"go-object-detector/internal/logger"
	"go-object-detector/pkg/models"
)

const (
	flagEngine          = "engine"
	flagModel           = "model"
	flagLabels          = "labels"
	flagPolicy          = "policy"
	flagThreshold       = "threshold"
	flagObjectThreshold = "object-threshold"
	flagSingle          = "single"
	flagTimeout         = "timeout"
	flagLogLevel        = "log-level"
)

func main() {
	logger.SetOutput(os.Stderr)

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the CLI. Results and error bodies are written to stdout.
func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "detect",
		Usage:     "detect and label objects in an image",
		ArgsUsage: "<image path or URL>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagEngine,
				Usage: "detection engine: onnx, gocv or fixture",
			},
			&cli.StringFlag{
				Name:    flagModel,
				Aliases: []string{"m"},
				Usage:   "load the model from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagLabels,
				Aliases: []string{"l"},
				Usage:   "load class labels from `FILE`, one per line",
			},
			&cli.StringFlag{
				Name:  flagPolicy,
				Usage: "label selection policy: max_confidence or threshold",
			},
			&cli.Float64Flag{
				Name:  flagThreshold,
				Usage: "minimum label confidence",
			},
			&cli.Float64Flag{
				Name:  flagObjectThreshold,
				Usage: "minimum box score",
			},
			&cli.BoolFlag{
				Name:  flagSingle,
				Usage: "report only the best scoring object",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Usage: "detector timeout",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: "warn",
				Usage: "log level written to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			return detect(c, stdout)
		},
	}
}

func detect(c *cli.Context, stdout io.Writer) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one image reference")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctr, err := container.NewContainer(cfg)
	if err != nil {
		return errors.Wrap(err, "load detector")
	}
	defer ctr.Close()

	resp, err := ctr.DetectionService().Detect(context.Background(), c.Args().First())
	if err != nil {
		writeJSON(stdout, errorResponse(err))
		return cli.Exit("", exitCode(err))
	}
	writeJSON(stdout, resp)
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	cfg.LogLevel = c.String(flagLogLevel)
	d := &cfg.Detector
	if c.IsSet(flagEngine) {
		d.Engine = c.String(flagEngine)
	}
	if c.IsSet(flagModel) {
		d.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagLabels) {
		d.LabelsPath = c.String(flagLabels)
	}
	if c.IsSet(flagPolicy) {
		d.SelectionPolicy = c.String(flagPolicy)
	}
	if c.IsSet(flagThreshold) {
		d.ConfidenceThreshold = float32(c.Float64(flagThreshold))
	}
	if c.IsSet(flagObjectThreshold) {
		d.ObjectThreshold = float32(c.Float64(flagObjectThreshold))
	}
	if c.IsSet(flagSingle) {
		d.MultipleObjects = !c.Bool(flagSingle)
	}
	if c.IsSet(flagTimeout) {
		d.Timeout = c.Duration(flagTimeout)
	}
}

func errorResponse(err error) models.ErrorResponse {
	body := models.ErrorResponse{
		Error:   "detection failed",
		Code:    string(apperrors.TypeOf(err)),
		Message: err.Error(),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Details = appErr.Details
	}
	return body
}

// exitCode distinguishes "nothing found" from failures
func exitCode(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNoDetections, apperrors.ErrorTypeNoConfidentLabel:
		return 2
	default:
		return 1
	}
}

func writeJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.WithError(err).Error("Failed to write result")
	}
}
