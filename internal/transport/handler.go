package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-object-detector/internal/config"
	apperrors "go-object-detector/internal/errors"
	"go-object-detector/internal/logger"
	"go-object-detector/internal/observer"
	"go-object-detector/internal/service"
	"go-object-detector/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

func NewHandler(svc service.DetectionService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", metricsHandler(svc, metrics))
	r.POST("/v1/detect", detectObjects(svc, cfg))

	return r
}

func detectObjects(svc service.DetectionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing object detection request")

		var req models.DetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, apperrors.NewValidationError("Request body too large", err))
				return
			}
			respondError(c, http.StatusBadRequest, apperrors.NewValidationError("Invalid request format", err))
			return
		}

		resp, err := svc.Detect(ctx, req.ImagePath)
		if err != nil {
			// errorHandler writes the response
			c.Error(err)
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id":         resp.RequestID,
			"image_path":         req.ImagePath,
			"detections":         len(resp.Detections),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Object detection completed successfully")

		c.JSON(http.StatusOK, resp)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func metricsHandler(svc service.DetectionService, metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"detections": metrics.GetMetrics(),
			"engine":     svc.Stats(),
		})
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// errorHandler answers for the last error a handler reported with c.Error
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), err)
		}
	}
}

func determineStatusCode(err error) int {
	switch {
	case errors.As(err, new(*apperrors.AppError)):
		return apperrors.GetStatusCode(err)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, err error) {
	body := models.ErrorResponse{
		Error: http.StatusText(code),
		Code:  string(apperrors.TypeOf(err)),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Details = appErr.Details
	} else {
		body.Message = err.Error()
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"code":        body.Code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	c.AbortWithStatusJSON(code, body)
}
