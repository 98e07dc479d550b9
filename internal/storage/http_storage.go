package storage

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"
)

type ImageFetcher interface {
	FetchImage(ctx context.Context, ref string) (image.Image, error)
}

const maxAttempts = 3

// HTTPImageFetcher downloads images over HTTP(S), retrying transient failures
type HTTPImageFetcher struct {
	client  *http.Client
	backoff func(attempt int) time.Duration
	decoder *Decoder
}

// NewHTTPImageFetcher creates an HTTP image fetcher with the given overall timeout
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
		decoder: NewDecoder(0, nil),
	}
}

// WithDecoder replaces the decoder and its limits
func (h *HTTPImageFetcher) WithDecoder(d *Decoder) *HTTPImageFetcher {
	if d != nil {
		h.decoder = d
	}
	return h
}

// WithBackoff replaces the delay between attempts
func (h *HTTPImageFetcher) WithBackoff(backoff func(attempt int) time.Duration) *HTTPImageFetcher {
	h.backoff = backoff
	return h
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, retryable, err := h.do(ctx, imageURL)
		if err == nil {
			img, decodeErr := func() (image.Image, error) {
				defer resp.Body.Close()
				if resp.ContentLength > h.decoder.MaxBytes() {
					return nil, ErrImageTooLarge
				}
				return h.decoder.Decode(resp.Body)
			}()
			return img, decodeErr
		}

		lastErr = err
		if !retryable || attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.backoff(attempt)):
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", maxAttempts, lastErr)
}

// do performs one request. On success the caller owns resp.Body.
func (h *HTTPImageFetcher) do(ctx context.Context, imageURL string) (*http.Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Object-Detector/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		// Cancellation is not transient.
		return nil, ctx.Err() == nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, false, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, false, fmt.Errorf("%w: client error: status code %d", ErrImageNotFound, resp.StatusCode)
		}
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	default:
		resp.Body.Close()
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
}
