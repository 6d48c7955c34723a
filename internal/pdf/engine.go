// Package pdf integrates the external HTML-to-PDF rendering engine
// (Gotenberg's chromium route) behind a single shared, lazily-started
// instance, and owns the on-disk PDF file store.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

var (
	// ErrRenderTimeout marks a conversion that exceeded the render deadline.
	ErrRenderTimeout = fmt.Errorf("%w: pdf render", httpx.ErrTimeout)
	// ErrRenderEngine marks protocol-level failures from the rendering engine.
	ErrRenderEngine = fmt.Errorf("%w: pdf engine", httpx.ErrUpstream)
)

// Engine converts self-contained HTML into PDF bytes. The underlying
// chromium instance is shared across all requests: it starts lazily on the
// first conversion (guarded so concurrent first-requests share one start)
// and lives until Shutdown.
type Engine struct {
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	client  *http.Client
	started bool
}

// NewEngine configures the engine without contacting it; the expensive
// startup happens on first use.
func NewEngine(endpoint string, timeout time.Duration, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Engine{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		logger:   logger,
	}
}

// ensureStarted brings the shared engine up exactly once. Concurrent
// callers block on the mutex and reuse the instance started by the winner.
func (e *Engine) ensureStarted(ctx context.Context) (*http.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return e.client, nil
	}
	if e.endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint not configured", ErrRenderEngine)
	}

	client := &http.Client{Timeout: e.timeout + 10*time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderEngine, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: health check: %v", ErrRenderEngine, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: health check returned %d", ErrRenderEngine, resp.StatusCode)
	}

	e.client = client
	e.started = true
	e.logger.Info("pdf engine started", slog.String("endpoint", e.endpoint))
	return e.client, nil
}

// Convert renders HTML into PDF bytes with a fixed A4 page, 10mm margins
// and background graphics enabled. Each call gets its own bounded
// conversion context; the engine itself is never torn down here.
func (e *Engine) Convert(ctx context.Context, htmlContent string) ([]byte, error) {
	client, err := e.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderEngine, err)
	}
	if _, err := io.WriteString(part, htmlContent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderEngine, err)
	}

	// A4 in inches with 10mm margins all around.
	fields := map[string]string{
		"paperWidth":      "8.27",
		"paperHeight":     "11.69",
		"marginTop":       "0.39",
		"marginBottom":    "0.39",
		"marginLeft":      "0.39",
		"marginRight":     "0.39",
		"printBackground": "true",
		"waitDelay":       "100ms",
	}
	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderEngine, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderEngine, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderEngine, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrRenderTimeout, e.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderEngine, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: response %d: %s", ErrRenderEngine, resp.StatusCode, string(excerpt))
	}

	pdfBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrRenderTimeout, e.timeout)
		}
		return nil, fmt.Errorf("%w: read response: %v", ErrRenderEngine, err)
	}
	if len(pdfBytes) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrRenderEngine)
	}
	return pdfBytes, nil
}

// Shutdown releases the shared engine resources. Tied to process lifetime,
// never called mid-request.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.CloseIdleConnections()
	}
	e.client = nil
	e.started = false
	e.logger.Info("pdf engine stopped")
}
