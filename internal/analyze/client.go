// Package analyze implements the hybrid analysis client: use the real
// backend when a probe says it is reachable, otherwise degrade to the mock
// report generator. Every recoverable failure terminates in a usable mock
// result; only input validation rejects a submission.
package analyze

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"densiview/internal/domain"
	"densiview/internal/mockreport"
)

// backendProber abstracts the connectivity prober.
type backendProber interface {
	Probe(ctx context.Context, baseURL string) domain.ConnectivityResult
}

// reportGenerator abstracts the mock report generator.
type reportGenerator interface {
	Generate(d mockreport.Descriptor) string
}

// Config configures the hybrid client.
type Config struct {
	// Prober decides backend reachability. Required.
	Prober backendProber

	// Generator produces mock reports. Required.
	Generator reportGenerator

	// HTTPClient used for report submissions. Defaults to a fresh client.
	HTTPClient *http.Client

	// SubmitTimeout bounds one full analysis submission (default: 10m).
	SubmitTimeout time.Duration

	// OnSSLNotice is invoked at most once per session, the first time a
	// probe or submission fails with a certificate problem. The UI uses it
	// to tell the user to visit the backend origin and accept its
	// certificate. May be nil.
	OnSSLNotice func(detail string)

	// Logger for decision and fallback messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = SubmitTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client orchestrates real-versus-mock analysis. Constructed once at
// application startup; the reachability decision and the SSL-notice flag
// live here rather than in package globals.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu             sync.Mutex
	realUsable     *bool // nil until the first probe resolves
	pendingProbe   chan struct{}
	lastResult     domain.ConnectivityResult
	sslNoticeShown bool
}

// New creates a hybrid client.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg, logger: cfg.Logger}
}

// Initialize runs the prober once and caches the decision for the session.
// The decision is sticky: it is never re-probed automatically, only by
// Refresh. Concurrent callers are deduplicated: whoever arrives while a
// probe is in flight waits for that probe instead of starting another.
func (c *Client) Initialize(ctx context.Context, settings domain.Settings) bool {
	for {
		c.mu.Lock()
		if c.realUsable != nil {
			usable := *c.realUsable
			c.mu.Unlock()
			return usable
		}
		if c.pendingProbe != nil {
			pending := c.pendingProbe
			c.mu.Unlock()
			select {
			case <-pending:
			case <-ctx.Done():
				return false
			}
			continue
		}

		pending := make(chan struct{})
		c.pendingProbe = pending
		c.mu.Unlock()

		result := c.cfg.Prober.Probe(ctx, settings.BackendURL)
		usable := result.Reachable

		c.mu.Lock()
		c.realUsable = &usable
		c.lastResult = result
		c.pendingProbe = nil
		c.mu.Unlock()
		close(pending)

		c.logger.Info("backend probe resolved",
			"reachable", result.Reachable,
			"strategy", result.StrategyUsed,
			"classification", string(result.Classification))

		if result.Classification == domain.FailureClassSSL {
			c.notifySSL(result.Detail)
		}
		return usable
	}
}

// Refresh discards the cached decision and probes again.
func (c *Client) Refresh(ctx context.Context, settings domain.Settings) bool {
	c.mu.Lock()
	c.realUsable = nil
	c.mu.Unlock()
	return c.Initialize(ctx, settings)
}

// Connectivity returns the result of the most recent probe.
func (c *Client) Connectivity() domain.ConnectivityResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// Analyze submits one upload. Validation failures are returned as errors and
// block the submission; every other failure degrades to a mock result, so a
// valid upload always yields a usable AnalysisResult.
func (c *Client) Analyze(ctx context.Context, settings domain.Settings, upload Upload, requestID, note string) (domain.AnalysisResult, error) {
	if _, err := validate(upload); err != nil {
		return domain.AnalysisResult{}, err
	}

	if !c.Initialize(ctx, settings) {
		reason := describeFallback("backend unreachable", c.Connectivity().Classification, c.Connectivity().Detail)
		return c.mockResult(upload, requestID, note, reason), nil
	}

	result, err := c.submitReal(ctx, settings, upload, requestID, note)
	if err == nil {
		return result, nil
	}

	if connErr, ok := err.(*ConnectivityError); ok && connErr.Class == domain.FailureClassSSL {
		c.notifySSL(connErr.Error())
	}
	c.logger.Warn("falling back to mock report", "request_id", requestID, "error", err)
	return c.mockResult(upload, requestID, note, fallbackReason(err)), nil
}

// mockResult produces the universal fallback.
func (c *Client) mockResult(upload Upload, requestID, note, reason string) domain.AnalysisResult {
	markdown := c.cfg.Generator.Generate(mockreport.Descriptor{
		RequestID: requestID,
		Filename:  upload.Filename,
		Note:      note,
		Timestamp: time.Now(),
	})
	return domain.AnalysisResult{
		Kind:     domain.ResultKindMock,
		Markdown: markdown,
		Reason:   reason,
	}
}

// notifySSL emits the one-time certificate notice.
func (c *Client) notifySSL(detail string) {
	c.mu.Lock()
	shown := c.sslNoticeShown
	c.sslNoticeShown = true
	c.mu.Unlock()

	if !shown && c.cfg.OnSSLNotice != nil {
		c.cfg.OnSSLNotice(detail)
	}
}

// fallbackReason renders a submission failure as a human-readable cause.
func fallbackReason(err error) string {
	switch e := err.(type) {
	case *ConnectivityError:
		return describeFallback("submission failed", e.Class, e.Err.Error())
	case *ServerError:
		return "backend declined the request: " + e.Message
	default:
		return "submission failed: " + err.Error()
	}
}

func describeFallback(prefix string, class domain.FailureClass, detail string) string {
	reason := prefix + " (" + string(class) + ")"
	if detail != "" {
		reason += ": " + detail
	}
	return reason
}
