// Package probe decides whether the real analysis backend is reachable.
//
// A probe walks a fixed list of strategies in order and stops at the first
// success. Strategies are strictly sequential: the next one runs only after
// the previous one failed, never concurrently. Probe never returns an error;
// every failure is caught and classified into a ConnectivityResult.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"densiview/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Strategy is one connectivity check attempt. Run returns nil when the
// backend answered in a way this strategy accepts.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, baseURL string) error
}

// Config configures the prober.
type Config struct {
	// Timeout bounds each individual strategy attempt (default: 5s).
	Timeout time.Duration

	// HTTPClient used by the health strategy. Defaults to a fresh client.
	HTTPClient *http.Client

	// Logger for per-strategy debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Prober runs connectivity strategies against a backend origin.
type Prober struct {
	cfg        Config
	logger     *slog.Logger
	strategies []Strategy
}

// New creates a Prober with the standard strategy sequence:
//
//  1. health      — GET {baseUrl}/health, no auth header, expects HTTP 2xx
//  2. reach       — bare TCP dial of the origin; proves reachability only,
//     not HTTP correctness
//  3. placeholder — reserved slot, always fails
func New(cfg Config) *Prober {
	cfg.defaults()
	p := &Prober{cfg: cfg, logger: cfg.Logger}
	p.strategies = []Strategy{
		{Name: "health", Run: p.runHealth},
		{Name: "reach", Run: p.runReach},
		{Name: "placeholder", Run: runPlaceholder},
	}
	return p
}

// NewWithStrategies creates a Prober with an explicit strategy list.
func NewWithStrategies(cfg Config, strategies []Strategy) *Prober {
	cfg.defaults()
	return &Prober{cfg: cfg, logger: cfg.Logger, strategies: strategies}
}

// Probe attempts each strategy until one succeeds or all fail. The returned
// classification reflects the first failure, which corresponds to the most
// capable strategy and is the most useful signal for the user.
func (p *Prober) Probe(ctx context.Context, baseURL string) domain.ConnectivityResult {
	var firstErr error
	for _, s := range p.strategies {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		err := s.Run(attemptCtx, baseURL)
		cancel()

		if err == nil {
			p.logger.Debug("backend reachable", "strategy", s.Name, "url", baseURL)
			return domain.ConnectivityResult{
				Reachable:      true,
				Classification: domain.FailureClassOK,
				StrategyUsed:   s.Name,
			}
		}

		p.logger.Debug("probe strategy failed", "strategy", s.Name, "url", baseURL, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return domain.ConnectivityResult{
		Reachable:      false,
		Classification: Classify(firstErr),
		StrategyUsed:   "",
		Detail:         errDetail(firstErr),
	}
}

// runHealth performs the primary check: an unauthenticated GET of /health
// that must answer with a 2xx status.
func (p *Prober) runHealth(ctx context.Context, baseURL string) error {
	healthURL := strings.TrimRight(baseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health endpoint returned %s", resp.Status)
	}
	return nil
}

// runReach dials the origin's TCP port without speaking HTTP. Success proves
// only that something answers at the address, the equivalent of an opaque
// response: status and headers stay uninspected.
func (p *Prober) runReach(ctx context.Context, baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("base url has no host: %q", baseURL)
	}
	port := u.Port()
	if port == "" {
		if u.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	return conn.Close()
}

// runPlaceholder is the reserved third slot. It has never been implemented
// and always fails.
func runPlaceholder(context.Context, string) error {
	return fmt.Errorf("strategy not implemented")
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
