package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// HTTPConfig configures the knowledge-graph client.
type HTTPConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RateLimit       float64
	Burst           int
	RetryAttempts   uint
	BreakerFailures uint32
}

// StatusError reports an unexpected knowledge-graph response.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("knowledge graph %s: unexpected status %d", e.Path, e.Status)
}

// isClientError reports a 4xx response other than 429. These are neither
// retried nor counted against the breaker.
func isClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status >= 400 && se.Status < 500 && se.Status != http.StatusTooManyRequests
}

// HTTPProvider reads nodes from the knowledge-graph service. Calls go through
// a rate limiter, then a circuit breaker, then a retry loop.
type HTTPProvider struct {
	base     string
	client   *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker
	attempts uint
}

// NewHTTPProvider creates a provider for cfg.BaseURL.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("knowledge graph url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("knowledge graph url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	failures := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "knowledge-graph",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})
	return &HTTPProvider{
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		cb:       cb,
		attempts: cfg.RetryAttempts,
	}, nil
}

// GetNode implements Provider. A 404 is reported as ok=false.
func (p *HTTPProvider) GetNode(ctx context.Context, id string) (NodeSnapshot, bool, error) {
	var rec nodeRecord
	found, err := p.get(ctx, "/api/v1/graph/nodes/"+url.PathEscape(id), nil, &rec)
	if err != nil || !found {
		return NodeSnapshot{}, false, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return rec.snapshot(), true, nil
}

type neighborsResponse struct {
	NodeID    string       `json:"node_id"`
	Neighbors []nodeRecord `json:"neighbors"`
	Count     int          `json:"count"`
}

// GetNeighbors implements Provider. An unknown node has no neighbours.
func (p *HTTPProvider) GetNeighbors(ctx context.Context, id string, maxDepth int) ([]NodeSnapshot, error) {
	q := url.Values{}
	q.Set("max_depth", strconv.Itoa(maxDepth))
	var resp neighborsResponse
	found, err := p.get(ctx, "/api/v1/graph/nodes/"+url.PathEscape(id)+"/neighbors", q, &resp)
	if err != nil || !found {
		return nil, err
	}
	out := make([]NodeSnapshot, 0, len(resp.Neighbors))
	for _, r := range resp.Neighbors {
		if r.ID == "" {
			continue
		}
		out = append(out, r.snapshot())
	}
	return out, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	u := p.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	res, err := p.cb.Execute(func() (interface{}, error) {
		var found bool
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(p.attempts),
			retry.DelayType(retry.BackOffDelay),
			retry.RetryIf(func(err error) bool { return !isClientError(err) }),
		)
		err := r.Do(func() error {
			f, err := p.do(ctx, u, path, out)
			found = f
			return err
		})
		return found, err
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (p *HTTPProvider) do(ctx context.Context, u, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, &StatusError{Path: path, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// BreakerState reports the circuit breaker state name.
func (p *HTTPProvider) BreakerState() string {
	return p.cb.State().String()
}
