package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/sync/semaphore"

	"wishdraw-backend/internal/common/logger"
)

// ErrUnavailable marks a transient failure (timeout, non-200, truncated
// body). Callers must not cache it as a negative: the next lookup retries.
var ErrUnavailable = errors.New("sponsor source unavailable")

// Resolver maps a token to its owning sponsor id. An empty id with a nil
// error is a definitive "no sponsor found" verdict.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

var sponsorIDRx = regexp.MustCompile(`(?i)manufacturers?_id(?:=|["': ]*)(\d+)`)

// minPageLen filters out stub/error pages the source serves with status 200.
const minPageLen = 3000

// PageResolver asks the external catalog for a token's page and extracts the
// owning sponsor id from it. All calls share one concurrency bound so the
// rate-limited source is never hammered, and each fetch carries its own
// timeout so a slow page cannot stall a draw.
type PageResolver struct {
	httpClient *http.Client
	baseURL    string
	sem        *semaphore.Weighted
	timeout    time.Duration
}

func NewPageResolver(baseURL string, timeout time.Duration, concurrency int64) *PageResolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PageResolver{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		sem:        semaphore.NewWeighted(concurrency),
		timeout:    timeout,
	}
}

// Resolve fetches the token's catalog page(s). The source exposes two URL
// forms depending on catalog generation, so both are tried in order.
func (r *PageResolver) Resolve(ctx context.Context, token string) (string, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer r.sem.Release(1)

	urls := []string{
		fmt.Sprintf("%s/shop/product/%s", r.baseURL, token),
		fmt.Sprintf("%s/shop/product.php?products_id=%s", r.baseURL, token),
	}

	fetched := false
	for _, url := range urls {
		body, err := r.fetch(ctx, url)
		if err != nil {
			logger.Debug().Str("token", token).Str("url", url).Err(err).Msg("token page fetch failed")
			continue
		}
		fetched = true
		if m := sponsorIDRx.FindSubmatch(body); m != nil {
			return string(m[1]), nil
		}
	}

	if !fetched {
		return "", ErrUnavailable
	}
	// Pages loaded but carried no sponsor marker: authoritative not-found.
	return "", nil
}

func (r *PageResolver) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) < minPageLen {
		return nil, fmt.Errorf("page too short (%d bytes)", len(body))
	}
	return body, nil
}
