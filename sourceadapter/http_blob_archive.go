package sourceadapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	patrickmngocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/sui-replay/replaycore/errtax"
)

const (
	tipCacheKey        = "latest_tip"
	tipCacheTTL        = 3 * time.Second
	blobArchiveMaxWait = 10 * time.Second
)

// httpBlobArchive is the BlobArchive adapter: plain HTTP GET, no
// authentication, retried with exponential backoff capped at 10s total.
type httpBlobArchive struct {
	baseURL string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	tipTTL  *patrickmngocache.Cache
}

// NewHTTPBlobArchive builds a blob archive client. requestsPerSecond bounds
// outbound request rate so a mutation-lab batch sweeping many candidates
// doesn't hammer the archive.
func NewHTTPBlobArchive(baseURL string, requestsPerSecond float64) BlobArchive {
	client := retryablehttp.NewClient()
	client.RetryMax = 5
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Backoff = cappedBackoff
	client.Logger = nil

	return &httpBlobArchive{
		baseURL: baseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		tipTTL:  patrickmngocache.New(tipCacheTTL, 2*tipCacheTTL),
	}
}

// cappedBackoff is retryablehttp's DefaultBackoff with every wait clamped
// to RetryWaitMax, including a wait a Retry-After header asks for, so the
// RetryMax (5) waits of at most 2s each add up to no more than
// blobArchiveMaxWait.
func cappedBackoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	wait := retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	if wait > max {
		return max
	}
	return wait
}

func (a *httpBlobArchive) GetCheckpoint(ctx context.Context, n uint64) (CheckpointBlob, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return CheckpointBlob{}, errtax.ErrCancelled
	}
	url := fmt.Sprintf("%s/v1/checkpoint/full?checkpoint=%d", a.baseURL, n)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CheckpointBlob{}, errtax.Host("build checkpoint request", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return CheckpointBlob{}, errtax.Host("fetch checkpoint", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return CheckpointBlob{}, errtax.NotAvailable("future_or_recent")
	case resp.StatusCode >= 500:
		return CheckpointBlob{}, errtax.Host("fetch checkpoint", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return CheckpointBlob{}, errtax.Host("fetch checkpoint", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return CheckpointBlob{}, errtax.Host("read checkpoint body", err)
	}
	return CheckpointBlob{Checkpoint: n, Data: data}, nil
}

// IsArchived asks the archival-flag endpoint whether checkpoint n has
// been committed to long-term storage yet. A 404 here means "not
// archived" rather than "doesn't exist" — GetCheckpoint is still the
// authority on existence.
func (a *httpBlobArchive) IsArchived(ctx context.Context, n uint64) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, errtax.ErrCancelled
	}
	url := fmt.Sprintf("%s/v1/app_checkpoint?checkpoint=%d", a.baseURL, n)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, errtax.Host("build archival-flag request", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false, errtax.Host("fetch archival flag", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, errtax.Host("fetch archival flag", fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, errtax.Host("read archival flag body", err)
	}
	archived, err := strconv.ParseBool(strings.TrimSpace(string(data)))
	if err != nil {
		return false, errtax.Host("parse archival flag", err)
	}
	return archived, nil
}

func (a *httpBlobArchive) GetLatestTip(ctx context.Context) (uint64, error) {
	if cached, ok := a.tipTTL.Get(tipCacheKey); ok {
		return cached.(uint64), nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, errtax.ErrCancelled
	}

	url := a.baseURL + "/v1/latest"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errtax.Host("build tip request", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, errtax.Host("fetch tip", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errtax.Host("fetch tip", fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errtax.Host("read tip body", err)
	}
	tip, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, errtax.Host("parse tip", err)
	}
	a.tipTTL.Set(tipCacheKey, tip, patrickmngocache.DefaultExpiration)
	return tip, nil
}
