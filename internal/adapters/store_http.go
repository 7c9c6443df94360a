package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

const (
	defaultStoreRetries    = 3
	defaultStoreRetryDelay = 200 * time.Millisecond
	defaultStoreTimeout    = 60 * time.Second
	maxStoreRetryDelay     = 2 * time.Second
	checksumHeader         = "X-Checksum-Sha256"
)

// StoreHTTPAdapter fetches bundles from <endpoint>/<name>/<version>/<name>.tar.gz.
// Transport failures, 5xx and 429 responses are retried; a missing artifact
// or a digest mismatch is not.
type StoreHTTPAdapter struct {
	Endpoint   string
	Username   string
	APIKey     string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Cache      BundleCacheAdapter
	Client     *http.Client
}

func NewStoreHTTPAdapter(endpoint string, cacheRoot string, username string, apiKey string, timeoutSec int, retries int, retryDelayMs int) StoreHTTPAdapter {
	return StoreHTTPAdapter{
		Endpoint:   endpoint,
		Username:   username,
		APIKey:     apiKey,
		Timeout:    normalizeStoreTimeout(timeoutSec),
		Retries:    normalizeStoreRetries(retries),
		RetryDelay: normalizeStoreRetryDelay(retryDelayMs),
		Cache:      NewBundleCacheAdapter(cacheRoot),
		Client:     &http.Client{},
	}
}

func (a StoreHTTPAdapter) Fetch(ctx context.Context, name string, version string) (types.ArtifactBundle, error) {
	if strings.TrimSpace(a.Endpoint) == "" {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact store endpoint is empty")
	}
	if err := validateArtifactKey(name, version); err != nil {
		return types.ArtifactBundle{}, err
	}
	if cached, ok := a.Cache.Lookup(ctx, name, version); ok {
		log.Ctx(ctx).Debug().Str("dependency", name).Str("version", version).Msg("using cached bundle")
		return cached, nil
	}

	var bundle types.ArtifactBundle
	attempts := 0
	permanent := false
	operation := func() error {
		attempts++
		result, retry, err := a.fetchOnce(ctx, name, version)
		if err != nil {
			if !retry {
				permanent = true
				return backoff.Permanent(err)
			}
			return err
		}
		bundle = result
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("dependency", name).
			Str("version", version).
			Int("attempt", attempts).
			Dur("wait", wait).
			Msg("fetch failed, retrying")
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(a.backoffPolicy(), uint64(a.Retries-1)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if permanent {
			return types.ArtifactBundle{}, err
		}
		if ctx.Err() != nil {
			return types.ArtifactBundle{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("fetch cancelled for %s %s", name, version)).
				WithCause(ctx.Err())
		}
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("fetch failed for %s %s after %d attempts", name, version, attempts)).
			WithCause(err)
	}
	return bundle, nil
}

// fetchOnce reports whether a failure is worth retrying.
func (a StoreHTTPAdapter) fetchOnce(ctx context.Context, name string, version string) (types.ArtifactBundle, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	url := a.bundleURL(name, version)
	resp, err := a.get(ctx, url)
	if err != nil {
		return types.ArtifactBundle{}, true, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.ArtifactBundle{}, false, artifactNotFound(name, version, shared.HTTPStatusError(resp.StatusCode, url))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return types.ArtifactBundle{}, retry, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("artifact store rejected %s %s", name, version)).
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, url, strings.TrimSpace(string(body))))
	}

	expected := strings.TrimSpace(resp.Header.Get(checksumHeader))
	if expected == "" {
		expected, err = a.fetchDigest(ctx, url+".sha256")
		if err != nil {
			return types.ArtifactBundle{}, true, err
		}
	}
	bundle, err := a.Cache.Store(name, version, resp.Body, expected)
	if err != nil {
		return types.ArtifactBundle{}, isTransferError(err), err
	}
	log.Ctx(ctx).Debug().Str("dependency", name).Str("version", version).Str("digest", bundle.Digest).Msg("bundle downloaded")
	return bundle, false, nil
}

// fetchDigest returns "" when the store publishes no digest for a bundle.
func (a StoreHTTPAdapter) fetchDigest(ctx context.Context, url string) (string, error) {
	resp, err := a.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch bundle digest").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read bundle digest").
			WithCause(err)
	}
	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}

func (a StoreHTTPAdapter) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifact store request").
			WithCause(err)
	}
	a.applyBasicAuth(req)
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("artifact store request failed").
			WithCause(err)
	}
	return resp, nil
}

func (a StoreHTTPAdapter) bundleURL(name string, version string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(a.Endpoint), "/")
	return fmt.Sprintf("%s/%s/%s/%s.tar.gz", endpoint, name, version, name)
}

func (a StoreHTTPAdapter) applyBasicAuth(req *http.Request) {
	if strings.TrimSpace(a.APIKey) == "" {
		return
	}
	user := strings.TrimSpace(a.Username)
	if user == "" {
		user = "api"
	}
	req.SetBasicAuth(user, a.APIKey)
}

func (a StoreHTTPAdapter) backoffPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.RetryDelay
	policy.MaxInterval = maxStoreRetryDelay
	policy.MaxElapsedTime = 0
	policy.Reset()
	return policy
}

func isTransferError(err error) bool {
	var builder *errbuilder.ErrBuilder
	return errors.As(err, &builder) && strings.HasPrefix(builder.Msg, "transfer interrupted")
}

func normalizeStoreTimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultStoreTimeout
	}
	return timeout
}

func normalizeStoreRetries(value int) int {
	if value <= 0 {
		return defaultStoreRetries
	}
	return value
}

func normalizeStoreRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultStoreRetryDelay
	}
	return delay
}

var _ ports.ArtifactStorePort = StoreHTTPAdapter{}
