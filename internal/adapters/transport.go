package adapters

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"buildforge/internal/ports"
	"buildforge/internal/shared"
	"buildforge/internal/types"
)

// TransportAdapter fetches file content from a named server. Servers
// with http or https URLs are fetched over the network with bounded
// exponential retry; file URLs and plain paths read the local
// filesystem directly.
type TransportAdapter struct {
	Client          *http.Client
	MaxRetries      uint64
	InitialInterval time.Duration
}

func NewTransportAdapter() *TransportAdapter {
	return &TransportAdapter{
		Client:          &http.Client{Timeout: 30 * time.Second},
		MaxRetries:      4,
		InitialInterval: 500 * time.Millisecond,
	}
}

func (a *TransportAdapter) Fetch(ctx context.Context, server types.ServerConfig, location string) ([]byte, error) {
	base := server.URL
	switch {
	case strings.HasPrefix(base, "http://"), strings.HasPrefix(base, "https://"):
		return a.fetchHTTP(ctx, base, location)
	case strings.HasPrefix(base, "file://"):
		return a.fetchFile(strings.TrimPrefix(base, "file://"), location)
	default:
		return a.fetchFile(base, location)
	}
}

func (a *TransportAdapter) fetchHTTP(ctx context.Context, base, location string) ([]byte, error) {
	fullURL, err := url.JoinPath(base, location)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid fetch location: " + location).
			WithCause(err)
	}

	var body []byte
	var notRetryable bool
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			notRetryable = true
			return backoff.Permanent(err)
		}
		resp, err := a.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return shared.HTTPStatusError(resp.StatusCode, fullURL)
		}
		if resp.StatusCode != http.StatusOK {
			notRetryable = true
			return backoff.Permanent(shared.HTTPStatusError(resp.StatusCode, fullURL))
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.InitialInterval
	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Dur("wait", wait).Str("url", fullURL).Msg("retrying fetch")
	}
	err = backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, a.MaxRetries), ctx), notify)
	if err != nil {
		code := errbuilder.CodeInternal
		msg := "fetch retries exhausted: " + fullURL
		if notRetryable {
			code = errbuilder.CodeNotFound
			msg = "fetch failed: " + fullURL
		}
		return nil, errbuilder.New().
			WithCode(code).
			WithMsg(msg).
			WithCause(err)
	}
	return body, nil
}

func (a *TransportAdapter) fetchFile(base, location string) ([]byte, error) {
	path, err := shared.SafeJoin(base, location)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid fetch location: " + location).
			WithCause(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("fetch failed: " + path).
				WithCause(err)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("fetch failed: " + path).
			WithCause(err)
	}
	return data, nil
}

var _ ports.TransportPort = (*TransportAdapter)(nil)
