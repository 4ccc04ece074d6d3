package telegram

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/netutil"
)

// pollSlack is added on top of the long-poll wait so getUpdates never hits
// the client timeout on an idle bot.
const (
	clientTimeout   = 30 * time.Second
	pollSlack       = 10 * time.Second
	apiRetries      = 3
	apiRetryBackoff = 2 * time.Second
)

// BuildHTTPClient returns the client used for every Bot API call. Requests
// failing with a transient network error (see netutil.Reason) are replayed.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   max(clientTimeout, pollTimeout+pollSlack),
		Transport: &retryTransport{next: transport, retries: apiRetries, backoff: apiRetryBackoff},
	}
}

// retryTransport replays a request up to retries extra times with linear
// backoff. Requests whose body cannot be rewound are sent once.
type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		try, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}
		resp, err := next.RoundTrip(try)
		if err == nil {
			return resp, nil
		}
		reason := netutil.Reason(err)
		if reason == "" || attempt >= t.retries || !replayable(req) {
			return nil, err
		}
		logger.TG.LogAttrs(ctx, slog.LevelDebug, "telegram api retry",
			slog.String("event", "http.retry"),
			slog.String("reason", reason),
			slog.Int("attempt", attempt+1),
		)
		if err := sleepCtx(ctx, t.backoff*time.Duration(attempt+1)); err != nil {
			return nil, err
		}
	}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns req for the first attempt and a clone with a fresh body after.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
