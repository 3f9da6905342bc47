package telegram

import (
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/m3rciful/teleform/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultClientTimeout     = 60 * time.Second // whole call, long polls included
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

// readOnlyMethods are Bot API methods that can be repeated after any
// transient failure. Everything else is repeated only when the request never
// reached Telegram.
var readOnlyMethods = map[string]struct{}{
	"getMe":               {},
	"getUpdates":          {},
	"getChat":             {},
	"getChatMember":       {},
	"getFile":             {},
	"getWebhookInfo":      {},
	"getMyCommands":       {},
	"deleteWebhook":       {},
	"setMyCommands":       {},
	"answerCallbackQuery": {},
}

// BuildHTTPClient returns an HTTP client tuned for Bot API calls.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout: defaultClientTimeout,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: defaultRetryAttempts,
			backoff:    defaultRetryBackoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	replayable := isReadOnly(req)
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		curr := req
		if attempt > 1 {
			curr = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				curr.Body = body
			} else if req.Body != nil && req.Body != http.NoBody {
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(curr)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		retry := netutil.ShouldRetry(err) && (replayable || netutil.NotSent(err))
		if !retry || attempt == attempts {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// isReadOnly reports whether req calls a method from readOnlyMethods. Bot API
// paths end in /bot<token>/<method>.
func isReadOnly(req *http.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	method := path.Base(strings.TrimRight(req.URL.Path, "/"))
	_, ok := readOnlyMethods[method]
	return ok
}
