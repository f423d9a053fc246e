package musiclink

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// userAgent is the user agent string used for all HTTP requests.
	userAgent = "odeslibot/1.0 (+https://odesli.co)"
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
	// maxBodySize caps how much of a response body is read.
	maxBodySize = 2 << 20
	// maxErrorBodySize caps how much of an error body is kept for logging.
	maxErrorBodySize = 512
)

// trackingParams never affect song identity on any platform.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"igshid":  {},
	"feature": {},
	"ref_src": {},
	"app":     {},
}

// newHTTPClient creates a new HTTP client with standard settings and redirect validation.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// stripTrackingParams removes utm_* and other click tracking parameters.
func stripTrackingParams(u *url.URL) {
	if u.RawQuery == "" {
		u.Fragment = ""
		return
	}

	q := u.Query()
	for name := range q {
		if _, ok := trackingParams[name]; ok || strings.HasPrefix(name, "utm_") {
			q.Del(name)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
}

// dropQueryParams returns a normalizer deleting the named parameters.
func dropQueryParams(names ...string) func(*url.URL) {
	return func(u *url.URL) {
		q := u.Query()
		for _, name := range names {
			q.Del(name)
		}
		u.RawQuery = q.Encode()
	}
}

// keepQueryParams returns a normalizer deleting every parameter except the named ones.
func keepQueryParams(names ...string) func(*url.URL) {
	keep := make(map[string]struct{}, len(names))
	for _, name := range names {
		keep[name] = struct{}{}
	}
	return func(u *url.URL) {
		q := u.Query()
		for name := range q {
			if _, ok := keep[name]; !ok {
				q.Del(name)
			}
		}
		u.RawQuery = q.Encode()
	}
}

// isAbsoluteURL reports whether s is an absolute http(s) URL.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
