package fetch

import (
	"context"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/nao1215/markcrawl/internal/config"
)

// maxRedirects bounds redirect chains to stop loops.
const maxRedirects = 10

// DialContextFunc dials a network connection, e.g. through a SOCKS5 proxy.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TransportConfig describes how NewHTTPClient reaches the network.
type TransportConfig struct {
	// Timeout bounds each request. Zero means config.DefaultTimeout.
	Timeout time.Duration

	// Dial replaces the direct dialer. Used for --proxy and --tor.
	Dial DialContextFunc

	// Sites supplies per-host cookies and headers. May be nil.
	Sites *config.File
}

// NewHTTPClient builds the http.Client used by Client.
//
// Cookies set by a site are kept in a jar for the lifetime of the client, so
// a crawl behaves like a single browsing session. Compression is negotiated
// by the transport itself.
func NewHTTPClient(tc TransportConfig) *http.Client {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if ok {
		transport = transport.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second
	if tc.Dial != nil {
		transport.Proxy = nil
		transport.DialContext = tc.Dial
	}

	var rt http.RoundTripper = transport
	if tc.Sites != nil {
		rt = &siteHeaderTransport{base: transport, sites: tc.Sites}
	}

	timeout := tc.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// siteHeaderTransport injects the cookie and headers configured for the
// request's host into every request, redirects included.
type siteHeaderTransport struct {
	base  http.RoundTripper
	sites *config.File
}

// RoundTrip implements http.RoundTripper.
func (t *siteHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	site := t.sites.GetSiteConfig(req.URL.Host)
	if site.Cookie == "" && len(site.Headers) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if site.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+site.Cookie)
		} else {
			clone.Header.Set("Cookie", site.Cookie)
		}
	}
	for key, value := range site.Headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
