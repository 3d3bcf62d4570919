package amplifi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultTimeout bounds every HTTP exchange with the router.
	DefaultTimeout = 10 * time.Second

	infoPath = "info.php"
	dataPath = "info-async.php"

	// maxRefreshes caps meta-refresh hops per page load.
	maxRefreshes = 5

	// maxBodyBytes guards against a misbehaving device streaming forever.
	maxBodyBytes = 16 << 20
)

// Session is the token produced by a successful login. The matching session
// cookie lives in the Client's jar, which Connect replaces together with it.
type Session struct {
	Token string
}

// Client performs the login handshake and snapshot requests against one
// router. It is not safe for concurrent use; the poller drives it from a
// single goroutine.
type Client struct {
	base     *url.URL
	password string
	timeout  time.Duration
	http     *http.Client
}

// NewClient returns a Client for the management interface at baseURL,
// e.g. "http://192.168.164.1".
func NewClient(baseURL, password string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("amplifi: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("amplifi: base url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:     base,
		password: password,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Connect logs in and returns a fresh Session. Cookies from any previous
// session are discarded.
//
// The info page is requested first. If it carries a form, the password is
// submitted through it; otherwise the existing cookies already authenticate
// and the page is used as is. Meta refreshes are followed in both cases.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("amplifi: cookie jar: %w", err)
	}
	c.http = &http.Client{Jar: jar, Timeout: c.timeout}

	p, err := c.load(ctx, http.MethodGet, c.endpoint(infoPath), nil)
	if err != nil {
		return nil, err
	}

	if f, ok := p.form(); ok {
		slog.Debug("amplifi: submitting login form",
			"action", f.action.String(), "method", f.method)
		f.fields.Set(f.passwordField, c.password)
		p, err = c.load(ctx, f.method, f.action, f.fields)
		if err != nil {
			return nil, err
		}
	}

	token, err := tokenFromDocument(p.doc)
	if err != nil {
		return nil, &AuthError{URL: p.url.String(), Err: err}
	}
	return &Session{Token: token}, nil
}

// Fetch requests a full snapshot with the session's token.
func (c *Client) Fetch(ctx context.Context, s *Session) (*Snapshot, error) {
	u := c.endpoint(dataPath)
	form := url.Values{"do": {"full"}, "token": {s.Token}}
	body, _, err := c.do(ctx, http.MethodPost, u, form)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(body)
}

// endpoint resolves path against the base URL the way a browser would.
func (c *Client) endpoint(path string) *url.URL {
	return c.base.ResolveReference(&url.URL{Path: path})
}

// load fetches an HTML page and follows up to maxRefreshes meta refreshes.
func (c *Client) load(ctx context.Context, method string, u *url.URL, form url.Values) (*page, error) {
	for hop := 0; ; hop++ {
		body, final, err := c.do(ctx, method, u, form)
		if err != nil {
			return nil, err
		}
		doc, err := html.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, &AuthError{URL: final.String(), Err: fmt.Errorf("parse html: %w", err)}
		}
		p := &page{url: final, doc: doc}

		next, ok := p.metaRefresh()
		if !ok || hop >= maxRefreshes {
			return p, nil
		}
		slog.Debug("amplifi: following meta refresh", "from", final.String(), "to", next.String())
		method, u, form = http.MethodGet, next, nil
	}
}

// do performs one request and returns the body and the final URL after
// HTTP redirects. Form values go in the body for POST and in the query
// string otherwise.
func (c *Client) do(ctx context.Context, method string, u *url.URL, form url.Values) ([]byte, *url.URL, error) {
	var body io.Reader
	target := *u
	if form != nil {
		if method == http.MethodPost {
			body = strings.NewReader(form.Encode())
		} else {
			target.RawQuery = form.Encode()
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, nil, &TransportError{Op: method, URL: target.String(), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Op: method, URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &TransportError{Op: method, URL: target.String(),
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, &TransportError{Op: method, URL: target.String(), Err: fmt.Errorf("read body: %w", err)}
	}
	return data, resp.Request.URL, nil
}
