package tools

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/xk9labs/pagepilot/internal/config"
)

// Connection pool settings sized for a single-agent API client.
const (
	apiDialKeepAlive       = 30 * time.Second
	apiTLSHandshakeTO      = 10 * time.Second
	apiResponseHeaderTO    = 30 * time.Second
	apiMaxIdleConns        = 50
	apiMaxIdleConnsPerHost = 6
	apiIdleConnTimeout     = 90 * time.Second
)

// APIClient is the HTTP side of the tool server: a cookie-keeping,
// rate-limited client used by the api_request tool. It shares nothing with
// the browser session, so API calls work without a browser.
type APIClient struct {
	client  *http.Client
	limiter *rate.Limiter
	maxBody int64
	logger  *zap.Logger
}

// NewAPIClient builds the client from the network configuration. No I/O
// happens here; connections are dialed on first use.
func NewAPIClient(cfg config.NetworkConfig, logger *zap.Logger) *APIClient {
	jar, _ := cookiejar.New(nil) // only errors on invalid options, we pass nil

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   apiTLSHandshakeTO,
		ResponseHeaderTimeout: apiResponseHeaderTO,
		MaxIdleConns:          apiMaxIdleConns,
		MaxIdleConnsPerHost:   apiMaxIdleConnsPerHost,
		IdleConnTimeout:       apiIdleConnTimeout,
		// We negotiate content decoding ourselves to also handle brotli.
		DisableCompression: true,
	}
	if cfg.IgnoreTLSErrors {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- explicit opt-in for test targets
	}

	return &APIClient{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		maxBody: cfg.MaxBodyBytes,
		logger:  logger.Named("api_client"),
	}
}

// APIResponse is the decoded result of one API call.
type APIResponse struct {
	Status      int
	Headers     http.Header
	Body        []byte
	Truncated   bool
	ContentType string
	Elapsed     time.Duration
}

// Do performs the request after waiting for a rate-limit slot, decodes the
// response body (gzip, deflate, brotli), and caps it at maxBody bytes.
func (c *APIClient) Do(ctx context.Context, method, url string, headers map[string]string, body string) (*APIResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	decoded, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("decode %s response body: %w", resp.Header.Get("Content-Encoding"), err)
	}

	limited := io.LimitReader(decoded, c.maxBody+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	truncated := int64(len(data)) > c.maxBody
	if truncated {
		data = data[:c.maxBody]
	}

	return &APIResponse{
		Status:      resp.StatusCode,
		Headers:     resp.Header,
		Body:        data,
		Truncated:   truncated,
		ContentType: resp.Header.Get("Content-Type"),
		Elapsed:     time.Since(start),
	}, nil
}

// decodeBody wraps the body reader with the decoder matching the response's
// Content-Encoding. Identity and unknown encodings pass through untouched.
func decodeBody(body io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		return gzip.NewReader(body)
	case "deflate":
		return flate.NewReader(body), nil
	case "br":
		return brotli.NewReader(body), nil
	default:
		return body, nil
	}
}

// htmlToText strips tags from an HTML document, yielding the text an agent
// can actually use. Script and style bodies are skipped.
func htmlToText(data []byte) string {
	tokenizer := html.NewTokenizer(strings.NewReader(string(data)))
	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				b.WriteString(text)
			}
		}
	}
}
