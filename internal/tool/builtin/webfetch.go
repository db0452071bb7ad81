package builtin

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"

	"github.com/Octane0411/openagent/internal/tool"
)

const (
	defaultFetchTimeout   = 15 * time.Second
	defaultFetchMaxBytes  = 2 << 20 // 2 MiB
	defaultFetchUserAgent = "openagent-webfetch/1.0"

	webFetchDescription = `Fetches content from a specified URL and returns the page text.

Usage:
- The URL must be a fully-formed valid URL.
- HTTP URLs are automatically upgraded to HTTPS.
- HTML responses are converted to plain text; other content types are returned as-is.
- Responses larger than 2 MiB are truncated.`
)

var webFetchSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"url": map[string]any{
			"type":        "string",
			"format":      "uri",
			"description": "The URL to fetch content from",
		},
	},
	Required: []string{"url"},
}

// WebFetchTool fetches remote pages and extracts their visible text.
type WebFetchTool struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{
		client:   &http.Client{Timeout: defaultFetchTimeout},
		timeout:  defaultFetchTimeout,
		maxBytes: defaultFetchMaxBytes,
	}
}

func (w *WebFetchTool) Name() string { return "WebFetch" }

func (w *WebFetchTool) Description() string { return webFetchDescription }

func (w *WebFetchTool) Schema() *tool.JSONSchema { return webFetchSchema }

func (w *WebFetchTool) Execute(ctx context.Context, params map[string]any, _ tool.ExecContext) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	rawURL, err := requiredString(params, "url")
	if err != nil {
		return nil, err
	}
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultFetchUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", target, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		content = htmlToText(content)
	}

	return &tool.Result{
		Output: content,
		Data: map[string]any{
			"url":           target,
			"status":        resp.StatusCode,
			"content_type":  contentType,
			"content_bytes": len(body),
		},
	}, nil
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("url must include a host")
	}
	return u.String(), nil
}

// htmlToText extracts the visible text of an HTML document, skipping
// script and style subtrees. Falls back to entity-unescaped raw input
// when the document fails to parse.
func htmlToText(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	node, err := xhtml.Parse(strings.NewReader(trimmed))
	if err != nil {
		return strings.TrimSpace(html.UnescapeString(trimmed))
	}
	var b strings.Builder
	collectText(node, &b)
	result := strings.TrimSpace(b.String())
	if result == "" {
		return strings.TrimSpace(html.UnescapeString(trimmed))
	}
	return result
}

func collectText(n *xhtml.Node, b *strings.Builder) {
	if n.Type == xhtml.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}
	if n.Type == xhtml.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
