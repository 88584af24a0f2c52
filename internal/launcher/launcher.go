package launcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	defaultTimeout = 30 * time.Second
	maxBody        = 5 * 1024 * 1024
	maxText        = 10 * 1024
)

// Launcher opens resource links on behalf of the core
type Launcher interface {
	CanOpen(uri string) bool
	Open(ctx context.Context, uri string) error
}

// Page is the readable content of an opened link
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// HTTP opens links by fetching them over http(s)
type HTTP struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTP creates an HTTP launcher with a bounded client
func NewHTTP() *HTTP {
	return &HTTP{
		Client:    &http.Client{Timeout: defaultTimeout},
		UserAgent: "syllabus/1.0 (curriculum-catalog)",
	}
}

// normalizeURL validates a link and fills in https for bare www. hosts
func normalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty link")
	}
	if strings.HasPrefix(raw, "www.") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// CanOpen reports whether uri is an absolute http(s) link
func (h *HTTP) CanOpen(uri string) bool {
	_, err := normalizeURL(uri)
	return err == nil
}

// Open fetches uri and fails on a non-200 response
func (h *HTTP) Open(ctx context.Context, uri string) error {
	_, err := h.Preview(ctx, uri)
	return err
}

// Preview fetches uri and extracts its title and readable text
func (h *HTTP) Preview(ctx context.Context, uri string) (*Page, error) {
	u, err := normalizeURL(uri)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", h.UserAgent)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := &Page{URL: u.String()}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		page.Title, page.Text = extract(string(body))
	}
	return page, nil
}

// extract parses HTML and returns the document title and readable text
func extract(htmlContent string) (string, string) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", ""
	}

	var (
		title string
		sb    strings.Builder
		walk  func(*html.Node)
	)

	skip := map[string]bool{
		"script": true, "style": true, "nav": true,
		"header": true, "footer": true, "aside": true,
		"noscript": true, "iframe": true,
	}

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
			if skip[n.Data] {
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := strings.Join(strings.Fields(sb.String()), " ")
	return title, clip(text, maxText)
}

// clip cuts s to at most n bytes without splitting a rune
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
