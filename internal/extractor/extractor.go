// Package extractor загружает страницу по URL и извлекает из неё заголовок
// и основной текст статьи, отмечая признаки платного доступа.
package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/magabrotheeeer/article-insights/internal/config"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// После substantialContent символов поиск по селекторам прекращается.
const substantialContent = 200

// DefaultPaywallDomains — издания, статьи которых почти всегда закрыты подпиской.
var DefaultPaywallDomains = []string{"wsj.com", "nytimes.com", "ft.com", "economist.com", "bloomberg.com"}

var paywallMarkers = []string{
	"paywall",
	"subscription",
	"premium",
	"members-only",
	"locked-content",
	"subscribe-to-read",
}

var contentClasses = []string{"article-content", "post-content", "entry-content", "content"}

// Client извлекает статьи по HTTP.
type Client struct {
	http           *http.Client
	userAgent      string
	maxBodyBytes   int64
	paywallDomains []string
	log            *slog.Logger
}

// New создаёт Client.
func New(cfg config.Extractor, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	domains := cfg.PaywallDomains
	if len(domains) == 0 {
		domains = DefaultPaywallDomains
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 5 << 20
	}
	return &Client{
		http:           &http.Client{Timeout: timeout},
		userAgent:      cfg.UserAgent,
		maxBodyBytes:   maxBody,
		paywallDomains: domains,
		log:            log,
	}
}

// KnownPaywall сообщает, относится ли адрес к изданию из списка платных.
func (c *Client) KnownPaywall(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range c.paywallDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Extract загружает страницу и извлекает из неё статью.
func (c *Client) Extract(ctx context.Context, rawURL string) (models.Extraction, error) {
	const op = "extractor.Extract"

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.Extraction{}, apperr.New(apperr.InvalidInput, "url must be an absolute http(s) address")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Extraction{}, fmt.Errorf("%s: %w", op, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Extraction{}, apperr.Wrap(apperr.NetworkError, "failed to fetch url", fmt.Errorf("%s: %w", op, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusPaymentRequired {
		return models.Extraction{}, apperr.New(apperr.SubscriptionRequired, "the site requires a subscription")
	}
	if resp.StatusCode != http.StatusOK {
		return models.Extraction{}, fmt.Errorf("%s: failed to fetch url: status %d", op, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("%s: %w", op, err)
	}

	ext := Parse(doc)
	c.log.Debug("article extracted",
		slog.String("url", u.String()),
		slog.Int("length", len(ext.Content)),
		slog.Bool("paywall", ext.RequiresSubscription))
	return ext, nil
}

// Parse извлекает статью из разобранного HTML-документа.
func Parse(doc *html.Node) models.Extraction {
	return models.Extraction{
		Content:              findContent(doc),
		Title:                findTitle(doc),
		RequiresSubscription: hasPaywallMarker(doc),
	}
}

func hasPaywallMarker(n *html.Node) bool {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key != "class" && a.Key != "id" {
				continue
			}
			v := strings.ToLower(a.Val)
			for _, m := range paywallMarkers {
				if strings.Contains(v, m) {
					return true
				}
			}
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if hasPaywallMarker(ch) {
			return true
		}
	}
	return false
}

func findTitle(doc *html.Node) string {
	if og := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Meta && attr(n, "property") == "og:title" && attr(n, "content") != ""
	}); og != nil {
		return normalize(attr(og, "content"))
	}
	if t := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }); t != nil {
		if s := normalize(text(t, false)); s != "" {
			return s
		}
	}
	if h := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.H1 }); h != nil {
		return normalize(text(h, false))
	}
	return ""
}

func findContent(doc *html.Node) string {
	selectors := []func(*html.Node) bool{
		func(n *html.Node) bool { return n.DataAtom == atom.Article },
		func(n *html.Node) bool { return attr(n, "role") == "article" },
	}
	for _, class := range contentClasses {
		selectors = append(selectors, func(n *html.Node) bool { return hasClass(n, class) })
	}
	selectors = append(selectors, func(n *html.Node) bool { return n.DataAtom == atom.Main })

	content := ""
	for _, match := range selectors {
		if el := findFirst(doc, match); el != nil {
			content = normalize(text(el, false))
			if len([]rune(content)) > substantialContent {
				return content
			}
		}
	}

	if body := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Body }); body != nil {
		return normalize(text(body, true))
	}
	return content
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if found := findFirst(ch, match); found != nil {
			return found
		}
	}
	return nil
}

// text собирает текст поддерева. Скрипты и стили пропускаются всегда,
// навигация и колонтитулы только при skipLayout.
func text(n *html.Node, skipLayout bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Nav, atom.Footer, atom.Header, atom.Aside:
				if skipLayout {
					return
				}
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return b.String()
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
