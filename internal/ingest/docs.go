package ingest

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/lorebot/lore/internal/log"
)

const (
	// docsPathMarker filters sitemap URLs down to documentation pages.
	// Sitemaps routinely list marketing and blog pages that would pollute
	// the knowledge base.
	docsPathMarker = "/docs/"

	// fetchDelay is the fixed inter-request delay applied when fetching
	// pages, to be polite to the docs host.
	fetchDelay = 500 * time.Millisecond

	sitemapTimeout = 30 * time.Second
	pageTimeout    = 30 * time.Second
)

// sitemapXML decodes both sitemap shapes: an index of child sitemaps
// (<sitemap> entries) or a leaf urlset (<url> entries).
type sitemapXML struct {
	Sitemaps []sitemapLoc `xml:"sitemap"`
	URLs     []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// DocsLoader fetches documentation pages listed in a sitemap and converts
// them to plain-text Documents.
type DocsLoader struct {
	client *http.Client
	delay  time.Duration
	logger log.Logger
}

// NewDocsLoader creates a DocsLoader with the default politeness delay.
func NewDocsLoader(logger log.Logger) *DocsLoader {
	return &DocsLoader{
		client: &http.Client{Timeout: sitemapTimeout},
		delay:  fetchDelay,
		logger: logger,
	}
}

// Load resolves sitemapURL (recursing through sitemap indexes), filters
// the collected page URLs to documentation paths, fetches each page, and
// returns the converted Documents. Individual page or child-sitemap
// failures are logged and skipped; the batch never aborts for them. The
// result may be empty if every fetch fails.
func (l *DocsLoader) Load(ctx context.Context, sitemapURL string) ([]Document, error) {
	urls, err := l.collectURLs(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("resolving sitemap %s: %w", sitemapURL, err)
	}

	var pages []string
	for _, u := range urls {
		if strings.Contains(u, docsPathMarker) {
			pages = append(pages, u)
		}
	}
	l.logger.Info("sitemap resolved", "urls", len(urls), "docs_pages", len(pages))

	if len(pages) == 0 {
		return nil, nil
	}
	return l.fetchPages(ctx, pages)
}

// collectURLs recursively resolves sitemap indexes into leaf page URLs.
// A failing child sitemap is logged and skipped; a failing root is an error.
func (l *DocsLoader) collectURLs(ctx context.Context, sitemapURL string) ([]string, error) {
	sm, err := l.fetchSitemap(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	// Index file: recurse into each child sitemap.
	if len(sm.Sitemaps) > 0 {
		var urls []string
		for _, child := range sm.Sitemaps {
			if child.Loc == "" {
				continue
			}
			childURLs, err := l.collectURLs(ctx, strings.TrimSpace(child.Loc))
			if err != nil {
				l.logger.Warn("skipping child sitemap", "url", child.Loc, "error", err)
				continue
			}
			urls = append(urls, childURLs...)
		}
		return urls, nil
	}

	urls := make([]string, 0, len(sm.URLs))
	for _, u := range sm.URLs {
		if u.Loc != "" {
			urls = append(urls, strings.TrimSpace(u.Loc))
		}
	}
	return urls, nil
}

func (l *DocsLoader) fetchSitemap(ctx context.Context, sitemapURL string) (*sitemapXML, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sm sitemapXML
	if err := xml.Unmarshal(body, &sm); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}
	return &sm, nil
}

// fetchPages downloads each page through a rate-limited collector and
// converts it to a Document. Page failures are logged and skipped.
func (l *DocsLoader) fetchPages(ctx context.Context, pages []string) ([]Document, error) {
	c := colly.NewCollector(colly.UserAgent("lorebot/1.0"))
	c.SetRequestTimeout(pageTimeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: l.delay}); err != nil {
		return nil, fmt.Errorf("configuring fetch delay: %w", err)
	}

	var docs []Document
	c.OnResponse(func(r *colly.Response) {
		text := pageText(r.Body, r.Request.URL)
		if text == "" {
			l.logger.Warn("page yielded no text, skipping", "url", r.Request.URL)
			return
		}
		docs = append(docs, Document{
			Text:       text,
			SourcePath: r.Request.URL.String(),
			SourceType: SourceDocs,
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		l.logger.Warn("page fetch failed, skipping", "url", r.Request.URL, "error", err)
	})

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		if err := c.Visit(page); err != nil {
			l.logger.Warn("page visit failed, skipping", "url", page, "error", err)
		}
	}
	c.Wait()

	l.logger.Info("docs pages loaded", "documents", len(docs), "pages", len(pages))
	return docs, nil
}

// pageText converts an HTML page to plain text. Readability extraction is
// tried first; pages it cannot handle (bare fragments, unusual layouts)
// fall back to stripping markup wholesale.
func pageText(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		text := strings.TrimSpace(article.TextContent)
		if text != "" {
			if title := strings.TrimSpace(article.Title); title != "" {
				return title + "\n\n" + text
			}
			return text
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Text())
}
