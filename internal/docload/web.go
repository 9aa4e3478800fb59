package docload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/docdex/docdex/internal/chunk"
)

// ErrUnsafeURL indicates a crawl target failed SSRF validation.
// Security-class: surfaced to clients with a security marker.
var ErrUnsafeURL = errors.New("unsafe URL")

// skipLinkFragments are substrings that disqualify a link from being
// followed during a crawl.
var skipLinkFragments = []string{"#", "javascript:", "mailto:", ".pdf", ".zip"}

// LoadURL crawls a web page and same-origin pages linked from it, up to
// maxDepth link hops, and chunks each page's extracted content.
//
// Cancellation is checked between page fetches; on cancellation the
// chunks produced so far are returned together with the context error,
// so callers can index the partial result.
func (l *Loader) LoadURL(ctx context.Context, seedURL string, maxDepth int) ([]chunk.Chunk, error) {
	if maxDepth < 0 {
		maxDepth = 0
	}

	if err := l.validator.Validate(seedURL); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsafeURL, seedURL, err)
	}

	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, &FetchError{URL: seedURL, Err: err}
	}

	var (
		chunks   []chunk.Chunk
		pages    int
		limiter  = l.newLimiter()
		fetchErr *FetchError
	)

	// colly counts the seed request as depth 1. Both host forms are
	// allowed so same-origin checks work with non-standard ports.
	c := colly.NewCollector(
		colly.AllowedDomains(seed.Hostname(), seed.Host),
		colly.MaxDepth(maxDepth+1),
		colly.UserAgent("docdex/1.0 (+https://github.com/docdex/docdex)"),
	)
	c.WithTransport(l.validator.SafeTransport())
	c.SetRequestTimeout(l.cfg.Timeout())
	if l.cfg.MaxResponseSize > 0 {
		c.MaxBodySize = int(l.cfg.MaxResponseSize)
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		pageURL := r.Request.URL.String()
		l.logger.Info("processing page", "url", pageURL, "depth", r.Request.Depth)

		pageChunks, err := l.chunkPage(r.Body, r.Request.URL)
		if err != nil {
			l.logger.Warn("failed to chunk page", "url", pageURL, "error", err)
			return
		}
		chunks = append(chunks, pageChunks...)
		pages++
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !followable(href) {
			return
		}
		absolute := e.Request.AbsoluteURL(href)
		if absolute == "" {
			return
		}
		if err := l.validator.Validate(absolute); err != nil {
			return
		}
		// AllowedDomains keeps the crawl same-origin and the collector
		// tracks visited URLs; Visit errors here mean "skipped".
		_ = e.Request.Visit(absolute)
	})

	c.OnError(func(r *colly.Response, err error) {
		pageURL := seedURL
		if r != nil && r.Request != nil {
			pageURL = r.Request.URL.String()
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		l.logger.Warn("page fetch failed", "url", pageURL, "status", status, "error", err)
		if fetchErr == nil {
			fetchErr = &FetchError{URL: pageURL, Status: status, Err: err}
		}
	})

	if err := c.Visit(seedURL); err != nil {
		// The seed never fetched; nothing was produced.
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, &FetchError{URL: seedURL, Err: err}
	}

	l.logger.Info("crawl complete", "seed", seedURL, "pages", pages, "chunks", len(chunks))

	if ctx.Err() != nil {
		return chunks, ctx.Err()
	}
	if pages == 0 && fetchErr != nil {
		return nil, fetchErr
	}
	return chunks, nil
}

// chunkPage extracts the readable content from a fetched page and
// chunks it. Readability strips navigation, scripts and styles; when it
// cannot identify an article the raw page is chunked instead.
func (l *Loader) chunkPage(body []byte, pageURL *url.URL) ([]chunk.Chunk, error) {
	html := string(body)
	title := ""

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		html = article.Content
		title = article.Title
	}

	return chunk.FromHTML(html, pageURL.String(), title)
}

func followable(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	if lower == "" {
		return false
	}
	for _, frag := range skipLinkFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	return true
}
