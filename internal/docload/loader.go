// Package docload fetches documentation sources and turns them into
// chunks. File sources are parsed as (possibly multi-document) YAML and
// dispatched on detected shape; web sources are crawled same-origin up
// to a depth bound and chunked from their extracted HTML content.
package docload

import (
	"context"
	"strings"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/log"
	"github.com/docdex/docdex/internal/security"
	"golang.org/x/time/rate"
)

// Loader loads documentation from files and URLs.
// Loaders are stateless across calls and safe for concurrent use; each
// crawl builds its own collector and visited set.
type Loader struct {
	cfg       config.CrawlerConfig
	validator *security.URL
	logger    log.Logger
}

// NewLoader creates a Loader. validator guards crawl targets against
// SSRF; pass security.NewURLAllowLoopback() in tests.
func NewLoader(cfg config.CrawlerConfig, validator *security.URL, logger log.Logger) *Loader {
	if validator == nil {
		validator = security.NewURL()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Loader{cfg: cfg, validator: validator, logger: logger}
}

// Load fetches a source (http(s) URL or file path) and returns its
// chunks. maxDepth bounds link-following for web sources; it is ignored
// for files. See LoadURL for partial-result semantics on cancellation.
func (l *Loader) Load(ctx context.Context, source string, maxDepth int) ([]chunk.Chunk, error) {
	if isWebSource(source) {
		return l.LoadURL(ctx, source, maxDepth)
	}
	return l.LoadFile(source)
}

func isWebSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// newLimiter builds the politeness limiter for a crawl. A zero delay
// disables limiting.
func (l *Loader) newLimiter() *rate.Limiter {
	delay := l.cfg.Delay()
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
