package config

import (
	"fmt"
	"strings"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks the configuration for consistency and range errors.
// It is called by Load after all sources are merged (fail-fast).
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPgvector, BackendMemory:
	default:
		return fmt.Errorf("%w: %q (allowed: %s, %s)",
			ErrInvalidBackend, c.Backend, BackendPgvector, BackendMemory)
	}

	if strings.TrimSpace(c.Collection) == "" {
		return fmt.Errorf("%w: collection name must not be empty", ErrInvalidCollection)
	}

	if c.BatchSize < 1 || c.BatchSize > 1000 {
		return fmt.Errorf("%w: %d (must be 1-1000)", ErrInvalidBatchSize, c.BatchSize)
	}

	if c.StoreTimeoutMs <= 0 {
		return fmt.Errorf("%w: store_timeout_ms must be positive, got %d",
			ErrInvalidTimeout, c.StoreTimeoutMs)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}

	if c.Backend == BackendPgvector {
		if err := c.validatePostgres(); err != nil {
			return err
		}
	}

	return c.validateCrawler()
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

func (c *Config) validateCrawler() error {
	if c.Crawler.MaxDepth < 0 || c.Crawler.MaxDepth > MaxAllowedCrawlDepth {
		return fmt.Errorf("%w: %d (must be 0-%d)",
			ErrInvalidCrawlDepth, c.Crawler.MaxDepth, MaxAllowedCrawlDepth)
	}
	if c.Crawler.TimeoutMs <= 0 {
		return fmt.Errorf("%w: crawler timeout_ms must be positive, got %d",
			ErrInvalidTimeout, c.Crawler.TimeoutMs)
	}
	if c.Crawler.DelayMs < 0 {
		return fmt.Errorf("%w: crawler delay_ms must not be negative, got %d",
			ErrInvalidTimeout, c.Crawler.DelayMs)
	}
	return nil
}
