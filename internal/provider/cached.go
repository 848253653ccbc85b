package provider

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jask/hwexplorer/internal/session"
)

// Cached keeps recently fetched bundles in memory. Failures are not cached.
type Cached struct {
	inner session.Provider
	cache *lru.Cache[string, session.LanguageBundle]
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner session.Provider, size int) (*Cached, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, session.LanguageBundle](size)
	if err != nil {
		return nil, fmt.Errorf("bundle cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Fetch(ctx context.Context, lang string) (session.LanguageBundle, error) {
	if b, ok := c.cache.Get(lang); ok {
		return b.Clone(), nil
	}
	b, err := c.inner.Fetch(ctx, lang)
	if err != nil {
		return session.LanguageBundle{}, err
	}
	c.cache.Add(lang, b.Clone())
	return b, nil
}

// Languages passes through to the wrapped provider when it can list.
func (c *Cached) Languages(ctx context.Context) ([]Summary, error) {
	if l, ok := c.inner.(Lister); ok {
		return l.Languages(ctx)
	}
	return nil, nil
}

// Purge drops every cached bundle.
func (c *Cached) Purge() { c.cache.Purge() }
