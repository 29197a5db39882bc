package i18n

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"farmprofit/internal/cache"
	"farmprofit/internal/log"

	"golang.org/x/sync/singleflight"
)

var errNoSource = errors.New("catalog not found")

// Options configures where catalogs come from. The embedded catalogs are
// always the base layer.
type Options struct {
	Dir        string // optional directory of <lang>.json files
	BaseURL    string // optional remote base, fetched as <BaseURL>/<lang>.json
	HTTPClient *http.Client
	Attempts   int           // remote fetch attempts, default 3
	Backoff    time.Duration // first retry delay, doubled per attempt
	CacheSize  int
	CacheTTL   time.Duration
	Logger     *log.Logger
}

// Loader resolves catalogs, deduplicating concurrent loads and caching the
// results.
type Loader struct {
	opts   Options
	client *http.Client
	group  singleflight.Group
	cache  *cache.LRUCache[Catalog]
	logger *log.Logger
}

func NewLoader(opts Options) *Loader {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	return &Loader{
		opts:   opts,
		client: client,
		cache:  cache.NewLRUCache[Catalog](opts.CacheSize, opts.CacheTTL),
		logger: logger.WithComponent(log.ComponentI18n),
	}
}

// Cache exposes the catalog cache so it can be registered with a cache.Manager.
func (l *Loader) Cache() *cache.LRUCache[Catalog] {
	return l.cache
}

// Load returns the catalog for lang. Languages with no catalog anywhere
// resolve to the English one.
func (l *Loader) Load(ctx context.Context, lang string) (Catalog, error) {
	lang = Normalize(lang)
	if c, ok := l.cache.Get(lang); ok {
		return c, nil
	}

	v, err, _ := l.group.Do(lang, func() (any, error) {
		if c, ok := l.cache.Get(lang); ok {
			return c, nil
		}
		c, err := l.load(ctx, lang)
		if errors.Is(err, errNoSource) && lang != DefaultLanguage {
			l.logger.DebugContext(ctx, "No catalog for language, using default", log.FieldLanguage, lang)
			c, err = l.load(ctx, DefaultLanguage)
		}
		if err != nil {
			return Catalog{}, err
		}
		l.cache.Set(lang, c)
		return c, nil
	})
	if err != nil {
		return Catalog{}, err
	}
	return v.(Catalog), nil
}

// Invalidate drops a cached catalog so the next Load reads it again.
func (l *Loader) Invalidate(lang string) {
	l.cache.Delete(Normalize(lang))
}

func (l *Loader) load(ctx context.Context, lang string) (Catalog, error) {
	base, found := embeddedCatalog(lang)
	fallback, _ := embeddedCatalog(DefaultLanguage)
	messages := make(map[string]string, len(base))
	for k, v := range base {
		messages[k] = v
	}

	overlay, err := l.external(ctx, lang)
	switch {
	case err == nil:
		found = true
		for k, v := range overlay {
			messages[k] = v
		}
	case !errors.Is(err, errNoSource):
		if !found {
			return Catalog{}, err
		}
		l.logger.WarnContext(ctx, "External catalog unavailable, using embedded",
			log.FieldLanguage, lang,
			log.FieldError, err.Error())
	}

	if !found {
		return Catalog{}, fmt.Errorf("%w: %s", errNoSource, lang)
	}
	return Catalog{Lang: lang, Messages: messages, fallback: fallback}, nil
}

// external reads the directory catalog if present, then the remote one.
func (l *Loader) external(ctx context.Context, lang string) (map[string]string, error) {
	if l.opts.Dir != "" {
		b, err := os.ReadFile(filepath.Join(l.opts.Dir, lang+".json"))
		switch {
		case err == nil:
			return parseCatalog(lang, b)
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s catalog: %w", lang, err)
		}
	}
	if l.opts.BaseURL != "" {
		return l.fetch(ctx, lang)
	}
	return nil, errNoSource
}

func (l *Loader) fetch(ctx context.Context, lang string) (map[string]string, error) {
	url := l.opts.BaseURL + "/" + lang + ".json"
	delay := l.opts.Backoff

	var lastErr error
	for attempt := 1; attempt <= l.opts.Attempts; attempt++ {
		b, retry, err := l.get(ctx, url)
		if err == nil {
			return parseCatalog(lang, b)
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if attempt == l.opts.Attempts {
			break
		}

		l.logger.DebugContext(ctx, "Retrying catalog fetch",
			log.FieldLanguage, lang,
			"attempt", attempt,
			"delay", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("fetch %s catalog after %d attempts: %w", lang, l.opts.Attempts, lastErr)
}

// get performs one request. retry reports whether the failure is transient.
func (l *Loader) get(ctx context.Context, url string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errNoSource
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
