// Package catalog looks up prompt templates for workflow steps.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/DomeenoH/MuMuAINovel/internal/log"
)

// Matching policy limits.
const (
	// KeywordThreshold is the candidate count above which keywords narrow the set.
	KeywordThreshold = 5
	// PageSize caps the matched candidates.
	PageSize = 12
	// FallbackSize caps the unfiltered page returned when nothing matches.
	FallbackSize = 8
)

var ErrNotFound = errors.New("template not found")

// TemplateItem is a prompt template as stored in the catalog.
type TemplateItem struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Content     string  `json:"prompt_content" yaml:"-"`
	Category    string  `json:"category" yaml:"category"`
	Tags        TagList `json:"tags" yaml:"tags"`
}

// TagList decodes either a JSON array of strings or a string holding one,
// which is how some stores serialize tags.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*t = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		*t = TagList{s}
		return nil
	}
	*t = list
	return nil
}

// Query selects candidate templates for a step.
type Query struct {
	Category string
	Keywords []string
	// TemplateName, when set, moves the template with exactly this name to
	// the front of the result.
	TemplateName string
}

// Source lists every template a catalog can offer.
type Source interface {
	List(ctx context.Context) ([]TemplateItem, error)
}

// Match applies the candidate policy to items:
//   - an item is a candidate when its category contains the query category,
//     the query category contains the item's, or the two are equal;
//   - with keywords and more than KeywordThreshold candidates, only those
//     whose name or description contains a keyword are kept, unless that
//     would leave none;
//   - the result is capped at PageSize, or when empty replaced by the first
//     FallbackSize items.
func Match(items []TemplateItem, q Query) []TemplateItem {
	var filtered []TemplateItem
	for _, it := range items {
		if strings.Contains(it.Category, q.Category) || strings.Contains(q.Category, it.Category) {
			filtered = append(filtered, it)
		}
	}

	if len(q.Keywords) > 0 && len(filtered) > KeywordThreshold {
		var narrowed []TemplateItem
		for _, it := range filtered {
			if containsAny(it.Name, q.Keywords) || containsAny(it.Description, q.Keywords) {
				narrowed = append(narrowed, it)
			}
		}
		if len(narrowed) > 0 {
			filtered = narrowed
		}
	}

	var out []TemplateItem
	if len(filtered) > 0 {
		out = head(filtered, PageSize)
	} else {
		out = head(items, FallbackSize)
	}

	if q.TemplateName != "" {
		out = promote(out, items, q.TemplateName)
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func head(items []TemplateItem, n int) []TemplateItem {
	if len(items) > n {
		items = items[:n]
	}
	return append([]TemplateItem(nil), items...)
}

// promote puts the item named name first, pulling it from all when the
// page does not already hold it. The page keeps its cap.
func promote(page, all []TemplateItem, name string) []TemplateItem {
	for i, it := range page {
		if it.Name == name {
			if i > 0 {
				copy(page[1:i+1], page[:i])
				page[0] = it
			}
			return page
		}
	}
	for _, it := range all {
		if it.Name == name {
			page = append([]TemplateItem{it}, page...)
			if len(page) > PageSize {
				page = page[:PageSize]
			}
			return page
		}
	}
	return page
}

const itemsKey = "items"

// Catalog serves matched candidates from a Source, caching the full
// listing for a while.
type Catalog struct {
	source Source
	cache  *cache.Cache
	logger *logrus.Entry
}

type Option func(*Catalog)

// WithTTL sets how long a listing is cached. Zero or less disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl <= 0 {
			c.cache = nil
			return
		}
		c.cache = cache.New(ttl, 2*ttl)
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Catalog) { c.logger = l }
}

func New(source Source, opts ...Option) *Catalog {
	c := &Catalog{
		source: source,
		cache:  cache.New(5*time.Minute, 10*time.Minute),
		logger: log.WithModule("catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Items returns the full listing.
func (c *Catalog) Items(ctx context.Context) ([]TemplateItem, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(itemsKey); ok {
			return v.([]TemplateItem), nil
		}
	}

	items, err := c.source.List(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("listing templates failed")
		return nil, err
	}
	c.logger.WithField("count", len(items)).Debug("templates listed")

	if c.cache != nil {
		c.cache.SetDefault(itemsKey, items)
	}
	return items, nil
}

// Find returns the candidates for q.
func (c *Catalog) Find(ctx context.Context, q Query) ([]TemplateItem, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return nil, err
	}
	return Match(items, q), nil
}

// Get returns the template with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (TemplateItem, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return TemplateItem{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return TemplateItem{}, ErrNotFound
}

// Invalidate drops the cached listing.
func (c *Catalog) Invalidate() {
	if c.cache != nil {
		c.cache.Delete(itemsKey)
	}
}
