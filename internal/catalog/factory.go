package catalog

import (
	"fmt"
	"os"

	"github.com/DomeenoH/MuMuAINovel/internal/config"
)

// FromConfig opens the source named by cfg.Catalog.Source and wraps it in a
// cached Catalog. The returned close func releases the source.
func FromConfig(cfg *config.Config) (*Catalog, func() error, error) {
	noop := func() error { return nil }

	var (
		source Source
		closer = noop
	)
	switch cfg.Catalog.Source {
	case "fs":
		if _, err := os.Stat(cfg.Catalog.TemplatesDir); err != nil {
			return nil, nil, fmt.Errorf("templates directory: %w", err)
		}
		source = NewFSSource(os.DirFS(cfg.Catalog.TemplatesDir))
	case "http":
		source = NewHTTPSource(cfg.API.BaseURL, cfg.API.Timeout)
	case "sqlite":
		store, err := OpenSQLite(cfg.Catalog.DBPath)
		if err != nil {
			return nil, nil, err
		}
		source, closer = store, store.Close
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}

	return New(source, WithTTL(cfg.Catalog.CacheTTL)), closer, nil
}
