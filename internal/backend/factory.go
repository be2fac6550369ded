package backend

import (
	"fmt"

	"github.com/DomeenoH/MuMuAINovel/internal/config"
)

// FromConfig builds a registry holding the backends cfg can construct and
// makes cfg.Backend the default. The sse backend is always available; the
// openai backend only with an API key.
func FromConfig(cfg *config.Config) (*Registry, error) {
	r := NewRegistry()
	r.RegisterLLM("sse", NewSSEBackend(cfg.API.BaseURL, cfg.API.Timeout))

	if cfg.OpenAI.APIKey != "" {
		b, err := NewOpenAIBackend(OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			DefaultModel: cfg.OpenAI.Model,
		})
		if err != nil {
			return nil, err
		}
		r.RegisterLLM("openai", b)
	}

	if _, ok := r.GetLLM(cfg.Backend); !ok {
		return nil, fmt.Errorf("%w: %q is not configured", ErrUnknownBackend, cfg.Backend)
	}
	r.SetDefaultLLM(cfg.Backend)
	return r, nil
}
