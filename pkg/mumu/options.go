package mumu

import (
	"time"

	"github.com/DomeenoH/MuMuAINovel/internal/config"
)

// Version information for mumu.
const (
	// Version is the current version of mumu.
	Version = "0.1.0"

	// MinGoVersion is the minimum required Go version.
	MinGoVersion = "1.24"
)

// SessionOptions configures the collaborators of a Session.
type SessionOptions struct {
	// Backend selects the LLM backend: "sse" streams through the MuMu
	// server, "openai" calls an OpenAI-compatible API directly.
	Backend string

	// APIBaseURL is the MuMu server used for the SSE backend, the HTTP
	// template catalog and project creation.
	APIBaseURL string

	// Timeout bounds each request to the MuMu server.
	Timeout time.Duration

	// OpenAI settings, used when Backend is "openai".
	OpenAIKey     string
	OpenAIBaseURL string

	// Model overrides the backend's default model.
	Model string

	// CatalogSource is "http", "fs" or "sqlite". CatalogLocation is the
	// templates directory or database path for the latter two.
	CatalogSource   string
	CatalogLocation string

	// CreateProject posts the finished workflow to the MuMu server instead
	// of only logging it.
	CreateProject bool

	// OnChunk receives streamed output fragments in order.
	OnChunk func(chunk string)
}

// DefaultOptions returns a new SessionOptions with default values.
func DefaultOptions() *SessionOptions {
	return &SessionOptions{
		Backend:       config.DefaultBackend,
		APIBaseURL:    config.DefaultAPIBaseURL,
		Timeout:       config.DefaultAPITimeout,
		CatalogSource: config.DefaultCatalogSource,
	}
}

// Option is a functional option for configuring a session.
type Option func(*SessionOptions)

// WithAPI sets the MuMu server address.
func WithAPI(baseURL string) Option {
	return func(o *SessionOptions) {
		o.APIBaseURL = baseURL
	}
}

// WithTimeout sets the request timeout towards the MuMu server.
func WithTimeout(d time.Duration) Option {
	return func(o *SessionOptions) {
		o.Timeout = d
	}
}

// WithOpenAI switches to the OpenAI backend.
func WithOpenAI(apiKey, baseURL string) Option {
	return func(o *SessionOptions) {
		o.Backend = "openai"
		o.OpenAIKey = apiKey
		o.OpenAIBaseURL = baseURL
	}
}

// WithModel sets the model used for AI steps.
func WithModel(model string) Option {
	return func(o *SessionOptions) {
		o.Model = model
	}
}

// WithTemplatesDir reads templates from a local directory of markdown files.
func WithTemplatesDir(dir string) Option {
	return func(o *SessionOptions) {
		o.CatalogSource = "fs"
		o.CatalogLocation = dir
	}
}

// WithTemplateDB reads templates from a SQLite catalog.
func WithTemplateDB(path string) Option {
	return func(o *SessionOptions) {
		o.CatalogSource = "sqlite"
		o.CatalogLocation = path
	}
}

// WithCreateProject creates a MuMu project when the workflow finishes.
func WithCreateProject() Option {
	return func(o *SessionOptions) {
		o.CreateProject = true
	}
}

// WithChunkHandler streams output fragments to fn.
func WithChunkHandler(fn func(chunk string)) Option {
	return func(o *SessionOptions) {
		o.OnChunk = fn
	}
}

// ApplyOptions applies functional options to SessionOptions.
func ApplyOptions(opts ...Option) *SessionOptions {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *SessionOptions) config() *config.Config {
	return config.NewConfig().
		WithBackend(o.Backend).
		WithOpenAI(o.OpenAIKey, o.OpenAIBaseURL, o.Model).
		WithAPI(o.APIBaseURL, o.Timeout).
		WithCatalog(o.CatalogSource, o.CatalogLocation)
}
