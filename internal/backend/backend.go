// Package backend defines the streaming language model backends a wizard
// step executes against. New providers plug in by implementing LLMBackend,
// and tests substitute scripted implementations.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnknownBackend is returned by Registry lookups for unregistered names.
var ErrUnknownBackend = errors.New("unknown backend")

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one streaming completion.
type Request struct {
	Messages []Message
	// Model overrides the backend's default model when set.
	Model string
	// MaxTokens limits the response length (0 means use backend default).
	MaxTokens int
	// Temperature is sent only when non-zero.
	Temperature float32
}

// Stream yields text fragments in delivery order.
type Stream interface {
	// Recv returns the next fragment, or io.EOF once the response is complete.
	Recv() (string, error)
	// Close releases the underlying connection. It is safe to call more than once.
	Close() error
}

// LLMBackend is the interface for language model backends.
type LLMBackend interface {
	// Stream starts a completion. Cancelling ctx aborts it.
	Stream(ctx context.Context, req Request) (Stream, error)

	// Name returns a human-readable name for the backend.
	Name() string

	// Close releases any resources held by the backend.
	Close() error
}

// Collect drains s and returns the concatenated fragments. The stream is
// closed on return.
func Collect(s Stream, onChunk func(string)) (string, error) {
	defer s.Close()

	var out []byte
	for {
		chunk, err := s.Recv()
		if err != nil {
			if isEOF(err) {
				return string(out), nil
			}
			return string(out), err
		}
		out = append(out, chunk...)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
}

// Registry manages available backends and allows lookup by name.
type Registry struct {
	mu          sync.RWMutex
	llmBackends map[string]LLMBackend
	defaultLLM  string
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		llmBackends: make(map[string]LLMBackend),
	}
}

// RegisterLLM adds an LLM backend to the registry. The first one registered
// becomes the default.
func (r *Registry) RegisterLLM(name string, backend LLMBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmBackends[name] = backend
	if r.defaultLLM == "" {
		r.defaultLLM = name
	}
}

// SetDefaultLLM sets which LLM backend to use when none is specified.
func (r *Registry) SetDefaultLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultLLM = name
}

// GetLLM returns an LLM backend by name, or the default if name is empty.
func (r *Registry) GetLLM(name string) (LLMBackend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultLLM
	}
	b, ok := r.llmBackends[name]
	return b, ok
}

// MustLLM is GetLLM returning ErrUnknownBackend instead of a flag.
func (r *Registry) MustLLM(name string) (LLMBackend, error) {
	b, ok := r.GetLLM(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return b, nil
}

// Close releases all backend resources.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, b := range r.llmBackends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListLLMBackends returns names of all registered LLM backends, sorted.
func (r *Registry) ListLLMBackends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmBackends))
	for name := range r.llmBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
