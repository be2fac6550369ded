package backend

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DomeenoH/MuMuAINovel/internal/config"
)

func TestBackendRegistry(t *testing.T) {
	registry := NewRegistry()

	registry.RegisterLLM("mock", &mockLLMBackend{})

	retrieved, ok := registry.GetLLM("mock")
	assert.True(t, ok)
	assert.NotNil(t, retrieved)

	notFound, ok := registry.GetLLM("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, notFound)

	_, err := registry.MustLLM("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestDefaultLLM(t *testing.T) {
	registry := NewRegistry()

	// First registered backend becomes the default.
	registry.RegisterLLM("mock1", &mockLLMBackend{name: "mock1"})
	retrieved, ok := registry.GetLLM("")
	require.True(t, ok)
	assert.Equal(t, "mock1", retrieved.Name())

	registry.RegisterLLM("mock2", &mockLLMBackend{name: "mock2"})
	registry.SetDefaultLLM("mock2")

	retrieved, _ = registry.GetLLM("")
	assert.Equal(t, "mock2", retrieved.Name())
	assert.Equal(t, []string{"mock1", "mock2"}, registry.ListLLMBackends())
}

func TestRegistryCloseJoinsErrors(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterLLM("ok", &mockLLMBackend{})
	registry.RegisterLLM("bad", &mockLLMBackend{closeErr: errors.New("close failed")})

	err := registry.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed")
}

func TestCollect(t *testing.T) {
	s := &sliceStream{chunks: []string{"a", "b", "c"}}
	var seen []string

	out, err := Collect(s, func(c string) { seen = append(seen, c) })

	require.NoError(t, err)
	assert.Equal(t, "abc", out)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.True(t, s.closed)
}

func TestCollectError(t *testing.T) {
	s := &sliceStream{chunks: []string{"a"}, err: errors.New("reset")}

	out, err := Collect(s, nil)

	assert.EqualError(t, err, "reset")
	assert.Equal(t, "a", out)
	assert.True(t, s.closed)
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("SYSTEM", []string{"b", "a", "missing"}, map[string]string{"a": "1", "b": "2"})

	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "SYSTEM"}, msgs[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "【b】:\n2\n\n【a】:\n1"}, msgs[1])
}

func TestBuildMessagesDefaultUser(t *testing.T) {
	msgs := BuildMessages("SYSTEM", nil, nil)

	assert.Equal(t, DefaultUserMessage, msgs[1].Content)
}

// Mock implementations for testing
type mockLLMBackend struct {
	name     string
	closeErr error
}

func (m *mockLLMBackend) Stream(context.Context, Request) (Stream, error) {
	return &sliceStream{chunks: []string{"mock response"}}, nil
}

func (m *mockLLMBackend) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mock"
}

func (m *mockLLMBackend) Close() error {
	return m.closeErr
}

type sliceStream struct {
	chunks []string
	err    error
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func TestFromConfig(t *testing.T) {
	cfg := config.NewConfig().WithBackend("sse")
	r, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"sse"}, r.ListLLMBackends())

	cfg = config.NewConfig().WithBackend("openai")
	_, err = FromConfig(cfg)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	cfg.WithOpenAI("sk-test", "", "")
	r, err = FromConfig(cfg)
	require.NoError(t, err)
	def, ok := r.GetLLM("")
	require.True(t, ok)
	assert.Equal(t, "openai", def.Name())
}
