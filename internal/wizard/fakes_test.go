package wizard

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DomeenoH/MuMuAINovel/internal/backend"
	"github.com/DomeenoH/MuMuAINovel/internal/catalog"
	"github.com/DomeenoH/MuMuAINovel/internal/handoff"
	"github.com/DomeenoH/MuMuAINovel/internal/log"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

type staticFinder struct {
	mu      sync.Mutex
	items   []catalog.TemplateItem
	err     error
	queries []catalog.Query
}

func (f *staticFinder) Find(_ context.Context, q catalog.Query) ([]catalog.TemplateItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return catalog.Match(f.items, q), nil
}

func (f *staticFinder) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// scriptedLLM replays chunks, then ends with err (or io.EOF).
type scriptedLLM struct {
	mu        sync.Mutex
	chunks    []string
	err       error
	streamErr error
	requests  []backend.Request
}

func (l *scriptedLLM) Stream(_ context.Context, req backend.Request) (backend.Stream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	if l.streamErr != nil {
		return nil, l.streamErr
	}
	return &scriptedStream{chunks: append([]string(nil), l.chunks...), err: l.err}, nil
}

func (l *scriptedLLM) Name() string { return "scripted" }
func (l *scriptedLLM) Close() error { return nil }

func (l *scriptedLLM) script(err error, chunks ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chunks = chunks
	l.err = err
}

func (l *scriptedLLM) lastRequest() backend.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requests[len(l.requests)-1]
}

type scriptedStream struct {
	chunks []string
	err    error
}

func (s *scriptedStream) Recv() (string, error) {
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

func (s *scriptedStream) Close() error { return nil }

// blockingLLM sends one chunk and then blocks until its context is done.
type blockingLLM struct {
	sent chan struct{}
}

func newBlockingLLM() *blockingLLM {
	return &blockingLLM{sent: make(chan struct{})}
}

func (l *blockingLLM) Stream(ctx context.Context, _ backend.Request) (backend.Stream, error) {
	return &blockingStream{ctx: ctx, sent: l.sent}, nil
}

func (l *blockingLLM) Name() string { return "blocking" }
func (l *blockingLLM) Close() error { return nil }

type blockingStream struct {
	ctx   context.Context
	sent  chan struct{}
	first bool
}

func (s *blockingStream) Recv() (string, error) {
	if !s.first {
		s.first = true
		return "partial", nil
	}
	close(s.sent)
	<-s.ctx.Done()
	return "", s.ctx.Err()
}

func (s *blockingStream) Close() error { return nil }

type recordingHandoff struct {
	mu       sync.Mutex
	projects []handoff.Project
	id       string
	err      error
}

func (h *recordingHandoff) CreateProject(_ context.Context, p handoff.Project) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.projects = append(h.projects, p)
	return h.id, h.err
}

var errDown = errors.New("catalog down")

func formStep(id string, optional bool, fields ...workflow.Field) workflow.FormStep {
	return workflow.FormStep{
		StepHeader: workflow.StepHeader{ID: id, Name: id, Optional: optional},
		Fields:     fields,
	}
}

func promptStep(id string, optional bool, outputs ...string) workflow.PromptStep {
	return workflow.PromptStep{
		StepHeader: workflow.StepHeader{ID: id, Name: id, Optional: optional},
		Category:   "替身文系列",
		Outputs:    outputs,
	}
}

func newExecutor(t *testing.T, def *workflow.Definition, finder TemplateFinder, llm backend.LLMBackend, opts ...Option) *Executor {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	e, err := New(def, finder, llm, opts...)
	require.NoError(t, err)
	return e
}
