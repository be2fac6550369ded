package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DomeenoH/MuMuAINovel/internal/log"
)

// ErrRemote marks an error event sent by the server inside the stream.
var ErrRemote = errors.New("remote stream error")

// SSEBackend streams completions from the MuMu chat endpoint, which answers
// with server-sent events carrying {"content": "..."} fragments.
type SSEBackend struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Entry
}

// NewSSEBackend returns a backend for the chat endpoint under baseURL.
// timeout bounds the wait for the response headers only; once the stream
// has started, its length is limited by the caller's context.
func NewSSEBackend(baseURL string, timeout time.Duration) *SSEBackend {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &SSEBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: transport},
		logger:  log.WithModule("backend").WithField("backend", "sse"),
	}
}

type chatRequest struct {
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Stream implements LLMBackend.
func (b *SSEBackend) Stream(ctx context.Context, req Request) (Stream, error) {
	body := chatRequest{Messages: req.Messages, Stream: true}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = &req.MaxTokens
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/ai/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "text/event-stream")

	resp, err := b.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("chat request failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	return &sseStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
		logger: b.logger,
	}, nil
}

// Name implements LLMBackend.
func (b *SSEBackend) Name() string {
	return "sse"
}

// Close implements LLMBackend.
func (b *SSEBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

type sseEvent struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

type sseStream struct {
	body      io.ReadCloser
	reader    *bufio.Reader
	logger    *logrus.Entry
	done      bool
	closeOnce sync.Once
}

// Recv returns the next non-empty content fragment. Lines other than
// "data:" lines and events that are not valid JSON are skipped.
func (s *sseStream) Recv() (string, error) {
	for !s.done {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", err
			}
			s.done = true
		}

		line = strings.TrimRight(line, "\r\n")
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			s.done = true
			break
		}

		var ev sseEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			s.logger.WithField("event", data).Debug("skipping malformed event")
			continue
		}
		if ev.Error != "" {
			s.done = true
			return "", fmt.Errorf("%w: %s", ErrRemote, ev.Error)
		}
		if ev.Content != "" {
			return ev.Content, nil
		}
	}
	return "", io.EOF
}

func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
