package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, events ...string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprint(w, ev)
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestSSEBackendStream(t *testing.T) {
	srv, got := sseServer(t,
		"data: {\"content\": \"你好\"}\n\n",
		": keep-alive\n\n",
		"data: not json\n\n",
		"data: {\"content\": \"\"}\n\n",
		"data: {\"content\": \"，世界\"}\n\n",
		"data: [DONE]\n\n",
		"data: {\"content\": \"after done\"}\n\n",
	)

	b := NewSSEBackend(srv.URL+"/", time.Second)
	s, err := b.Stream(context.Background(), Request{
		Messages:  BuildMessages("sys", nil, nil),
		MaxTokens: 100,
	})
	require.NoError(t, err)

	out, err := Collect(s, nil)
	require.NoError(t, err)
	assert.Equal(t, "你好，世界", out)

	assert.True(t, got.Stream)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 100, *got.MaxTokens)
	assert.Nil(t, got.Temperature)
	assert.Len(t, got.Messages, 2)
}

func TestSSEBackendEndsOnClose(t *testing.T) {
	srv, _ := sseServer(t, "data: {\"content\": \"a\"}\n\n", "data: {\"content\": \"b\"}")

	s, err := NewSSEBackend(srv.URL, time.Second).Stream(context.Background(), Request{})
	require.NoError(t, err)

	out, err := Collect(s, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestSSEBackendErrorEvent(t *testing.T) {
	srv, _ := sseServer(t, "data: {\"content\": \"part\"}\n\n", "data: {\"error\": \"quota exceeded\"}\n\n")

	s, err := NewSSEBackend(srv.URL, time.Second).Stream(context.Background(), Request{})
	require.NoError(t, err)

	out, err := Collect(s, nil)
	require.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, "part", out)
}

func TestSSEBackendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewSSEBackend(srv.URL, time.Second).Stream(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSSEBackendCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"content\": \"first\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := NewSSEBackend(srv.URL, 5*time.Second).Stream(ctx, Request{})
	require.NoError(t, err)
	defer s.Close()

	chunk, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "first", chunk)

	cancel()
	_, err = s.Recv()
	assert.Error(t, err)
}

func TestSSEBackendStreamOutlivesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\": \"first\"}\n\n")
		w.(http.Flusher).Flush()
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, "data: {\"content\": \" second\"}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	s, err := NewSSEBackend(srv.URL, 50*time.Millisecond).Stream(context.Background(), Request{})
	require.NoError(t, err)

	out, err := Collect(s, nil)
	require.NoError(t, err)
	assert.Equal(t, "first second", out)
}

func TestSSEBackendHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewSSEBackend(srv.URL, 50*time.Millisecond).Stream(context.Background(), Request{})
	require.Error(t, err)
}
