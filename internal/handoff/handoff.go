// Package handoff turns a finished workflow's context into a project.
package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DomeenoH/MuMuAINovel/internal/log"
)

// Context keys read when building a project.
const (
	KeyBrief       = "project_brief"
	KeyInspiration = "inspiration_pool"
	KeyTheme       = "substitute_theme_positioning"
)

// ErrNoProjectID is returned when the server accepts a project but does not
// report its id.
var ErrNoProjectID = errors.New("response carries no project id")

// Project is the creation request sent when a workflow completes.
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Theme       string `json:"theme"`
	Genre       string `json:"genre"`
}

// Lookup reads a value from the finished workflow context.
type Lookup interface {
	Value(name string) string
}

// DefaultTitle names a project with a brief whose workflow has no name.
const DefaultTitle = "替身文"

// ProjectFromContext picks the project fields from ctx. A brief titles the
// project after the workflow; without one the title carries the date.
func ProjectFromContext(ctx Lookup, workflowName, genre string, now time.Time) Project {
	p := Project{
		Description: firstNonEmpty(ctx.Value(KeyBrief), ctx.Value(KeyInspiration)),
		Theme:       firstNonEmpty(ctx.Value(KeyTheme), workflowName),
		Genre:       genre,
	}
	if ctx.Value(KeyBrief) != "" {
		p.Title = firstNonEmpty(workflowName, DefaultTitle) + "项目"
	} else {
		p.Title = firstNonEmpty(workflowName, "新项目") + " - " + now.Format("2006-01-02")
	}
	return p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Handoff persists a project and returns its id.
type Handoff interface {
	CreateProject(ctx context.Context, p Project) (string, error)
}

// HTTPHandoff posts projects to the MuMu API.
type HTTPHandoff struct {
	baseURL string
	client  *http.Client
}

func NewHTTPHandoff(baseURL string, timeout time.Duration) *HTTPHandoff {
	return &HTTPHandoff{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *HTTPHandoff) CreateProject(ctx context.Context, p Project) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/projects", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("create project: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var created struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode project: %w", err)
	}
	id := strings.Trim(string(created.ID), `"`)
	if id == "" || id == "null" {
		return "", ErrNoProjectID
	}
	return id, nil
}

// LogHandoff only logs the project. It is used when no server is configured.
type LogHandoff struct {
	Logger *logrus.Entry
}

func (h LogHandoff) CreateProject(_ context.Context, p Project) (string, error) {
	logger := h.Logger
	if logger == nil {
		logger = log.WithModule("handoff")
	}
	logger.WithFields(logrus.Fields{
		"title": p.Title,
		"theme": p.Theme,
		"genre": p.Genre,
	}).Info("workflow finished; project not persisted")
	return "", nil
}
