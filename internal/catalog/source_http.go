package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultHTTPLimit is the page size requested from the workshop endpoint.
const DefaultHTTPLimit = 600

// HTTPSource lists templates from the prompt workshop API.
type HTTPSource struct {
	BaseURL string
	Limit   int
	Client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		Limit:   DefaultHTTPLimit,
		Client:  &http.Client{Timeout: timeout},
	}
}

type itemsEnvelope struct {
	Data *struct {
		Items []TemplateItem `json:"items"`
	} `json:"data"`
	Items []TemplateItem `json:"items"`
}

func (s *HTTPSource) List(ctx context.Context) ([]TemplateItem, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultHTTPLimit
	}
	u := strings.TrimRight(s.BaseURL, "/") + "/api/prompt-workshop/items?" +
		url.Values{"limit": {strconv.Itoa(limit)}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch templates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch templates: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var env itemsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if env.Data != nil && env.Data.Items != nil {
		return env.Data.Items, nil
	}
	return env.Items, nil
}
