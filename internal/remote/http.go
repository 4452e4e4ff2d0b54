package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/google/uuid"
)

// DefaultBaseURL is where the backend lives during development.
const DefaultBaseURL = "http://localhost:3000/api/tarefas"

// TokenFunc returns the bearer credential; "" sends no Authorization header.
type TokenFunc func(ctx context.Context) (string, error)

// HTTPSink talks to the tarefas REST API:
//
//	POST   {base}        {"id","titulo"}
//	PUT    {base}/{id}   {"titulo"}
//	DELETE {base}/{id}
type HTTPSink struct {
	base   string
	client *http.Client
	token  TokenFunc
	log    *slog.Logger
}

type HTTPOption func(*HTTPSink)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSink) { s.client = c }
}

// WithLogger sets the logger used for response diagnostics.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(s *HTTPSink) { s.log = l }
}

// NewHTTPSink creates a sink for baseURL (DefaultBaseURL when empty).
func NewHTTPSink(baseURL string, token TokenFunc, opts ...HTTPOption) *HTTPSink {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	s := &HTTPSink{
		base:   strings.TrimRight(baseURL, "/"),
		client: http.DefaultClient,
		token:  token,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type createBody struct {
	ID     int64  `json:"id"`
	Titulo string `json:"titulo"`
}

type updateBody struct {
	Titulo string `json:"titulo"`
}

func (s *HTTPSink) Create(ctx context.Context, task model.Task) error {
	return s.do(ctx, http.MethodPost, s.base, createBody{ID: task.ID, Titulo: task.Title})
}

func (s *HTTPSink) Update(ctx context.Context, id int64, title string) error {
	return s.do(ctx, http.MethodPut, s.itemURL(id), updateBody{Titulo: title})
}

func (s *HTTPSink) Delete(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodDelete, s.itemURL(id), nil)
}

func (s *HTTPSink) itemURL(id int64) string {
	return s.base + "/" + strconv.FormatInt(id, 10)
}

func (s *HTTPSink) do(ctx context.Context, method, url string, body any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if s.token != nil {
		tok, err := s.token(ctx)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// the backend's answer is not part of the contract
	s.log.Debug("sink response", "method", method, "url", url, "status", resp.StatusCode)
	return nil
}
