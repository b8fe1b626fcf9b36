// Package dummyjson talks to the demo todos REST API at dummyjson.com.
package dummyjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/domain"
	"github.com/google/uuid"
)

// DefaultBaseURL and related constants define client defaults.
const (
	DefaultBaseURL   = "https://dummyjson.com/todos"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "lanes"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Limit      int
	UserAgent  string
	HTTPClient *http.Client
}

// Client is a todos API client.
type Client struct {
	baseURL   string
	limit     int
	userAgent string
	http      *http.Client
}

// APIError is a non-2xx response from the todos API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

// Error returns the error message.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("todos api: %d %s (request %s)", e.StatusCode, msg, e.RequestID)
}

// Unwrap maps missing resources onto app.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return app.ErrNotFound
	}
	return nil
}

// New constructs a client. Empty BaseURL, Timeout and UserAgent take package defaults;
// Limit 0 asks the API for every todo.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse todos api url %q: %w", base, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("todos api url %q must be absolute", base)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("todos api limit must be >= 0")
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   base,
		limit:     opts.Limit,
		userAgent: userAgent,
		http:      client,
	}, nil
}

// wireTodo is the API's todo representation.
type wireTodo struct {
	ID        int    `json:"id,omitempty"`
	Todo      string `json:"todo"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`
	Status    string `json:"status,omitempty"`
}

// newWireTodo builds a write body; the id travels in the path.
func newWireTodo(todo domain.Todo) wireTodo {
	return wireTodo{
		Todo:      todo.Text,
		Completed: todo.Completed,
		UserID:    todo.UserID,
		Status:    string(todo.Status),
	}
}

type listResponse struct {
	Todos []wireTodo `json:"todos"`
	Total int        `json:"total"`
	Skip  int        `json:"skip"`
	Limit int        `json:"limit"`
}

type deleteResponse struct {
	wireTodo
	IsDeleted bool   `json:"isDeleted"`
	DeletedOn string `json:"deletedOn"`
}

// ListTodos fetches the first page of todos. Status derives from the completed flag.
func (c *Client) ListTodos(ctx context.Context) (app.RemotePage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.limit))
	query.Set("skip", "0")

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "", query, nil, &resp); err != nil {
		return app.RemotePage{}, err
	}
	out := make([]domain.Todo, 0, len(resp.Todos))
	for _, item := range resp.Todos {
		todo := item.toDomain()
		todo.Status = domain.StatusFromCompleted(item.Completed)
		out = append(out, todo)
	}
	return app.RemotePage{Todos: out, Total: resp.Total}, nil
}

// AddTodo creates a todo and returns the API's echo.
func (c *Client) AddTodo(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	var resp wireTodo
	body := newWireTodo(todo)
	if err := c.do(ctx, http.MethodPost, "/add", nil, body, &resp); err != nil {
		return domain.Todo{}, err
	}
	return resp.toDomain(), nil
}

// UpdateTodo replaces the text, status, completed flag and owner of one todo.
func (c *Client) UpdateTodo(ctx context.Context, id int, todo domain.Todo) (domain.Todo, error) {
	var resp wireTodo
	body := newWireTodo(todo)
	if err := c.do(ctx, http.MethodPut, "/"+strconv.Itoa(id), nil, body, &resp); err != nil {
		return domain.Todo{}, err
	}
	return resp.toDomain(), nil
}

// DeleteTodo deletes one todo.
func (c *Client) DeleteTodo(ctx context.Context, id int) error {
	var resp deleteResponse
	if err := c.do(ctx, http.MethodDelete, "/"+strconv.Itoa(id), nil, nil, &resp); err != nil {
		return err
	}
	if !resp.IsDeleted {
		log.Warn("todos api did not confirm delete", "todo_id", id)
	}
	return nil
}

// do sends one JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, target, err)
	}
	log.Debug("todos api request", "method", method, "url", target, "status", resp.StatusCode, "request_id", requestID, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload, &envelope) == nil {
			apiErr.Message = strings.TrimSpace(envelope.Message)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, target, err)
	}
	return nil
}

func (t wireTodo) toDomain() domain.Todo {
	return domain.Todo{
		ID:        t.ID,
		Text:      t.Todo,
		Completed: t.Completed,
		UserID:    t.UserID,
		Status:    domain.StatusFromCompleted(t.Completed),
		Origin:    domain.OriginRemote,
	}
}
