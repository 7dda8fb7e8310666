// Package client talks to the TaskFlow HTTP API. A Session is created by Login or Register, carries
// the bearer token for every call and ends with Logout.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"
)

var ErrUnauthorized = errors.New("not signed in or session expired")

// APIError is a non-2xx response. It unwraps to the typed model error its code stands for, so
// model.IsConflict and errors.Is work on client errors the same way they do on the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.err }

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Expected  int64  `json:"expected"`
	Actual    int64  `json:"actual"`
	TaskID    int64  `json:"task_id"`
	BlockedBy int64  `json:"blocked_by"`
}

func decodeError(status int, data []byte) error {
	var b errorBody
	_ = json.Unmarshal(data, &b)
	e := &APIError{Status: status, Code: b.Code, Message: b.Error}
	switch b.Code {
	case model.CodeNotFound:
		e.err = model.NotFoundError{Kind: "resource", ID: b.Error}
	case model.CodeForbidden:
		e.err = model.ForbiddenError{Action: strings.TrimPrefix(b.Error, "forbidden: ")}
	case model.CodeConflict:
		e.err = model.ConflictError{Kind: "task", ID: b.TaskID, Expected: b.Expected, Actual: b.Actual}
	case model.CodeBlocked:
		e.err = model.BlockedError{TaskID: b.TaskID, BlockedBy: b.BlockedBy}
	default:
		if sentinel, ok := model.SentinelForCode(b.Code); ok {
			e.err = sentinel
		} else if status == http.StatusUnauthorized {
			e.err = ErrUnauthorized
		}
	}
	return e
}

type Option func(*Session)

func WithHTTPClient(c *http.Client) Option { return func(s *Session) { s.http = c } }

type Session struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
	user  model.Profile
}

func newSession(baseURL string, opts ...Option) *Session {
	s := &Session{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 30 * time.Second}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resume rebuilds a session from a stored token and checks it against the server.
func Resume(ctx context.Context, baseURL, token string, opts ...Option) (*Session, error) {
	s := newSession(baseURL, opts...)
	s.token = token
	me, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.user = *me
	return s, nil
}

func Login(ctx context.Context, baseURL, email, password string, opts ...Option) (*Session, error) {
	s := newSession(baseURL, opts...)
	var resp model.LoginResponse
	if err := s.do(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	s.token, s.user = resp.Token, resp.User
	return s, nil
}

func Register(ctx context.Context, baseURL string, req model.RegisterRequest, opts ...Option) (*Session, error) {
	s := newSession(baseURL, opts...)
	var resp model.LoginResponse
	if err := s.do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	s.token, s.user = resp.Token, resp.User
	return s, nil
}

// Logout revokes the token server-side and clears it locally. The session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	err := s.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	s.mu.Lock()
	s.token = ""
	s.user = model.Profile{}
	s.mu.Unlock()
	return err
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) BaseURL() string { return s.baseURL }

func (s *Session) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := s.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	logger.Debug("api.call", "method", method, "path", path, "status", resp.StatusCode, "ms", time.Since(start).Milliseconds())

	if fresh := resp.Header.Get("X-New-Token"); fresh != "" {
		s.mu.Lock()
		s.token = fresh
		s.mu.Unlock()
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func getJSON[T any](ctx context.Context, s *Session, path string) (T, error) {
	var v T
	err := s.do(ctx, http.MethodGet, path, nil, &v)
	return v, err
}

func sendJSON[T any](ctx context.Context, s *Session, method, path string, in any) (*T, error) {
	var v T
	if err := s.do(ctx, method, path, in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func queryIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return url.QueryEscape(strings.Join(parts, ","))
}
