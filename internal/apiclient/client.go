package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/retry"
	"github.com/radieske/betops-admin/internal/shared/logger"
)

// TokenSource fornece o bearer token atual; "" = sem sessão
type TokenSource interface {
	Token() string
}

// TokenStore guarda o token em memória; Set no login, Clear no logout
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewTokenStore(token string) *TokenStore { return &TokenStore{token: token} }

func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *TokenStore) Clear() { s.Set("") }

// Options ajusta uma requisição individual
type Options struct {
	SkipAuth bool
	Query    map[string]any
	Headers  map[string]string
	// Idempotent libera retentativas para POST/PATCH que o servidor deduplica
	Idempotent bool
}

// Client encapsula o acesso à API REST da plataforma
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	Tokens    TokenSource
	Timeout   time.Duration // por tentativa
	Retries   int
	BaseDelay time.Duration
	Sleep     retry.Sleeper // nil = timer real
	Log       *zap.Logger

	OnRequest func(method string, status int, d time.Duration) // métricas; status 0 = falha de rede
	OnRetry   func()                                           // métricas
}

func New(base string, tokens TokenSource, log *zap.Logger) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(base, "/"),
		HTTP:      &http.Client{},
		Tokens:    tokens,
		Timeout:   30 * time.Second,
		Retries:   3,
		BaseDelay: time.Second,
		Log:       logger.Nop(log),
	}
}

// Do executa a requisição e devolve o corpo bruto da resposta 2xx.
// Falhas de rede, timeout e 5xx são retentadas com backoff; 4xx volta na hora.
// POST e PATCH só são retentados com Options.Idempotent.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts *Options) (json.RawMessage, error) {
	if opts == nil {
		opts = &Options{}
	}

	var payload []byte
	if body != nil && method != http.MethodGet {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = b
	}

	url := c.url(path, opts.Query)
	token := ""
	if !opts.SkipAuth && c.Tokens != nil {
		token = c.Tokens.Token()
	}
	log := logger.Nop(c.Log)

	retries := c.Retries
	if !idempotent(method) && !opts.Idempotent {
		retries = 0
	}

	policy := retry.Policy{
		Retries:   retries,
		BaseDelay: c.BaseDelay,
		Retryable: Retryable,
		Sleep:     c.Sleep,
		OnRetry: func(n int, err error, delay time.Duration) {
			log.Warn("api request failed, retrying",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", n+1),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if c.OnRetry != nil {
				c.OnRetry()
			}
		},
	}

	return retry.Do(ctx, policy, func(ctx context.Context, _ int) (json.RawMessage, error) {
		return c.attempt(ctx, method, path, url, payload, token, opts.Headers)
	})
}

// DoJSON executa Do e decodifica a resposta em out (se não for nil)
func (c *Client) DoJSON(ctx context.Context, method, path string, body any, opts *Options, out any) error {
	raw, err := c.Do(ctx, method, path, body, opts)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, query map[string]any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil, &Options{Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPatch, path, body, nil)
}

func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) attempt(ctx context.Context, method, path, url string, payload []byte, token string, headers map[string]string) (json.RawMessage, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}

	start := time.Now()
	res, err := httpc.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		if ctx.Err() != nil {
			// cancelado pelo chamador: não retenta
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: method + " " + path, Timeout: isTimeout(actx, err), Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	c.observe(method, res.StatusCode, start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: method + " " + path, Timeout: isTimeout(actx, err), Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, newAPIError(res.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return raw, nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	if c.OnRequest != nil {
		c.OnRequest(method, status, time.Since(start))
	}
}

func (c *Client) url(path string, query map[string]any) string {
	u := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if q := BuildQuery(query); q != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + q
	}
	return u
}

func idempotent(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch:
		return false
	}
	return true
}

func isTimeout(actx context.Context, err error) bool {
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
