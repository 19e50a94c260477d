// Package extract calls the external entity-extraction service and returns
// the annotated document (text plus typed entity mentions) that the mask
// package consumes.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gonkalabs/identity-mask/internal/credential"
	"github.com/gonkalabs/identity-mask/internal/mask"
)

// Request describes one document to annotate.
type Request struct {
	Content  string // document text, or a URI when URI is set
	URI      bool
	Language string // ISO 639-2/T override; empty = service auto-detects
}

// Extractor turns a document into typed entity mentions.
type Extractor interface {
	Entities(ctx context.Context, req Request) (*mask.Document, error)
}

// APIError is a non-retryable error response from the service.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("extract: status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("extract: status %d: %s", e.Status, e.Message)
}

// Client talks to the entity-extraction REST API. Each attempt uses the next
// key from the pool; transport errors, 429 and 5xx responses are retried.
type Client struct {
	url         string
	pool        *credential.Pool
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the attempt limit and the base delay between attempts.
// The n-th retry waits n*backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		c.backoff = backoff
	}
}

// New creates a Client for baseURL (e.g. "https://api.rosette.com/rest/v1/").
func New(baseURL string, pool *credential.Pool, opts ...Option) *Client {
	c := &Client{
		url:  strings.TrimRight(baseURL, "/") + "/entities",
		pool: pool,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxAttempts: 3,
		backoff:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the entities endpoint.
func (c *Client) URL() string {
	return c.url
}

type entitiesRequest struct {
	Content    string `json:"content,omitempty"`
	ContentURI string `json:"contentUri,omitempty"`
	Language   string `json:"language,omitempty"`
}

// ADM is the subset of the annotated data model the masker needs.
type ADM struct {
	Data       string `json:"data"`
	Attributes struct {
		Entities struct {
			Items []mask.Entity `json:"items"`
		} `json:"entities"`
	} `json:"attributes"`
}

// Entities annotates req and returns the document text with its entities in
// extraction order.
func (c *Client) Entities(ctx context.Context, req Request) (*mask.Document, error) {
	body := entitiesRequest{Language: req.Language}
	if req.URI {
		body.ContentURI = req.Content
	} else {
		body.Content = req.Content
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("extract: marshal: %w", err)
	}

	slog.Info("extract: extracting entities", "url", c.url, "uri", req.URI, "language", req.Language)
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, time.Duration(attempt-1)*c.backoff); err != nil {
				return nil, err
			}
		}
		doc, retry, err := c.do(ctx, payload)
		if err == nil {
			if doc.Data == "" && !req.URI {
				doc.Data = req.Content
			}
			warnMissingOffsets(doc)
			slog.Info("extract: done", "entities", len(doc.Entities))
			return doc, nil
		}
		if !retry {
			return nil, err
		}
		slog.Warn("extract: request failed, retrying", "attempt", attempt, "err", err)
		lastErr = err
	}
	return nil, fmt.Errorf("extract: giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

// do performs one attempt. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, payload []byte) (doc *mask.Document, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"?output=rosette", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("extract: request: %w", err)
	}
	key := c.pool.Next()
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-RosetteAPI-Key", key)
	httpReq.Header.Set("X-Request-Id", reqID)

	slog.Debug("extract: request", "request_id", reqID, "key", credential.Fingerprint(key))
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(b, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, transient, apiErr
	}

	var result ADM
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("extract: decode: %w", err)
	}
	return result.Document(), false, nil
}

// Document converts the annotated data model to a mask document.
func (a *ADM) Document() *mask.Document {
	return &mask.Document{Data: a.Data, Entities: a.Attributes.Entities.Items}
}

func warnMissingOffsets(doc *mask.Document) {
	var missing int
	for _, e := range doc.Entities {
		for _, m := range e.Mentions {
			if !m.HasExtent() {
				missing++
			}
		}
	}
	if missing > 0 {
		slog.Warn("extract: mentions without offsets will be masked at document start", "count", missing)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsAPIError reports whether err carries an error response from the service.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
