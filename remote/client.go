// Package remote talks to the document Q&A service that ingests PDFs and answers
// questions about them.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/GathsaraH/PDF-QA-Assistant/remote"

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero leaves the transport default in place.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(l).Named("remote")
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tracer:  otel.Tracer(tracerName),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "remote.Health")
	defer span.End()

	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, span, http.MethodGet, "/health", nil, "", &out); err != nil {
		return err
	}
	if out.Status != "" && out.Status != "healthy" {
		return fmt.Errorf("service reports status %q", out.Status)
	}
	return nil
}

// Upload submits a document for ingestion into sessionID.
func (c *Client) Upload(ctx context.Context, sessionID, filename, contentType string, content io.Reader) (UploadResult, error) {
	ctx, span := c.tracer.Start(ctx, "remote.Upload", trace.WithAttributes(
		attribute.String("pdfqa.session_id", sessionID),
		attribute.String("pdfqa.filename", filename),
	))
	defer span.End()

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return UploadResult{}, c.fail(span, fmt.Errorf("failed to build upload form: %w", err))
	}
	if _, err := io.Copy(part, content); err != nil {
		return UploadResult{}, c.fail(span, fmt.Errorf("failed to read %s: %w", filename, err))
	}
	if err := form.WriteField("session_id", sessionID); err != nil {
		return UploadResult{}, c.fail(span, fmt.Errorf("failed to build upload form: %w", err))
	}
	if err := form.Close(); err != nil {
		return UploadResult{}, c.fail(span, fmt.Errorf("failed to build upload form: %w", err))
	}

	var out UploadResult
	if err := c.do(ctx, span, http.MethodPost, "/api/upload", body, form.FormDataContentType(), &out); err != nil {
		return UploadResult{}, err
	}
	span.SetAttributes(attribute.Int("pdfqa.chunks", out.Chunks))
	return out, nil
}

// Ask sends one question against sessionID.
func (c *Client) Ask(ctx context.Context, sessionID, question string) (Answer, error) {
	ctx, span := c.tracer.Start(ctx, "remote.Ask", trace.WithAttributes(
		attribute.String("pdfqa.session_id", sessionID),
	))
	defer span.End()

	payload, err := json.Marshal(chatRequest{Question: question, SessionID: sessionID})
	if err != nil {
		return Answer{}, c.fail(span, err)
	}

	var out Answer
	if err := c.do(ctx, span, http.MethodPost, "/api/chat", bytes.NewReader(payload), "application/json", &out); err != nil {
		return Answer{}, err
	}
	span.SetAttributes(attribute.Int("pdfqa.sources", len(out.Sources)))
	return out, nil
}

// History returns the server-held conversation for sessionID in server order.
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	ctx, span := c.tracer.Start(ctx, "remote.History", trace.WithAttributes(
		attribute.String("pdfqa.session_id", sessionID),
	))
	defer span.End()

	var out historyResponse
	path := "/api/chat-history/" + url.PathEscape(sessionID)
	if err := c.do(ctx, span, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		out.Messages = []HistoryMessage{}
	}
	return out.Messages, nil
}

// Documents lists every ingested document available to resume.
func (c *Client) Documents(ctx context.Context) ([]DocumentRecord, error) {
	ctx, span := c.tracer.Start(ctx, "remote.Documents")
	defer span.End()

	var out documentsResponse
	if err := c.do(ctx, span, http.MethodGet, "/api/documents", nil, "", &out); err != nil {
		return nil, err
	}
	if out.Documents == nil {
		out.Documents = []DocumentRecord{}
	}
	span.SetAttributes(attribute.Int("pdfqa.documents", len(out.Documents)))
	return out.Documents, nil
}

// DeleteDocument removes the document, its history and related data for sessionID.
func (c *Client) DeleteDocument(ctx context.Context, sessionID string) error {
	ctx, span := c.tracer.Start(ctx, "remote.DeleteDocument", trace.WithAttributes(
		attribute.String("pdfqa.session_id", sessionID),
	))
	defer span.End()

	return c.do(ctx, span, http.MethodDelete, "/api/document/"+url.PathEscape(sessionID), nil, "", nil)
}

func (c *Client) do(ctx context.Context, span trace.Span, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.fail(span, fmt.Errorf("failed to build request: %w", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return c.fail(span, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(span, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Reason: parseReason(data)}
		c.logger.Info("remote rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", apiErr.Reason))
		return c.fail(span, apiErr)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.fail(span, fmt.Errorf("failed to decode %s response: %w", path, err))
	}
	return nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
