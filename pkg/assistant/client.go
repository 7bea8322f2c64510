// Package assistant talks to the remote text-generation service that
// explains the architecture, and keeps the conversation log shown in the
// chat panel.
//
// GenerateResponse never fails: every problem (no credential, rejected
// credential, HTTP error, network failure, unusable reply) is turned into a
// fixed, human-readable message that is shown in place of an answer.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/archtrace/pkg/credential"
	"github.com/vanderheijden86/archtrace/pkg/debug"
	"github.com/vanderheijden86/archtrace/pkg/metrics"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-2.0-flash-exp"
)

// maxResponseBytes caps how much of a reply body is read.
const maxResponseBytes = 4 << 20

// User-facing replies for each failure kind.
const (
	MsgNoCredential      = "⚠️ Set your Gemini API key first to use the assistant.\n\nPress K to enter a key."
	MsgInvalidCredential = "⚠️ The API key is invalid or has expired. Check that it was entered correctly."
	MsgRequestFailed     = "⚠️ The request failed. Please try again later."
	MsgNetwork           = "⚠️ Network connection failed. Check your connection."
	MsgMalformed         = "⚠️ Sorry, I could not process that request."
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	KindNoCredential ErrorKind = iota + 1
	KindInvalidCredential
	KindHTTP
	KindNetwork
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoCredential:
		return "no_credential"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	}
	return "unknown"
}

// Error is returned by Generate.
type Error struct {
	Kind   ErrorKind
	Status int // HTTP status for KindHTTP and KindInvalidCredential
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("assistant: ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Message maps an error from Generate to the text shown to the user.
func Message(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		return MsgRequestFailed
	}
	switch ae.Kind {
	case KindNoCredential:
		return MsgNoCredential
	case KindInvalidCredential:
		return MsgInvalidCredential
	case KindNetwork:
		return MsgNetwork
	case KindMalformed:
		return MsgMalformed
	}
	return MsgRequestFailed
}

// Responder produces a reply for a prompt. *Client implements it.
type Responder interface {
	GenerateResponse(ctx context.Context, prompt string) string
}

// Client calls the generateContent endpoint.
type Client struct {
	httpClient   *http.Client
	creds        credential.Provider
	endpoint     string
	model        string
	systemPrompt string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests use httptest servers).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithEndpoint sets the API base URL, e.g. DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(cl *Client) {
		if endpoint != "" {
			cl.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(cl *Client) {
		if model != "" {
			cl.model = model
		}
	}
}

// WithSystemPrompt replaces the system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(cl *Client) {
		if strings.TrimSpace(prompt) != "" {
			cl.systemPrompt = prompt
		}
	}
}

// WithTimeout bounds each request. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient = &http.Client{Timeout: d, Transport: cl.httpClient.Transport}
		}
	}
}

// NewClient creates a client reading its key from creds on every call.
func NewClient(creds credential.Provider, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		creds:        creds,
		endpoint:     DefaultEndpoint,
		model:        DefaultModel,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// HasCredential reports whether a key is available.
func (c *Client) HasCredential() bool {
	return c.creds != nil && c.creds.Has()
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateResponse returns the reply text, or the fixed message for
// whatever went wrong.
func (c *Client) GenerateResponse(ctx context.Context, prompt string) string {
	reply, err := c.Generate(ctx, prompt)
	if err != nil {
		debug.Log("assistant: %v", err)
		return Message(err)
	}
	return reply
}

// Generate performs one request. Errors are always *Error. Without a
// credential no request is made.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var key string
	if c.creds != nil {
		key, _ = c.creds.Get()
	}
	if key == "" {
		return "", &Error{Kind: KindNoCredential}
	}

	defer metrics.TimerWithCallback(metrics.AssistantCall, func(d time.Duration) {
		debug.LogTiming("assistant "+c.model, d)
	})()

	payload := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	if c.systemPrompt != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: c.systemPrompt}}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, url.PathEscape(c.model), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: redact(err, key)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &Error{Kind: KindInvalidCredential, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Kind: KindHTTP, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	var decoded generateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", &Error{Kind: KindMalformed, Err: err}
	}
	if len(decoded.Candidates) == 0 || decoded.Candidates[0].Content == nil ||
		len(decoded.Candidates[0].Content.Parts) == 0 || decoded.Candidates[0].Content.Parts[0].Text == nil ||
		*decoded.Candidates[0].Content.Parts[0].Text == "" {
		return "", &Error{Kind: KindMalformed, Err: errors.New("no candidate text in response")}
	}
	return *decoded.Candidates[0].Content.Parts[0].Text, nil
}

// redact strips the key from transport errors, which quote the URL.
func redact(err error, key string) error {
	msg := err.Error()
	if key == "" || !strings.Contains(msg, key) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, key, "REDACTED"))
}
