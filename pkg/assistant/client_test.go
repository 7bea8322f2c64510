package assistant

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/archtrace/pkg/credential"
)

const testKey = "AIzaSyTESTKEY1234567890abcdefghijk"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(credential.NewMemoryStore(testKey),
		WithEndpoint(srv.URL+"/v1beta"),
		WithHTTPClient(srv.Client()),
	)
	return c, &calls
}

func TestGenerate_RequestShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash-exp:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != testKey {
			t.Errorf("key = %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct{ Text string } `json:"parts"`
			} `json:"contents"`
			SystemInstruction struct {
				Parts []struct{ Text string } `json:"parts"`
			} `json:"systemInstruction"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
			return
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("contents = %+v", req.Contents)
		}
		if len(req.SystemInstruction.Parts) != 1 || !strings.Contains(req.SystemInstruction.Parts[0].Text, "智慧機場架構專家") {
			t.Errorf("system instruction missing")
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"**AODB** is the core."}]}}]}`)
	})

	got, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "**AODB** is the core." {
		t.Errorf("reply = %q", got)
	}
}

func TestGenerateResponse_FailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, MsgInvalidCredential, KindInvalidCredential},
		{"forbidden", http.StatusForbidden, `{}`, MsgInvalidCredential, KindInvalidCredential},
		{"server error", http.StatusInternalServerError, `oops`, MsgRequestFailed, KindHTTP},
		{"rate limited", http.StatusTooManyRequests, `{}`, MsgRequestFailed, KindHTTP},
		{"not json", http.StatusOK, `<html>`, MsgMalformed, KindMalformed},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, MsgMalformed, KindMalformed},
		{"no parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, MsgMalformed, KindMalformed},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, MsgMalformed, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			if got := c.GenerateResponse(context.Background(), "q"); got != tt.want {
				t.Errorf("GenerateResponse = %q, want %q", got, tt.want)
			}
			_, err := c.Generate(context.Background(), "q")
			var ae *Error
			if !errors.As(err, &ae) || ae.Kind != tt.wantErr {
				t.Errorf("Generate error = %v, want kind %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateResponse_NoCredentialMakesNoCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(credential.NewMemoryStore(""), WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if got := c.GenerateResponse(context.Background(), "q"); got != MsgNoCredential {
		t.Errorf("reply = %q", got)
	}
	if c.HasCredential() {
		t.Error("HasCredential should be false")
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no network call, got %d", n)
	}

	nilCreds := NewClient(nil)
	if got := nilCreds.GenerateResponse(context.Background(), "q"); got != MsgNoCredential {
		t.Errorf("nil provider reply = %q", got)
	}
}

func TestGenerateResponse_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(credential.NewMemoryStore(testKey), WithEndpoint(url))
	if got := c.GenerateResponse(context.Background(), "q"); got != MsgNetwork {
		t.Errorf("reply = %q, want network message", got)
	}
	_, err := c.Generate(context.Background(), "q")
	if err == nil || strings.Contains(err.Error(), testKey) {
		t.Errorf("transport error should not leak the key: %v", err)
	}
}

func TestMessageForForeignError(t *testing.T) {
	if Message(errors.New("boom")) != MsgRequestFailed {
		t.Error("unknown errors map to the generic message")
	}
}

func TestOptions(t *testing.T) {
	c := NewClient(nil, WithModel("m"), WithEndpoint("http://x/"), WithSystemPrompt("  "), WithModel(""))
	if c.Model() != "m" || c.endpoint != "http://x" || c.systemPrompt != DefaultSystemPrompt {
		t.Errorf("unexpected client %+v", c)
	}
}
