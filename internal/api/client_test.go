// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/qachat/internal/config"
	"github.com/jeranaias/qachat/internal/model"
)

// newTestClient returns a client for srv with fast backoff and no rate limit.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	c.backoffBase = time.Millisecond
	return c
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	require.Error(t, err)

	_, err = NewClient("://nope")
	require.Error(t, err)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.URL = "https://chat.example.com/base/"
	cfg.Server.SessionCookieName = "sid"
	cfg.Server.SessionCookie = "abc"
	cfg.Server.TimeoutSecs = 5
	cfg.Chat.RequestsPerSecond = 0

	c, err := NewClientFromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, c.httpClient.Timeout)
	require.Nil(t, c.limiter)
	require.True(t, c.HasSession())
	require.Equal(t, "https://chat.example.com/base/ai/chat/ask", c.endpoint("/ai/chat/ask"))
}

func TestLoginURL(t *testing.T) {
	c, err := NewClient("http://localhost:8000")
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8000/login", c.LoginURL(""))
	require.Equal(t,
		"http://localhost:8000/login?url=http%3A%2F%2Flocalhost%3A3000%2F%3Fa%3D1",
		c.LoginURL("http://localhost:3000/?a=1"))
}

// =============================================================================
// SESSION PROVIDER
// =============================================================================

func TestCurrentUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		ck, err := r.Cookie("session")
		if err != nil || ck.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NotEmpty(t, r.Header.Get(RequestIDHeader))
		_, _ = w.Write([]byte(`{"username":"alice"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.CurrentUser(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	c.WithSessionCookie("session", "tok")
	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/chat/history", r.URL.Path)
		_, _ = w.Write([]byte(`[{"question":"q1","answer":"a1"},{"question":"q2","answer":""}]`))
	}))
	defer srv.Close()

	pairs, err := newTestClient(t, srv).History(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.QA{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: ""}}, pairs)
}

func TestHistory_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	pairs, err := newTestClient(t, srv).History(context.Background())
	require.NoError(t, err)
	require.Empty(t, pairs)
	require.Equal(t, int32(3), calls.Load())
}

func TestHistory_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv).WithMaxRetries(2)
	_, err := c.History(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	require.Contains(t, se.Message, "down for maintenance")
	require.NotEmpty(t, se.RequestID)
	require.Equal(t, int32(2), calls.Load())
}

func TestHistory_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).History(context.Background())
	require.True(t, IsUnauthenticated(err))
	require.Equal(t, int32(1), calls.Load())
}

func TestLogout_ForgetsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/logout", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv).WithSessionCookie("session", "tok")
	require.True(t, c.HasSession())
	require.NoError(t, c.Logout(context.Background()))
	require.False(t, c.HasSession())
}

// =============================================================================
// CHAT API
// =============================================================================

func TestAsk_SendsQuestionWithoutStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/ai/chat/ask", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, AskRequest{Question: "why?", Stream: false}, req)

		_, _ = w.Write([]byte(`{"answer":"because"}`))
	}))
	defer srv.Close()

	answer, err := newTestClient(t, srv).Ask(context.Background(), "why?")
	require.NoError(t, err)
	require.Equal(t, "because", answer)
}

func TestAsk_NeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Ask(context.Background(), "q")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, int32(1), calls.Load())
}

func TestAsk_Unauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Ask(context.Background(), "q")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"answer field", `{"answer":"A"}`, "A", nil},
		{"response fallback", `{"response":"R"}`, "R", nil},
		{"answer wins", `{"answer":"A","response":"R"}`, "A", nil},
		{"empty answer falls through", `{"answer":"","response":"R"}`, "R", nil},
		{"present but empty", `{"answer":""}`, "", nil},
		{"unknown shape", `{"text":"T"}`, "", ErrUnexpectedResponse},
		{"non-string answer", `{"answer":42}`, "", ErrUnexpectedResponse},
		{"json string", `"plain"`, "", ErrUnexpectedResponse},
		{"not json", `hello`, "", ErrUnexpectedResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractAnswer([]byte(tc.body))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAsk_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", MaxResponseSize)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Ask(context.Background(), "q")
	require.ErrorIs(t, err, ErrResponseTooLarge)
}

// =============================================================================
// STREAMING
// =============================================================================

// chunkedHandler writes each chunk and flushes it.
func chunkedHandler(t *testing.T, chunks ...[]byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			_, _ = w.Write(c)
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestAskStream_FragmentsInOrder(t *testing.T) {
	srv := httptest.NewServer(chunkedHandler(t, []byte("Hel"), []byte("lo, "), []byte("world")))
	defer srv.Close()

	var fragments []string
	err := newTestClient(t, srv).AskStream(context.Background(), "hi", func(f string) error {
		fragments = append(fragments, f)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Hello, world", strings.Join(fragments, ""))
}

func TestAskStream_SplitMultibyteRune(t *testing.T) {
	// "é" is 0xC3 0xA9; "界" is 0xE7 0x95 0x8C.
	srv := httptest.NewServer(chunkedHandler(t,
		[]byte("caf\xc3"),
		[]byte("\xa9 \xe7"),
		[]byte("\x95"),
		[]byte("\x8c!"),
	))
	defer srv.Close()

	var fragments []string
	err := newTestClient(t, srv).AskStream(context.Background(), "hi", func(f string) error {
		fragments = append(fragments, f)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "café 界!", strings.Join(fragments, ""))
	for _, f := range fragments {
		require.True(t, utf8.ValidString(f), "fragment %q split a rune", f)
	}
}

func TestAskStream_CallbackErrorStops(t *testing.T) {
	srv := httptest.NewServer(chunkedHandler(t, []byte("a"), []byte("b"), []byte("c")))
	defer srv.Close()

	stop := errors.New("stop")
	calls := 0
	err := newTestClient(t, srv).AskStream(context.Background(), "hi", func(string) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}

func TestAskStream_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	err := newTestClient(t, srv).AskStream(ctx, "hi", func(f string) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAskStream_Unauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).AskStream(context.Background(), "hi", func(string) error {
		t.Error("callback must not run")
		return nil
	})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

// =============================================================================
// HELPERS
// =============================================================================

func TestCalculateBackoff(t *testing.T) {
	c := &Client{backoffBase: retryBaseDelay}
	require.Equal(t, 500*time.Millisecond, c.calculateBackoff(0))
	require.Equal(t, time.Second, c.calculateBackoff(1))
	require.Equal(t, 2*time.Second, c.calculateBackoff(2))
	require.Equal(t, retryMaxDelay, c.calculateBackoff(10))
}

func TestRateLimit_Burst(t *testing.T) {
	c, err := NewClient("http://localhost")
	require.NoError(t, err)

	c.WithRateLimit(0.5)
	require.NotNil(t, c.limiter)
	require.Equal(t, 2, c.limiter.Burst())

	c.WithRateLimit(0)
	require.Nil(t, c.limiter)
}
