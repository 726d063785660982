package publicchat

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httptest2 "github.com/getlantern/httptest"
)

func TestHub_HandleSocket(t *testing.T) {
	t.Run("should error when no identity is supplied", func(t *testing.T) {
		testW := httptest.NewRecorder()
		testR := httptest.NewRequest("GET", "/ws", nil)

		h := setupTestHub(t, nil, Options{})

		var httpErr error
		handler := h.HandleSocket(
			IdentityFunc(func(w http.ResponseWriter, r *http.Request) (string, error) {
				return "", errors.New("no identity")
			}),
			func(w http.ResponseWriter, r *http.Request, err error) {
				httpErr = err
				http.Error(w, "error", http.StatusBadRequest)
			},
		)
		handler(testW, testR)
		resp := testW.Result()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected status code to be %d, got %d", http.StatusBadRequest, resp.StatusCode)
		}
		if httpErr == nil {
			t.Fatal("httpErr is nil")
		}
	})
	t.Run("should error on a whitespace identity", func(t *testing.T) {
		testW := httptest.NewRecorder()
		testR := httptest.NewRequest("GET", "/ws", nil)

		h := setupTestHub(t, nil, Options{})

		var httpErr error
		handler := h.HandleSocket(
			IdentityFunc(func(w http.ResponseWriter, r *http.Request) (string, error) {
				return "   ", nil
			}),
			func(w http.ResponseWriter, r *http.Request, err error) {
				httpErr = err
				http.Error(w, "error", http.StatusBadRequest)
			},
		)
		handler(testW, testR)

		if httpErr == nil {
			t.Fatal("expected an error for a blank identity")
		}
	})
	t.Run("should upgrade and register the session", func(t *testing.T) {
		// A pipe with no writes keeps the session's read loop blocked so
		// the connection stays open for the duration of the test.
		pr, pw := io.Pipe()
		defer pw.Close()
		testW := httptest2.NewRecorder(pr)
		testR := httptest.NewRequest("GET", "/ws", nil)
		testR.Header.Set("Upgrade", "websocket")
		testR.Header.Set("Connection", "Upgrade")
		testR.Header.Set("Sec-WebSocket-Version", "13")

		key, err := generateChallengeKey()
		if err != nil {
			t.Fatal(err)
		}
		testR.Header.Set("Sec-WebSocket-Key", key)

		// The session goroutines outlive the test body, so logging must
		// not go through t.Log here.
		h := setupTestHub(t, nil, Options{
			Slogger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		go h.Start()

		var httpErr error
		handler := h.HandleSocket(
			IdentityFunc(func(w http.ResponseWriter, r *http.Request) (string, error) {
				return "alice", nil
			}),
			func(w http.ResponseWriter, r *http.Request, err error) {
				httpErr = err
				t.Log(err)
				http.Error(w, "error", http.StatusInternalServerError)
			},
		)
		handler(testW, testR)

		// Give the hub loop a moment to process the opened event.
		<-time.After(time.Millisecond * 10)

		if httpErr != nil {
			t.Fatalf("expected http errors to be nil, got %s", httpErr.Error())
		}
		if !h.presence.Online("alice") {
			t.Fatal("expected alice to be registered as online")
		}
	})
}

func generateChallengeKey() (string, error) {
	p := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, p); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(p), nil
}
