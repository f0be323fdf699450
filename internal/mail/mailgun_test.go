// mailgun_test.go

package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailgunSend(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotUser, gotPass, _ = r.BasicAuth()
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{
				"from":    r.PostForm.Get("from"),
				"to":      r.PostForm.Get("to"),
				"subject": r.PostForm.Get("subject"),
				"text":    r.PostForm.Get("text"),
			}
			w.WriteHeader(http.StatusOK)
		}))
	defer srv.Close()

	m := &Mailgun{
		client:  &http.Client{Timeout: time.Second},
		domain:  "mg.example.org",
		apiKey:  "key-secret",
		from:    "donotreply@example.org",
		baseURL: srv.URL,
	}

	err := m.Send(context.Background(), Message{
		To:      "dana@example.org",
		Subject: "New message",
		Text:    "You have a new message.",
	})
	require.NoError(t, err)

	require.Equal(t, "/mg.example.org/messages", gotPath)
	require.Equal(t, "api", gotUser)
	require.Equal(t, "key-secret", gotPass)
	require.Equal(t, "dana@example.org", gotForm["to"])
	require.Equal(t, "donotreply@example.org", gotForm["from"])
	require.Equal(t, "New message", gotForm["subject"])
}

func TestMailgunSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))
	defer srv.Close()

	m := &Mailgun{
		client:  &http.Client{Timeout: time.Second},
		domain:  "mg.example.org",
		apiKey:  "wrong",
		from:    "donotreply@example.org",
		baseURL: srv.URL,
	}

	err := m.Send(context.Background(), Message{To: "dana@example.org"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
