package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	raw := buildMessage("from@suav.local", Message{To: "a@example.com", Subject: "Booked", Body: "hello"})
	assert.True(t, strings.HasPrefix(raw, "From: from@suav.local\r\nTo: a@example.com\r\nSubject: Booked\r\n"))
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello\r\n"))
}

func TestNewSMTPSenderDefaultsFrom(t *testing.T) {
	s := NewSMTPSender(" mailpit ", "1025", "")
	assert.Equal(t, "mailpit:1025", s.addr)
	assert.Equal(t, defaultFrom, s.from)
}

func TestSendGridSender(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s, err := NewSendGridSender(SendGridConfig{APIKey: "SG.key", FromEmail: "bookings@suav.local", Host: srv.URL})
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "Booked", Body: "hello"}))

	assert.Equal(t, "Bearer SG.key", auth)
	assert.Equal(t, "Booked", got["subject"])
	from := got["from"].(map[string]any)
	assert.Equal(t, "bookings@suav.local", from["email"])
}

func TestSendGridSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := NewSendGridSender(SendGridConfig{APIKey: "SG.bad", Host: srv.URL})
	require.NoError(t, err)
	err = s.Send(context.Background(), Message{To: "a@example.com", Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewSendGridSenderRequiresKey(t *testing.T) {
	_, err := NewSendGridSender(SendGridConfig{})
	require.Error(t, err)
}
