package workbook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMail_Statuses(t *testing.T) {
	// The service acknowledges with either 200 or 202; both are success.
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"accepted", http.StatusAccepted, false},
		{"bad request", http.StatusBadRequest, true},
		{"created is not a mail success", http.StatusCreated, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/me/sendMail", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			err := client.SendMail(context.Background(), "to@example.com", "hi", "body", true)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestSendMail_Payload(t *testing.T) {
	var captured []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = body

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.SendMail(context.Background(), "to@example.com", "Weekly report", "All good.", false))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(captured, &parsed))

	message, ok := parsed["message"].(map[string]any)
	require.True(t, ok)

	// The sender is implicit (the signed-in user); 'from' must never be set.
	assert.NotContains(t, message, "from")

	assert.Equal(t, "Weekly report", message["subject"])

	body, ok := message["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Text", body["contentType"])
	assert.Equal(t, "All good.", body["content"])

	recipients, ok := message["toRecipients"].([]any)
	require.True(t, ok)
	require.Len(t, recipients, 1)

	first, ok := recipients[0].(map[string]any)
	require.True(t, ok)
	addr, ok := first["emailAddress"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "to@example.com", addr["address"])

	assert.Equal(t, false, parsed["saveToSentItems"])
}
