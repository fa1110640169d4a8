package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSMSTestServer(t *testing.T, status int, response string, capture *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/message/sms/send", r.URL.Path)
		assert.Equal(t, "key test-api-key", r.Header.Get("Authorization"))

		if capture != nil {
			var payload struct {
				Destinations []string `json:"destinations"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			*capture = payload.Destinations
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSMSOnlineClient_Send(t *testing.T) {
	req := BatchRequest{
		Text:         "Meeting tomorrow",
		Sender:       "ASUOGYAMAN",
		Destinations: []string{"0241234567", "0209876543"},
	}

	t.Run("successful batch send", func(t *testing.T) {
		var sent []string
		srv := newSMSTestServer(t, 200, `{
			"handshake": {"id": 0, "label": "HSHK_OK"},
			"data": {"batch": "b-42", "destinations": [{"to":"0241234567"},{"to":"0209876543"}]}
		}`, &sent)

		client := NewSMSOnlineClient(SMSOnlineConfig{APIKey: "test-api-key", BaseURL: srv.URL})
		result, err := client.Send(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "b-42", result.BatchID)
		assert.Equal(t, 2, result.Accepted)
		assert.Equal(t, req.Destinations, sent)
	})

	t.Run("http 200 with embedded failure label", func(t *testing.T) {
		srv := newSMSTestServer(t, 200, `{"handshake": {"id": 7, "label": "ERR_ACCOUNT_SUSPENDED"}}`, nil)

		client := NewSMSOnlineClient(SMSOnlineConfig{APIKey: "test-api-key", BaseURL: srv.URL})
		_, err := client.Send(context.Background(), req)
		require.Error(t, err)

		var sendErr *SendError
		require.True(t, errors.As(err, &sendErr))
		assert.Equal(t, "ERR_ACCOUNT_SUSPENDED", sendErr.Label)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		srv := newSMSTestServer(t, 502, `{"handshake": {"id": 1, "label": "HSHK_ERR"}}`, nil)

		client := NewSMSOnlineClient(SMSOnlineConfig{APIKey: "test-api-key", BaseURL: srv.URL})
		_, err := client.Send(context.Background(), req)
		require.Error(t, err)

		var sendErr *SendError
		require.True(t, errors.As(err, &sendErr))
		assert.Equal(t, 502, sendErr.StatusCode)
	})

	t.Run("missing api key", func(t *testing.T) {
		client := NewSMSOnlineClient(SMSOnlineConfig{})
		_, err := client.Send(context.Background(), req)
		assert.ErrorIs(t, err, ErrAPIKeyNotConfigured)
	})

	t.Run("missing batch id falls back to request count", func(t *testing.T) {
		srv := newSMSTestServer(t, 200, `{"handshake": {"id": 0, "label": "HSHK_OK"}, "data": {}}`, nil)

		client := NewSMSOnlineClient(SMSOnlineConfig{APIKey: "test-api-key", BaseURL: srv.URL})
		result, err := client.Send(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, result.BatchID)
		assert.Equal(t, 2, result.Accepted)
	})
}
