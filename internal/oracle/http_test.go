package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idproof/internal/platform/config"
	"idproof/pkg/platform/sentinel"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(config.OracleConfig{
		URL:     srv.URL,
		APIKey:  "test-key",
		Timeout: timeout,
	})
	require.NoError(t, err)
	return client, srv
}

func TestCompareSuccess(t *testing.T) {
	identity := []byte("identity-bytes")
	selfie := []byte("selfie-bytes")

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			DL     string `json:"dl"`
			Selfie string `json:"selfie"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, base64.StdEncoding.EncodeToString(identity), body.DL)
		assert.Equal(t, base64.StdEncoding.EncodeToString(selfie), body.Selfie)

		_ = json.NewEncoder(w).Encode(map[string]any{"similarity": 91.7})
	}, time.Second)

	score, err := client.Compare(context.Background(), identity, selfie)
	require.NoError(t, err)
	assert.Equal(t, 91.7, score)
}

func TestCompareClientError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad images", http.StatusBadRequest)
	}, time.Second)

	_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestCompareServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, time.Second)

	_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestCompareMalformedResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}, time.Second)

	_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestCompareScoreOutOfRange(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"similarity": 150.0})
	}, time.Second)

	_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestCompareTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"similarity": 50.0})
	}, 50*time.Millisecond)

	_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, sentinel.ErrTimeout)
}

func TestCompareContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Compare(ctx, []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, sentinel.ErrTimeout)
}

func TestNewHTTPClientRequiresURL(t *testing.T) {
	_, err := NewHTTPClient(config.OracleConfig{})
	assert.Error(t, err)
}
