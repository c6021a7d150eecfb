package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idproof/internal/blobstore"
	"idproof/internal/platform/middleware"
	"idproof/internal/verification/handler"
	"idproof/internal/verification/service"
	"idproof/internal/verification/store"
	"idproof/pkg/testutil/testimg"
)

const testAPIKey = "test-api-key"

type oracleFunc func(ctx context.Context, identity, selfie []byte) (float64, error)

func (f oracleFunc) Compare(ctx context.Context, identity, selfie []byte) (float64, error) {
	return f(ctx, identity, selfie)
}

func newTestServer(t *testing.T, score float64) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records := store.NewMemory()
	blobs := blobstore.NewMemory(nil)
	orc := oracleFunc(func(context.Context, []byte, []byte) (float64, error) {
		return score, nil
	})

	svc := service.New(records, blobs, orc, nil, logger, nil, 80, time.Second)
	del := service.NewDeleter(records, blobs, nil, logger, nil)
	h := handler.New(svc, del, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(testAPIKey, logger))
		h.Register(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func submitBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"dl":     base64.StdEncoding.EncodeToString(testimg.JPEG(t, 32, 32)),
		"selfie": base64.StdEncoding.EncodeToString(testimg.JPEG(t, 24, 24)),
	})
	require.NoError(t, err)
	return body
}

func doRequest(t *testing.T, method, url string, body []byte, apiKey string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCompareFaces(t *testing.T) {
	srv := newTestServer(t, 92.0)

	resp := doRequest(t, http.MethodPost, srv.URL+"/compare-faces", submitBody(t), testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handler.CompareFacesResponse
	decodeBody(t, resp, &body)

	assert.NotEmpty(t, body.VerificationID)
	assert.Equal(t, 92.0, body.Result.Similarity)
	assert.Equal(t, "Face comparison successful with 92.00% similarity", body.Result.Message)

	_, err := time.Parse(time.RFC3339, body.Result.Timestamp)
	assert.NoError(t, err)
}

func TestCompareFacesRequiresAPIKey(t *testing.T) {
	srv := newTestServer(t, 92.0)

	t.Run("missing key", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, srv.URL+"/compare-faces", submitBody(t), "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("wrong key", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, srv.URL+"/compare-faces", submitBody(t), "wrong-key")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestCompareFacesBadInput(t *testing.T) {
	srv := newTestServer(t, 92.0)

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"missing selfie", `{"dl":"aGVsbG8="}`},
		{"invalid base64", `{"dl":"!!!not-base64!!!","selfie":"aGVsbG8="}`},
		{"empty body", `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodPost, srv.URL+"/compare-faces", []byte(tc.body), testAPIKey)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestCompareFacesUndecodableImage(t *testing.T) {
	srv := newTestServer(t, 92.0)

	body, err := json.Marshal(map[string]string{
		"dl":     base64.StdEncoding.EncodeToString([]byte("not an image")),
		"selfie": base64.StdEncoding.EncodeToString(testimg.JPEG(t, 24, 24)),
	})
	require.NoError(t, err)

	resp := doRequest(t, http.MethodPost, srv.URL+"/compare-faces", body, testAPIKey)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errBody struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	decodeBody(t, resp, &errBody)
	assert.Equal(t, "dl image could not be decoded", errBody.Description)
}

func TestGetStatus(t *testing.T) {
	srv := newTestServer(t, 85.5)

	resp := doRequest(t, http.MethodPost, srv.URL+"/compare-faces", submitBody(t), testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created handler.CompareFacesResponse
	decodeBody(t, resp, &created)

	resp = doRequest(t, http.MethodGet, srv.URL+"/compare-faces/"+created.VerificationID, nil, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec handler.RecordResponse
	decodeBody(t, resp, &rec)
	assert.Equal(t, created.VerificationID, rec.VerificationID)
	assert.Equal(t, "succeeded", rec.Status)
	require.NotNil(t, rec.Similarity)
	assert.Equal(t, 85.5, *rec.Similarity)
}

func TestGetStatusUnknownID(t *testing.T) {
	srv := newTestServer(t, 85.5)

	resp := doRequest(t, http.MethodGet, srv.URL+"/compare-faces/no-such-id", nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteVerification(t *testing.T) {
	srv := newTestServer(t, 92.0)

	resp := doRequest(t, http.MethodPost, srv.URL+"/compare-faces", submitBody(t), testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created handler.CompareFacesResponse
	decodeBody(t, resp, &created)

	deleteURL := srv.URL + "/compare-faces-delete?verificationId=" + created.VerificationID

	resp = doRequest(t, http.MethodDelete, deleteURL, nil, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handler.DeleteResponse
	decodeBody(t, resp, &body)
	assert.Contains(t, body.Message, created.VerificationID)
	assert.Contains(t, body.Message, "deleted successfully")

	// Second delete for the same ID reports not found.
	resp = doRequest(t, http.MethodDelete, deleteURL, nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// And the record is gone from status lookups.
	resp = doRequest(t, http.MethodGet, srv.URL+"/compare-faces/"+created.VerificationID, nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteRequiresVerificationID(t *testing.T) {
	srv := newTestServer(t, 92.0)

	resp := doRequest(t, http.MethodDelete, srv.URL+"/compare-faces-delete", nil, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
