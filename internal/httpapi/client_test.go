package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prim5v/studyhub-frontend/pkg/errcode"
)

func newTestAPI(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	return c
}

func TestClient_PublicMessages(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/public-messages", r.URL.Path)
		io.WriteString(w, `[
			{"id": "1", "sender_id": 2, "sender_name": "Bea", "message": "welcome", "created_at": 100},
			{"id": "2", "sender_id": 3, "sender_name": "Cal", "message": "hi all", "created_at": 200}
		]`)
	}))

	msgs, err := api.PublicMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "welcome", msgs[0].Body)
}

func TestClient_SearchSendsQueryAndToken(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search", r.URL.Path)
		require.Equal(t, "graph theory", r.URL.Query().Get("q"))
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		io.WriteString(w, `{"users": [{"user_id": 2, "name": "Bea"}], "resources": [], "groups": []}`)
	}))
	api.SetToken("tok-1")

	out, err := api.Search(context.Background(), "graph theory")
	require.NoError(t, err)
	require.Len(t, out.Users, 1)
	assert.Equal(t, int64(2), out.Users[0].UserId)
}

func TestClient_SearchCategoryPath(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search/users", r.URL.Path)
		io.WriteString(w, `{"users": [], "resources": [], "groups": []}`)
	}))

	_, err := api.SearchCategory(context.Background(), SearchUsers, "bea")
	require.NoError(t, err)
}

func TestClient_IsMember(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/is-member", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "9", body["group_id"])
		io.WriteString(w, `{"is_member": true}`)
	}))

	ok, err := api.IsMember(context.Background(), "9", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_UploadSignature(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get-signature", r.URL.Path)
		io.WriteString(w, `{"signature": "sig", "timestamp": 1700000000, "api_key": "key", "cloud_name": "cloud"}`)
	}))

	cred, err := api.UploadSignature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sig", cred.Signature)
	assert.Equal(t, "cloud", cred.CloudName)
}

func TestClient_ErrorStatusBecomesCodedError(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))

	_, err := api.PublicMessages(context.Background())
	var coded *errcode.Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, http.StatusForbidden, coded.Code)
}
