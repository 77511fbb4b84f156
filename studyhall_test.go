package studyhall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRequestShape(t *testing.T) {
	var gotPath, gotAuth, gotAgent, gotQuery string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&gotBody)
		}
		json.NewEncoder(w).Encode(Result{OK: true})
	}))
	defer srv.Close()

	client := NewClient("sh-token-abc", WithBaseURL(srv.URL+"/"), WithUserAgent("studyhall-test/1.0"))
	ctx := context.Background()

	result, err := client.Groups().SendMessage(ctx, "g1", "hello")
	require.NoError(t, err)
	require.NoError(t, result.Err())

	assert.Equal(t, "/api/groups/g1/messages", gotPath)
	assert.Equal(t, "Bearer sh-token-abc", gotAuth)
	assert.Equal(t, "studyhall-test/1.0", gotAgent)
	assert.Equal(t, "hello", gotBody["content"])

	_, err = client.Notifications().List(ctx, &PaginationOptions{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "limit=10&page=2", gotQuery)
}

func TestResultErrorSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{OK: false, Error: &APIError{Code: "NOT_FOUND", Message: "no such group"}})
	}))
	defer srv.Close()

	client := NewClient("sh-token-abc", WithBaseURL(srv.URL))
	result, err := client.Groups().Get(context.Background(), "missing")
	require.NoError(t, err)

	err = result.Err()
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, err.Error(), "no such group")
}

func TestLoginFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != "POST" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a stale Authorization header")
		}
		data, _ := json.Marshal(LoginData{
			Token: "sh-session-xyz",
			User:  User{ID: "u1", Username: "amina"},
		})
		json.NewEncoder(w).Encode(Result{OK: true, Data: data})
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL))
	result, err := client.Auth().Login(context.Background(), &LoginOptions{Email: "amina@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, result.Err())

	var login LoginData
	require.NoError(t, result.Decode(&login))
	assert.Equal(t, "sh-session-xyz", login.Token)

	client.SetToken(login.Token)
	assert.Equal(t, "sh-session-xyz", client.Token())
}

func TestWSURLCarriesEscapedToken(t *testing.T) {
	client := NewClient("", WithBaseURL("https://staging.studyhall.app"))
	got := client.Realtime().WSURL("a token/+")
	assert.Equal(t, "wss://staging.studyhall.app/ws?token=a+token%2F%2B", got)

	assert.Equal(t, "ws://localhost:3000/ws",
		NewClient("", WithBaseURL("http://localhost:3000")).Realtime().WSURL(""))
}

func TestRealtimeFactoryDefaults(t *testing.T) {
	client := NewClient("sh-token-abc", WithEnvironment(Staging))
	rc := client.Realtime().New(nil)

	assert.Equal(t, StateDisconnected, rc.State())
	assert.Nil(t, rc.LastError())
	assert.Empty(t, rc.Subscriptions())

	// The factory falls back to the API client's token.
	assert.Contains(t, rc.wsURL(), "token=sh-token-abc")
	assert.True(t, strings.HasPrefix(rc.wsURL(), "wss://staging.studyhall.app/ws"))
}
