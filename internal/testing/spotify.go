package testing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Call is one request observed by [FakeSpotify].
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Auth   string
}

// Reply is a canned response for a route.
type Reply struct {
	Status int
	Body   string
}

// FakeSpotify is an httptest server imitating the Spotify accounts and Web API hosts.
//
// Token requests are answered by TokenReply; API requests under /v1 by routes registered with On.
// Unregistered API routes answer 404 with a Spotify error object.
type FakeSpotify struct {
	*httptest.Server

	ClientID     string
	ClientSecret string

	// TokenReply answers /api/token. The default issues "at-<refresh token>" for refresh grants and
	// "at-<code>"/"rt-<code>" for authorization codes; a refresh token of "revoked" yields invalid_grant.
	TokenReply func(form url.Values) Reply

	mu     sync.Mutex
	routes map[string]Reply
	calls  []Call
}

// NewFakeSpotify starts a server that is closed with the test.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		routes:       map[string]Reply{},
	}
	f.TokenReply = f.defaultTokenReply
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)

	return f
}

func (f *FakeSpotify) AuthURL() string  { return f.URL + "/authorize" }
func (f *FakeSpotify) TokenURL() string { return f.URL + "/api/token" }
func (f *FakeSpotify) APIURL() string   { return f.URL + "/v1" }

// On registers a reply for method and API path (without the /v1 prefix or query).
func (f *FakeSpotify) On(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = Reply{Status: status, Body: body}
}

// Fail registers a Spotify error object reply.
func (f *FakeSpotify) Fail(method, path string, status int, reason, message string) {
	body := fmt.Sprintf(`{"error":{"status":%d,"message":%q,"reason":%q}}`, status, message, reason)
	f.On(method, path, status, body)
}

// Calls returns every request seen so far.
func (f *FakeSpotify) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the requests seen for method and path. Token requests use path "/api/token".
func (f *FakeSpotify) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := Call{Method: r.Method, Query: r.URL.Query(), Body: body, Auth: r.Header.Get("Authorization")}

	if r.URL.Path == "/api/token" {
		call.Path = "/api/token"
		f.record(call)

		if !f.basicAuthOK(call.Auth) {
			writeReply(w, Reply{Status: http.StatusUnauthorized, Body: `{"error":"invalid_client","error_description":"Invalid client"}`})
			return
		}

		form, _ := url.ParseQuery(string(body))
		writeReply(w, f.TokenReply(form))
		return
	}

	call.Path = strings.TrimPrefix(r.URL.Path, "/v1")
	f.record(call)

	f.mu.Lock()
	reply, ok := f.routes[r.Method+" "+call.Path]
	f.mu.Unlock()

	if !ok {
		reply = Reply{Status: http.StatusNotFound, Body: `{"error":{"status":404,"message":"Service not found"}}`}
	}
	writeReply(w, reply)
}

func (f *FakeSpotify) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *FakeSpotify) basicAuthOK(header string) bool {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(f.ClientID+":"+f.ClientSecret))
	return header == want
}

func (f *FakeSpotify) defaultTokenReply(form url.Values) Reply {
	switch form.Get("grant_type") {
	case "refresh_token":
		rt := form.Get("refresh_token")
		if rt == "revoked" {
			return Reply{Status: http.StatusBadRequest, Body: `{"error":"invalid_grant","error_description":"Refresh token revoked"}`}
		}
		return TokenJSON("at-"+rt, "", 3600)
	case "authorization_code":
		code := form.Get("code")
		if code == "bad" {
			return Reply{Status: http.StatusBadRequest, Body: `{"error":"invalid_grant","error_description":"Invalid authorization code"}`}
		}
		return TokenJSON("at-"+code, "rt-"+code, 3600)
	}
	return Reply{Status: http.StatusBadRequest, Body: `{"error":"unsupported_grant_type"}`}
}

// TokenJSON builds a token endpoint reply. An empty refresh token is omitted.
func TokenJSON(access, refresh string, expiresIn int) Reply {
	payload := map[string]any{"token_type": "Bearer", "expires_in": expiresIn, "scope": "user-read-playback-state"}
	if access != "" {
		payload["access_token"] = access
	}
	if refresh != "" {
		payload["refresh_token"] = refresh
	}
	data, _ := json.Marshal(payload)
	return Reply{Status: http.StatusOK, Body: string(data)}
}

func writeReply(w http.ResponseWriter, r Reply) {
	if r.Body == "" {
		w.WriteHeader(r.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Status)
	io.WriteString(w, r.Body)
}
