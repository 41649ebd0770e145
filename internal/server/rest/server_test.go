package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/logging"
	"github.com/dmitrijs2005/learnquest/internal/server/auth"
	"github.com/dmitrijs2005/learnquest/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnquest/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type memImages struct{ keys []string }

func (m *memImages) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "https://cdn.example/" + key, nil
}

type testEnv struct {
	srv    *Server
	images *memImages
	tokens *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	passwords, err := auth.NewPasswords(auth.HasherBcrypt, auth.DefaultArgon2Params(), bcrypt.MinCost)
	require.NoError(t, err)

	tokens := auth.NewTokenIssuer([]byte(testSecret), 24*time.Hour)
	m := repomanager.NewInMemoryRepositoryManager()
	images := &memImages{}

	identity := services.NewIdentityService(nil, m, tokens, passwords, false)
	profile := services.NewProfileService(nil, m, images)
	log := logging.NewJSONLogger(io.Discard, slog.LevelError)

	srv := NewServer(Options{ClientOrigin: "http://localhost:5173"}, identity, profile, log)
	return &testEnv{srv: srv, images: images, tokens: tokens}
}

type response struct {
	status  int
	body    map[string]any
	cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := e.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, cookies: resp.Cookies()}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func jsonRequest(method, path string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	return req
}

func (e *testEnv) signup(t *testing.T, name, email, password string) response {
	t.Helper()
	return e.do(t, jsonRequest(http.MethodPost, "/api/auth/signup",
		map[string]string{"name": name, "email": email, "password": password}))
}

func tokenCookie(cookies []*http.Cookie) *http.Cookie {
	for _, c := range cookies {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestSignupThenProfile(t *testing.T) {
	e := newTestEnv(t)

	res := e.signup(t, "Ann", "Ann@X.io", "pw123")
	require.Equal(t, http.StatusCreated, res.status)
	assert.Equal(t, "User created successfully", res.body["msg"])

	user := res.body["user"].(map[string]any)
	assert.Equal(t, "ann@x.io", user["email"])
	assert.Equal(t, "Ann", user["name"])
	assert.NotContains(t, user, "passwordHash")

	token := res.body["token"].(string)
	cookie := tokenCookie(res.cookies)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 24*60*60, cookie.MaxAge)

	me := e.do(t, withCookie(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), token))
	require.Equal(t, http.StatusOK, me.status)
	assert.Equal(t, "ann@x.io", me.body["email"])
	assert.NotContains(t, me.body, "password")

	dup := e.signup(t, "Other", "ann@x.io", "pw")
	assert.Equal(t, http.StatusBadRequest, dup.status)
	assert.Equal(t, "Email already exists", dup.body["msg"])
}

func TestSignup_ValidationAndBadBody(t *testing.T) {
	e := newTestEnv(t)

	res := e.signup(t, "", "ann@x.io", "pw")
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Validation error", res.body["msg"])
	assert.Contains(t, res.body["error"], "name")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	res = e.do(t, req)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid request body", res.body["msg"])
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	e.signup(t, "Ann", "ann@x.io", "pw123")

	bad := e.do(t, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{"email": "ann@x.io", "password": "nope"}))
	assert.Equal(t, http.StatusBadRequest, bad.status)
	assert.Equal(t, "Invalid email or password", bad.body["msg"])
	assert.Nil(t, tokenCookie(bad.cookies))

	unknown := e.do(t, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{"email": "ghost@x.io", "password": "pw123"}))
	assert.Equal(t, bad.status, unknown.status)
	assert.Equal(t, bad.body, unknown.body)

	ok := e.do(t, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{"email": "ANN@x.io", "password": "pw123"}))
	require.Equal(t, http.StatusOK, ok.status)
	assert.Equal(t, "Login successful", ok.body["msg"])
	assert.NotEmpty(t, ok.body["token"])
	require.NotNil(t, tokenCookie(ok.cookies))
}

func TestLogout_ClearsCookie(t *testing.T) {
	e := newTestEnv(t)

	res := e.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Logout successful", res.body["msg"])

	c := tokenCookie(res.cookies)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.True(t, c.Expires.Before(time.Now()))
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestProtectedRoutes_Rejections(t *testing.T) {
	e := newTestEnv(t)

	none := e.do(t, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, none.status)
	assert.Equal(t, "No token, authorization denied", none.body["msg"])
	assert.Equal(t, "unauthenticated", none.body["code"])

	garbage := e.do(t, withBearer(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "garbage"))
	assert.Equal(t, http.StatusUnauthorized, garbage.status)
	assert.Equal(t, "Token is not valid", garbage.body["msg"])
	assert.Equal(t, "invalid_token", garbage.body["code"])

	other := auth.NewTokenIssuer([]byte("another-key"), time.Hour)
	forged, _, err := other.Issue("someone")
	require.NoError(t, err)
	res := e.do(t, withBearer(httptest.NewRequest(http.MethodPut, "/api/users/me", nil), forged))
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "invalid_token", res.body["code"])

	expired := auth.NewTokenIssuer([]byte(testSecret), -time.Minute)
	old, _, err := expired.Issue("someone")
	require.NoError(t, err)
	res = e.do(t, withBearer(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), old))
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Token is not valid", res.body["msg"])
}

func TestTokenSources_CookieWinsOverBearer(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "Ann", "ann@x.io", "pw").body["token"].(string)

	req := withBearer(withCookie(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), token), "garbage")
	assert.Equal(t, http.StatusOK, e.do(t, req).status)

	req = withBearer(withCookie(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "garbage"), token)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, req).status, "a present cookie is used even when invalid")

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "bearer "+token)
	assert.Equal(t, http.StatusOK, e.do(t, req).status, "scheme is case-insensitive")

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Basic "+token)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, req).status)
}

func TestProfile_ValidTokenForDeletedIdentity(t *testing.T) {
	e := newTestEnv(t)
	ghost, _, err := e.tokens.Issue("no-such-user")
	require.NoError(t, err)

	res := e.do(t, withBearer(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), ghost))
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "User not found", res.body["msg"])
}

func TestUpdateProfile(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "Ann", "ann@x.io", "pw123").body["token"].(string)

	onlyPassword := e.do(t, withBearer(jsonRequest(http.MethodPut, "/api/users/me", map[string]string{"password": "hacked"}), token))
	assert.Equal(t, http.StatusBadRequest, onlyPassword.status)
	assert.Equal(t, "No valid fields to update", onlyPassword.body["msg"])

	empty := e.do(t, withBearer(httptest.NewRequest(http.MethodPut, "/api/users/me", nil), token))
	assert.Equal(t, http.StatusBadRequest, empty.status)
	assert.Equal(t, "No valid fields to update", empty.body["msg"])

	res := e.do(t, withBearer(jsonRequest(http.MethodPut, "/api/users/me",
		map[string]string{"bio": "Loves quizzes", "location": "Riga", "password": "hacked"}), token))
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Loves quizzes", res.body["bio"])
	assert.Equal(t, "Riga", res.body["location"])
	assert.Equal(t, "Ann", res.body["name"])

	invalid := e.do(t, withBearer(jsonRequest(http.MethodPut, "/api/users/me", map[string]string{"email": "broken"}), token))
	assert.Equal(t, http.StatusBadRequest, invalid.status)
	assert.Equal(t, "Validation error", invalid.body["msg"])

	old := e.do(t, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{"email": "ann@x.io", "password": "pw123"}))
	assert.Equal(t, http.StatusOK, old.status, "password key in the update body is ignored")
}

func multipartRequest(t *testing.T, token, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("other", "x"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/users/me/avatar", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return withBearer(req, token)
}

func TestUploadAvatar(t *testing.T) {
	e := newTestEnv(t)
	signed := e.signup(t, "Ann", "ann@x.io", "pw")
	token := signed.body["token"].(string)
	userID := signed.body["user"].(map[string]any)["id"].(string)

	res := e.do(t, multipartRequest(t, token, "avatar", "me.png", "image/png", []byte("\x89PNG")))
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Avatar uploaded successfully", res.body["msg"])
	url := res.body["avatarUrl"].(string)
	assert.True(t, strings.HasPrefix(url, "https://cdn.example/avatars/"+userID+"/"))
	assert.Equal(t, url, res.body["user"].(map[string]any)["avatar"])

	me := e.do(t, withBearer(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), token))
	assert.Equal(t, url, me.body["avatar"])
}

func TestUploadAvatar_Rejections(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "Ann", "ann@x.io", "pw").body["token"].(string)

	res := e.do(t, multipartRequest(t, token, "", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "No file uploaded", res.body["msg"])

	res = e.do(t, multipartRequest(t, token, "avatar", "doc.pdf", "application/pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Only image files are allowed", res.body["msg"])

	res = e.do(t, multipartRequest(t, token, "avatar", "big.png", "image/png", make([]byte, 5*1024*1024+1)))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "File too large", res.body["msg"])

	res = e.do(t, multipartRequest(t, token, "avatar", "max.png", "image/png", make([]byte, 5*1024*1024)))
	assert.Equal(t, http.StatusOK, res.status)

	assert.Len(t, e.images.keys, 1)

	res = e.do(t, multipartRequest(t, "", "avatar", "me.png", "image/png", []byte("x")))
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestUnknownRoute(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/nope", "/", "/api/users/someone"} {
		res := e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, res.status, path)
		assert.Equal(t, "Route not found", res.body["msg"], path)
	}
}

func TestCORS_AllowsConfiguredOriginWithCredentials(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := e.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestErrorResponse_UnexpectedErrorIsGeneric(t *testing.T) {
	status, body, ok := errorResponse(errors.New("connection reset by peer"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server error", body["msg"])
	assert.False(t, ok)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	e := newTestEnv(t)
	e.srv.opts.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}
