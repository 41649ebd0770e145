package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/client/events"
	"github.com/dmitrijs2005/learnquest/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.Handler, token string) (*HTTPClient, *events.Bus, *int32) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	bus := events.NewBus()
	var forced int32
	bus.Subscribe(events.ForceLogout, func(events.Event) { atomic.AddInt32(&forced, 1) })

	c, err := NewHTTPClient(srv.URL+"/api/", time.Second, staticToken(token), bus)
	require.NoError(t, err)
	return c, bus, &forced
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// method restricts h to a single HTTP method, mirroring Go 1.22
// "METHOD /path" ServeMux patterns on older toolchains.
func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func TestHTTPClient_LoginStoresCookieForLaterCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", method(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ann@example.org", in["email"])
		assert.Equal(t, "pw", in["password"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		http.SetCookie(w, &http.Cookie{Name: "token", Value: "cookie-tok", Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{
			"msg":   "Login successful",
			"token": "tok",
			"user":  map[string]any{"id": "u1", "name": "Ann", "email": "ann@example.org"},
		})
	}))
	mux.HandleFunc("/api/users/me", method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("token")
		require.NoError(t, err)
		assert.Equal(t, "cookie-tok", ck.Value)
		assert.Empty(t, r.Header.Get("Authorization"), "no bearer without a session token")
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "name": "Ann", "email": "ann@example.org", "bio": "hi"})
	}))

	c, _, forced := newTestClient(t, mux, "")

	resp, err := c.Login(context.Background(), "ann@example.org", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, "Login successful", resp.Msg)
	assert.Equal(t, models.User{ID: "u1", Name: "Ann", Email: "ann@example.org"}, resp.User)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", me.Bio)
	assert.Zero(t, atomic.LoadInt32(forced))
}

func TestHTTPClient_AttachesBearerToken(t *testing.T) {
	var got string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1"})
	})

	c, _, _ := newTestClient(t, h, "abc")

	_, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)
}

func TestHTTPClient_UnauthorizedPublishesOnce(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Token is not valid", "code": "invalid_token"})
	})

	c, _, forced := newTestClient(t, h, "stale")

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Token is not valid", apiErr.Msg)
	assert.Equal(t, "invalid_token", apiErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(forced))

	_, err = c.UpdateProfile(context.Background(), models.ProfileUpdate{})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), atomic.LoadInt32(forced), "one event per 401 response")
}

func TestHTTPClient_ForceLogoutCarriesRequestToken(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Token is not valid"})
	})

	c, bus, _ := newTestClient(t, h, "tok-ann")

	var got []events.Event
	bus.Subscribe(events.ForceLogout, func(e events.Event) { got = append(got, e) })

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	require.Len(t, got, 1)
	assert.Equal(t, events.Event{Kind: events.ForceLogout, Reason: "Token is not valid", Token: "tok-ann"}, got[0])
}

func TestHTTPClient_UnauthorizedDropsCookies(t *testing.T) {
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			http.SetCookie(w, &http.Cookie{Name: "token", Value: "c1", Path: "/"})
			writeJSON(w, http.StatusOK, map[string]any{"token": "t"})
		case 2:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Token is not valid"})
		default:
			_, err := r.Cookie("token")
			assert.ErrorIs(t, err, http.ErrNoCookie)
			writeJSON(w, http.StatusOK, map[string]any{})
		}
	})

	c, _, _ := newTestClient(t, h, "")
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	_, err = c.Me(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.Me(ctx)
	require.NoError(t, err)
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"msg":"Invalid email or password"}`, wantMsg: "Invalid email or password"},
		{name: "not found", status: http.StatusNotFound, body: `{"msg":"User not found"}`, wantMsg: "User not found"},
		{name: "server error", status: http.StatusInternalServerError, body: `{"msg":"Server error"}`, wantErr: ErrServer, wantMsg: "Server error"},
		{name: "bad gateway without body", status: http.StatusBadGateway, body: ``, wantErr: ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			c, _, forced := newTestClient(t, h, "tok")

			_, err := c.Login(context.Background(), "a@b.c", "pw")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.False(t, errors.Is(err, ErrUnauthorized))
			assert.Zero(t, atomic.LoadInt32(forced))
		})
	}
}

func TestHTTPClient_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	bus := events.NewBus()
	published := false
	bus.Subscribe(events.ForceLogout, func(events.Event) { published = true })

	c, err := NewHTTPClient(url+"/api", time.Second, staticToken("tok"), bus)
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, published)
}

func TestHTTPClient_LogoutAndSignup(t *testing.T) {
	var paths []string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/auth/signup" {
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, map[string]string{"name": "Ann", "email": "ann@example.org", "password": "pw"}, in)
			writeJSON(w, http.StatusCreated, map[string]any{"msg": "User created successfully", "token": "t", "user": map[string]any{"id": "u1"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"msg": "Logout successful"})
	})
	c, _, _ := newTestClient(t, h, "")

	resp, err := c.Signup(context.Background(), "Ann", "ann@example.org", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, []string{"POST /api/auth/signup", "POST /api/auth/logout"}, paths)
}

func TestHTTPClient_UpdateProfileSendsOnlySetFields(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"bio":"new bio"}`, string(b))
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "bio": "new bio"})
	})
	c, _, _ := newTestClient(t, h, "tok")

	bio := "new bio"
	u, err := c.UpdateProfile(context.Background(), models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "new bio", u.Bio)
}

func TestHTTPClient_UploadAvatar(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/me/avatar", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, fh, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, "me.png", fh.Filename)
		assert.Equal(t, "image/png", fh.Header.Get("Content-Type"))
		got, _ := io.ReadAll(f)
		assert.Equal(t, png, got)

		writeJSON(w, http.StatusOK, map[string]any{
			"msg":       "Avatar uploaded successfully",
			"avatarUrl": "http://img/avatars/u1/x.png",
			"user":      map[string]any{"id": "u1", "avatar": "http://img/avatars/u1/x.png"},
		})
	})
	c, _, _ := newTestClient(t, h, "tok")

	resp, err := c.UploadAvatar(context.Background(), "/home/ann/pics/me.png", bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "http://img/avatars/u1/x.png", resp.AvatarURL)
	assert.Equal(t, resp.AvatarURL, resp.User.Avatar)
}

func TestHTTPClient_UploadAvatarSendsSniffedType(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, fh, err := r.FormFile("avatar")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(fh.Header.Get("Content-Type"), "text/plain"))
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Only image files are allowed"})
	})
	c, _, _ := newTestClient(t, h, "tok")

	_, err := c.UploadAvatar(context.Background(), "notes.png", strings.NewReader("just text"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Only image files are allowed", apiErr.Msg)
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "api error: status 404: User not found", (&APIError{Status: 404, Msg: "User not found"}).Error())
	assert.Equal(t, "api error: status 502", (&APIError{Status: 502}).Error())
}
