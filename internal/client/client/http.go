package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/client/events"
	"github.com/dmitrijs2005/learnquest/internal/client/models"
	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/filex"
)

// TokenSource supplies the current session token, or "" when signed out.
type TokenSource interface {
	Token() string
}

var _ API = (*HTTPClient)(nil)

type HTTPClient struct {
	baseURL string
	tokens  TokenSource
	bus     *events.Bus

	mu   sync.Mutex
	http *http.Client
}

// NewHTTPClient returns a client for the API rooted at baseURL
// (e.g. http://127.0.0.1:5002/api).
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource, bus *events.Bus) (*HTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		bus:     bus,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// ForgetCookies replaces the cookie jar with an empty one.
func (c *HTTPClient) ForgetCookies() {
	jar, _ := cookiejar.New(nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.http = &http.Client{Timeout: c.http.Timeout, Jar: jar}
}

func (c *HTTPClient) client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.http
}

type errorBody struct {
	Msg  string `json:"msg"`
	Code string `json:"code"`
}

// do sends one request and decodes a 2xx JSON reply into out (if non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	var token string
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", common.AuthorizationScheme+" "+token)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return c.mapError(resp, token)
}

// mapError turns a non-2xx reply into an *APIError. A 401 also publishes one
// ForceLogout carrying the token the request was sent with.
func (c *HTTPClient) mapError(resp *http.Response, token string) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)

	apiErr := &APIError{Status: resp.StatusCode, Msg: eb.Msg, Code: eb.Code}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Err = ErrUnauthorized
		c.ForgetCookies()
		if c.bus != nil {
			c.bus.Publish(events.Event{Kind: events.ForceLogout, Reason: eb.Msg, Token: token})
		}
	case resp.StatusCode >= 500:
		apiErr.Err = ErrServer
	}
	return apiErr
}

func (c *HTTPClient) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *HTTPClient) Signup(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	in := map[string]string{"name": name, "email": email, "password": password}
	var out AuthResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/signup", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.sendJSON(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.sendJSON(ctx, http.MethodPut, "/users/me", upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadAvatar sends body as the multipart field "avatar". The part's
// content type is sniffed from the data so the server sees image/* for
// real images.
func (c *HTTPClient) UploadAvatar(ctx context.Context, filename string, body io.ReadSeeker) (*AvatarResponse, error) {
	contentType, err := filex.DetectContentType(body)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename="%s"`,
		quoteEscaper.Replace(filepath.Base(filename))))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out AvatarResponse
	if err := c.do(ctx, http.MethodPut, "/users/me/avatar", mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
