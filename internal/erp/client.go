package erp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/pkg/logger"
)

// Client executes authenticated operations against a single ERP endpoint,
// hiding session-expiry handling from callers.
//
// One Client is shared per process. Session state (cookie jar, authenticated
// flag) is guarded by a mutex; a generation counter ensures an expiry detected
// by several concurrent callers triggers at most one re-login, shared by all
// waiters. Credentials themselves are immutable Config.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger

	mu            sync.Mutex
	authenticated bool
	generation    uint64
}

// NewClient creates a Client for the given endpoint. No remote call is made
// until the first operation needs a session.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: transport,
			// The expiry status is a redirect code on some installations;
			// it must reach the caller, not be followed.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log.WithComponent("erp"),
	}, nil
}

type loginPayload struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

// Login establishes a session. Idempotent: a call while already authenticated
// is a no-op.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authenticated {
		return nil
	}
	return c.loginLocked(ctx)
}

// loginLocked performs the actual login. Caller must hold c.mu.
func (c *Client) loginLocked(ctx context.Context) error {
	payload, err := json.Marshal(loginPayload{
		CompanyDB: c.cfg.CompanyDB,
		UserName:  c.cfg.Username,
		Password:  c.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("marshal login payload: %w", err)
	}

	status, body, err := c.send(ctx, http.MethodPost, "Login", payload)
	if err != nil {
		return apperror.NewRemoteNetwork(err)
	}
	if status != http.StatusOK {
		return apperror.NewAuth("ERP login failed").
			WithDetail("status", status).
			WithDetail("remote", string(body))
	}

	c.authenticated = true
	c.generation++
	c.log.Infow("erp session established", "user", c.cfg.Username)
	return nil
}

// ensure guarantees an authenticated session and returns the session
// generation the caller is operating under.
func (c *Client) ensure(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authenticated {
		if err := c.loginLocked(ctx); err != nil {
			return 0, err
		}
	}
	return c.generation, nil
}

// reloginAfterExpiry re-authenticates after a detected expiry. If another
// caller already replaced the session (generation moved on), the fresh
// session is reused instead of logging in again.
func (c *Client) reloginAfterExpiry(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen && c.authenticated {
		return nil
	}
	c.authenticated = false
	return c.loginLocked(ctx)
}

// Get issues an authenticated GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues an authenticated POST and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Patch issues an authenticated PATCH with collection-replace semantics.
func (c *Client) Patch(ctx context.Context, path string, body any) error {
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Logout terminates the session. Best-effort: failure affects only remote
// resource cleanup, never local correctness, so it is logged and swallowed.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	wasAuthenticated := c.authenticated
	c.authenticated = false
	c.mu.Unlock()

	if !wasAuthenticated {
		return
	}
	if _, _, err := c.send(ctx, http.MethodPost, "Logout", nil); err != nil {
		c.log.Warnw("erp logout failed", "error", err)
	}
}

// do runs one verb with the single re-login retry on session expiry.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	gen, err := c.ensure(ctx)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s payload: %w", method, path, err)
		}
	}

	status, respBody, err := c.send(ctx, method, path, payload)
	if err != nil {
		return apperror.NewRemoteNetwork(err)
	}
	if isSuccess(status) {
		return decode(respBody, out)
	}

	if status != c.cfg.ExpiredStatus {
		return c.remoteError(method, path, status, respBody)
	}

	// Session expired: re-login exactly once and retry exactly once.
	c.log.Warnw("erp session expired, re-authenticating", "method", method, "path", path)
	if err := c.reloginAfterExpiry(ctx, gen); err != nil {
		return err
	}

	status, respBody, err = c.send(ctx, method, path, payload)
	if err != nil {
		return apperror.NewRemoteNetwork(err)
	}
	if isSuccess(status) {
		return decode(respBody, out)
	}
	if status == c.cfg.ExpiredStatus {
		// Expired twice in a row: surface without a third attempt.
		return apperror.NewSessionExpired().
			WithDetail("status", status).
			WithDetail("remote", string(respBody))
	}
	return c.remoteError(method, path, status, respBody)
}

// send issues a single HTTP request carrying the current session cookie.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + path

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPatch {
		req.Header.Set("B1S-ReplaceCollectionsOnPatch", "true")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// remoteError builds the terminal business error for a rejected call.
// The response body is attached verbatim; these are never retried.
func (c *Client) remoteError(method, path string, status int, body []byte) error {
	message := fmt.Sprintf("ERP rejected %s %s", method, path)
	if v := remoteMessage(body); v != "" {
		message = v
	}
	return apperror.NewRemoteBusiness(message, json.RawMessage(body)).
		WithDetail("status", status)
}

// remoteMessage extracts the human message from the ERP's error envelope
// {"error": {"message": {"value": "..."}}}.
func remoteMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message struct {
				Value string `json:"value"`
			} `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Message.Value
}

func isSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated || status == http.StatusNoContent
}

func decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
