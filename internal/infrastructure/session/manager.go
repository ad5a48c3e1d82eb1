package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/drivemaster/backoffice/internal/domain/identity"
	"github.com/drivemaster/backoffice/internal/domain/shared"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
)

// Manager owns the session lifecycle. Logout is idempotent: concurrent
// triggers (two 401s in flight, an expired token seen during a liveness
// check) collapse into a single teardown, after which the session-expired
// hook fires exactly once.
type Manager struct {
	store      CredentialStore
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
	onExpired  func()
	loggingOut atomic.Bool
}

// ManagerOption is a functional option for configuring the manager
type ManagerOption func(*Manager)

// WithHTTPClient sets the HTTP client used for auth and authenticated calls
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// WithLogger sets the logger for the manager
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSessionExpiredHook registers the callback fired once after a logout
// teardown completes. The embedding application uses it to discard any state
// derived from the old session, the way the original client forced a full
// page reload.
func WithSessionExpiredHook(hook func()) ManagerOption {
	return func(m *Manager) {
		m.onExpired = hook
	}
}

// NewManager creates a session manager talking to the auth endpoints under
// baseURL and persisting credentials in store.
func NewManager(baseURL string, store CredentialStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		logger:     zap.NewNop(),
		onExpired:  func() {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login posts credentials to the public login endpoint and persists the
// returned token and optional user profile. A non-2xx response or a response
// without a usable token fails with shared.ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, email, password string) (identity.LoginResponse, error) {
	var response identity.LoginResponse

	body, err := m.postPublic(ctx, loginPath, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		var httpErr *shared.HTTPError
		if errors.As(err, &httpErr) {
			m.logger.Warn("login rejected",
				zap.Int("status", httpErr.Status),
				zap.String("message", httpErr.Message))
			return response, fmt.Errorf("%s: %w", httpErr.Message, shared.ErrInvalidCredentials)
		}
		return response, err
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return response, shared.ErrInvalidCredentials
	}
	token := response.BearerToken()
	if token == "" {
		return response, shared.ErrInvalidCredentials
	}

	if err := m.store.Save(ctx, identity.Session{Token: token, User: response.User}); err != nil {
		return response, fmt.Errorf("failed to persist session: %w", err)
	}

	// A fresh session re-arms the logout guard.
	m.loggingOut.Store(false)
	m.logger.Info("logged in")
	return response, nil
}

// Register posts a new user profile to the public registration endpoint.
func (m *Manager) Register(ctx context.Context, profile any) (json.RawMessage, error) {
	return m.postPublic(ctx, registerPath, profile)
}

// Logout clears the persisted credentials and fires the session-expired
// hook. It is a no-op when a teardown is already in progress.
func (m *Manager) Logout(ctx context.Context) {
	if !m.loggingOut.CompareAndSwap(false, true) {
		return
	}

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear credentials on logout", zap.Error(err))
	}
	m.logger.Info("logged out")
	m.onExpired()
}

// Token returns the persisted bearer token, empty when signed out.
func (m *Manager) Token(ctx context.Context) string {
	session, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("failed to load credentials", zap.Error(err))
		return ""
	}
	return session.Token
}

// CurrentUser returns the persisted user profile payload, nil when absent.
func (m *Manager) CurrentUser(ctx context.Context) json.RawMessage {
	session, err := m.store.Load(ctx)
	if err != nil {
		return nil
	}
	return session.User
}

// IsAuthenticated reports whether a live token is persisted. A token whose
// embedded expiry has passed triggers a logout and reports false. A token
// that cannot be decoded is optimistically reported as valid; the server is
// the final authority and will reject it with a 401 if it is actually bad.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	token := m.Token(ctx)
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		m.logger.Debug("token payload not decodable, deferring to server", zap.Error(err))
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	if exp.Before(time.Now()) {
		m.logger.Info("token expired, logging out")
		m.Logout(ctx)
		return false
	}
	return true
}

// Do executes an authenticated request. The bearer token is attached; a
// missing token or a 401 response tears the session down and returns
// shared.ErrSessionExpired. Other non-2xx responses become HTTPError. A 2xx
// response resolves to its raw body, nil when empty.
//
// Content-Type defaults to application/json when the caller set none, so
// multipart bodies keep their boundary-aware header.
func (m *Manager) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	token := m.Token(ctx)
	if token == "" {
		m.Logout(ctx)
		return nil, shared.ErrSessionExpired
	}

	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &shared.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shared.NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		m.logger.Info("received 401, logging out", zap.String("url", req.URL.Path))
		m.Logout(ctx)
		return nil, shared.ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, shared.HTTPErrorFromResponse(resp.StatusCode, body)
	}

	if len(body) == 0 {
		// Empty success, typical for DELETE.
		return nil, nil
	}
	return body, nil
}

// postPublic sends an unauthenticated JSON POST to an auth endpoint.
func (m *Manager) postPublic(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &shared.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shared.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, shared.HTTPErrorFromResponse(resp.StatusCode, body)
	}
	return body, nil
}
