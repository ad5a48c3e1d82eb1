package session

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivemaster/backoffice/internal/domain/identity"
	"github.com/drivemaster/backoffice/internal/domain/shared"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func storeWithToken(t *testing.T, token string) *MemoryCredentialStore {
	t.Helper()
	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(context.Background(), identity.Session{Token: token}))
	return store
}

func TestManager_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("persists token and user on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/login", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "ana@example.com", creds["email"])

			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-123",
				"user":         map[string]any{"id": 1, "nombre": "Ana"},
			})
		}))
		defer server.Close()

		store := NewMemoryCredentialStore()
		m := NewManager(server.URL, store)

		resp, err := m.Login(ctx, "ana@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-123", resp.BearerToken())

		persisted, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-123", persisted.Token)
		assert.JSONEq(t, `{"id":1,"nombre":"Ana"}`, string(persisted.User))
	})

	t.Run("accepts legacy token field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-legacy"})
		}))
		defer server.Close()

		m := NewManager(server.URL, NewMemoryCredentialStore())

		resp, err := m.Login(ctx, "ana@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-legacy", resp.BearerToken())
	})

	t.Run("fails when server rejects credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "wrong password"})
		}))
		defer server.Close()

		m := NewManager(server.URL, NewMemoryCredentialStore())

		_, err := m.Login(ctx, "ana@example.com", "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
		assert.Contains(t, err.Error(), "wrong password")
	})

	t.Run("fails when response carries no token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}))
		defer server.Close()

		m := NewManager(server.URL, NewMemoryCredentialStore())

		_, err := m.Login(ctx, "ana@example.com", "secret")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})
}

func TestManager_Logout_Idempotent(t *testing.T) {
	ctx := context.Background()
	var hookCalls int32

	store := storeWithToken(t, "tok")
	m := NewManager("http://unused", store, WithSessionExpiredHook(func() {
		atomic.AddInt32(&hookCalls, 1)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Logout(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
	assert.Empty(t, m.Token(ctx))
}

func TestManager_IsAuthenticated(t *testing.T) {
	ctx := context.Background()

	t.Run("false without a token", func(t *testing.T) {
		m := NewManager("http://unused", NewMemoryCredentialStore())
		assert.False(t, m.IsAuthenticated(ctx))
	})

	t.Run("true for a live token", func(t *testing.T) {
		store := storeWithToken(t, signedToken(t, time.Now().Add(time.Hour)))
		m := NewManager("http://unused", store)
		assert.True(t, m.IsAuthenticated(ctx))
	})

	t.Run("expired token logs out and clears the store", func(t *testing.T) {
		var hookCalls int32
		store := storeWithToken(t, signedToken(t, time.Now().Add(-time.Hour)))
		m := NewManager("http://unused", store, WithSessionExpiredHook(func() {
			atomic.AddInt32(&hookCalls, 1)
		}))

		assert.False(t, m.IsAuthenticated(ctx))
		assert.Empty(t, m.Token(ctx))
		assert.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
	})

	t.Run("undecodable token is optimistically valid", func(t *testing.T) {
		store := storeWithToken(t, "not-a-jwt")
		m := NewManager("http://unused", store)
		assert.True(t, m.IsAuthenticated(ctx))
	})

	t.Run("token without expiry is valid", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		m := NewManager("http://unused", storeWithToken(t, signed))
		assert.True(t, m.IsAuthenticated(ctx))
	})
}

func TestManager_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches bearer token and json content type", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		m := NewManager(server.URL, storeWithToken(t, "tok"))

		req, err := http.NewRequest(http.MethodPost, server.URL+"/clientes", strings.NewReader(`{}`))
		require.NoError(t, err)

		body, err := m.Do(ctx, req)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
	})

	t.Run("leaves multipart content type untouched", func(t *testing.T) {
		var seenContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenContentType = r.Header.Get("Content-Type")
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		m := NewManager(server.URL, storeWithToken(t, "tok"))

		var buf strings.Builder
		writer := multipart.NewWriter(&buf)
		field, err := writer.CreateFormFile("file", "photo.jpg")
		require.NoError(t, err)
		field.Write([]byte("jpeg-bytes"))
		require.NoError(t, writer.Close())

		req, err := http.NewRequest(http.MethodPost, server.URL+"/upload", strings.NewReader(buf.String()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		_, err = m.Do(ctx, req)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(seenContentType, "multipart/form-data; boundary="))
	})

	t.Run("missing token tears down the session", func(t *testing.T) {
		var hookCalls int32
		m := NewManager("http://unused", NewMemoryCredentialStore(),
			WithSessionExpiredHook(func() { atomic.AddInt32(&hookCalls, 1) }))

		req, err := http.NewRequest(http.MethodGet, "http://unused/clientes", nil)
		require.NoError(t, err)

		_, err = m.Do(ctx, req)
		assert.ErrorIs(t, err, shared.ErrSessionExpired)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
	})

	t.Run("concurrent 401s trigger exactly one logout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		var hookCalls int32
		m := NewManager(server.URL, storeWithToken(t, "tok"),
			WithSessionExpiredHook(func() { atomic.AddInt32(&hookCalls, 1) }))

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req, _ := http.NewRequest(http.MethodGet, server.URL+"/clientes", nil)
				_, err := m.Do(ctx, req)
				assert.ErrorIs(t, err, shared.ErrSessionExpired)
			}()
		}
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
	})

	t.Run("non-2xx becomes HTTPError with server message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"message": "fecha_inicio is required"})
		}))
		defer server.Close()

		m := NewManager(server.URL, storeWithToken(t, "tok"))

		req, _ := http.NewRequest(http.MethodPost, server.URL+"/contratos", strings.NewReader(`{}`))
		_, err := m.Do(ctx, req)

		var httpErr *shared.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Status)
		assert.Equal(t, "fecha_inicio is required", httpErr.Message)
	})

	t.Run("non-2xx without message falls back to status text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		m := NewManager(server.URL, storeWithToken(t, "tok"))

		req, _ := http.NewRequest(http.MethodGet, server.URL+"/clientes", nil)
		_, err := m.Do(ctx, req)

		var httpErr *shared.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, "HTTP error! status: 500", httpErr.Message)
	})

	t.Run("empty success body resolves to nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		m := NewManager(server.URL, storeWithToken(t, "tok"))

		req, _ := http.NewRequest(http.MethodDelete, server.URL+"/clientes/1", nil)
		body, err := m.Do(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, body)
	})

	t.Run("transport failure becomes NetworkError", func(t *testing.T) {
		m := NewManager("http://unused", storeWithToken(t, "tok"))

		req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/clientes", nil)
		_, err := m.Do(ctx, req)

		var netErr *shared.NetworkError
		assert.True(t, errors.As(err, &netErr))
	})
}

func TestManager_LoginReArmsLogoutGuard(t *testing.T) {
	ctx := context.Background()
	var hookCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-2"})
	}))
	defer server.Close()

	m := NewManager(server.URL, NewMemoryCredentialStore(),
		WithSessionExpiredHook(func() { atomic.AddInt32(&hookCalls, 1) }))

	m.Logout(ctx)
	_, err := m.Login(ctx, "ana@example.com", "secret")
	require.NoError(t, err)
	m.Logout(ctx)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hookCalls))
}
