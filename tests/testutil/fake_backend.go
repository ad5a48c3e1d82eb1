// Package testutil provides an in-memory fake of the backoffice REST backend
// for orchestration tests. It serves the flat collections the real API
// exposes and records every call in arrival order, so tests can assert both
// the end state and the sequence that produced it.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// Collections served by the fake backend.
var collections = []string{
	"clientes",
	"instructores",
	"contratos",
	"gestoria-ventas",
	"movimientos-contables",
	"horarios-instructores",
	"bloques-contrato",
	"user",
	"roles",
}

// filterableFields are the query parameters list endpoints match against
// record fields.
var filterableFields = []string{"contrato_id", "instructor_id", "cliente_id", "tipo_movimiento"}

// Record is one row of a fake collection.
type Record = map[string]any

// FakeBackend holds the in-memory collections and the recorded call log.
type FakeBackend struct {
	mu       sync.Mutex
	data     map[string][]Record
	nextID   int64
	calls    []string
	failures map[string]int
	token    string

	engine *gin.Engine
}

// NewFakeBackend creates an empty backend serving all collections.
func NewFakeBackend() *FakeBackend {
	gin.SetMode(gin.TestMode)

	b := &FakeBackend{
		data:     make(map[string][]Record),
		nextID:   0,
		failures: make(map[string]int),
	}

	engine := gin.New()
	engine.Use(b.record)

	for _, name := range collections {
		name := name
		engine.GET("/"+name, b.list(name))
		engine.GET("/"+name+"/:id", b.get(name))
		engine.POST("/"+name, b.create(name))
		engine.PUT("/"+name+"/:id", b.update(name))
		engine.DELETE("/"+name+"/:id", b.delete(name))
	}
	engine.POST("/auth/login", b.login)

	b.engine = engine
	return b
}

// Start runs the backend on an httptest server tied to the test lifetime.
func (b *FakeBackend) Start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(b.engine)
	t.Cleanup(server.Close)
	return server
}

// Seed inserts a record into a collection, assigning an id when absent, and
// returns the id. Seeding does not show up in the call log.
func (b *FakeBackend) Seed(collection string, record Record) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := recordID(record)
	if !ok {
		b.nextID++
		id = b.nextID
		record["id"] = id
	} else if id > b.nextID {
		b.nextID = id
	}
	b.data[collection] = append(b.data[collection], record)
	return id
}

// Records returns a copy of a collection's current rows.
func (b *FakeBackend) Records(collection string) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.data[collection]))
	copy(out, b.data[collection])
	return out
}

// Calls returns the recorded "METHOD /path" log in arrival order.
func (b *FakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

// FailWith makes every call matching "METHOD /path" answer with the given
// status until cleared.
func (b *FakeBackend) FailWith(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = status
}

// SetToken makes the backend require the given bearer token on every
// collection call; an unexpected token answers 401.
func (b *FakeBackend) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func (b *FakeBackend) record(c *gin.Context) {
	call := c.Request.Method + " " + c.Request.URL.Path

	b.mu.Lock()
	b.calls = append(b.calls, call)
	status, failed := b.failures[call]
	token := b.token
	b.mu.Unlock()

	if failed {
		c.AbortWithStatusJSON(status, gin.H{"message": "injected failure"})
		return
	}
	if token != "" && c.Request.URL.Path != "/auth/login" {
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
	}
	c.Next()
}

func (b *FakeBackend) list(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()

		matched := make([]Record, 0)
		for _, record := range b.data[collection] {
			if matchesQuery(record, c) {
				matched = append(matched, record)
			}
		}
		if limit := c.Query("limit"); limit != "" {
			if n, err := strconv.Atoi(limit); err == nil && n < len(matched) {
				matched = matched[:n]
			}
		}
		c.JSON(http.StatusOK, gin.H{"data": matched, "total": len(matched)})
	}
}

func (b *FakeBackend) get(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()

		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		for _, record := range b.data[collection] {
			if rid, ok := recordID(record); ok && rid == id {
				c.JSON(http.StatusOK, record)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("%s %d not found", collection, id)})
	}
}

func (b *FakeBackend) create(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var record Record
		if err := c.ShouldBindJSON(&record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		record["id"] = b.nextID
		b.data[collection] = append(b.data[collection], record)
		c.JSON(http.StatusCreated, record)
	}
}

func (b *FakeBackend) update(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var record Record
		if err := c.ShouldBindJSON(&record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		for i, existing := range b.data[collection] {
			if rid, ok := recordID(existing); ok && rid == id {
				record["id"] = id
				b.data[collection][i] = record
				c.JSON(http.StatusOK, record)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("%s %d not found", collection, id)})
	}
}

func (b *FakeBackend) delete(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()

		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		rows := b.data[collection]
		for i, existing := range rows {
			if rid, ok := recordID(existing); ok && rid == id {
				b.data[collection] = append(rows[:i:i], rows[i+1:]...)
				c.Status(http.StatusNoContent)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("%s %d not found", collection, id)})
	}
}

func (b *FakeBackend) login(c *gin.Context) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&creds); err != nil || creds.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	b.mu.Lock()
	token := b.token
	b.mu.Unlock()
	if token == "" {
		token = "fake-token"
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         gin.H{"email": creds.Email, "nombre": "Test User"},
	})
}

func matchesQuery(record Record, c *gin.Context) bool {
	for _, field := range filterableFields {
		want := c.Query(field)
		if want == "" {
			continue
		}
		got, ok := record[field]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func recordID(record Record) (int64, bool) {
	switch v := record["id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	}
	return 0, false
}
