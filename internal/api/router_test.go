package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduardobaptist/ifpass-api/internal/config"
	"github.com/eduardobaptist/ifpass-api/internal/database"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

type testServer struct {
	router http.Handler
	db     *database.Database
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: filepath.Join(t.TempDir(), "ifpass-test.db"),
			},
		},
		JWT: config.JWTConfig{
			Secret:     "test-jwt-secret",
			Expiration: time.Hour,
			Issuer:     "ifpass-test",
		},
		App: config.AppConfig{
			Secret: "test-app-secret",
		},
		Logging: config.LoggingConfig{
			Level: "error",
		},
		Security: config.SecurityConfig{
			CORSEnabled: true,
			CORSOrigins: []string{"*"},
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	router := NewRouter(cfg, db, zap.NewNop())

	return &testServer{router: router, db: db}
}

// request performs an HTTP request against the router and decodes the JSON
// response body into a map.
func (s *testServer) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	resp := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	}

	return w.Code, resp
}

func (s *testServer) register(t *testing.T, email, fullName string) (int64, string) {
	t.Helper()

	code, resp := s.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email":     email,
		"password":  "password123",
		"full_name": fullName,
	})
	require.Equal(t, http.StatusCreated, code)

	user := resp["user"].(map[string]interface{})
	return int64(user["id"].(float64)), resp["token"].(string)
}

// promote flips a registered user's role directly in the database, since
// registration always creates attendees.
func (s *testServer) promote(t *testing.T, email, role string) {
	t.Helper()

	user, err := s.db.GetUserByEmail(email)
	require.NoError(t, err)
	user.Role = role
	require.NoError(t, s.db.UpdateUser(user))
}

func TestCertificateLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Register an organizer and an attendee
	_, organizerToken := srv.register(t, "organizer@example.com", "Olivia Organizer")
	srv.promote(t, "organizer@example.com", models.RoleOrganizer)
	// Re-login so the token carries the organizer role
	code, resp := srv.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email":    "organizer@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	organizerToken = resp["token"].(string)

	_, attendeeToken := srv.register(t, "attendee@example.com", "Alice Attendee")

	// Organizer creates an event
	code, resp = srv.request(t, http.MethodPost, "/api/v1/events", organizerToken, map[string]interface{}{
		"name": "Tech Week 2026",
		"type": "internal",
		"date": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code, "body: %v", resp)
	eventID := int64(resp["event"].(map[string]interface{})["id"].(float64))

	// Attendee subscribes
	code, resp = srv.request(t, http.MethodPost, "/api/v1/subscriptions/subscribe", attendeeToken, map[string]interface{}{
		"event_id": eventID,
	})
	require.Equal(t, http.StatusCreated, code, "body: %v", resp)
	subscriptionID := int64(resp["subscription"].(map[string]interface{})["id"].(float64))

	// Issuing before check-in is rejected
	code, resp = srv.request(t, http.MethodPost, "/api/v1/certificates/issue", attendeeToken, map[string]interface{}{
		"subscription_id": subscriptionID,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp["error"], "attended")

	// Attendee checks in
	code, resp = srv.request(t, http.MethodPost, "/api/v1/subscriptions/attend", attendeeToken, map[string]interface{}{
		"subscription_id": subscriptionID,
	})
	require.Equal(t, http.StatusOK, code, "body: %v", resp)

	// First issuance creates the certificate
	code, resp = srv.request(t, http.MethodPost, "/api/v1/certificates/issue", attendeeToken, map[string]interface{}{
		"subscription_id": subscriptionID,
	})
	require.Equal(t, http.StatusCreated, code, "body: %v", resp)

	cert := resp["certificate"].(map[string]interface{})
	token := cert["verification_token"].(string)
	certNumber := cert["certificate_number"].(string)
	assert.Len(t, token, 64)
	assert.Regexp(t, `^CERT-\d+-[0-9A-F]{8}$`, certNumber)
	assert.EqualValues(t, 0, cert["verification_count"])

	// Reissuing returns the same certificate
	code, resp = srv.request(t, http.MethodPost, "/api/v1/certificates/issue", attendeeToken, map[string]interface{}{
		"subscription_id": subscriptionID,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "certificate already issued", resp["message"])
	assert.Equal(t, token, resp["certificate"].(map[string]interface{})["verification_token"])

	// Public validation requires no auth and counts verifications
	code, resp = srv.request(t, http.MethodGet, "/api/v1/certificates/validate?token="+token, "", nil)
	require.Equal(t, http.StatusOK, code, "body: %v", resp)
	assert.Equal(t, true, resp["valid"])
	assert.EqualValues(t, 1, resp["certificate"].(map[string]interface{})["verification_count"])
	assert.Equal(t, certNumber, resp["certificate"].(map[string]interface{})["certificate_number"])
	assert.Equal(t, "Tech Week 2026", resp["event"].(map[string]interface{})["name"])
	assert.Equal(t, "Alice Attendee", resp["user"].(map[string]interface{})["full_name"])
	// The response never echoes the signing material
	_, hasToken := resp["certificate"].(map[string]interface{})["verification_token"]
	assert.False(t, hasToken)

	code, resp = srv.request(t, http.MethodGet, "/api/v1/certificates/validate?token="+token, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, resp["certificate"].(map[string]interface{})["verification_count"])

	// Tampered record fails validation without incrementing the counter
	_, err := srv.db.DB().Exec(`UPDATE certificates SET signature = ? WHERE verification_token = ?`,
		"deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", token)
	require.NoError(t, err)

	code, resp = srv.request(t, http.MethodGet, "/api/v1/certificates/validate?token="+token, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, resp["valid"])
	assert.Contains(t, resp["error"], "tampered")

	// Unknown tokens are indistinguishable from never-issued certificates
	code, resp = srv.request(t, http.MethodGet, "/api/v1/certificates/validate?token="+fmt.Sprintf("%064d", 0), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, resp["valid"])
}

func TestValidateRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	code, resp := srv.request(t, http.MethodGet, "/api/v1/certificates/validate", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, resp["valid"])

	// POST body form works as well
	code, resp = srv.request(t, http.MethodPost, "/api/v1/certificates/validate", "", map[string]interface{}{
		"token": "unknown-token-unknown-token-unknown-token-unknown-token-unknown-",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, resp["valid"])
}

func TestAuthorizationBoundaries(t *testing.T) {
	srv := newTestServer(t)

	_, attendeeToken := srv.register(t, "attendee@example.com", "Alice Attendee")

	t.Run("Unauthenticated requests are rejected", func(t *testing.T) {
		code, _ := srv.request(t, http.MethodGet, "/api/v1/events", "", nil)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("Attendees cannot create events", func(t *testing.T) {
		code, _ := srv.request(t, http.MethodPost, "/api/v1/events", attendeeToken, map[string]interface{}{
			"name": "Sneaky Event",
			"date": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("Attendees cannot administer users", func(t *testing.T) {
		code, _ := srv.request(t, http.MethodGet, "/api/v1/users", attendeeToken, nil)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("Admins pass organizer checks", func(t *testing.T) {
		srv.register(t, "admin@example.com", "Ada Admin")
		srv.promote(t, "admin@example.com", models.RoleAdmin)
		code, resp := srv.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
			"email":    "admin@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, code)
		adminToken := resp["token"].(string)

		code, resp = srv.request(t, http.MethodPost, "/api/v1/events", adminToken, map[string]interface{}{
			"name": "Admin Event",
			"date": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusCreated, code, "body: %v", resp)

		code, _ = srv.request(t, http.MethodGet, "/api/v1/users", adminToken, nil)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("Duplicate registration conflicts", func(t *testing.T) {
		code, resp := srv.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
			"email":     "attendee@example.com",
			"password":  "password123",
			"full_name": "Alice Again",
		})
		assert.Equal(t, http.StatusConflict, code)
		assert.Contains(t, resp["error"], "already exists")
	})

	t.Run("Wrong password is a uniform 401", func(t *testing.T) {
		code, resp := srv.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
			"email":    "attendee@example.com",
			"password": "not-the-password",
		})
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "invalid credentials", resp["error"])

		code, resp = srv.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
			"email":    "nobody@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "invalid credentials", resp["error"])
	})
}

func TestSubscriptionFlow(t *testing.T) {
	srv := newTestServer(t)

	_, organizerToken := srv.register(t, "organizer@example.com", "Olivia Organizer")
	srv.promote(t, "organizer@example.com", models.RoleOrganizer)
	code, resp := srv.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email":    "organizer@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	organizerToken = resp["token"].(string)

	code, resp = srv.request(t, http.MethodPost, "/api/v1/events", organizerToken, map[string]interface{}{
		"name":     "Limited Workshop",
		"date":     time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"capacity": 1,
	})
	require.Equal(t, http.StatusCreated, code, "body: %v", resp)
	eventID := int64(resp["event"].(map[string]interface{})["id"].(float64))

	_, firstToken := srv.register(t, "first@example.com", "First In")
	_, secondToken := srv.register(t, "second@example.com", "Second Out")

	// First attendee takes the only slot
	code, resp = srv.request(t, http.MethodPost, "/api/v1/subscriptions/subscribe", firstToken, map[string]interface{}{
		"event_id": eventID,
	})
	require.Equal(t, http.StatusCreated, code, "body: %v", resp)
	subscriptionID := int64(resp["subscription"].(map[string]interface{})["id"].(float64))

	// Duplicate subscription conflicts
	code, _ = srv.request(t, http.MethodPost, "/api/v1/subscriptions/subscribe", firstToken, map[string]interface{}{
		"event_id": eventID,
	})
	assert.Equal(t, http.StatusConflict, code)

	// Event is full for everyone else
	code, resp = srv.request(t, http.MethodPost, "/api/v1/subscriptions/subscribe", secondToken, map[string]interface{}{
		"event_id": eventID,
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, resp["error"], "full")

	// Cancelling frees the slot
	code, _ = srv.request(t, http.MethodPost, fmt.Sprintf("/api/v1/subscriptions/%d/cancel", subscriptionID), firstToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = srv.request(t, http.MethodPost, "/api/v1/subscriptions/subscribe", secondToken, map[string]interface{}{
		"event_id": eventID,
	})
	assert.Equal(t, http.StatusCreated, code, "body: %v", resp)

	// Cancelled subscriptions cannot check in
	code, _ = srv.request(t, http.MethodPost, "/api/v1/subscriptions/attend", firstToken, map[string]interface{}{
		"subscription_id": subscriptionID,
	})
	assert.Equal(t, http.StatusConflict, code)

	// Listing shows the attendee's own subscriptions
	code, resp = srv.request(t, http.MethodGet, "/api/v1/subscriptions/my-subscriptions", secondToken, nil)
	require.Equal(t, http.StatusOK, code)
	subs := resp["subscriptions"].([]interface{})
	assert.Len(t, subs, 1)
}
