package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/pilotup/pilotup/internal/app"
	"github.com/pilotup/pilotup/internal/auth"
	"github.com/pilotup/pilotup/internal/config"
)

type envelopeResponse struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func testConfig(waitlistURL string) *config.Config {
	return &config.Config{
		Env:            "dev",
		HTTPAddr:       ":0",
		BaseURL:        "http://localhost",
		DBDSN:          "unused",
		JWTSecret:      "test-secret",
		LogLevel:       "error",
		RateLimitRPM:   600,
		WaitlistURL:    waitlistURL,
		SiteID:         "pilotup.io",
		LoopsTimeoutMS: 2000,
		InviteTTLHours: 168,
		ResetTTLMin:    60,
		SessionDays:    7,
	}
}

func newTestServer(t *testing.T, pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(app.NewRouter(pool, rdb, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func newCSRFClient(t *testing.T, serverURL string) (*http.Client, string) {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	baseURL, err := url.Parse(serverURL)
	require.NoError(t, err)

	csrfToken, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	jar.SetCookies(baseURL, []*http.Cookie{{
		Name:  auth.CSRFCookieName,
		Value: csrfToken,
		Path:  "/",
	}})

	return client, csrfToken
}

// bootstrapAdmin mirrors the `pilotup admin create-admin` path: the first
// account is inserted directly because signup itself is invite-gated.
func bootstrapAdmin(t *testing.T, pool *pgxpool.Pool, email, password string) uuid.UUID {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var userID uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`,
		strings.ToLower(email), hash,
	).Scan(&userID)
	require.NoError(t, err)

	return userID
}

func login(t *testing.T, client *http.Client, baseURL, csrfToken, email, password string) {
	t.Helper()

	doJSONExpectStatus(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", csrfToken, http.StatusOK, map[string]any{
		"email":    email,
		"password": password,
	})
}

func createInvite(t *testing.T, client *http.Client, baseURL, csrfToken, email string) (uuid.UUID, string) {
	t.Helper()

	body := map[string]any{}
	if email != "" {
		body["email"] = email
	}

	resp := doJSONExpectSuccess(t, client, http.MethodPost, baseURL+"/api/v1/invites", csrfToken, http.StatusCreated, body)

	var parsed struct {
		Invite struct {
			ID        uuid.UUID `json:"id"`
			Token     string    `json:"token"`
			SignupURL string    `json:"signup_url"`
		} `json:"invite"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &parsed))
	require.NotEqual(t, uuid.Nil, parsed.Invite.ID)
	require.Len(t, parsed.Invite.Token, 32)
	require.Contains(t, parsed.Invite.SignupURL, "/signup?token="+parsed.Invite.Token)

	return parsed.Invite.ID, parsed.Invite.Token
}

func validateInvite(t *testing.T, client *http.Client, baseURL, token string) (valid bool, message string) {
	t.Helper()

	resp, err := client.Get(baseURL + "/api/v1/invites/validate?token=" + url.QueryEscape(token))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", string(body))

	var env struct {
		Data struct {
			Valid   bool   `json:"valid"`
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))

	return env.Data.Valid, env.Data.Message
}

func signup(t *testing.T, client *http.Client, baseURL, csrfToken, token, email, password string) (int, []byte) {
	t.Helper()

	payload := map[string]any{
		"token":    token,
		"email":    email,
		"password": password,
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/auth/signup", bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", csrfToken)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

// trySignup is the goroutine-safe variant of signup: it reports transport
// failures instead of failing the test, so racing callers can assert on the
// collected results afterwards.
func trySignup(baseURL, token, email, password string) (int, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return 0, err
	}
	client := &http.Client{Jar: jar}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return 0, err
	}

	csrfToken, err := auth.GenerateCSRFToken()
	if err != nil {
		return 0, err
	}
	jar.SetCookies(parsed, []*http.Cookie{{
		Name:  auth.CSRFCookieName,
		Value: csrfToken,
		Path:  "/",
	}})

	b, err := json.Marshal(map[string]any{
		"token":    token,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/auth/signup", bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", csrfToken)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func countUsers(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	return n
}

func listAuditActions(t *testing.T, client *http.Client, baseURL string) map[string]int {
	t.Helper()

	resp, err := client.Get(baseURL + "/api/v1/audit?limit=100")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", string(body))

	var env struct {
		Data struct {
			Events []struct {
				Action string `json:"action"`
			} `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))

	actions := make(map[string]int)
	for _, ev := range env.Data.Events {
		actions[ev.Action]++
	}
	return actions
}

func doJSONExpectSuccess(t *testing.T, client *http.Client, method, urlStr, csrfToken string, wantStatus int, payload any) envelopeResponse {
	t.Helper()

	respBody := doJSONExpectStatus(t, client, method, urlStr, csrfToken, wantStatus, payload)

	var env envelopeResponse
	require.NoError(t, json.Unmarshal(respBody, &env))
	require.NotEmpty(t, env.RequestID)

	return env
}

func doJSONExpectError(t *testing.T, client *http.Client, method, urlStr, csrfToken string, wantStatus int, payload any) errorEnvelope {
	t.Helper()

	respBody := doJSONExpectStatus(t, client, method, urlStr, csrfToken, wantStatus, payload)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(respBody, &env))
	require.NotEmpty(t, env.Error.RequestID)

	return env
}

func doJSONExpectStatus(t *testing.T, client *http.Client, method, urlStr, csrfToken string, wantStatus int, payload any) []byte {
	t.Helper()

	var bodyReader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, urlStr, bodyReader)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete {
		req.Header.Set("X-CSRF-Token", csrfToken)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "body: %s", string(body))

	return body
}
