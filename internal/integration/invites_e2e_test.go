package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pilotup/pilotup/internal/invites"
)

func TestE2E_InviteLifecycle(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	rdb := newTestRedis(t, 1)

	srv := newTestServer(t, pool, rdb, testConfig("http://unused.invalid"))

	adminClient, adminCSRF := newCSRFClient(t, srv.URL)
	adminEmail := "admin@example.com"
	password := "password123"

	bootstrapAdmin(t, pool, adminEmail, password)
	login(t, adminClient, srv.URL, adminCSRF, adminEmail, password)

	inviteID, token := createInvite(t, adminClient, srv.URL, adminCSRF, "newhire@example.com")

	// The sign-up page checks the token before rendering the form.
	valid, _ := validateInvite(t, adminClient, srv.URL, token)
	require.True(t, valid)

	valid, message := validateInvite(t, adminClient, srv.URL, strings.Repeat("a", 32))
	require.False(t, valid)
	require.Equal(t, "Invite not found", message)

	// Redeem it.
	visitorClient, visitorCSRF := newCSRFClient(t, srv.URL)
	status, body := signup(t, visitorClient, srv.URL, visitorCSRF, token, "newhire@example.com", password)
	require.Equal(t, http.StatusCreated, status, "body: %s", string(body))

	// Single use: the same token now reports used and refuses a second
	// account.
	valid, message = validateInvite(t, adminClient, srv.URL, token)
	require.False(t, valid)
	require.Equal(t, "Invite already used", message)

	secondClient, secondCSRF := newCSRFClient(t, srv.URL)
	status, body = signup(t, secondClient, srv.URL, secondCSRF, token, "someone-else@example.com", password)
	require.Equal(t, http.StatusConflict, status, "body: %s", string(body))

	// The invite list shows the redemption.
	listResp := doJSONExpectSuccess(t, adminClient, http.MethodGet, srv.URL+"/api/v1/invites", adminCSRF, http.StatusOK, nil)
	var listed struct {
		Invites []struct {
			ID     uuid.UUID  `json:"id"`
			UsedAt *time.Time `json:"used_at"`
		} `json:"invites"`
	}
	require.NoError(t, json.Unmarshal(listResp.Data, &listed))
	require.Len(t, listed.Invites, 1)
	require.Equal(t, inviteID, listed.Invites[0].ID)
	require.NotNil(t, listed.Invites[0].UsedAt)

	actions := listAuditActions(t, adminClient, srv.URL)
	require.GreaterOrEqual(t, actions["invite.created"], 1)
	require.GreaterOrEqual(t, actions["invite.redeemed"], 1)
	require.GreaterOrEqual(t, actions["user.signup"], 1)
}

func TestE2E_InviteExpiry(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	rdb := newTestRedis(t, 2)

	srv := newTestServer(t, pool, rdb, testConfig("http://unused.invalid"))

	adminID := bootstrapAdmin(t, pool, "admin@example.com", "password123")

	// Mint a normal invite, then backdate its expiry; neither the API nor
	// the service will issue one that is already expired.
	service := invites.NewService(pool)
	invite, err := service.Issue(context.Background(), adminID, nil, time.Hour)
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(),
		`UPDATE invite_tokens SET expires_at = NOW() - INTERVAL '1 hour' WHERE id = $1`,
		invite.ID,
	)
	require.NoError(t, err)

	client, csrf := newCSRFClient(t, srv.URL)

	valid, message := validateInvite(t, client, srv.URL, invite.Token)
	require.False(t, valid)
	require.Equal(t, "Invite expired", message)

	status, body := signup(t, client, srv.URL, csrf, invite.Token, "late@example.com", "password123")
	require.Equal(t, http.StatusGone, status, "body: %s", string(body))

	// The losing signup left no account behind.
	require.Equal(t, 1, countUsers(t, pool))
}

func TestE2E_InviteRevoke(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	rdb := newTestRedis(t, 3)

	srv := newTestServer(t, pool, rdb, testConfig("http://unused.invalid"))

	adminClient, adminCSRF := newCSRFClient(t, srv.URL)
	bootstrapAdmin(t, pool, "admin@example.com", "password123")
	login(t, adminClient, srv.URL, adminCSRF, "admin@example.com", "password123")

	inviteID, token := createInvite(t, adminClient, srv.URL, adminCSRF, "")

	doJSONExpectSuccess(t, adminClient, http.MethodDelete, srv.URL+"/api/v1/invites/"+inviteID.String(), adminCSRF, http.StatusOK, nil)

	// A revoked invite is gone, not merely invalid.
	valid, message := validateInvite(t, adminClient, srv.URL, token)
	require.False(t, valid)
	require.Equal(t, "Invite not found", message)

	errEnv := doJSONExpectError(t, adminClient, http.MethodDelete, srv.URL+"/api/v1/invites/"+inviteID.String(), adminCSRF, http.StatusNotFound, nil)
	require.Equal(t, "not_found", errEnv.Error.Code)
}

// TestE2E_EmailCaseFold signs up with a mixed-case address and checks the
// account behaves as one mailbox: login works lowercased and a re-signup
// under different casing is a duplicate, not a second account.
func TestE2E_EmailCaseFold(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	rdb := newTestRedis(t, 9)

	srv := newTestServer(t, pool, rdb, testConfig("http://unused.invalid"))

	adminClient, adminCSRF := newCSRFClient(t, srv.URL)
	bootstrapAdmin(t, pool, "admin@example.com", "password123")
	login(t, adminClient, srv.URL, adminCSRF, "admin@example.com", "password123")

	_, token := createInvite(t, adminClient, srv.URL, adminCSRF, "")

	visitorClient, visitorCSRF := newCSRFClient(t, srv.URL)
	status, body := signup(t, visitorClient, srv.URL, visitorCSRF, token, "NewHire@Example.COM", "password123")
	require.Equal(t, http.StatusCreated, status, "body: %s", string(body))

	// Any casing logs into the same account.
	loginClient, loginCSRF := newCSRFClient(t, srv.URL)
	login(t, loginClient, srv.URL, loginCSRF, "newhire@example.com", "password123")

	// A fresh invite cannot mint a second account for the same mailbox.
	_, secondToken := createInvite(t, adminClient, srv.URL, adminCSRF, "")
	secondClient, secondCSRF := newCSRFClient(t, srv.URL)
	status, body = signup(t, secondClient, srv.URL, secondCSRF, secondToken, "NEWHIRE@example.com", "password123")
	require.Equal(t, http.StatusConflict, status, "body: %s", string(body))

	require.Equal(t, 2, countUsers(t, pool))
}

// TestE2E_RedemptionRace fires concurrent signups against one invite.
// Exactly one racer may win; every loser's account insert must roll back
// with its failed redemption.
func TestE2E_RedemptionRace(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	rdb := newTestRedis(t, 4)

	srv := newTestServer(t, pool, rdb, testConfig("http://unused.invalid"))

	adminClient, adminCSRF := newCSRFClient(t, srv.URL)
	bootstrapAdmin(t, pool, "admin@example.com", "password123")
	login(t, adminClient, srv.URL, adminCSRF, "admin@example.com", "password123")

	_, token := createInvite(t, adminClient, srv.URL, adminCSRF, "")

	const racers = 8

	statuses := make([]int, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			email := "racer" + uuid.NewString()[:8] + "@example.com"
			statuses[i], errs[i] = trySignup(srv.URL, token, email, "password123")
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, status := range statuses {
		require.NoError(t, errs[i])
		switch status {
		case http.StatusCreated:
			winners++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", status)
		}
	}
	require.Equal(t, 1, winners, "statuses: %v", statuses)

	// Admin plus exactly one racer.
	require.Equal(t, 2, countUsers(t, pool))
}
