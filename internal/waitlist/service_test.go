package waitlist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pilotup/pilotup/internal/loops"
	"github.com/pilotup/pilotup/internal/validation"
)

type recordedRequest struct {
	method string
	body   map[string]any
}

func newProviderStub(t *testing.T, status int, responseBody string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		requests = append(requests, recordedRequest{method: r.Method, body: body})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(srv.Close)

	return srv, &requests
}

func TestBuildSource(t *testing.T) {
	require.Equal(t, "pilotup.io", BuildSource("pilotup.io", ""))
	require.Equal(t, "pilotup.io, launch-email", BuildSource("pilotup.io", "launch-email"))
}

func TestSubmit_ForwardsOnePost(t *testing.T) {
	srv, requests := newProviderStub(t, http.StatusOK, `{"success":true}`)
	svc := NewService(loops.NewClient(srv.URL, "", "", 2000), "pilotup.io")

	source, err := svc.Submit(context.Background(), "user@example.com", "launch-email")
	require.NoError(t, err)
	require.Equal(t, "pilotup.io, launch-email", source)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	require.Equal(t, http.MethodPost, got.method)
	require.Equal(t, "user@example.com", got.body["email"])
	require.Equal(t, "pilotup.io, launch-email", got.body["source"])
	require.Equal(t, "waiting list", got.body["signedUpFor"])
}

func TestSubmit_InvalidEmailSkipsProvider(t *testing.T) {
	srv, requests := newProviderStub(t, http.StatusOK, `{"success":true}`)
	svc := NewService(loops.NewClient(srv.URL, "", "", 2000), "pilotup.io")

	for _, email := range []string{"", "no-at-sign", "a@b", "has space@example.com"} {
		_, err := svc.Submit(context.Background(), email, "")
		require.ErrorIs(t, err, validation.ErrInvalidEmail, "email %q", email)
	}

	require.Empty(t, *requests, "invalid submissions must never reach the provider")
}

func TestSubmit_ProviderErrorMessageSurfaced(t *testing.T) {
	srv, requests := newProviderStub(t, http.StatusConflict, `{"message":"Email already on list"}`)
	svc := NewService(loops.NewClient(srv.URL, "", "", 2000), "pilotup.io")

	_, err := svc.Submit(context.Background(), "user@example.com", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Email already on list")

	// One attempt, no retry.
	require.Len(t, *requests, 1)
}

func TestSubmit_ProviderErrorWithoutMessage(t *testing.T) {
	srv, requests := newProviderStub(t, http.StatusInternalServerError, `{}`)
	svc := NewService(loops.NewClient(srv.URL, "", "", 2000), "pilotup.io")

	_, err := svc.Submit(context.Background(), "user@example.com", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
	require.Len(t, *requests, 1)
}

func TestSubmit_OversizedTagRejected(t *testing.T) {
	srv, requests := newProviderStub(t, http.StatusOK, `{"success":true}`)
	svc := NewService(loops.NewClient(srv.URL, "", "", 2000), "pilotup.io")

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'x'
	}

	_, err := svc.Submit(context.Background(), "user@example.com", string(long))
	require.ErrorIs(t, err, validation.ErrSourceTagTooLong)
	require.Empty(t, *requests)
}
