package invites

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRedeemable(t *testing.T) {
	now := time.Now()
	used := now.Add(-time.Hour)

	tests := []struct {
		name   string
		invite InviteToken
		want   bool
	}{
		{
			name:   "fresh",
			invite: InviteToken{ExpiresAt: now.Add(time.Hour)},
			want:   true,
		},
		{
			name:   "expired",
			invite: InviteToken{ExpiresAt: now.Add(-time.Minute)},
			want:   false,
		},
		{
			name:   "expires exactly now",
			invite: InviteToken{ExpiresAt: now},
			want:   false,
		},
		{
			name:   "already used",
			invite: InviteToken{ExpiresAt: now.Add(time.Hour), UsedAt: &used},
			want:   false,
		},
		{
			name:   "used and expired",
			invite: InviteToken{ExpiresAt: now.Add(-time.Hour), UsedAt: &used},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.invite.Redeemable(now))
		})
	}
}

func TestClassify(t *testing.T) {
	now := time.Now()
	used := now.Add(-time.Hour)

	require.NoError(t, classify(nil, now.Add(time.Hour), now))
	require.ErrorIs(t, classify(nil, now.Add(-time.Minute), now), ErrInviteExpired)

	// Used wins over expired: the invite was consumed while still live.
	require.ErrorIs(t, classify(&used, now.Add(-time.Minute), now), ErrInviteAlreadyUsed)
	require.ErrorIs(t, classify(&used, now.Add(time.Hour), now), ErrInviteAlreadyUsed)
}
